// Package report handles user complaints about comments and their review
// by administrators.
package report

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/example/discussion-platform/services/discussion/internal/domain"
	"github.com/example/discussion-platform/services/discussion/internal/moderation"
	"github.com/example/discussion-platform/services/discussion/internal/ratelimit"
	"github.com/example/discussion-platform/services/discussion/internal/store"
)

const (
	maxReasonRunes = 500
	reportsPerPage = 20
)

// Remover tombstones a comment with administrative authority.
type Remover interface {
	Remove(ctx context.Context, commentID int64) error
}

type Desk struct {
	reports  store.ReportStore
	comments store.CommentStore
	remover  Remover
	gate     *moderation.Gate
	limiter  *ratelimit.Limiter
	log      *zap.Logger
}

func NewDesk(reports store.ReportStore, comments store.CommentStore, remover Remover, gate *moderation.Gate, limiter *ratelimit.Limiter, log *zap.Logger) *Desk {
	if log == nil {
		log = zap.NewNop()
	}
	return &Desk{reports: reports, comments: comments, remover: remover, gate: gate, limiter: limiter, log: log}
}

// ReportComment files a report, snapshotting the comment as it is now.
func (d *Desk) ReportComment(ctx context.Context, commentID int64, reporterID, reason string) (domain.Report, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Report{}, domain.InvalidArgument("a reason is required")
	}
	if utf8.RuneCountInString(reason) > maxReasonRunes {
		return domain.Report{}, domain.InvalidArgument("reason is too long")
	}
	reporter, err := d.gate.Admit(ctx, reporterID, moderation.Reporting)
	if err != nil {
		return domain.Report{}, err
	}
	slot, err := d.limiter.Reserve(ctx, ratelimit.ActionReport, reporter)
	if err != nil {
		return domain.Report{}, err
	}

	c, err := d.comments.GetComment(ctx, commentID)
	if err != nil {
		slot.Release(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return domain.Report{}, domain.NotFound("comment does not exist")
		}
		d.log.Error("report: get comment failed", zap.Int64("comment_id", commentID), zap.Error(err))
		return domain.Report{}, domain.StorageFailure(err)
	}

	r, err := d.reports.InsertReport(ctx, domain.Report{
		CommentID:      c.ID,
		ReporterID:     reporter.ID,
		ReportedUserID: c.AuthorID,
		ContentText:    c.Text,
		Reason:         reason,
	})
	if err != nil {
		slot.Release(ctx)
		d.log.Error("report: insert failed", zap.Int64("comment_id", commentID), zap.Error(err))
		return domain.Report{}, domain.StorageFailure(err)
	}
	d.log.Info("report: filed", zap.Int64("report_id", r.ID), zap.Int64("comment_id", c.ID))
	return r, nil
}

func (d *Desk) ListReports(ctx context.Context, adminID string, offset int) (domain.Page[domain.Report], error) {
	if _, err := d.gate.RequireAdmin(ctx, adminID); err != nil {
		return domain.Page[domain.Report]{}, err
	}
	if offset < 0 {
		return domain.Page[domain.Report]{}, domain.InvalidArgument("offset must not be negative")
	}
	items, total, err := d.reports.ListReports(ctx, offset, reportsPerPage)
	if err != nil {
		d.log.Error("report: list failed", zap.Error(err))
		return domain.Page[domain.Report]{}, domain.StorageFailure(err)
	}
	if items == nil {
		items = []domain.Report{}
	}
	return domain.Page[domain.Report]{Items: items, Total: total, Offset: offset}, nil
}

// ResolveReport closes a report, tombstoning the reported comment first
// when removeComment is set.
func (d *Desk) ResolveReport(ctx context.Context, adminID string, reportID int64, removeComment bool) error {
	admin, err := d.gate.RequireAdmin(ctx, adminID)
	if err != nil {
		return err
	}
	r, err := d.reports.GetReport(ctx, reportID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NotFound("report does not exist")
		}
		d.log.Error("report: get failed", zap.Int64("report_id", reportID), zap.Error(err))
		return domain.StorageFailure(err)
	}
	if removeComment {
		if err := d.remover.Remove(ctx, r.CommentID); err != nil && !domain.IsKind(err, domain.KindNotFound) {
			return err
		}
	}
	if err := d.reports.DeleteReport(ctx, reportID); err != nil && !errors.Is(err, store.ErrNotFound) {
		d.log.Error("report: delete failed", zap.Int64("report_id", reportID), zap.Error(err))
		return domain.StorageFailure(err)
	}
	d.log.Info("report: resolved",
		zap.Int64("report_id", reportID), zap.String("admin_id", admin.ID), zap.Bool("comment_removed", removeComment))
	return nil
}
