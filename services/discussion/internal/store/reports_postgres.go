package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/example/discussion-platform/services/discussion/internal/domain"
)

const reportCols = `id, comment_id, reporter_id, reported_user_id, content_text, reason, created_at`

func scanReport(row pgx.Row) (domain.Report, error) {
	var r domain.Report
	err := row.Scan(&r.ID, &r.CommentID, &r.ReporterID, &r.ReportedUserID, &r.ContentText, &r.Reason, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Report{}, ErrNotFound
	}
	return r, err
}

func (s *Postgres) InsertReport(ctx context.Context, r domain.Report) (domain.Report, error) {
	const q = `INSERT INTO comment_reports (comment_id, reporter_id, reported_user_id, content_text, reason)
	           VALUES ($1, $2, $3, $4, $5)
	           RETURNING ` + reportCols
	return scanReport(s.pool.QueryRow(ctx, q, r.CommentID, r.ReporterID, r.ReportedUserID, r.ContentText, r.Reason))
}

func (s *Postgres) GetReport(ctx context.Context, id int64) (domain.Report, error) {
	return scanReport(s.pool.QueryRow(ctx, `SELECT `+reportCols+` FROM comment_reports WHERE id = $1`, id))
}

func (s *Postgres) ListReports(ctx context.Context, offset, limit int) ([]domain.Report, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM comment_reports`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+reportCols+` FROM comment_reports ORDER BY created_at ASC, id ASC OFFSET $1 LIMIT $2`,
		offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []domain.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

func (s *Postgres) DeleteReport(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM comment_reports WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
