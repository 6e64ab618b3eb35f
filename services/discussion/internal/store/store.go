// Package store persists comments, reactions, reports and notification
// records. Memory and Postgres implementations share the contracts below.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/example/discussion-platform/services/discussion/internal/domain"
)

var (
	ErrNotFound = errors.New("store: not found")
	// ErrThreadConflict means another top-level comment claimed the same
	// thread id first. Callers retry the insert.
	ErrThreadConflict = errors.New("store: thread id already taken")
	// ErrSameReaction means the requested reaction equals the stored one.
	ErrSameReaction = errors.New("store: reaction unchanged")
)

// NewComment carries the caller-supplied fields of a comment row.
type NewComment struct {
	PostID   string
	AuthorID string
	Text     string
}

type CommentStore interface {
	// InsertTopLevel allocates a thread id above every existing top-level
	// thread id and inserts the root in one step.
	InsertTopLevel(ctx context.Context, c NewComment) (domain.Comment, error)
	// InsertReply stores a reply under parent and increments the root's
	// reply counter in the same unit of work.
	InsertReply(ctx context.Context, parent domain.Comment, authorID, text string) (domain.Comment, error)
	GetComment(ctx context.Context, id int64) (domain.Comment, error)
	Tombstone(ctx context.Context, id int64) error
	ListTopLevel(ctx context.Context, postID string, offset, limit int) ([]domain.Comment, int, error)
	ListReplies(ctx context.Context, threadID int64, offset, limit int) ([]domain.Comment, int, error)
}

type ReactionStore interface {
	// SetReaction moves (commentID, userID) to desired and adjusts the
	// comment's counters atomically. It returns ErrSameReaction when nothing
	// changes and ErrNotFound when the comment does not exist.
	SetReaction(ctx context.Context, commentID int64, userID string, desired domain.Reaction, at time.Time) error
	GetReaction(ctx context.Context, commentID int64, userID string) (domain.Reaction, error)
	GetReactions(ctx context.Context, userID string, commentIDs []int64) (map[int64]domain.Reaction, error)
	// Tally counts ledger rows per status for one comment.
	Tally(ctx context.Context, commentID int64) (liked, disliked int64, err error)
}

type ReportStore interface {
	InsertReport(ctx context.Context, r domain.Report) (domain.Report, error)
	GetReport(ctx context.Context, id int64) (domain.Report, error)
	ListReports(ctx context.Context, offset, limit int) ([]domain.Report, int, error)
	DeleteReport(ctx context.Context, id int64) error
}

// StoredNotification is a delivered notification record.
type StoredNotification struct {
	ID int64 `json:"id"`
	domain.Notification
	CreatedAt time.Time `json:"created_at"`
}
