package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/discussion-platform/services/discussion/internal/domain"
)

const commentCols = `id, post_id, author_id, thread_id, parent_comment_id, text,
	created_at, like_count, dislike_count, reply_count, deleted`

// Postgres persists comments, reactions and reports.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func scanComment(row pgx.Row) (domain.Comment, error) {
	var c domain.Comment
	err := row.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.ThreadID, &c.ParentCommentID, &c.Text,
		&c.CreatedAt, &c.LikeCount, &c.DislikeCount, &c.ReplyCount, &c.Deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Comment{}, ErrNotFound
	}
	return c, err
}

// InsertTopLevel computes the next thread id inside the INSERT. Two
// concurrent callers may compute the same value; the loser trips the
// partial unique index and gets ErrThreadConflict.
func (s *Postgres) InsertTopLevel(ctx context.Context, nc NewComment) (domain.Comment, error) {
	const q = `INSERT INTO comments (post_id, author_id, thread_id, text)
	           SELECT $1, $2, COALESCE(MAX(thread_id), 0) + 1, $3
	           FROM comments WHERE parent_comment_id IS NULL
	           RETURNING ` + commentCols
	c, err := scanComment(s.pool.QueryRow(ctx, q, nc.PostID, nc.AuthorID, nc.Text))
	if isUniqueViolation(err, rootThreadIndex) {
		return domain.Comment{}, ErrThreadConflict
	}
	return c, err
}

func (s *Postgres) InsertReply(ctx context.Context, parent domain.Comment, authorID, text string) (domain.Comment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Comment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const ins = `INSERT INTO comments (post_id, author_id, thread_id, parent_comment_id, text)
	             VALUES ($1, $2, $3, $4, $5)
	             RETURNING ` + commentCols
	c, err := scanComment(tx.QueryRow(ctx, ins, parent.PostID, authorID, parent.ThreadID, parent.ID, text))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.Comment{}, ErrNotFound
		}
		return domain.Comment{}, err
	}

	const bump = `UPDATE comments SET reply_count = reply_count + 1
	              WHERE thread_id = $1 AND parent_comment_id IS NULL`
	if _, err := tx.Exec(ctx, bump, parent.ThreadID); err != nil {
		return domain.Comment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Comment{}, err
	}
	return c, nil
}

func (s *Postgres) GetComment(ctx context.Context, id int64) (domain.Comment, error) {
	return scanComment(s.pool.QueryRow(ctx, `SELECT `+commentCols+` FROM comments WHERE id = $1`, id))
}

func (s *Postgres) Tombstone(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE comments SET text = $2, deleted = true WHERE id = $1`, id, domain.DeletedMarker)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) ListTopLevel(ctx context.Context, postID string, offset, limit int) ([]domain.Comment, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM comments WHERE post_id = $1 AND parent_comment_id IS NULL`, postID).Scan(&total); err != nil {
		return nil, 0, err
	}
	items, err := s.scanComments(ctx, `SELECT `+commentCols+` FROM comments
		WHERE post_id = $1 AND parent_comment_id IS NULL
		ORDER BY created_at ASC, id ASC
		OFFSET $2 LIMIT $3`, postID, offset, limit)
	return items, total, err
}

func (s *Postgres) ListReplies(ctx context.Context, threadID int64, offset, limit int) ([]domain.Comment, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM comments WHERE thread_id = $1 AND parent_comment_id IS NOT NULL`, threadID).Scan(&total); err != nil {
		return nil, 0, err
	}
	items, err := s.scanComments(ctx, `SELECT `+commentCols+` FROM comments
		WHERE thread_id = $1 AND parent_comment_id IS NOT NULL
		ORDER BY created_at ASC, id ASC
		OFFSET $2 LIMIT $3`, threadID, offset, limit)
	return items, total, err
}

func (s *Postgres) scanComments(ctx context.Context, q string, args ...any) ([]domain.Comment, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
