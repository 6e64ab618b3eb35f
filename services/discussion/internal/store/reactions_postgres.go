package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/example/discussion-platform/services/discussion/internal/domain"
)

// SetReaction runs the whole transition in one transaction. The ledger row
// is locked with FOR UPDATE; a first reaction races through
// INSERT ... ON CONFLICT and re-reads under lock if another call won.
func (s *Postgres) SetReaction(ctx context.Context, commentID int64, userID string, desired domain.Reaction, at time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM comments WHERE id = $1)`, commentID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	current, err := lockReaction(ctx, tx, commentID, userID)
	if err != nil {
		return err
	}

	inserted := false
	if current == domain.ReactionNone && desired != domain.ReactionNone {
		tag, err := tx.Exec(ctx,
			`INSERT INTO comment_reactions (comment_id, user_id, status, last_updated)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (comment_id, user_id) DO NOTHING`,
			commentID, userID, int16(desired), at)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 1 {
			inserted = true
		} else if current, err = lockReaction(ctx, tx, commentID, userID); err != nil {
			return err
		}
	}

	if !inserted && current == desired {
		return ErrSameReaction
	}

	switch {
	case inserted:
	case desired == domain.ReactionNone:
		_, err = tx.Exec(ctx, `DELETE FROM comment_reactions WHERE comment_id = $1 AND user_id = $2`, commentID, userID)
	default:
		_, err = tx.Exec(ctx,
			`UPDATE comment_reactions SET status = $3, last_updated = $4 WHERE comment_id = $1 AND user_id = $2`,
			commentID, userID, int16(desired), at)
	}
	if err != nil {
		return err
	}

	like, dislike := counterDelta(current, desired)
	if _, err := tx.Exec(ctx,
		`UPDATE comments SET like_count = like_count + $2, dislike_count = dislike_count + $3 WHERE id = $1`,
		commentID, like, dislike); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func lockReaction(ctx context.Context, tx pgx.Tx, commentID int64, userID string) (domain.Reaction, error) {
	var status int16
	err := tx.QueryRow(ctx,
		`SELECT status FROM comment_reactions WHERE comment_id = $1 AND user_id = $2 FOR UPDATE`,
		commentID, userID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ReactionNone, nil
	}
	if err != nil {
		return domain.ReactionNone, err
	}
	return domain.Reaction(status), nil
}

func (s *Postgres) GetReaction(ctx context.Context, commentID int64, userID string) (domain.Reaction, error) {
	var status int16
	err := s.pool.QueryRow(ctx,
		`SELECT status FROM comment_reactions WHERE comment_id = $1 AND user_id = $2`,
		commentID, userID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ReactionNone, nil
	}
	if err != nil {
		return domain.ReactionNone, err
	}
	return domain.Reaction(status), nil
}

func (s *Postgres) GetReactions(ctx context.Context, userID string, commentIDs []int64) (map[int64]domain.Reaction, error) {
	out := make(map[int64]domain.Reaction, len(commentIDs))
	if len(commentIDs) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT comment_id, status FROM comment_reactions WHERE user_id = $1 AND comment_id = ANY($2)`,
		userID, commentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var status int16
		if err := rows.Scan(&id, &status); err != nil {
			return nil, err
		}
		out[id] = domain.Reaction(status)
	}
	return out, rows.Err()
}

func (s *Postgres) Tally(ctx context.Context, commentID int64) (int64, int64, error) {
	var liked, disliked int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE status = 1), COUNT(*) FILTER (WHERE status = 2)
		 FROM comment_reactions WHERE comment_id = $1`, commentID).Scan(&liked, &disliked)
	return liked, disliked, err
}
