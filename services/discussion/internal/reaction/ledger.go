// Package reaction owns the per-user like/dislike state of comments and
// the counters derived from it.
package reaction

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/example/discussion-platform/services/discussion/internal/domain"
	"github.com/example/discussion-platform/services/discussion/internal/moderation"
	"github.com/example/discussion-platform/services/discussion/internal/ratelimit"
	"github.com/example/discussion-platform/services/discussion/internal/store"
)

type Ledger struct {
	store   store.ReactionStore
	gate    *moderation.Gate
	limiter *ratelimit.Limiter
	now     func() time.Time
	log     *zap.Logger
}

func NewLedger(s store.ReactionStore, gate *moderation.Gate, limiter *ratelimit.Limiter, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		store:   s,
		gate:    gate,
		limiter: limiter,
		now:     func() time.Time { return time.Now().UTC() },
		log:     log,
	}
}

// SetReaction moves userID's reaction on commentID to desired. Asking for
// the current state is a Conflict, not a no-op.
func (l *Ledger) SetReaction(ctx context.Context, commentID int64, userID string, desired domain.Reaction) error {
	if !desired.Valid() {
		return domain.InvalidArgument("unknown reaction")
	}
	actor, err := l.gate.Admit(ctx, userID, moderation.Interacting)
	if err != nil {
		return err
	}
	slot, err := l.limiter.Reserve(ctx, ratelimit.ActionReaction, actor)
	if err != nil {
		return err
	}

	err = l.store.SetReaction(ctx, commentID, actor.ID, desired, l.now())
	if err != nil {
		slot.Release(ctx)
	}
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		return domain.NotFound("comment does not exist")
	case errors.Is(err, store.ErrSameReaction):
		return domain.Conflict(sameStateMessage(desired))
	default:
		l.log.Error("reaction: set failed",
			zap.Int64("comment_id", commentID), zap.String("user_id", actor.ID),
			zap.String("desired", desired.String()), zap.Error(err))
		return domain.StorageFailure(err)
	}
	return nil
}

// Reaction returns userID's current reaction on commentID.
func (l *Ledger) Reaction(ctx context.Context, commentID int64, userID string) (domain.Reaction, error) {
	r, err := l.store.GetReaction(ctx, commentID, userID)
	if err != nil {
		l.log.Error("reaction: get failed", zap.Int64("comment_id", commentID), zap.Error(err))
		return domain.ReactionNone, domain.StorageFailure(err)
	}
	return r, nil
}

// GetReactions returns the non-none reactions of userID among commentIDs.
func (l *Ledger) GetReactions(ctx context.Context, userID string, commentIDs []int64) (map[int64]domain.Reaction, error) {
	return l.store.GetReactions(ctx, userID, commentIDs)
}

func sameStateMessage(r domain.Reaction) string {
	switch r {
	case domain.ReactionLiked:
		return "You have already liked this comment"
	case domain.ReactionDisliked:
		return "You have already disliked this comment"
	default:
		return "You have not reacted to this comment"
	}
}
