package reaction

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/example/discussion-platform/services/discussion/internal/domain"
	"github.com/example/discussion-platform/services/discussion/internal/moderation"
	"github.com/example/discussion-platform/services/discussion/internal/ratelimit"
	"github.com/example/discussion-platform/services/discussion/internal/store"
	"github.com/example/discussion-platform/services/discussion/internal/upstream"
)

func newLedger(t *testing.T, caps ratelimit.Caps) (*Ledger, *store.Memory, domain.Comment) {
	t.Helper()
	mem, err := store.NewMemory(5)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	dir := upstream.NewMemoryDirectory()
	for _, id := range []string{"u1", "u2", "u3", "u4"} {
		dir.PutUser(domain.User{ID: id, Username: id, Verified: true})
	}
	dir.PutUser(domain.User{ID: "banned", Username: "banned", Verified: true, Banned: true})
	dir.PutUser(domain.User{ID: "admin", Username: "admin", Verified: true, IsAdmin: true})

	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	lim := ratelimit.New(ratelimit.NewMemoryCounter(), ratelimit.DefaultPolicy(caps),
		ratelimit.WithClock(func() time.Time { return now }))
	c, err := mem.InsertTopLevel(context.Background(), store.NewComment{PostID: "p", AuthorID: "u1", Text: "x"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return NewLedger(mem, moderation.NewGate(dir, nil), lim, nil), mem, c
}

func generous() ratelimit.Caps {
	return ratelimit.Caps{CommentsPerMinute: 1000, CommentsPerDay: 1000, ReactionsPerMinute: 1000, ReactionsPerDay: 1000, ReportsPerHour: 1000}
}

func counts(t *testing.T, mem *store.Memory, id int64) (int64, int64) {
	t.Helper()
	c, err := mem.GetComment(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return c.LikeCount, c.DislikeCount
}

func TestSetReactionTransitions(t *testing.T) {
	l, mem, c := newLedger(t, generous())
	ctx := context.Background()

	steps := []struct {
		desired       domain.Reaction
		wantKind      domain.Kind
		like, dislike int64
	}{
		{domain.ReactionLiked, domain.KindUnknown, 1, 0},
		{domain.ReactionLiked, domain.KindConflict, 1, 0},
		{domain.ReactionDisliked, domain.KindUnknown, 0, 1},
		{domain.ReactionNone, domain.KindUnknown, 0, 0},
		{domain.ReactionNone, domain.KindConflict, 0, 0},
		{domain.ReactionDisliked, domain.KindUnknown, 0, 1},
		{domain.ReactionLiked, domain.KindUnknown, 1, 0},
	}
	for i, s := range steps {
		err := l.SetReaction(ctx, c.ID, "u2", s.desired)
		if s.wantKind == domain.KindUnknown && err != nil {
			t.Fatalf("step %d: unexpected error %v", i, err)
		}
		if s.wantKind != domain.KindUnknown && !domain.IsKind(err, s.wantKind) {
			t.Fatalf("step %d: want %v, got %v", i, s.wantKind, err)
		}
		like, dislike := counts(t, mem, c.ID)
		if like != s.like || dislike != s.dislike {
			t.Fatalf("step %d: counters %d/%d, want %d/%d", i, like, dislike, s.like, s.dislike)
		}
	}
	r, _ := l.Reaction(ctx, c.ID, "u2")
	if r != domain.ReactionLiked {
		t.Fatalf("final state = %v", r)
	}
}

func TestConflictMessages(t *testing.T) {
	l, _, c := newLedger(t, generous())
	ctx := context.Background()

	_ = l.SetReaction(ctx, c.ID, "u2", domain.ReactionLiked)
	if err := l.SetReaction(ctx, c.ID, "u2", domain.ReactionLiked); domain.MessageOf(err) != "You have already liked this comment" {
		t.Fatalf("message = %q", domain.MessageOf(err))
	}
	if err := l.SetReaction(ctx, c.ID, "u3", domain.ReactionNone); domain.MessageOf(err) != "You have not reacted to this comment" {
		t.Fatalf("message = %q", domain.MessageOf(err))
	}
}

func TestSetReactionErrors(t *testing.T) {
	l, _, c := newLedger(t, generous())
	ctx := context.Background()

	if err := l.SetReaction(ctx, 999, "u2", domain.ReactionLiked); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("missing comment: %v", err)
	}
	if err := l.SetReaction(ctx, c.ID, "banned", domain.ReactionLiked); domain.MessageOf(err) != moderation.Interacting.Banned {
		t.Fatalf("banned: %v", err)
	}
	if err := l.SetReaction(ctx, c.ID, "u2", domain.Reaction(9)); !domain.IsKind(err, domain.KindInvalidArgument) {
		t.Fatalf("invalid reaction: %v", err)
	}
}

func TestReactionQuota(t *testing.T) {
	caps := generous()
	caps.ReactionsPerMinute = 2
	l, _, c := newLedger(t, caps)
	ctx := context.Background()

	if err := l.SetReaction(ctx, c.ID, "u2", domain.ReactionLiked); err != nil {
		t.Fatalf("1: %v", err)
	}
	// A Conflict is not charged.
	_ = l.SetReaction(ctx, c.ID, "u2", domain.ReactionLiked)
	if err := l.SetReaction(ctx, c.ID, "u2", domain.ReactionDisliked); err != nil {
		t.Fatalf("2: %v", err)
	}
	if err := l.SetReaction(ctx, c.ID, "u2", domain.ReactionNone); !domain.IsKind(err, domain.KindRateLimited) {
		t.Fatalf("3: expected RateLimited, got %v", err)
	}
	for i := 0; i < 4; i++ {
		want := domain.ReactionLiked
		if i%2 == 1 {
			want = domain.ReactionNone
		}
		if err := l.SetReaction(ctx, c.ID, "admin", want); err != nil {
			t.Fatalf("admin %d: %v", i, err)
		}
	}
}

func TestConcurrentReactionsKeepCountersConsistent(t *testing.T) {
	l, mem, c := newLedger(t, generous())
	ctx := context.Background()
	users := []string{"u1", "u2", "u3", "u4"}
	states := []domain.Reaction{domain.ReactionLiked, domain.ReactionDisliked, domain.ReactionNone}

	var wg sync.WaitGroup
	for _, u := range users {
		for i := 0; i < 30; i++ {
			wg.Add(1)
			go func(u string, r domain.Reaction) {
				defer wg.Done()
				_ = l.SetReaction(ctx, c.ID, u, r)
			}(u, states[i%len(states)])
		}
	}
	wg.Wait()

	like, dislike := counts(t, mem, c.ID)
	wantLike, wantDislike, err := mem.Tally(ctx, c.ID)
	if err != nil {
		t.Fatalf("tally: %v", err)
	}
	if like != wantLike || dislike != wantDislike {
		t.Fatalf("counters %d/%d drifted from ledger %d/%d", like, dislike, wantLike, wantDislike)
	}
}
