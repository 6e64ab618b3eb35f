package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/example/discussion-platform/services/discussion/internal/domain"
)

// Limit caps an action within one window. Max <= 0 disables it.
type Limit struct {
	Window  Window
	Max     int
	Message string
}

type Policy map[Action][]Limit

// Caps are the configurable quota numbers.
type Caps struct {
	CommentsPerMinute  int
	CommentsPerDay     int
	ReactionsPerMinute int
	ReactionsPerDay    int
	ReportsPerHour     int
}

// DefaultPolicy pairs a trailing minute with a calendar day for comments
// and reactions, and a trailing hour for reports.
func DefaultPolicy(c Caps) Policy {
	return Policy{
		ActionComment: {
			{Window: TrailingMinute, Max: c.CommentsPerMinute, Message: "You're commenting too quickly, please try again later!"},
			{Window: CalendarDay, Max: c.CommentsPerDay, Message: "You're commenting too frequently, please try again later!"},
		},
		ActionReaction: {
			{Window: TrailingMinute, Max: c.ReactionsPerMinute, Message: "You're interacting too quickly, please try again later!"},
			{Window: CalendarDay, Max: c.ReactionsPerDay, Message: "You're interacting too frequently, please try again later!"},
		},
		ActionReport: {
			{Window: TrailingHour, Max: c.ReportsPerHour, Message: "You're doing that too much. Please try again later."},
		},
	}
}

type Limiter struct {
	counter Counter
	policy  Policy
	loc     *time.Location
	now     func() time.Time
	log     *zap.Logger
}

type Option func(*Limiter)

// WithLocation sets the time zone that defines calendar days.
func WithLocation(loc *time.Location) Option {
	return func(l *Limiter) {
		if loc != nil {
			l.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(l *Limiter) {
		if log != nil {
			l.log = log
		}
	}
}

func New(counter Counter, policy Policy, opts ...Option) *Limiter {
	l := &Limiter{
		counter: counter,
		policy:  policy,
		loc:     time.UTC,
		now:     time.Now,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Reservation is a quota slot taken by Reserve.
type Reservation struct {
	l      *Limiter
	action Action
	userID string
	token  string
}

// Release returns the slot when the reserved action did not happen. It is
// safe on a nil Reservation.
func (r *Reservation) Release(ctx context.Context) {
	if r == nil || r.token == "" {
		return
	}
	if err := r.l.counter.Release(ctx, r.action, r.userID, r.token); err != nil {
		r.l.log.Warn("ratelimit: release failed",
			zap.String("action", string(r.action)), zap.String("user_id", r.userID), zap.Error(err))
	}
}

// Reserve takes one slot of u's quota for action, or refuses with
// RateLimited when any limit is already reached. Administrators are never
// refused, though their actions are still counted.
func (l *Limiter) Reserve(ctx context.Context, action Action, u domain.User) (*Reservation, error) {
	now := l.now()
	var (
		limits []Limit
		bounds []Bound
	)
	if !u.IsAdmin {
		for _, lim := range l.policy[action] {
			if lim.Max <= 0 {
				continue
			}
			limits = append(limits, lim)
			bounds = append(bounds, Bound{Since: lim.Window.Start(now, l.loc), Max: lim.Max})
		}
	}

	token, hit, err := l.counter.Reserve(ctx, action, u.ID, now, bounds)
	if err != nil {
		if u.IsAdmin {
			l.log.Warn("ratelimit: record failed",
				zap.String("action", string(action)), zap.String("user_id", u.ID), zap.Error(err))
			return nil, nil
		}
		l.log.Error("ratelimit: reserve failed",
			zap.String("action", string(action)), zap.String("user_id", u.ID), zap.Error(err))
		return nil, domain.StorageFailure(err)
	}
	if hit >= 0 && hit < len(limits) {
		l.log.Debug("ratelimit: limit reached",
			zap.String("action", string(action)), zap.String("window", limits[hit].Window.String()),
			zap.String("user_id", u.ID))
		return nil, domain.RateLimited(limits[hit].Message)
	}
	return &Reservation{l: l, action: action, userID: u.ID, token: token}, nil
}
