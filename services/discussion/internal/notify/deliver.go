package notify

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/example/discussion-platform/services/discussion/internal/domain"
)

// ErrMalformed marks events that can never be delivered.
var ErrMalformed = errors.New("notify: malformed event")

type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// NewBreaker trips after FailureThreshold consecutive delivery failures.
func NewBreaker(name string, cfg BreakerConfig, log *zap.Logger) *gobreaker.CircuitBreaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit-breaker state change", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
}

// Deliverer writes events to the NotificationService exactly once per
// event id, behind a circuit breaker.
type Deliverer struct {
	svc    domain.NotificationService
	dedupe Deduper
	cb     *gobreaker.CircuitBreaker
	log    *zap.Logger
}

// NewDeliverer wires the delivery path. cb may be nil.
func NewDeliverer(svc domain.NotificationService, dedupe Deduper, cb *gobreaker.CircuitBreaker, log *zap.Logger) *Deliverer {
	if dedupe == nil {
		dedupe = newMemoryDeduper()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Deliverer{svc: svc, dedupe: dedupe, cb: cb, log: log}
}

func (d *Deliverer) Deliver(ctx context.Context, ev Event) error {
	if ev.ID == "" || ev.RecipientID == "" || ev.Kind == "" {
		return ErrMalformed
	}
	dup, err := d.dedupe.Check(ctx, ev.ID)
	if err != nil {
		return err
	}
	if dup {
		d.log.Debug("notify: duplicate event skipped", zap.String("event_id", ev.ID))
		return nil
	}

	if err := d.create(ctx, ev.Notification()); err != nil {
		if ferr := d.dedupe.Forget(ctx, ev.ID); ferr != nil {
			d.log.Warn("notify: dedupe release failed", zap.String("event_id", ev.ID), zap.Error(ferr))
		}
		return err
	}
	return nil
}

func (d *Deliverer) create(ctx context.Context, n domain.Notification) error {
	if d.cb == nil {
		return d.svc.Create(ctx, n)
	}
	_, err := d.cb.Execute(func() (interface{}, error) {
		return nil, d.svc.Create(ctx, n)
	})
	return err
}
