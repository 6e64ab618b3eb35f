package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Emitter hands events off without blocking the caller. Emit never fails;
// problems are logged and the event is dropped.
type Emitter interface {
	Emit(ctx context.Context, ev Event)
}

// JetStreamEmitter publishes events to the notification stream.
// A nil pointer or a nil JetStream context is a no-op.
type JetStreamEmitter struct {
	js  nats.JetStreamContext
	log *zap.Logger
}

func NewJetStreamEmitter(js nats.JetStreamContext, log *zap.Logger) *JetStreamEmitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &JetStreamEmitter{js: js, log: log}
}

func (p *JetStreamEmitter) Emit(_ context.Context, ev Event) {
	if p == nil || p.js == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("notify: marshal failed", zap.String("event_id", ev.ID), zap.Error(err))
		return
	}
	// MsgId lets the stream drop duplicate publishes of the same event.
	if _, err := p.js.PublishAsync(ev.NATSSubject(), data, nats.MsgId(ev.ID)); err != nil {
		p.log.Warn("notify: publish failed", zap.String("subject", ev.NATSSubject()), zap.Error(err))
	}
}

const drainTimeout = 5 * time.Second

// InProcEmitter queues events on a bounded channel drained by Run. When the
// queue is full new events are dropped.
type InProcEmitter struct {
	queue   chan Event
	deliver *Deliverer
	log     *zap.Logger
}

func NewInProcEmitter(buffer int, d *Deliverer, log *zap.Logger) *InProcEmitter {
	if buffer <= 0 {
		buffer = 256
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &InProcEmitter{queue: make(chan Event, buffer), deliver: d, log: log}
}

func (e *InProcEmitter) Emit(_ context.Context, ev Event) {
	select {
	case e.queue <- ev:
	default:
		e.log.Warn("notify: queue full, dropping event",
			zap.String("event_id", ev.ID), zap.String("kind", ev.Kind), zap.String("recipient_id", ev.RecipientID))
	}
}

// Run delivers queued events until ctx is cancelled, then drains whatever
// is already queued.
func (e *InProcEmitter) Run(ctx context.Context) {
	for {
		select {
		case ev := <-e.queue:
			e.deliverOne(ctx, ev)
		case <-ctx.Done():
			e.drain()
			return
		}
	}
}

func (e *InProcEmitter) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case ev := <-e.queue:
			e.deliverOne(ctx, ev)
		default:
			return
		}
	}
}

func (e *InProcEmitter) deliverOne(ctx context.Context, ev Event) {
	if err := e.deliver.Deliver(ctx, ev); err != nil {
		e.log.Warn("notify: delivery failed", zap.String("event_id", ev.ID), zap.Error(err))
	}
}
