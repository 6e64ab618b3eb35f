// Package worker runs the JetStream consumer that turns published
// notification events into NotificationService records.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/discussion-platform/internal/platform/natsconn"
	"github.com/example/discussion-platform/services/discussion/internal/notify"
)

// DLQSubject receives events that can never be delivered.
const DLQSubject = "discussion.dlq"

type Config struct {
	BatchSize  int
	MaxWait    time.Duration
	MaxDeliver int
	MaxAge     time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.MaxWait <= 0 {
		c.MaxWait = 2 * time.Second
	}
	if c.MaxDeliver <= 0 {
		c.MaxDeliver = 5
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 7 * 24 * time.Hour
	}
	return c
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeRetry
	outcomeDeadLetter
)

// NotifyConsumer pulls events from the notification stream and hands them
// to a Deliverer.
type NotifyConsumer struct {
	js      nats.JetStreamContext
	deliver *notify.Deliverer
	cfg     Config
	log     *zap.Logger
}

func NewNotifyConsumer(js nats.JetStreamContext, d *notify.Deliverer, cfg Config, log *zap.Logger) *NotifyConsumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotifyConsumer{js: js, deliver: d, cfg: cfg.withDefaults(), log: log}
}

// StreamConfig describes the stream shared by publishers and this consumer.
func StreamConfig(maxAge time.Duration) *nats.StreamConfig {
	return &nats.StreamConfig{
		Name:     notify.StreamName,
		Subjects: []string{notify.SubjectAll, DLQSubject},
		Storage:  nats.FileStorage,
		MaxAge:   maxAge,
	}
}

func (w *NotifyConsumer) Run(ctx context.Context) error {
	if err := natsconn.EnsureStream(w.js, StreamConfig(w.cfg.MaxAge), w.log); err != nil {
		return fmt.Errorf("ensure stream: %w", err)
	}
	sub, err := w.js.PullSubscribe(notify.SubjectAll, notify.DurableWorker,
		nats.BindStream(notify.StreamName),
		nats.ManualAck(),
		nats.MaxDeliver(w.cfg.MaxDeliver+1),
	)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	w.log.Info("notify consumer started", zap.String("subject", notify.SubjectAll), zap.String("durable", notify.DurableWorker))

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msgs, err := sub.Fetch(w.cfg.BatchSize, nats.MaxWait(w.cfg.MaxWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			w.log.Warn("notify consumer: fetch failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		for _, m := range msgs {
			w.handleMsg(ctx, m)
		}
	}
}

func (w *NotifyConsumer) handleMsg(ctx context.Context, m *nats.Msg) {
	numDelivered := uint64(1)
	if md, err := m.Metadata(); err == nil && md != nil {
		numDelivered = md.NumDelivered
	}

	out, err := w.process(ctx, m.Data, numDelivered)
	switch out {
	case outcomeAck:
		if err := m.Ack(); err != nil {
			w.log.Warn("notify consumer: ack failed", zap.Error(err))
		}
	case outcomeRetry:
		w.log.Warn("notify consumer: delivery failed",
			zap.String("subject", m.Subject), zap.Uint64("attempt", numDelivered), zap.Error(err))
		_ = m.NakWithDelay(backoffDelay(numDelivered))
	case outcomeDeadLetter:
		w.log.Warn("notify consumer: dead-lettering event", zap.String("subject", m.Subject), zap.Error(err))
		if perr := w.publishDLQ(m.Subject, m.Data, err.Error()); perr != nil {
			w.log.Warn("notify consumer: dlq publish failed", zap.Error(perr))
		}
		_ = m.Ack()
	}
}

// process decides what happens to one message without touching the broker.
func (w *NotifyConsumer) process(ctx context.Context, data []byte, numDelivered uint64) (outcome, error) {
	if w.cfg.MaxDeliver > 0 && int(numDelivered) > w.cfg.MaxDeliver {
		return outcomeDeadLetter, fmt.Errorf("max deliveries exceeded: %d", numDelivered)
	}
	ev, err := decodeEvent(data)
	if err != nil {
		return outcomeDeadLetter, fmt.Errorf("bad payload: %w", err)
	}
	if err := w.deliver.Deliver(ctx, ev); err != nil {
		if errors.Is(err, notify.ErrMalformed) {
			return outcomeDeadLetter, err
		}
		return outcomeRetry, err
	}
	return outcomeAck, nil
}

func decodeEvent(data []byte) (notify.Event, error) {
	var ev notify.Event
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&ev); err != nil {
		return notify.Event{}, err
	}
	return ev, nil
}

func (w *NotifyConsumer) publishDLQ(subject string, data []byte, reason string) error {
	if w.js == nil {
		return nil
	}
	msg := map[string]any{"subject": subject, "reason": reason, "payload": json.RawMessage(data)}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = w.js.Publish(DLQSubject, b)
	return err
}
