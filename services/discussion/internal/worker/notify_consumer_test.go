package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/example/discussion-platform/services/discussion/internal/domain"
	"github.com/example/discussion-platform/services/discussion/internal/notify"
	"github.com/example/discussion-platform/services/discussion/internal/store"
)

type failingSink struct{ calls int }

func (f *failingSink) Create(context.Context, domain.Notification) error {
	f.calls++
	return errors.New("sink down")
}

func newConsumer(svc domain.NotificationService) *NotifyConsumer {
	d := notify.NewDeliverer(svc, nil, nil, nil)
	return NewNotifyConsumer(nil, d, Config{MaxDeliver: 3}, nil)
}

func encode(t *testing.T, ev notify.Event) []byte {
	t.Helper()
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func sampleEvent() notify.Event {
	return notify.Event{
		ID:          "evt-1",
		Kind:        notify.KindComment,
		RecipientID: "owner-1",
		ActorID:     "author-1",
		Subject:     "@alice commented on your post",
		Body:        "hello",
		Metadata:    map[string]any{"post_id": "p1", "comment_id": "10", "thread_id": "1"},
		OccurredAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestProcessDeliversOnce(t *testing.T) {
	sink := store.NewMemoryNotifications()
	w := newConsumer(sink)
	data := encode(t, sampleEvent())

	for i := 0; i < 2; i++ {
		out, err := w.process(context.Background(), data, uint64(i+1))
		if out != outcomeAck || err != nil {
			t.Fatalf("attempt %d: got (%v, %v), want ack", i+1, out, err)
		}
	}
	rows := sink.All()
	if len(rows) != 1 {
		t.Fatalf("expected one notification for a redelivered event, got %d", len(rows))
	}
	if rows[0].RecipientID != "owner-1" || rows[0].Metadata["comment_id"] != "10" {
		t.Fatalf("unexpected notification: %+v", rows[0])
	}
}

func TestProcessRetriesTransientFailure(t *testing.T) {
	sink := &failingSink{}
	w := newConsumer(sink)
	data := encode(t, sampleEvent())

	out, err := w.process(context.Background(), data, 1)
	if out != outcomeRetry || err == nil {
		t.Fatalf("got (%v, %v), want retry", out, err)
	}
	// The dedupe mark is released so the next attempt reaches the sink.
	_, _ = w.process(context.Background(), data, 2)
	if sink.calls != 2 {
		t.Fatalf("expected 2 sink calls, got %d", sink.calls)
	}
}

func TestProcessDeadLetters(t *testing.T) {
	w := newConsumer(store.NewMemoryNotifications())

	if out, _ := w.process(context.Background(), []byte("{not json"), 1); out != outcomeDeadLetter {
		t.Fatalf("bad payload: got %v", out)
	}
	ev := sampleEvent()
	ev.RecipientID = ""
	if out, _ := w.process(context.Background(), encode(t, ev), 1); out != outcomeDeadLetter {
		t.Fatalf("missing recipient: got %v", out)
	}
	if out, _ := w.process(context.Background(), encode(t, sampleEvent()), 4); out != outcomeDeadLetter {
		t.Fatalf("max deliver: got %v", out)
	}
}

func TestBackoffDelay(t *testing.T) {
	cases := map[uint64]time.Duration{
		0:  time.Second,
		1:  time.Second,
		2:  2 * time.Second,
		3:  4 * time.Second,
		7:  60 * time.Second,
		50: time.Minute,
	}
	for n, want := range cases {
		if got := backoffDelay(n); got != want {
			t.Fatalf("backoffDelay(%d) = %v, want %v", n, got, want)
		}
	}
}
