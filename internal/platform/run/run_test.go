package run

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestUntil_CleanExit(t *testing.T) {
	r := New(zap.NewNop())
	code := r.Until(context.Background(), func(context.Context) error { return http.ErrServerClosed })
	if code != 0 {
		t.Fatalf("expected 0, got %d", code)
	}
}

func TestUntil_Failure(t *testing.T) {
	r := New(zap.NewNop())
	code := r.Until(context.Background(), func(context.Context) error { return errors.New("bind: address in use") })
	if code != 1 {
		t.Fatalf("expected 1, got %d", code)
	}
}

func TestUntil_ContextCancelled(t *testing.T) {
	r := New(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	code := r.Until(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return nil
	})
	if code != 0 {
		t.Fatalf("expected 0, got %d", code)
	}
}

func TestGraceful_BoundedContext(t *testing.T) {
	r := &Runner{Logger: zap.NewNop(), ShutdownTimeout: 20 * time.Millisecond}
	var deadlineSet bool
	r.Graceful(func(ctx context.Context) error {
		_, deadlineSet = ctx.Deadline()
		return nil
	})
	if !deadlineSet {
		t.Fatal("expected shutdown context to carry a deadline")
	}
}
