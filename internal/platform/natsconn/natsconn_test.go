package natsconn

import (
	"testing"
	"time"
)

func TestOptionsDefaults(t *testing.T) {
	o := Options{URL: "nats://localhost:4222"}.withDefaults()
	if o.MaxReconnects != defaultMaxReconnects || o.ReconnectWait != defaultReconnectWait || o.Logger == nil {
		t.Fatalf("defaults not applied: %+v", o)
	}

	o = Options{MaxReconnects: -1, ReconnectWait: time.Second}.withDefaults()
	if o.MaxReconnects != -1 || o.ReconnectWait != time.Second {
		t.Fatalf("explicit values overwritten: %+v", o)
	}
}

func TestConnect_RequiresURL(t *testing.T) {
	if _, err := Connect(Options{}); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(Options{
		URL:           "nats://127.0.0.1:19999",
		ReconnectWait: 10 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected error connecting to an unreachable server")
	}
}
