package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteError_Envelope(t *testing.T) {
	rr := httptest.NewRecorder()
	RateLimited(rr, "RATE_LIMITED", "slow down", "rid-1", map[string]any{"window": "minute"})

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct == "" {
		t.Fatal("expected content type header")
	}
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != "RATE_LIMITED" || resp.Error.RequestID != "rid-1" {
		t.Fatalf("unexpected envelope: %+v", resp.Error)
	}
	if resp.Error.Details["window"] != "minute" {
		t.Fatalf("expected details to round trip, got %v", resp.Error.Details)
	}
}

func TestInternal_HidesDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	Internal(rr, "")
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Message != "Internal server error" {
		t.Fatalf("unexpected message %q", resp.Error.Message)
	}
}
