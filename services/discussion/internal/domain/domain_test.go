package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseReaction(t *testing.T) {
	cases := map[string]Reaction{
		"like":     ReactionLiked,
		"Liked":    ReactionLiked,
		"dislike":  ReactionDisliked,
		"disliked": ReactionDisliked,
		"none":     ReactionNone,
	}
	for in, want := range cases {
		got, err := ParseReaction(in)
		if err != nil {
			t.Fatalf("ParseReaction(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseReaction(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseReaction("  "); err == nil {
		t.Fatal("blank reaction must not parse as none")
	}
	if _, err := ParseReaction("love"); err == nil {
		t.Fatal("expected error for unknown reaction")
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("handler: %w", Conflict("already liked"))
	if KindOf(err) != KindConflict {
		t.Fatalf("expected conflict, got %s", KindOf(err))
	}
	if MessageOf(err) != "already liked" {
		t.Fatalf("unexpected message %q", MessageOf(err))
	}
	if KindOf(errors.New("boom")) != KindUnknown {
		t.Fatal("foreign errors must be unknown")
	}
}

func TestStorageFailure_HidesCause(t *testing.T) {
	cause := errors.New("pq: relation comments does not exist")
	err := StorageFailure(cause)
	if MessageOf(err) != "storage failure" {
		t.Fatalf("message leaked detail: %q", MessageOf(err))
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause must stay reachable for logging")
	}
}
