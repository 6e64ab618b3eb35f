package upstream

import (
	"context"
	"testing"

	"github.com/example/discussion-platform/services/discussion/internal/domain"
)

func TestMemoryDirectory(t *testing.T) {
	d := NewMemoryDirectory()
	d.PutUser(domain.User{ID: "u-1", Username: "alice", Verified: true})
	d.PutPost(domain.Post{ID: "p-1", OwnerID: "u-1"})

	u, err := d.GetUserByID(context.Background(), "u-1")
	if err != nil || u.Username != "alice" {
		t.Fatalf("GetUserByID = %+v, %v", u, err)
	}
	if _, err := d.GetUserByID(context.Background(), "nobody"); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	p, err := d.GetPost(context.Background(), "p-1")
	if err != nil || p.OwnerID != "u-1" {
		t.Fatalf("GetPost = %+v, %v", p, err)
	}
	if _, err := d.GetPost(context.Background(), "p-x"); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
