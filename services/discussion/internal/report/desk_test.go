package report

import (
	"context"
	"testing"
	"time"

	"github.com/example/discussion-platform/services/discussion/internal/domain"
	"github.com/example/discussion-platform/services/discussion/internal/moderation"
	"github.com/example/discussion-platform/services/discussion/internal/ratelimit"
	"github.com/example/discussion-platform/services/discussion/internal/store"
	"github.com/example/discussion-platform/services/discussion/internal/thread"
	"github.com/example/discussion-platform/services/discussion/internal/upstream"
)

type deskFixture struct {
	desk    *Desk
	mem     *store.Memory
	comment domain.Comment
}

func newDesk(t *testing.T, reportsPerHour int) deskFixture {
	t.Helper()
	mem, err := store.NewMemory(6)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	dir := upstream.NewMemoryDirectory()
	dir.PutUser(domain.User{ID: "author", Username: "author", Verified: true})
	dir.PutUser(domain.User{ID: "reporter", Username: "reporter", Verified: true})
	dir.PutUser(domain.User{ID: "banned", Username: "banned", Verified: true, Banned: true})
	dir.PutUser(domain.User{ID: "fresh", Username: "fresh"})
	dir.PutUser(domain.User{ID: "admin", Username: "admin", Verified: true, IsAdmin: true})

	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	lim := ratelimit.New(ratelimit.NewMemoryCounter(),
		ratelimit.DefaultPolicy(ratelimit.Caps{ReportsPerHour: reportsPerHour}),
		ratelimit.WithClock(func() time.Time { return now }))
	gate := moderation.NewGate(dir, nil)
	reg := thread.NewRegistry(thread.Deps{Comments: mem, Reactions: mem, Posts: dir, Gate: gate, Limiter: lim}, thread.Config{})

	c, err := mem.InsertTopLevel(context.Background(), store.NewComment{PostID: "p", AuthorID: "author", Text: "rude words"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return deskFixture{desk: NewDesk(mem, mem, reg, gate, lim, nil), mem: mem, comment: c}
}

func TestReportSnapshotsComment(t *testing.T) {
	f := newDesk(t, 5)
	ctx := context.Background()

	r, err := f.desk.ReportComment(ctx, f.comment.ID, "reporter", " spam ")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if r.ReportedUserID != "author" || r.ContentText != "rude words" || r.Reason != "spam" {
		t.Fatalf("snapshot = %+v", r)
	}
	if err := f.mem.Tombstone(ctx, f.comment.ID); err != nil {
		t.Fatalf("tombstone: %v", err)
	}
	stored, _ := f.mem.GetReport(ctx, r.ID)
	if stored.ContentText != "rude words" {
		t.Fatalf("snapshot changed after tombstone: %q", stored.ContentText)
	}
}

func TestReportGate(t *testing.T) {
	f := newDesk(t, 5)
	ctx := context.Background()

	if _, err := f.desk.ReportComment(ctx, f.comment.ID, "fresh", "spam"); domain.MessageOf(err) != moderation.Reporting.Unverified {
		t.Fatalf("unverified: %v", err)
	}
	// Banned accounts may still report.
	if _, err := f.desk.ReportComment(ctx, f.comment.ID, "banned", "spam"); err != nil {
		t.Fatalf("banned reporter: %v", err)
	}
	if _, err := f.desk.ReportComment(ctx, f.comment.ID, "reporter", ""); !domain.IsKind(err, domain.KindInvalidArgument) {
		t.Fatalf("empty reason: %v", err)
	}
	if _, err := f.desk.ReportComment(ctx, 4242, "reporter", "spam"); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("missing comment: %v", err)
	}
}

func TestReportQuota(t *testing.T) {
	f := newDesk(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.desk.ReportComment(ctx, f.comment.ID, "reporter", "spam"); err != nil {
			t.Fatalf("report %d: %v", i, err)
		}
	}
	if _, err := f.desk.ReportComment(ctx, f.comment.ID, "reporter", "spam"); !domain.IsKind(err, domain.KindRateLimited) {
		t.Fatalf("expected RateLimited, got %v", err)
	}
}

func TestResolveReport(t *testing.T) {
	f := newDesk(t, 5)
	ctx := context.Background()

	r, err := f.desk.ReportComment(ctx, f.comment.ID, "reporter", "spam")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if _, err := f.desk.ListReports(ctx, "reporter", 0); !domain.IsKind(err, domain.KindPermissionDenied) {
		t.Fatalf("non-admin list: %v", err)
	}
	page, err := f.desk.ListReports(ctx, "admin", 0)
	if err != nil || page.Total != 1 || page.Items[0].ID != r.ID {
		t.Fatalf("list = %+v, %v", page, err)
	}

	if err := f.desk.ResolveReport(ctx, "admin", r.ID, true); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	c, _ := f.mem.GetComment(ctx, f.comment.ID)
	if !c.Deleted || c.Text != domain.DeletedMarker {
		t.Fatalf("comment not removed: %+v", c)
	}
	page, _ = f.desk.ListReports(ctx, "admin", 0)
	if page.Total != 0 {
		t.Fatalf("report not closed: %+v", page)
	}
	if err := f.desk.ResolveReport(ctx, "admin", r.ID, false); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("resolve twice: %v", err)
	}
}

func TestDismissReportKeepsComment(t *testing.T) {
	f := newDesk(t, 5)
	ctx := context.Background()

	r, _ := f.desk.ReportComment(ctx, f.comment.ID, "reporter", "spam")
	if err := f.desk.ResolveReport(ctx, "admin", r.ID, false); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	c, _ := f.mem.GetComment(ctx, f.comment.ID)
	if c.Deleted {
		t.Fatalf("dismissed report removed the comment")
	}
}
