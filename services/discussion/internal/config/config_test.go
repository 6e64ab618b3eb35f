package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("MAX_COMMENTS_PER_MINUTE", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServiceName != "discussion" || cfg.HTTP.Addr != ":8080" || cfg.GRPC.Addr != ":9090" {
		t.Fatalf("unexpected addresses: %+v", cfg)
	}
	caps := cfg.Caps()
	if caps.CommentsPerMinute != 5 || caps.CommentsPerDay != 100 || caps.ReactionsPerMinute != 30 ||
		caps.ReactionsPerDay != 1000 || caps.ReportsPerHour != 5 {
		t.Fatalf("caps = %+v", caps)
	}
	if tc := cfg.Thread(); tc.CommentsPerPage != 20 || tc.RepliesPerPage != 10 || tc.MaxTextRunes != 2000 {
		t.Fatalf("thread config = %+v", tc)
	}
	if cfg.Notify.DedupeTTL != 24*time.Hour || cfg.Notify.BreakerTimeout != 30*time.Second {
		t.Fatalf("notify durations = %+v", cfg.Notify)
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Fatalf("location = %v, %v", loc, err)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "discussion.toml")
	body := "[limits]\ncomments_per_minute = 2\nday_boundary = \"Europe/Berlin\"\n[pages]\ncomments = 50\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("APP_ENV", "")
	t.Setenv("MAX_COMMENTS_PER_PAGE", "7")
	t.Setenv("MAX_COMMENTS_PER_MINUTE", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Limits.CommentsPerMinute != 2 {
		t.Fatalf("file value lost: %d", cfg.Limits.CommentsPerMinute)
	}
	if cfg.Pages.Comments != 7 {
		t.Fatalf("env should override file: %d", cfg.Pages.Comments)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "Europe/Berlin" {
		t.Fatalf("location = %v, %v", loc, err)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(""); err == nil {
		t.Fatal("production without DATABASE_URL must fail")
	}

	t.Setenv("APP_ENV", "")
	t.Setenv("MAX_REPORTS_PER_HOUR", "0")
	if _, err := Load(""); err == nil {
		t.Fatal("zero cap must fail")
	}

	t.Setenv("MAX_REPORTS_PER_HOUR", "")
	t.Setenv("DAY_BOUNDARY_TZ", "Mars/Olympus")
	if _, err := Load(""); err == nil {
		t.Fatal("unknown zone must fail")
	}
}

func TestLoadDevSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "discussion.toml")
	body := `
[[dev.users]]
id = "alice"
verified = true

[[dev.users]]
id = "mod"
username = "moderator"
verified = true
is_admin = true

[[dev.users]]
id = "spam"
banned = true

[[dev.posts]]
id = "post-1"
owner_id = "alice"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("APP_ENV", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	users, posts := cfg.Dev.Seed()
	if len(users) != 3 || len(posts) != 1 {
		t.Fatalf("seed = %d users, %d posts", len(users), len(posts))
	}
	if users[0].Username != "alice" || !users[0].Verified || users[0].IsAdmin {
		t.Fatalf("alice = %+v", users[0])
	}
	if users[1].Username != "moderator" || !users[1].IsAdmin {
		t.Fatalf("mod = %+v", users[1])
	}
	if !users[2].Banned || users[2].Verified {
		t.Fatalf("spam = %+v", users[2])
	}
	if posts[0].ID != "post-1" || posts[0].OwnerID != "alice" {
		t.Fatalf("post = %+v", posts[0])
	}
}

func TestLoadDevSeedRejectsIncompletePost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "discussion.toml")
	if err := os.WriteFile(path, []byte("[[dev.posts]]\nid = \"post-1\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("APP_ENV", "")
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a post without owner_id")
	}
}
