// Package config loads the discussion service settings.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	platformconfig "github.com/example/discussion-platform/internal/platform/config"
	"github.com/example/discussion-platform/services/discussion/internal/domain"
	"github.com/example/discussion-platform/services/discussion/internal/notify"
	"github.com/example/discussion-platform/services/discussion/internal/ratelimit"
	"github.com/example/discussion-platform/services/discussion/internal/thread"
	"github.com/example/discussion-platform/services/discussion/internal/worker"
)

type Config struct {
	platformconfig.AppConfig `koanf:",squash"`

	GRPC     AddrConfig     `koanf:"grpc"`
	Database DatabaseConfig `koanf:"database"`
	NATS     URLConfig      `koanf:"nats"`
	Redis    URLConfig      `koanf:"redis"`
	JWT      JWTConfig      `koanf:"jwt"`
	Store    StoreConfig    `koanf:"store"`
	Pages    PagesConfig    `koanf:"pages"`
	Limits   LimitsConfig   `koanf:"limits"`
	Threads  ThreadsConfig  `koanf:"threads"`
	Notify   NotifyConfig   `koanf:"notify"`
	Throttle ThrottleConfig `koanf:"throttle"`
	Dev      DevConfig      `koanf:"dev"`
}

type AddrConfig struct {
	Addr string `koanf:"addr"`
}

type URLConfig struct {
	URL string `koanf:"url"`
}

type DatabaseConfig struct {
	URL      string `koanf:"url"`
	MaxConns int32  `koanf:"max_conns"`
}

type JWTConfig struct {
	Secret string `koanf:"secret"`
}

type StoreConfig struct {
	// Node seeds snowflake ids in the in-memory store.
	Node int64 `koanf:"node"`
}

type PagesConfig struct {
	Comments int `koanf:"comments"`
	Replies  int `koanf:"replies"`
}

type LimitsConfig struct {
	CommentsPerMinute     int    `koanf:"comments_per_minute"`
	CommentsPerDay        int    `koanf:"comments_per_day"`
	InteractionsPerMinute int    `koanf:"interactions_per_minute"`
	InteractionsPerDay    int    `koanf:"interactions_per_day"`
	ReportsPerHour        int    `koanf:"reports_per_hour"`
	DayBoundary           string `koanf:"day_boundary"`
}

type ThreadsConfig struct {
	AllocationAttempts int `koanf:"allocation_attempts"`
	MaxTextRunes       int `koanf:"max_text_runes"`
}

type NotifyConfig struct {
	QueueSize        int           `koanf:"queue_size"`
	DedupeTTL        time.Duration `koanf:"dedupe_ttl"`
	BreakerThreshold uint32        `koanf:"breaker_threshold"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout"`
	BatchSize        int           `koanf:"batch_size"`
	MaxDeliver       int           `koanf:"max_deliver"`
	StreamMaxAge     time.Duration `koanf:"stream_max_age"`
}

type ThrottleConfig struct {
	RPS   float64 `koanf:"rps"`
	Burst int     `koanf:"burst"`
}

// DevConfig seeds the in-memory directory. Ignored when a database is
// configured.
type DevConfig struct {
	Users []DevUser `koanf:"users"`
	Posts []DevPost `koanf:"posts"`
}

type DevUser struct {
	ID       string `koanf:"id"`
	Username string `koanf:"username"`
	Verified bool   `koanf:"verified"`
	Banned   bool   `koanf:"banned"`
	IsAdmin  bool   `koanf:"is_admin"`
}

type DevPost struct {
	ID      string `koanf:"id"`
	OwnerID string `koanf:"owner_id"`
}

var env = map[string]string{
	"GRPC_ADDR":                   "grpc.addr",
	"DATABASE_URL":                "database.url",
	"DATABASE_MAX_CONNS":          "database.max_conns",
	"NATS_URL":                    "nats.url",
	"REDIS_URL":                   "redis.url",
	"JWT_SECRET":                  "jwt.secret",
	"STORE_NODE_ID":               "store.node",
	"MAX_COMMENTS_PER_PAGE":       "pages.comments",
	"MAX_REPLIES_PER_PAGE":        "pages.replies",
	"MAX_COMMENTS_PER_MINUTE":     "limits.comments_per_minute",
	"MAX_COMMENTS_PER_DAY":        "limits.comments_per_day",
	"MAX_INTERACTIONS_PER_MINUTE": "limits.interactions_per_minute",
	"MAX_INTERACTIONS_PER_DAY":    "limits.interactions_per_day",
	"MAX_REPORTS_PER_HOUR":        "limits.reports_per_hour",
	"DAY_BOUNDARY_TZ":             "limits.day_boundary",
	"THREAD_ALLOCATION_ATTEMPTS":  "threads.allocation_attempts",
	"MAX_COMMENT_LENGTH":          "threads.max_text_runes",
	"NOTIFY_QUEUE_SIZE":           "notify.queue_size",
	"NOTIFY_DEDUPE_TTL":           "notify.dedupe_ttl",
	"NOTIFY_BREAKER_THRESHOLD":    "notify.breaker_threshold",
	"NOTIFY_BREAKER_TIMEOUT":      "notify.breaker_timeout",
	"WORKER_BATCH_SIZE":           "notify.batch_size",
	"WORKER_MAX_DELIVER":          "notify.max_deliver",
	"NOTIFY_STREAM_MAX_AGE":       "notify.stream_max_age",
	"HTTP_THROTTLE_RPS":           "throttle.rps",
	"HTTP_THROTTLE_BURST":         "throttle.burst",
}

func defaults() map[string]any {
	d := platformconfig.AppDefaults()
	for k, v := range map[string]any{
		"service_name":                   "discussion",
		"grpc.addr":                      ":9090",
		"database.max_conns":             10,
		"store.node":                     1,
		"pages.comments":                 20,
		"pages.replies":                  10,
		"limits.comments_per_minute":     5,
		"limits.comments_per_day":        100,
		"limits.interactions_per_minute": 30,
		"limits.interactions_per_day":    1000,
		"limits.reports_per_hour":        5,
		"limits.day_boundary":            "UTC",
		"threads.allocation_attempts":    5,
		"threads.max_text_runes":         2000,
		"notify.queue_size":              256,
		"notify.dedupe_ttl":              "24h",
		"notify.breaker_threshold":       5,
		"notify.breaker_timeout":         "30s",
		"notify.batch_size":              100,
		"notify.max_deliver":             5,
		"notify.stream_max_age":          "168h",
		"throttle.rps":                   20,
		"throttle.burst":                 40,
	} {
		d[k] = v
	}
	return d
}

func envNames() map[string]string {
	out := make(map[string]string, len(env)+len(platformconfig.AppEnv))
	for k, v := range platformconfig.AppEnv {
		out[k] = v
	}
	for k, v := range env {
		out[k] = v
	}
	return out
}

// Load reads defaults, then the optional TOML file at path, then the
// environment.
func Load(path string) (Config, error) {
	k, err := platformconfig.Load(platformconfig.Sources{Defaults: defaults(), File: path, Env: envNames()})
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.AppConfig.Validate(); err != nil {
		return err
	}
	if c.Pages.Comments <= 0 || c.Pages.Replies <= 0 {
		return errors.New("page sizes must be positive")
	}
	l := c.Limits
	if l.CommentsPerMinute <= 0 || l.CommentsPerDay <= 0 || l.InteractionsPerMinute <= 0 ||
		l.InteractionsPerDay <= 0 || l.ReportsPerHour <= 0 {
		return errors.New("rate limits must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.IsProduction() && strings.TrimSpace(c.Database.URL) == "" {
		return errors.New("DATABASE_URL is required in production")
	}
	for _, u := range c.Dev.Users {
		if strings.TrimSpace(u.ID) == "" {
			return errors.New("dev.users entries need an id")
		}
	}
	for _, p := range c.Dev.Posts {
		if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.OwnerID) == "" {
			return errors.New("dev.posts entries need an id and owner_id")
		}
	}
	if c.IsProduction() && strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("JWT_SECRET is required in production")
	}
	return nil
}

// Location is the time zone whose midnight resets the daily quotas.
func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Limits.DayBoundary)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("DAY_BOUNDARY_TZ %q: %w", name, err)
	}
	return loc, nil
}

func (c Config) Caps() ratelimit.Caps {
	return ratelimit.Caps{
		CommentsPerMinute:  c.Limits.CommentsPerMinute,
		CommentsPerDay:     c.Limits.CommentsPerDay,
		ReactionsPerMinute: c.Limits.InteractionsPerMinute,
		ReactionsPerDay:    c.Limits.InteractionsPerDay,
		ReportsPerHour:     c.Limits.ReportsPerHour,
	}
}

func (c Config) Thread() thread.Config {
	return thread.Config{
		CommentsPerPage:    c.Pages.Comments,
		RepliesPerPage:     c.Pages.Replies,
		MaxTextRunes:       c.Threads.MaxTextRunes,
		AllocationAttempts: c.Threads.AllocationAttempts,
	}
}

func (c Config) Breaker() notify.BreakerConfig {
	return notify.BreakerConfig{
		FailureThreshold: c.Notify.BreakerThreshold,
		Timeout:          c.Notify.BreakerTimeout,
	}
}

func (c Config) Worker() worker.Config {
	return worker.Config{
		BatchSize:  c.Notify.BatchSize,
		MaxDeliver: c.Notify.MaxDeliver,
		MaxAge:     c.Notify.StreamMaxAge,
	}
}

// Seed returns the users and posts to preload into the in-memory directory.
func (d DevConfig) Seed() ([]domain.User, []domain.Post) {
	users := make([]domain.User, 0, len(d.Users))
	for _, u := range d.Users {
		name := u.Username
		if name == "" {
			name = u.ID
		}
		users = append(users, domain.User{ID: u.ID, Username: name, Verified: u.Verified, Banned: u.Banned, IsAdmin: u.IsAdmin})
	}
	posts := make([]domain.Post, 0, len(d.Posts))
	for _, p := range d.Posts {
		posts = append(posts, domain.Post{ID: p.ID, OwnerID: p.OwnerID})
	}
	return users, posts
}
