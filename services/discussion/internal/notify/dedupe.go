package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Deduper remembers delivered event ids so redelivered messages are not
// turned into duplicate notifications.
type Deduper interface {
	// Check returns true if eventID was already seen. If not, it atomically
	// marks it as seen.
	Check(ctx context.Context, eventID string) (duplicate bool, err error)
	// Forget clears the mark after a failed delivery so a retry can proceed.
	Forget(ctx context.Context, eventID string) error
}

// NewDeduper picks the best available backend: Redis > Postgres >
// in-memory. In production the in-memory fallback is refused.
func NewDeduper(redisURL string, pool *pgxpool.Pool, ttl time.Duration, isProd bool) (Deduper, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if redisURL != "" {
		return newRedisDeduper(redisURL, ttl), nil
	}
	if pool != nil {
		return &postgresDeduper{pool: pool}, nil
	}
	if isProd {
		return nil, errors.New("production requires REDIS_URL or DATABASE_URL for notification dedupe")
	}
	return newMemoryDeduper(), nil
}

// memoryDeduper is development-only: state is lost on restart.
type memoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newMemoryDeduper() *memoryDeduper {
	return &memoryDeduper{seen: make(map[string]struct{})}
}

func (s *memoryDeduper) Check(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[eventID]; ok {
		return true, nil
	}
	s.seen[eventID] = struct{}{}
	return false, nil
}

func (s *memoryDeduper) Forget(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, eventID)
	return nil
}

type redisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

func newRedisDeduper(url string, ttl time.Duration) *redisDeduper {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	return &redisDeduper{client: redis.NewClient(opts), ttl: ttl}
}

func (s *redisDeduper) key(eventID string) string { return "discussion:notify:delivered:" + eventID }

func (s *redisDeduper) Check(ctx context.Context, eventID string) (bool, error) {
	set, err := s.client.SetNX(ctx, s.key(eventID), 1, s.ttl).Result()
	if err != nil {
		return false, err
	}
	// SetNX returns true if the key was SET (i.e. NOT a duplicate).
	return !set, nil
}

func (s *redisDeduper) Forget(ctx context.Context, eventID string) error {
	return s.client.Del(ctx, s.key(eventID)).Err()
}

// postgresDeduper relies on the delivered_events table.
type postgresDeduper struct {
	pool *pgxpool.Pool
}

func (s *postgresDeduper) Check(ctx context.Context, eventID string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO delivered_events (event_id) VALUES ($1) ON CONFLICT (event_id) DO NOTHING`, eventID)
	if err != nil {
		return false, err
	}
	// RowsAffected == 0 means the row already existed (duplicate).
	return tag.RowsAffected() == 0, nil
}

func (s *postgresDeduper) Forget(ctx context.Context, eventID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM delivered_events WHERE event_id = $1`, eventID)
	return err
}
