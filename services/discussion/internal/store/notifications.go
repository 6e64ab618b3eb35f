package store

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/discussion-platform/services/discussion/internal/domain"
)

// PostgresNotifications is the default NotificationService: it records
// notifications in the notifications table for the inbox to read.
type PostgresNotifications struct {
	pool *pgxpool.Pool
}

func NewPostgresNotifications(pool *pgxpool.Pool) *PostgresNotifications {
	return &PostgresNotifications{pool: pool}
}

func (s *PostgresNotifications) Create(ctx context.Context, n domain.Notification) error {
	meta := n.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (user_id, kind, subject, body, metadata) VALUES ($1, $2, $3, $4, $5)`,
		n.RecipientID, n.Kind, n.Subject, n.Body, meta)
	return err
}

func (s *PostgresNotifications) ListForUser(ctx context.Context, userID string, limit int) ([]StoredNotification, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, kind, subject, body, metadata, created_at
		 FROM notifications WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []StoredNotification{}
	for rows.Next() {
		var n StoredNotification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Kind, &n.Subject, &n.Body, &n.Metadata, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MemoryNotifications keeps notifications in process (development only).
type MemoryNotifications struct {
	mu   sync.Mutex
	seq  int64
	rows []StoredNotification
}

func NewMemoryNotifications() *MemoryNotifications {
	return &MemoryNotifications{}
}

func (s *MemoryNotifications) Create(_ context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.rows = append(s.rows, StoredNotification{ID: s.seq, Notification: n, CreatedAt: time.Now().UTC()})
	return nil
}

func (s *MemoryNotifications) ListForUser(_ context.Context, userID string, limit int) ([]StoredNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []StoredNotification{}
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].RecipientID != userID {
			continue
		}
		out = append(out, s.rows[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// All returns every stored notification in insertion order.
func (s *MemoryNotifications) All() []StoredNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StoredNotification(nil), s.rows...)
}
