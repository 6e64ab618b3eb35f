// Package upstream adapts the account and post services to the engine's
// Identity and PostStore interfaces.
package upstream

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/discussion-platform/services/discussion/internal/domain"
)

// PostgresDirectory reads the users and posts tables directly.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{pool: pool}
}

func (d *PostgresDirectory) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := d.pool.QueryRow(ctx,
		`SELECT id, username, banned, verified, is_admin FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.Banned, &u.Verified, &u.IsAdmin)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.NotFound("user does not exist")
	}
	return u, err
}

func (d *PostgresDirectory) GetPost(ctx context.Context, id string) (domain.Post, error) {
	var p domain.Post
	err := d.pool.QueryRow(ctx, `SELECT id, owner_id FROM posts WHERE id = $1`, id).Scan(&p.ID, &p.OwnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Post{}, domain.NotFound("post does not exist")
	}
	return p, err
}

// UpsertUser is used by seeding and tests.
func (d *PostgresDirectory) UpsertUser(ctx context.Context, u domain.User) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO users (id, username, banned, verified, is_admin) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, banned = EXCLUDED.banned,
		   verified = EXCLUDED.verified, is_admin = EXCLUDED.is_admin`,
		u.ID, u.Username, u.Banned, u.Verified, u.IsAdmin)
	return err
}

func (d *PostgresDirectory) UpsertPost(ctx context.Context, p domain.Post) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO posts (id, owner_id) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET owner_id = EXCLUDED.owner_id`,
		p.ID, p.OwnerID)
	return err
}

// MemoryDirectory is an in-process directory for development and tests.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]domain.User
	posts map[string]domain.Post
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{users: make(map[string]domain.User), posts: make(map[string]domain.Post)}
}

func (d *MemoryDirectory) PutUser(u domain.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

func (d *MemoryDirectory) PutPost(p domain.Post) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.posts[p.ID] = p
}

func (d *MemoryDirectory) GetUserByID(_ context.Context, id string) (domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return domain.User{}, domain.NotFound("user does not exist")
	}
	return u, nil
}

func (d *MemoryDirectory) GetPost(_ context.Context, id string) (domain.Post, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.posts[id]
	if !ok {
		return domain.Post{}, domain.NotFound("post does not exist")
	}
	return p, nil
}
