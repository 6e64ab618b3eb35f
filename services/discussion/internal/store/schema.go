package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// rootThreadIndex guards thread id uniqueness among top-level comments.
const rootThreadIndex = "comments_root_thread_uniq"

// Schema creates every table the service owns. users and posts belong to
// the account and post services and are only created when absent so a
// standalone deployment can boot.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id        TEXT PRIMARY KEY,
	username  TEXT NOT NULL,
	banned    BOOLEAN NOT NULL DEFAULT false,
	verified  BOOLEAN NOT NULL DEFAULT false,
	is_admin  BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS posts (
	id        TEXT PRIMARY KEY,
	owner_id  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS comments (
	id                 BIGSERIAL PRIMARY KEY,
	post_id            TEXT NOT NULL,
	author_id          TEXT NOT NULL,
	thread_id          BIGINT NOT NULL,
	parent_comment_id  BIGINT REFERENCES comments(id),
	text               TEXT NOT NULL,
	like_count         BIGINT NOT NULL DEFAULT 0 CHECK (like_count >= 0),
	dislike_count      BIGINT NOT NULL DEFAULT 0 CHECK (dislike_count >= 0),
	reply_count        BIGINT NOT NULL DEFAULT 0 CHECK (reply_count >= 0),
	deleted            BOOLEAN NOT NULL DEFAULT false,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS comments_root_thread_uniq
	ON comments (thread_id) WHERE parent_comment_id IS NULL;
CREATE INDEX IF NOT EXISTS comments_post_roots_idx
	ON comments (post_id, created_at, id) WHERE parent_comment_id IS NULL;
CREATE INDEX IF NOT EXISTS comments_thread_replies_idx
	ON comments (thread_id, created_at, id) WHERE parent_comment_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS comment_reactions (
	comment_id    BIGINT NOT NULL REFERENCES comments(id),
	user_id       TEXT NOT NULL,
	status        SMALLINT NOT NULL CHECK (status IN (1, 2)),
	last_updated  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (comment_id, user_id)
);
CREATE INDEX IF NOT EXISTS comment_reactions_user_idx ON comment_reactions (user_id);

CREATE TABLE IF NOT EXISTS comment_reports (
	id                BIGSERIAL PRIMARY KEY,
	comment_id        BIGINT NOT NULL,
	reporter_id       TEXT NOT NULL,
	reported_user_id  TEXT NOT NULL,
	content_text      TEXT NOT NULL,
	reason            TEXT NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS notifications (
	id          BIGSERIAL PRIMARY KEY,
	user_id     TEXT NOT NULL,
	kind        TEXT NOT NULL,
	subject     TEXT NOT NULL,
	body        TEXT NOT NULL,
	metadata    JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS notifications_user_idx ON notifications (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS delivered_events (
	event_id    TEXT PRIMARY KEY,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate applies Schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
