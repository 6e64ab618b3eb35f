package store

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/example/discussion-platform/services/discussion/internal/domain"
)

// startPostgres boots a throwaway Postgres. Opt in with DISCUSSION_INTEGRATION=1.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("DISCUSSION_INTEGRATION") != "1" {
		t.Skip("set DISCUSSION_INTEGRATION=1 to run postgres integration tests")
	}

	ctx := context.Background()
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "discussion",
				"POSTGRES_PASSWORD": "discussion",
				"POSTGRES_DB":       "discussion",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://discussion:discussion@%s:%s/discussion?sslmode=disable", host, port.Port())
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	// applying twice must be harmless
	require.NoError(t, Migrate(ctx, pool))
	return pool
}

func TestPostgres(t *testing.T) {
	pool := startPostgres(t)
	s := NewPostgres(pool)
	ctx := context.Background()

	t.Run("concurrent roots get distinct thread ids", func(t *testing.T) {
		const n = 16
		var wg sync.WaitGroup
		var mu sync.Mutex
		seen := map[int64]bool{}
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					c, err := s.InsertTopLevel(ctx, NewComment{PostID: "p1", AuthorID: "u1", Text: "root"})
					if err == ErrThreadConflict {
						continue
					}
					if !assert.NoError(t, err) {
						return
					}
					mu.Lock()
					assert.False(t, seen[c.ThreadID], "duplicate thread id %d", c.ThreadID)
					seen[c.ThreadID] = true
					mu.Unlock()
					return
				}
			}()
		}
		wg.Wait()
		assert.Len(t, seen, n)
	})

	t.Run("reply bumps root and tombstone keeps row", func(t *testing.T) {
		root, err := s.InsertTopLevel(ctx, NewComment{PostID: "p2", AuthorID: "u1", Text: "root"})
		require.NoError(t, err)
		reply, err := s.InsertReply(ctx, root, "u2", "reply")
		require.NoError(t, err)
		assert.Equal(t, root.ThreadID, reply.ThreadID)

		require.NoError(t, s.Tombstone(ctx, root.ID))
		_, err = s.InsertReply(ctx, root, "u3", "under tombstone")
		require.NoError(t, err)

		got, err := s.GetComment(ctx, root.ID)
		require.NoError(t, err)
		assert.True(t, got.Deleted)
		assert.Equal(t, domain.DeletedMarker, got.Text)
		assert.Equal(t, "u1", got.AuthorID)
		assert.EqualValues(t, 2, got.ReplyCount)

		items, total, err := s.ListReplies(ctx, root.ThreadID, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Equal(t, reply.ID, items[0].ID)
	})

	t.Run("reactions keep counters in step with ledger", func(t *testing.T) {
		c, err := s.InsertTopLevel(ctx, NewComment{PostID: "p3", AuthorID: "u1", Text: "react"})
		require.NoError(t, err)

		require.NoError(t, s.SetReaction(ctx, c.ID, "u2", domain.ReactionLiked, time.Now()))
		assert.ErrorIs(t, s.SetReaction(ctx, c.ID, "u2", domain.ReactionLiked, time.Now()), ErrSameReaction)

		statuses := []domain.Reaction{domain.ReactionLiked, domain.ReactionDisliked, domain.ReactionNone}
		var wg sync.WaitGroup
		for u := 0; u < 8; u++ {
			wg.Add(1)
			go func(u int) {
				defer wg.Done()
				for i := 0; i < 10; i++ {
					_ = s.SetReaction(ctx, c.ID, fmt.Sprintf("user-%d", u), statuses[(u+i)%3], time.Now())
				}
			}(u)
		}
		wg.Wait()

		got, err := s.GetComment(ctx, c.ID)
		require.NoError(t, err)
		liked, disliked, err := s.Tally(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, liked, got.LikeCount)
		assert.Equal(t, disliked, got.DislikeCount)

		assert.ErrorIs(t, s.SetReaction(ctx, 1<<40, "u2", domain.ReactionLiked, time.Now()), ErrNotFound)
	})

	t.Run("reports and notifications", func(t *testing.T) {
		r, err := s.InsertReport(ctx, domain.Report{CommentID: 1, ReporterID: "u9", ReportedUserID: "u1", ContentText: "x", Reason: "spam"})
		require.NoError(t, err)
		list, total, err := s.ListReports(ctx, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, r.ID, list[0].ID)
		require.NoError(t, s.DeleteReport(ctx, r.ID))
		assert.ErrorIs(t, s.DeleteReport(ctx, r.ID), ErrNotFound)

		ns := NewPostgresNotifications(pool)
		require.NoError(t, ns.Create(ctx, domain.Notification{
			RecipientID: "u1", Kind: "comment", Subject: "@u2 commented on your post", Body: "hi",
			Metadata: map[string]any{"post_id": "p1"},
		}))
		got, err := ns.ListForUser(ctx, "u1", 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "p1", got[0].Metadata["post_id"])
	})
}
