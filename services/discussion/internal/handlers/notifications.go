package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/discussion-platform/internal/platform/api"
	"github.com/example/discussion-platform/internal/platform/httpserver"
	"github.com/example/discussion-platform/services/discussion/internal/store"
)

const (
	defaultInboxLimit = 20
	maxInboxLimit     = 100
)

// Inbox lists delivered notifications, newest first.
type Inbox interface {
	ListForUser(ctx context.Context, userID string, limit int) ([]store.StoredNotification, error)
}

// ListNotifications handles GET /v1/me/notifications
func ListNotifications(inbox Inbox) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireCaller(w, r)
		if !ok {
			return
		}
		limit := defaultInboxLimit
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				api.BadRequest(w, "INVALID_LIMIT", "limit must be a positive integer", httpserver.RequestIDFromContext(r.Context()), nil)
				return
			}
			limit = min(n, maxInboxLimit)
		}
		items, err := inbox.ListForUser(r.Context(), userID, limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}
