package handlers

import (
	"net/http"

	"github.com/example/discussion-platform/internal/platform/api"
	"github.com/example/discussion-platform/internal/platform/httpserver"
	"github.com/example/discussion-platform/services/discussion/internal/domain"
	"github.com/example/discussion-platform/services/discussion/internal/reaction"
	"github.com/example/discussion-platform/services/discussion/internal/thread"
)

type reactionRequest struct {
	Status *string `json:"status"`
}

// SetReaction handles PUT /v1/comments/{comment_id}/reaction and returns
// the comment with fresh counters.
func SetReaction(ledger *reaction.Ledger, reg *thread.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireCaller(w, r)
		if !ok {
			return
		}
		id, ok := idParam(w, r, "comment_id")
		if !ok {
			return
		}
		var req reactionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Status == nil {
			api.BadRequest(w, "INVALID_STATUS", "status is required", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}
		desired, err := domain.ParseReaction(*req.Status)
		if err != nil {
			api.BadRequest(w, "INVALID_STATUS", "status must be liked, disliked or none", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}
		if err := ledger.SetReaction(r.Context(), id, userID, desired); err != nil {
			writeError(w, r, err)
			return
		}
		c, err := reg.GetComment(r.Context(), id, userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, c)
	}
}
