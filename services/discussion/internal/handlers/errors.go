package handlers

import (
	"net/http"

	"github.com/example/discussion-platform/internal/platform/api"
	"github.com/example/discussion-platform/internal/platform/httpserver"
	"github.com/example/discussion-platform/services/discussion/internal/domain"
)

// writeError maps an engine error onto the API error envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	rid := httpserver.RequestIDFromContext(r.Context())
	msg := domain.MessageOf(err)
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		api.NotFound(w, "NOT_FOUND", msg, rid)
	case domain.KindPermissionDenied:
		api.Forbidden(w, "PERMISSION_DENIED", msg, rid)
	case domain.KindRateLimited:
		api.RateLimited(w, "RATE_LIMITED", msg, rid, nil)
	case domain.KindConflict:
		api.Conflict(w, "CONFLICT", msg, rid, nil)
	case domain.KindInvalidArgument:
		api.BadRequest(w, "INVALID_ARGUMENT", msg, rid, nil)
	default:
		api.Internal(w, rid)
	}
}
