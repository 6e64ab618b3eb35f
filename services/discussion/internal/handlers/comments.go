package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/discussion-platform/internal/platform/api"
	"github.com/example/discussion-platform/services/discussion/internal/thread"
)

type textRequest struct {
	Text string `json:"text"`
}

// ListComments handles GET /v1/posts/{post_id}/comments
func ListComments(reg *thread.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, ok := offsetParam(w, r)
		if !ok {
			return
		}
		page, err := reg.GetComments(r.Context(), strings.TrimSpace(chi.URLParam(r, "post_id")), offset, viewer(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, page)
	}
}

// CreateComment handles POST /v1/posts/{post_id}/comments
func CreateComment(reg *thread.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireCaller(w, r)
		if !ok {
			return
		}
		var req textRequest
		if !decodeBody(w, r, &req) {
			return
		}
		c, err := reg.CreateTopLevelComment(r.Context(), strings.TrimSpace(chi.URLParam(r, "post_id")), userID, req.Text)
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusCreated, c)
	}
}

// GetComment handles GET /v1/comments/{comment_id}
func GetComment(reg *thread.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "comment_id")
		if !ok {
			return
		}
		c, err := reg.GetComment(r.Context(), id, viewer(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, c)
	}
}

// ListCommentReplies handles GET /v1/comments/{comment_id}/replies
func ListCommentReplies(reg *thread.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "comment_id")
		if !ok {
			return
		}
		offset, ok := offsetParam(w, r)
		if !ok {
			return
		}
		page, err := reg.GetRepliesForComment(r.Context(), id, offset, viewer(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, page)
	}
}

// ListThreadReplies handles GET /v1/threads/{thread_id}/replies
func ListThreadReplies(reg *thread.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "thread_id")
		if !ok {
			return
		}
		offset, ok := offsetParam(w, r)
		if !ok {
			return
		}
		page, err := reg.GetReplies(r.Context(), id, offset, viewer(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, page)
	}
}

// CreateReply handles POST /v1/comments/{comment_id}/replies
func CreateReply(reg *thread.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireCaller(w, r)
		if !ok {
			return
		}
		parentID, ok := idParam(w, r, "comment_id")
		if !ok {
			return
		}
		var req textRequest
		if !decodeBody(w, r, &req) {
			return
		}
		c, err := reg.CreateReply(r.Context(), parentID, userID, req.Text)
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusCreated, c)
	}
}

// DeleteComment handles DELETE /v1/comments/{comment_id}
func DeleteComment(reg *thread.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireCaller(w, r)
		if !ok {
			return
		}
		id, ok := idParam(w, r, "comment_id")
		if !ok {
			return
		}
		if err := reg.SoftDelete(r.Context(), id, userID); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
