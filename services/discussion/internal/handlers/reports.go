package handlers

import (
	"net/http"

	"github.com/example/discussion-platform/internal/platform/api"
	"github.com/example/discussion-platform/services/discussion/internal/report"
)

type reportRequest struct {
	Reason string `json:"reason"`
}

type resolveRequest struct {
	RemoveComment bool `json:"remove_comment"`
}

// ReportComment handles POST /v1/comments/{comment_id}/reports
func ReportComment(desk *report.Desk) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireCaller(w, r)
		if !ok {
			return
		}
		id, ok := idParam(w, r, "comment_id")
		if !ok {
			return
		}
		var req reportRequest
		if !decodeBody(w, r, &req) {
			return
		}
		rep, err := desk.ReportComment(r.Context(), id, userID, req.Reason)
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusCreated, rep)
	}
}

// ListReports handles GET /v1/admin/reports
func ListReports(desk *report.Desk) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireCaller(w, r)
		if !ok {
			return
		}
		offset, ok := offsetParam(w, r)
		if !ok {
			return
		}
		page, err := desk.ListReports(r.Context(), userID, offset)
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, page)
	}
}

// ResolveReport handles POST /v1/admin/reports/{report_id}/resolve
func ResolveReport(desk *report.Desk) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireCaller(w, r)
		if !ok {
			return
		}
		id, ok := idParam(w, r, "report_id")
		if !ok {
			return
		}
		var req resolveRequest
		if r.ContentLength != 0 && !decodeBody(w, r, &req) {
			return
		}
		if err := desk.ResolveReport(r.Context(), userID, id, req.RemoveComment); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
