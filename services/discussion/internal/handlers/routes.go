// Package handlers exposes the discussion engine over HTTP.
package handlers

import (
	"github.com/go-chi/chi/v5"

	"github.com/example/discussion-platform/internal/platform/auth"
	"github.com/example/discussion-platform/services/discussion/internal/reaction"
	"github.com/example/discussion-platform/services/discussion/internal/report"
	"github.com/example/discussion-platform/services/discussion/internal/thread"
)

type Deps struct {
	Registry *thread.Registry
	Ledger   *reaction.Ledger
	Desk     *report.Desk
	Inbox    Inbox // optional
	Verifier auth.JWTVerifier
}

// Mount registers the /v1 routes. Reads accept anonymous callers; writes
// require a bearer token; /v1/admin additionally requires the admin role.
func Mount(r chi.Router, d Deps) {
	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalUser(d.Verifier))
			r.Get("/posts/{post_id}/comments", ListComments(d.Registry))
			r.Get("/comments/{comment_id}", GetComment(d.Registry))
			r.Get("/comments/{comment_id}/replies", ListCommentReplies(d.Registry))
			r.Get("/threads/{thread_id}/replies", ListThreadReplies(d.Registry))
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser(d.Verifier))
			r.Post("/posts/{post_id}/comments", CreateComment(d.Registry))
			r.Post("/comments/{comment_id}/replies", CreateReply(d.Registry))
			r.Delete("/comments/{comment_id}", DeleteComment(d.Registry))
			r.Put("/comments/{comment_id}/reaction", SetReaction(d.Ledger, d.Registry))
			r.Post("/comments/{comment_id}/reports", ReportComment(d.Desk))
			if d.Inbox != nil {
				r.Get("/me/notifications", ListNotifications(d.Inbox))
			}
		})
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireUser(d.Verifier))
			r.Use(auth.RequireAdmin)
			r.Get("/reports", ListReports(d.Desk))
			r.Post("/reports/{report_id}/resolve", ResolveReport(d.Desk))
		})
	})
}
