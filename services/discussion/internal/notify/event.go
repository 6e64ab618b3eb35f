// Package notify turns new comments and replies into notification events,
// ships them off the request path and delivers them to the
// NotificationService.
package notify

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/example/discussion-platform/services/discussion/internal/domain"
)

const (
	KindComment      = "comment"
	KindCommentReply = "comment_reply"

	StreamName    = "DISCUSSION_NOTIFY"
	SubjectPrefix = "discussion.notifications."
	SubjectAll    = SubjectPrefix + ">"
	DurableWorker = "discussion_notify_worker"
)

// Event is the envelope published for every notification.
type Event struct {
	ID          string         `json:"event_id"`
	Kind        string         `json:"kind"`
	RecipientID string         `json:"recipient_id"`
	ActorID     string         `json:"actor_id"`
	Subject     string         `json:"subject"`
	Body        string         `json:"body"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

func (e Event) NATSSubject() string { return SubjectPrefix + e.Kind }

func (e Event) Notification() domain.Notification {
	return domain.Notification{
		RecipientID: e.RecipientID,
		Kind:        e.Kind,
		Subject:     e.Subject,
		Body:        e.Body,
		Metadata:    e.Metadata,
	}
}

// ids are rendered as strings so they survive JSON round trips intact.
func id(v int64) string { return strconv.FormatInt(v, 10) }

// CommentEvent notifies the post owner about a new top-level comment.
func CommentEvent(author domain.User, post domain.Post, c domain.Comment) Event {
	return Event{
		ID:          uuid.NewString(),
		Kind:        KindComment,
		RecipientID: post.OwnerID,
		ActorID:     author.ID,
		Subject:     "@" + author.Username + " commented on your post",
		Body:        c.Text,
		Metadata: map[string]any{
			"post_id":    post.ID,
			"comment_id": id(c.ID),
			"thread_id":  id(c.ThreadID),
		},
		OccurredAt: c.CreatedAt,
	}
}

// ReplyEvent notifies the parent comment's author about a reply.
func ReplyEvent(author domain.User, parent, reply domain.Comment) Event {
	return Event{
		ID:          uuid.NewString(),
		Kind:        KindCommentReply,
		RecipientID: parent.AuthorID,
		ActorID:     author.ID,
		Subject:     "@" + author.Username + " replied to your comment",
		Body:        reply.Text,
		Metadata: map[string]any{
			"post_id":    parent.PostID,
			"comment_id": id(parent.ID),
			"reply_id":   id(reply.ID),
			"thread_id":  id(parent.ThreadID),
		},
		OccurredAt: reply.CreatedAt,
	}
}
