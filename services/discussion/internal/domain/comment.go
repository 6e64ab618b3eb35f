// Package domain holds the discussion engine's entities, its tagged error
// type and the narrow interfaces of the collaborators it depends on.
package domain

import (
	"context"
	"time"
)

// DeletedMarker replaces the text of a tombstoned comment.
const DeletedMarker = "[deleted]"

// Comment is a top-level comment or a reply. Replies share their root's
// ThreadID regardless of nesting depth.
type Comment struct {
	ID              int64     `json:"id,string"`
	PostID          string    `json:"post_id"`
	AuthorID        string    `json:"author_id"`
	ThreadID        int64     `json:"thread_id,string"`
	ParentCommentID *int64    `json:"parent_comment_id,omitempty,string"`
	Text            string    `json:"text"`
	CreatedAt       time.Time `json:"created_at"`
	LikeCount       int64     `json:"like_count"`
	DislikeCount    int64     `json:"dislike_count"`
	// ReplyCount is only maintained on top-level comments.
	ReplyCount int64 `json:"reply_count"`
	Deleted    bool  `json:"deleted"`

	// Author display fields, filled on reads when the account resolves.
	AuthorUsername string `json:"author_username,omitempty"`
	AuthorIsAdmin  bool   `json:"author_is_admin"`

	// ViewerReaction is set on reads made on behalf of a known viewer.
	ViewerReaction *Reaction `json:"viewer_reaction,omitempty"`
}

func (c Comment) IsTopLevel() bool { return c.ParentCommentID == nil }

// Page is one offset-based page plus the total number of matching rows.
type Page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Offset int `json:"offset"`
}

// User is the subset of an account the engine needs.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Banned   bool   `json:"banned"`
	Verified bool   `json:"verified"`
	IsAdmin  bool   `json:"is_admin"`
}

type Post struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
}

// Report is a user complaint about a comment with a snapshot of what was
// reported, kept even if the comment is later tombstoned.
type Report struct {
	ID             int64     `json:"id,string"`
	CommentID      int64     `json:"comment_id,string"`
	ReporterID     string    `json:"reporter_id"`
	ReportedUserID string    `json:"reported_user_id"`
	ContentText    string    `json:"content_text"`
	Reason         string    `json:"reason"`
	CreatedAt      time.Time `json:"created_at"`
}

// Notification is a record handed to the NotificationService.
type Notification struct {
	RecipientID string         `json:"recipient_id"`
	Kind        string         `json:"kind"`
	Subject     string         `json:"subject"`
	Body        string         `json:"body"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Identity resolves accounts. A missing user is reported as a NotFound Error.
type Identity interface {
	GetUserByID(ctx context.Context, id string) (User, error)
}

// PostStore resolves posts. A missing post is reported as a NotFound Error.
type PostStore interface {
	GetPost(ctx context.Context, id string) (Post, error)
}

type NotificationService interface {
	Create(ctx context.Context, n Notification) error
}
