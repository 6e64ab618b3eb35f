// Package thread owns comment rows: thread allocation, replies, reply
// counters, tombstones and paged reads.
package thread

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/example/discussion-platform/services/discussion/internal/domain"
	"github.com/example/discussion-platform/services/discussion/internal/moderation"
	"github.com/example/discussion-platform/services/discussion/internal/notify"
	"github.com/example/discussion-platform/services/discussion/internal/ratelimit"
	"github.com/example/discussion-platform/services/discussion/internal/store"
)

type Config struct {
	CommentsPerPage    int
	RepliesPerPage     int
	MaxTextRunes       int
	AllocationAttempts int
}

func DefaultConfig() Config {
	return Config{CommentsPerPage: 20, RepliesPerPage: 10, MaxTextRunes: 2000, AllocationAttempts: 5}
}

// ViewerReactions looks up one viewer's reactions for a batch of comments.
type ViewerReactions interface {
	GetReactions(ctx context.Context, userID string, commentIDs []int64) (map[int64]domain.Reaction, error)
}

type Registry struct {
	comments  store.CommentStore
	reactions ViewerReactions
	posts     domain.PostStore
	authors   domain.Identity
	gate      *moderation.Gate
	limiter   *ratelimit.Limiter
	emitter   notify.Emitter
	cfg       Config
	log       *zap.Logger
}

// Deps groups the collaborators of a Registry. Emitter may be nil.
type Deps struct {
	Comments  store.CommentStore
	Reactions ViewerReactions
	Posts     domain.PostStore
	// Authors resolves display fields on reads. Optional.
	Authors   domain.Identity
	Gate      *moderation.Gate
	Limiter   *ratelimit.Limiter
	Emitter   notify.Emitter
	Log       *zap.Logger
}

func NewRegistry(d Deps, cfg Config) *Registry {
	def := DefaultConfig()
	if cfg.CommentsPerPage <= 0 {
		cfg.CommentsPerPage = def.CommentsPerPage
	}
	if cfg.RepliesPerPage <= 0 {
		cfg.RepliesPerPage = def.RepliesPerPage
	}
	if cfg.MaxTextRunes <= 0 {
		cfg.MaxTextRunes = def.MaxTextRunes
	}
	if cfg.AllocationAttempts <= 0 {
		cfg.AllocationAttempts = def.AllocationAttempts
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		comments:  d.Comments,
		reactions: d.Reactions,
		posts:     d.Posts,
		authors:   d.Authors,
		gate:      d.Gate,
		limiter:   d.Limiter,
		emitter:   d.Emitter,
		cfg:       cfg,
		log:       log,
	}
}

// CreateTopLevelComment starts a new thread under postID.
func (r *Registry) CreateTopLevelComment(ctx context.Context, postID, authorID, text string) (domain.Comment, error) {
	text, err := r.validateText(text)
	if err != nil {
		return domain.Comment{}, err
	}
	if strings.TrimSpace(postID) == "" {
		return domain.Comment{}, domain.InvalidArgument("post id is required")
	}
	author, err := r.gate.Admit(ctx, authorID, moderation.Commenting)
	if err != nil {
		return domain.Comment{}, err
	}
	slot, err := r.limiter.Reserve(ctx, ratelimit.ActionComment, author)
	if err != nil {
		return domain.Comment{}, err
	}
	post, err := r.lookupPost(ctx, postID)
	if err != nil {
		slot.Release(ctx)
		return domain.Comment{}, err
	}

	c, err := r.insertTopLevel(ctx, store.NewComment{PostID: post.ID, AuthorID: author.ID, Text: text})
	if err != nil {
		slot.Release(ctx)
		return domain.Comment{}, err
	}

	if post.OwnerID != "" && post.OwnerID != author.ID {
		r.emit(ctx, notify.CommentEvent(author, post, c))
	}
	withAuthor(&c, author)
	return c, nil
}

// insertTopLevel retries when a concurrent insert claimed the same thread.
func (r *Registry) insertTopLevel(ctx context.Context, nc store.NewComment) (domain.Comment, error) {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.AllocationAttempts; attempt++ {
		c, err := r.comments.InsertTopLevel(ctx, nc)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, store.ErrThreadConflict) {
			r.log.Error("thread: insert comment failed", zap.String("post_id", nc.PostID), zap.Error(err))
			return domain.Comment{}, domain.StorageFailure(err)
		}
		lastErr = err
		r.log.Debug("thread: thread id collision, retrying", zap.Int("attempt", attempt))
	}
	r.log.Error("thread: thread id allocation exhausted",
		zap.String("post_id", nc.PostID), zap.Int("attempts", r.cfg.AllocationAttempts))
	return domain.Comment{}, domain.StorageFailure(lastErr)
}

// CreateReply answers parentID. Tombstoned parents still accept replies.
func (r *Registry) CreateReply(ctx context.Context, parentID int64, authorID, text string) (domain.Comment, error) {
	text, err := r.validateText(text)
	if err != nil {
		return domain.Comment{}, err
	}
	author, err := r.gate.Admit(ctx, authorID, moderation.Replying)
	if err != nil {
		return domain.Comment{}, err
	}
	slot, err := r.limiter.Reserve(ctx, ratelimit.ActionComment, author)
	if err != nil {
		return domain.Comment{}, err
	}
	parent, err := r.lookupComment(ctx, parentID)
	if err != nil {
		slot.Release(ctx)
		return domain.Comment{}, err
	}

	reply, err := r.comments.InsertReply(ctx, parent, author.ID, text)
	if err != nil {
		slot.Release(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return domain.Comment{}, domain.NotFound("comment does not exist")
		}
		r.log.Error("thread: insert reply failed", zap.Int64("parent_id", parentID), zap.Error(err))
		return domain.Comment{}, domain.StorageFailure(err)
	}

	if parent.AuthorID != author.ID {
		r.emit(ctx, notify.ReplyEvent(author, parent, reply))
	}
	withAuthor(&reply, author)
	return reply, nil
}

// SoftDelete tombstones a comment on behalf of its author or an admin.
func (r *Registry) SoftDelete(ctx context.Context, commentID int64, actorID string) error {
	actor, err := r.gate.Admit(ctx, actorID, moderation.Deleting)
	if err != nil {
		return err
	}
	c, err := r.lookupComment(ctx, commentID)
	if err != nil {
		return err
	}
	if c.AuthorID != actor.ID && !actor.IsAdmin {
		return domain.PermissionDenied("You do not have permission to delete this comment")
	}
	return r.tombstone(ctx, commentID)
}

// Remove tombstones a comment without an actor. Callers must already have
// established administrative authority.
func (r *Registry) Remove(ctx context.Context, commentID int64) error {
	if _, err := r.lookupComment(ctx, commentID); err != nil {
		return err
	}
	return r.tombstone(ctx, commentID)
}

func (r *Registry) tombstone(ctx context.Context, commentID int64) error {
	if err := r.comments.Tombstone(ctx, commentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NotFound("comment does not exist")
		}
		r.log.Error("thread: tombstone failed", zap.Int64("comment_id", commentID), zap.Error(err))
		return domain.StorageFailure(err)
	}
	return nil
}

func (r *Registry) GetComment(ctx context.Context, commentID int64, viewerID string) (domain.Comment, error) {
	c, err := r.lookupComment(ctx, commentID)
	if err != nil {
		return domain.Comment{}, err
	}
	items := []domain.Comment{c}
	if err := r.attachViewer(ctx, items, viewerID); err != nil {
		return domain.Comment{}, err
	}
	if err := r.attachAuthors(ctx, items); err != nil {
		return domain.Comment{}, err
	}
	return items[0], nil
}

// GetComments pages through a post's top-level comments, oldest first.
func (r *Registry) GetComments(ctx context.Context, postID string, offset int, viewerID string) (domain.Page[domain.Comment], error) {
	if offset < 0 {
		return domain.Page[domain.Comment]{}, domain.InvalidArgument("offset must not be negative")
	}
	items, total, err := r.comments.ListTopLevel(ctx, postID, offset, r.cfg.CommentsPerPage)
	if err != nil {
		r.log.Error("thread: list comments failed", zap.String("post_id", postID), zap.Error(err))
		return domain.Page[domain.Comment]{}, domain.StorageFailure(err)
	}
	return r.page(ctx, items, total, offset, viewerID)
}

// GetReplies pages through every reply in a thread, oldest first.
func (r *Registry) GetReplies(ctx context.Context, threadID int64, offset int, viewerID string) (domain.Page[domain.Comment], error) {
	if offset < 0 {
		return domain.Page[domain.Comment]{}, domain.InvalidArgument("offset must not be negative")
	}
	items, total, err := r.comments.ListReplies(ctx, threadID, offset, r.cfg.RepliesPerPage)
	if err != nil {
		r.log.Error("thread: list replies failed", zap.Int64("thread_id", threadID), zap.Error(err))
		return domain.Page[domain.Comment]{}, domain.StorageFailure(err)
	}
	return r.page(ctx, items, total, offset, viewerID)
}

// GetRepliesForComment resolves commentID's thread and lists its replies.
func (r *Registry) GetRepliesForComment(ctx context.Context, commentID int64, offset int, viewerID string) (domain.Page[domain.Comment], error) {
	c, err := r.lookupComment(ctx, commentID)
	if err != nil {
		return domain.Page[domain.Comment]{}, err
	}
	return r.GetReplies(ctx, c.ThreadID, offset, viewerID)
}

func (r *Registry) page(ctx context.Context, items []domain.Comment, total, offset int, viewerID string) (domain.Page[domain.Comment], error) {
	if items == nil {
		items = []domain.Comment{}
	}
	if err := r.attachViewer(ctx, items, viewerID); err != nil {
		return domain.Page[domain.Comment]{}, err
	}
	if err := r.attachAuthors(ctx, items); err != nil {
		return domain.Page[domain.Comment]{}, err
	}
	return domain.Page[domain.Comment]{Items: items, Total: total, Offset: offset}, nil
}

// attachViewer sets ViewerReaction on every item when viewerID is known.
func (r *Registry) attachViewer(ctx context.Context, items []domain.Comment, viewerID string) error {
	if viewerID == "" || r.reactions == nil || len(items) == 0 {
		return nil
	}
	ids := make([]int64, len(items))
	for i, c := range items {
		ids[i] = c.ID
	}
	states, err := r.reactions.GetReactions(ctx, viewerID, ids)
	if err != nil {
		r.log.Error("thread: viewer reactions failed", zap.String("viewer_id", viewerID), zap.Error(err))
		return domain.StorageFailure(err)
	}
	for i := range items {
		st := states[items[i].ID]
		items[i].ViewerReaction = &st
	}
	return nil
}

// attachAuthors looks up each distinct author once. Authors whose account
// no longer resolves are left blank.
func (r *Registry) attachAuthors(ctx context.Context, items []domain.Comment) error {
	if r.authors == nil || len(items) == 0 {
		return nil
	}
	users := make(map[string]domain.User, len(items))
	for _, c := range items {
		if _, ok := users[c.AuthorID]; ok {
			continue
		}
		u, err := r.authors.GetUserByID(ctx, c.AuthorID)
		switch {
		case err == nil:
		case domain.IsKind(err, domain.KindNotFound):
			u = domain.User{}
		default:
			r.log.Error("thread: author lookup failed", zap.String("author_id", c.AuthorID), zap.Error(err))
			return domain.StorageFailure(err)
		}
		users[c.AuthorID] = u
	}
	for i := range items {
		withAuthor(&items[i], users[items[i].AuthorID])
	}
	return nil
}

func withAuthor(c *domain.Comment, u domain.User) {
	c.AuthorUsername = u.Username
	c.AuthorIsAdmin = u.IsAdmin
}

func (r *Registry) lookupComment(ctx context.Context, id int64) (domain.Comment, error) {
	c, err := r.comments.GetComment(ctx, id)
	if err == nil {
		return c, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return domain.Comment{}, domain.NotFound("comment does not exist")
	}
	r.log.Error("thread: get comment failed", zap.Int64("comment_id", id), zap.Error(err))
	return domain.Comment{}, domain.StorageFailure(err)
}

func (r *Registry) lookupPost(ctx context.Context, id string) (domain.Post, error) {
	p, err := r.posts.GetPost(ctx, id)
	if err == nil {
		return p, nil
	}
	if domain.IsKind(err, domain.KindNotFound) {
		return domain.Post{}, domain.NotFound("post does not exist")
	}
	r.log.Error("thread: get post failed", zap.String("post_id", id), zap.Error(err))
	return domain.Post{}, domain.StorageFailure(err)
}

func (r *Registry) validateText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.InvalidArgument("comment text is required")
	}
	if utf8.RuneCountInString(text) > r.cfg.MaxTextRunes {
		return "", domain.InvalidArgument("comment text is too long")
	}
	return text, nil
}

func (r *Registry) emit(ctx context.Context, ev notify.Event) {
	if r.emitter == nil {
		return
	}
	r.emitter.Emit(ctx, ev)
}
