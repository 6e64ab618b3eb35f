package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/example/discussion-platform/services/discussion/internal/domain"
)

type reactionKey struct {
	commentID int64
	userID    string
}

type reactionRow struct {
	status      domain.Reaction
	lastUpdated time.Time
}

// Memory is a development-only store holding comments, reactions and
// reports behind a single lock, so every call is one atomic unit.
// WARNING: state is lost on restart and is not shared between instances.
type Memory struct {
	ids *snowflake.Node
	now func() time.Time

	mu        sync.RWMutex
	comments  map[int64]domain.Comment
	roots     map[int64]int64 // thread id -> root comment id
	maxThread int64
	reactions map[reactionKey]reactionRow
	reports   map[int64]domain.Report
	reportSeq []int64
}

// NewMemory returns an empty store. node seeds the snowflake id generator
// and must be in [0, 1023].
func NewMemory(node int64) (*Memory, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, err
	}
	return &Memory{
		ids:       n,
		now:       func() time.Time { return time.Now().UTC() },
		comments:  make(map[int64]domain.Comment),
		roots:     make(map[int64]int64),
		reactions: make(map[reactionKey]reactionRow),
		reports:   make(map[int64]domain.Report),
	}, nil
}

// SetClock replaces the timestamp source. Test helper.
func (s *Memory) SetClock(now func() time.Time) { s.now = now }

func (s *Memory) InsertTopLevel(_ context.Context, nc NewComment) (domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.maxThread++
	c := domain.Comment{
		ID:        s.ids.Generate().Int64(),
		PostID:    nc.PostID,
		AuthorID:  nc.AuthorID,
		ThreadID:  s.maxThread,
		Text:      nc.Text,
		CreatedAt: s.now(),
	}
	s.comments[c.ID] = c
	s.roots[c.ThreadID] = c.ID
	return c, nil
}

func (s *Memory) InsertReply(_ context.Context, parent domain.Comment, authorID, text string) (domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[parent.ID]; !ok {
		return domain.Comment{}, ErrNotFound
	}
	pid := parent.ID
	c := domain.Comment{
		ID:              s.ids.Generate().Int64(),
		PostID:          parent.PostID,
		AuthorID:        authorID,
		ThreadID:        parent.ThreadID,
		ParentCommentID: &pid,
		Text:            text,
		CreatedAt:       s.now(),
	}
	s.comments[c.ID] = c

	if rootID, ok := s.roots[parent.ThreadID]; ok {
		root := s.comments[rootID]
		root.ReplyCount++
		s.comments[rootID] = root
	}
	return c, nil
}

func (s *Memory) GetComment(_ context.Context, id int64) (domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.comments[id]
	if !ok {
		return domain.Comment{}, ErrNotFound
	}
	return c, nil
}

func (s *Memory) Tombstone(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return ErrNotFound
	}
	c.Text = domain.DeletedMarker
	c.Deleted = true
	s.comments[id] = c
	return nil
}

func (s *Memory) ListTopLevel(_ context.Context, postID string, offset, limit int) ([]domain.Comment, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	match := func(c domain.Comment) bool {
		return c.PostID == postID && c.ParentCommentID == nil
	}
	return s.page(match, offset, limit), s.count(match), nil
}

func (s *Memory) ListReplies(_ context.Context, threadID int64, offset, limit int) ([]domain.Comment, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	match := func(c domain.Comment) bool {
		return c.ThreadID == threadID && c.ParentCommentID != nil
	}
	return s.page(match, offset, limit), s.count(match), nil
}

func (s *Memory) count(match func(domain.Comment) bool) int {
	n := 0
	for _, c := range s.comments {
		if match(c) {
			n++
		}
	}
	return n
}

// page returns matching comments in creation order. Caller holds the lock.
func (s *Memory) page(match func(domain.Comment) bool, offset, limit int) []domain.Comment {
	var out []domain.Comment
	for _, c := range s.comments {
		if match(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if offset >= len(out) {
		return []domain.Comment{}
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Memory) SetReaction(_ context.Context, commentID int64, userID string, desired domain.Reaction, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return ErrNotFound
	}
	key := reactionKey{commentID: commentID, userID: userID}
	current := s.reactions[key].status
	if current == desired {
		return ErrSameReaction
	}

	like, dislike := counterDelta(current, desired)
	c.LikeCount += like
	c.DislikeCount += dislike
	s.comments[commentID] = c

	if desired == domain.ReactionNone {
		delete(s.reactions, key)
	} else {
		s.reactions[key] = reactionRow{status: desired, lastUpdated: at}
	}
	return nil
}

func (s *Memory) GetReaction(_ context.Context, commentID int64, userID string) (domain.Reaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reactions[reactionKey{commentID: commentID, userID: userID}].status, nil
}

func (s *Memory) GetReactions(_ context.Context, userID string, commentIDs []int64) (map[int64]domain.Reaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]domain.Reaction, len(commentIDs))
	for _, id := range commentIDs {
		if row, ok := s.reactions[reactionKey{commentID: id, userID: userID}]; ok {
			out[id] = row.status
		}
	}
	return out, nil
}

func (s *Memory) Tally(_ context.Context, commentID int64) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var liked, disliked int64
	for k, row := range s.reactions {
		if k.commentID != commentID {
			continue
		}
		switch row.status {
		case domain.ReactionLiked:
			liked++
		case domain.ReactionDisliked:
			disliked++
		}
	}
	return liked, disliked, nil
}

func (s *Memory) InsertReport(_ context.Context, r domain.Report) (domain.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.ids.Generate().Int64()
	r.CreatedAt = s.now()
	s.reports[r.ID] = r
	s.reportSeq = append(s.reportSeq, r.ID)
	return r, nil
}

func (s *Memory) GetReport(_ context.Context, id int64) (domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return domain.Report{}, ErrNotFound
	}
	return r, nil
}

func (s *Memory) ListReports(_ context.Context, offset, limit int) ([]domain.Report, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := len(s.reportSeq)
	if offset >= total {
		return []domain.Report{}, total, nil
	}
	ids := s.reportSeq[offset:]
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]domain.Report, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.reports[id])
	}
	return out, total, nil
}

func (s *Memory) DeleteReport(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return ErrNotFound
	}
	delete(s.reports, id)
	for i, rid := range s.reportSeq {
		if rid == id {
			s.reportSeq = append(s.reportSeq[:i], s.reportSeq[i+1:]...)
			break
		}
	}
	return nil
}

// counterDelta returns the like/dislike adjustments for a transition.
func counterDelta(from, to domain.Reaction) (like, dislike int64) {
	switch from {
	case domain.ReactionLiked:
		like--
	case domain.ReactionDisliked:
		dislike--
	}
	switch to {
	case domain.ReactionLiked:
		like++
	case domain.ReactionDisliked:
		dislike++
	}
	return like, dislike
}
