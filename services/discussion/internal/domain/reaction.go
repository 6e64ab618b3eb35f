package domain

import (
	"fmt"
	"strings"
)

// Reaction is a user's current stance on a comment.
type Reaction uint8

const (
	ReactionNone Reaction = iota
	ReactionLiked
	ReactionDisliked
)

func (r Reaction) String() string {
	switch r {
	case ReactionLiked:
		return "liked"
	case ReactionDisliked:
		return "disliked"
	default:
		return "none"
	}
}

func (r Reaction) Valid() bool { return r <= ReactionDisliked }

// ParseReaction accepts both verb and past-tense spellings. Clearing a
// reaction must be asked for explicitly with "none"; an empty value is an
// error.
func ParseReaction(s string) (Reaction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return ReactionNone, nil
	case "like", "liked":
		return ReactionLiked, nil
	case "dislike", "disliked":
		return ReactionDisliked, nil
	}
	return ReactionNone, fmt.Errorf("unknown reaction %q", s)
}

func (r Reaction) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Reaction) UnmarshalText(b []byte) error {
	v, err := ParseReaction(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
