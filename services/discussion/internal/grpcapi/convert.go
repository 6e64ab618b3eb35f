package grpcapi

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/example/discussion-platform/services/discussion/internal/domain"
)

// Ids travel as decimal strings: a Struct number is a double and cannot
// hold every int64.
func commentFields(c domain.Comment) map[string]any {
	m := map[string]any{
		"id":            strconv.FormatInt(c.ID, 10),
		"post_id":       c.PostID,
		"author_id":     c.AuthorID,
		"thread_id":     strconv.FormatInt(c.ThreadID, 10),
		"text":          c.Text,
		"created_at":    c.CreatedAt.UTC().Format(time.RFC3339Nano),
		"like_count":    c.LikeCount,
		"dislike_count": c.DislikeCount,
		"reply_count":   c.ReplyCount,
		"deleted":       c.Deleted,
		"author_is_admin": c.AuthorIsAdmin,
	}
	if c.AuthorUsername != "" {
		m["author_username"] = c.AuthorUsername
	}
	if c.ParentCommentID != nil {
		m["parent_comment_id"] = strconv.FormatInt(*c.ParentCommentID, 10)
	}
	if c.ViewerReaction != nil {
		m["viewer_reaction"] = c.ViewerReaction.String()
	}
	return m
}

func commentStruct(c domain.Comment) (*structpb.Struct, error) {
	return structpb.NewStruct(commentFields(c))
}

func pageStruct(p domain.Page[domain.Comment]) (*structpb.Struct, error) {
	items := make([]any, 0, len(p.Items))
	for _, c := range p.Items {
		items = append(items, commentFields(c))
	}
	return structpb.NewStruct(map[string]any{
		"items":  items,
		"total":  p.Total,
		"offset": p.Offset,
	})
}

func stringField(s *structpb.Struct, key string) string {
	v, ok := s.GetFields()[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(v.GetStringValue())
}

func boolField(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

// int64Field accepts a decimal string or an integral number.
func int64Field(s *structpb.Struct, key string) (int64, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(strings.TrimSpace(k.StringValue), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return n, nil
	case *structpb.Value_NumberValue:
		f := k.NumberValue
		if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("%s must be an integer", key)
	}
}

func offsetField(s *structpb.Struct) (int, error) {
	if _, ok := s.GetFields()["offset"]; !ok {
		return 0, nil
	}
	n, err := int64Field(s, "offset")
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("offset must not be negative")
	}
	return int(n), nil
}
