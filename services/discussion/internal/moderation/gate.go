// Package moderation decides whether an account may perform a write.
package moderation

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/example/discussion-platform/services/discussion/internal/domain"
)

// Activity names a write and carries the messages shown when it is refused.
// An empty Banned message means banned accounts are not refused.
type Activity struct {
	Name       string
	Banned     string
	Unverified string
}

var (
	Commenting = Activity{
		Name:       "comment",
		Banned:     "You have been banned from posting comments.",
		Unverified: "You must verify your e-mail to create a comment.",
	}
	Replying = Activity{
		Name:       "reply",
		Banned:     "You have been banned from replying to comments.",
		Unverified: "You must verify your e-mail to reply to a comment.",
	}
	Interacting = Activity{
		Name:       "react",
		Banned:     "You have been banned from interacting with comments.",
		Unverified: "You must verify your e-mail to interact with a comment.",
	}
	Deleting = Activity{
		Name:       "delete",
		Banned:     "You have been banned from editing comments.",
		Unverified: "You must verify your e-mail to delete a comment.",
	}
	Reporting = Activity{
		Name:       "report",
		Unverified: "You must verify your account to report comments.",
	}
)

type Gate struct {
	identity domain.Identity
	log      *zap.Logger
}

func NewGate(identity domain.Identity, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{identity: identity, log: log}
}

// Admit resolves userID and checks, in order, that the account exists, is
// not banned and is verified. The resolved account is returned so callers
// can apply quota and ownership rules without a second lookup.
func (g *Gate) Admit(ctx context.Context, userID string, act Activity) (domain.User, error) {
	u, err := g.lookup(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if u.Banned && act.Banned != "" {
		g.log.Info("moderation: banned actor refused", zap.String("user_id", u.ID), zap.String("activity", act.Name))
		return domain.User{}, domain.PermissionDenied(act.Banned)
	}
	if !u.Verified {
		return domain.User{}, domain.PermissionDenied(act.Unverified)
	}
	return u, nil
}

// RequireAdmin admits only existing administrators.
func (g *Gate) RequireAdmin(ctx context.Context, userID string) (domain.User, error) {
	u, err := g.lookup(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if !u.IsAdmin {
		return domain.User{}, domain.PermissionDenied("administrator access required")
	}
	return u, nil
}

func (g *Gate) lookup(ctx context.Context, userID string) (domain.User, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.User{}, domain.InvalidArgument("user id is required")
	}
	u, err := g.identity.GetUserByID(ctx, userID)
	if err == nil {
		return u, nil
	}
	if domain.IsKind(err, domain.KindNotFound) {
		return domain.User{}, domain.NotFound("user does not exist")
	}
	g.log.Error("moderation: identity lookup failed", zap.String("user_id", userID), zap.Error(err))
	return domain.User{}, domain.StorageFailure(err)
}
