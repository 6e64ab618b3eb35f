// Package grpcapi serves the discussion engine over gRPC.
package grpcapi

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/example/discussion-platform/services/discussion/internal/domain"
	"github.com/example/discussion-platform/services/discussion/internal/reaction"
	"github.com/example/discussion-platform/services/discussion/internal/thread"
)

// DiscussionService implements DiscussionServer.
type DiscussionService struct {
	Registry *thread.Registry
	Ledger   *reaction.Ledger
}

// NewServer builds a gRPC server exposing DiscussionService, the health
// service and reflection.
func NewServer(svc *DiscussionService, log *zap.Logger) (*grpc.Server, *health.Server) {
	if log == nil {
		log = zap.NewNop()
	}
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(logUnary(log)))
	RegisterDiscussionServer(srv, svc)
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	return srv, hs
}

// Drain marks every service NOT_SERVING so balancers stop routing, then
// stops the server gracefully. In-flight calls that outlive grace are cut.
func Drain(srv *grpc.Server, hs *health.Server, grace time.Duration) {
	if hs != nil {
		hs.Shutdown()
	}
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(grace):
		srv.Stop()
	}
}

func logUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil && status.Code(err) == codes.Internal {
			log.Error("grpc call failed", zap.String("method", info.FullMethod), zap.Error(err))
		}
		return resp, err
	}
}

func userIDFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("user_id")
	if len(vals) == 0 || strings.TrimSpace(vals[0]) == "" {
		return "", status.Error(codes.Unauthenticated, "missing user_id in metadata")
	}
	return strings.TrimSpace(vals[0]), nil
}

// viewerFromMD returns the optional caller id for reads.
func viewerFromMD(ctx context.Context) string {
	id, err := userIDFromMD(ctx)
	if err != nil {
		return ""
	}
	return id
}

func (s *DiscussionService) CreateTopLevelComment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromMD(ctx)
	if err != nil {
		return nil, err
	}
	postID := stringField(req, "post_id")
	if postID == "" {
		return nil, errInvalidArgument("post_id", "post_id is required")
	}
	c, err := s.Registry.CreateTopLevelComment(ctx, postID, userID, req.GetFields()["text"].GetStringValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return commentStruct(c)
}

func (s *DiscussionService) CreateReply(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromMD(ctx)
	if err != nil {
		return nil, err
	}
	parentID, err := int64Field(req, "parent_comment_id")
	if err != nil {
		return nil, errInvalidArgument("parent_comment_id", err.Error())
	}
	c, err := s.Registry.CreateReply(ctx, parentID, userID, req.GetFields()["text"].GetStringValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return commentStruct(c)
}

func (s *DiscussionService) SoftDelete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromMD(ctx)
	if err != nil {
		return nil, err
	}
	id, err := int64Field(req, "comment_id")
	if err != nil {
		return nil, errInvalidArgument("comment_id", err.Error())
	}
	if err := s.Registry.SoftDelete(ctx, id, userID); err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{"ok": true})
}

func (s *DiscussionService) SetReaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromMD(ctx)
	if err != nil {
		return nil, err
	}
	id, err := int64Field(req, "comment_id")
	if err != nil {
		return nil, errInvalidArgument("comment_id", err.Error())
	}
	desired, err := domain.ParseReaction(stringField(req, "status"))
	if err != nil {
		return nil, errInvalidArgument("status", "status must be liked, disliked or none")
	}
	if err := s.Ledger.SetReaction(ctx, id, userID, desired); err != nil {
		return nil, toStatus(err)
	}
	c, err := s.Registry.GetComment(ctx, id, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return commentStruct(c)
}

func (s *DiscussionService) GetComment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := int64Field(req, "comment_id")
	if err != nil {
		return nil, errInvalidArgument("comment_id", err.Error())
	}
	c, err := s.Registry.GetComment(ctx, id, viewerFromMD(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return commentStruct(c)
}

func (s *DiscussionService) GetComments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	postID := stringField(req, "post_id")
	if postID == "" {
		return nil, errInvalidArgument("post_id", "post_id is required")
	}
	offset, err := offsetField(req)
	if err != nil {
		return nil, errInvalidArgument("offset", err.Error())
	}
	page, err := s.Registry.GetComments(ctx, postID, offset, viewerFromMD(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return pageStruct(page)
}

func (s *DiscussionService) GetReplies(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	threadID, err := int64Field(req, "thread_id")
	if err != nil {
		return nil, errInvalidArgument("thread_id", err.Error())
	}
	offset, err := offsetField(req)
	if err != nil {
		return nil, errInvalidArgument("offset", err.Error())
	}
	page, err := s.Registry.GetReplies(ctx, threadID, offset, viewerFromMD(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return pageStruct(page)
}
