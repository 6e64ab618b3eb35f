package grpcapi

import (
	"strings"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/example/discussion-platform/services/discussion/internal/domain"
)

const errorDomain = "discussion"

func withInfo(code codes.Code, reason, msg string) error {
	st := status.New(code, msg)
	st2, err := st.WithDetails(&errdetails.ErrorInfo{Reason: reason, Domain: errorDomain})
	if err != nil {
		return st.Err()
	}
	return st2.Err()
}

func errInvalidArgument(field, msg string) error {
	st := status.New(codes.InvalidArgument, msg)
	bad := &errdetails.BadRequest{FieldViolations: []*errdetails.BadRequest_FieldViolation{{Field: field, Description: msg}}}
	st2, err := st.WithDetails(&errdetails.ErrorInfo{Reason: "INVALID_ARGUMENT", Domain: errorDomain}, bad)
	if err != nil {
		return st.Err()
	}
	return st2.Err()
}

// toStatus maps an engine error onto a gRPC status.
func toStatus(err error) error {
	kind := domain.KindOf(err)
	reason := strings.ToUpper(kind.String())
	msg := domain.MessageOf(err)
	switch kind {
	case domain.KindNotFound:
		return withInfo(codes.NotFound, reason, msg)
	case domain.KindPermissionDenied:
		return withInfo(codes.PermissionDenied, reason, msg)
	case domain.KindRateLimited:
		return withInfo(codes.ResourceExhausted, reason, msg)
	case domain.KindConflict:
		return withInfo(codes.AlreadyExists, reason, msg)
	case domain.KindInvalidArgument:
		return withInfo(codes.InvalidArgument, reason, msg)
	default:
		return withInfo(codes.Internal, "STORAGE_FAILURE", "internal error")
	}
}
