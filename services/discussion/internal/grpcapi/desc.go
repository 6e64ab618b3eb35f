package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "discussion.v1.DiscussionService"

// Method names of DiscussionService. Every method takes and returns a
// google.protobuf.Struct.
const (
	MethodCreateTopLevelComment = "CreateTopLevelComment"
	MethodCreateReply           = "CreateReply"
	MethodSoftDelete            = "SoftDelete"
	MethodSetReaction           = "SetReaction"
	MethodGetComment            = "GetComment"
	MethodGetComments           = "GetComments"
	MethodGetReplies            = "GetReplies"
)

type DiscussionServer interface {
	CreateTopLevelComment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateReply(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SoftDelete(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetReaction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetComment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetComments(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetReplies(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type call func(DiscussionServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(method string, fn call) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv.(DiscussionServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return fn(srv.(DiscussionServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DiscussionServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodCreateTopLevelComment, DiscussionServer.CreateTopLevelComment),
		unary(MethodCreateReply, DiscussionServer.CreateReply),
		unary(MethodSoftDelete, DiscussionServer.SoftDelete),
		unary(MethodSetReaction, DiscussionServer.SetReaction),
		unary(MethodGetComment, DiscussionServer.GetComment),
		unary(MethodGetComments, DiscussionServer.GetComments),
		unary(MethodGetReplies, DiscussionServer.GetReplies),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "discussion/v1/discussion.proto",
}

func RegisterDiscussionServer(s grpc.ServiceRegistrar, srv DiscussionServer) {
	s.RegisterService(&serviceDesc, srv)
}

// Client invokes DiscussionService methods by name.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func (c *Client) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
