// ============================================================================
// Fractor gRPC work source - wire contract
// ============================================================================
//
// Package: internal/grpcsource
// File: service.go
// Function: Defines the gRPC service a continuous-mode Supervisor can poll
// for new Work (spec.md §3 WorkCallbacks, SPEC_FULL.md DOMAIN STACK).
//
// A generated protoc-gen-go-grpc stub was not available for this service, so
// rather than fabricate one, the service descriptor here is hand-built the
// same way protoc-gen-go-grpc would generate it, and the request/response
// messages are google.golang.org/protobuf's well-known structpb types —
// genuine protobuf messages, genuinely carried over grpc's wire codec,
// without a protoc step. See DESIGN.md for the full rationale.
//
// ============================================================================

package grpcsource

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	serviceName = "fractor.grpcsource.v1.WorkSource"
	methodPoll  = "/" + serviceName + "/Poll"
)

// Server is implemented by anything that can answer a Poll RPC. It mirrors
// the shape protoc-gen-go-grpc would generate for a one-method service.
type Server interface {
	Poll(context.Context, *structpb.Struct) (*structpb.ListValue, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Poll",
			Handler:    pollHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fractor/grpcsource.proto",
}

func pollHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Poll(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodPoll}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).Poll(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterServer registers srv's Poll method on s, under the WorkSource
// service name, exactly as a generated RegisterWorkSourceServer would.
func RegisterServer(s *grpc.Server, srv Server) {
	s.RegisterService(&serviceDesc, srv)
}
