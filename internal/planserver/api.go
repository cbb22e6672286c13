// Package planserver exposes a planner.Service over gRPC.
//
// Messages are google.protobuf.Struct values so the service needs no
// generated code:
//
//	Plan     {catalog, initial?, goal?, time_limit_ms?} -> {catalog, outcome, cost, len, steps, expanded, generated, pruned, elapsed_ms}
//	Catalogs {}                                         -> {catalogs: [{id, items, recipes, goal}]}
package planserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "craftplan.v1.Planner"

const (
	planMethod     = "/" + ServiceName + "/Plan"
	catalogsMethod = "/" + ServiceName + "/Catalogs"
)

// PlannerServer is the server API for the planning service.
type PlannerServer interface {
	Plan(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Catalogs(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the planning service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PlannerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Plan", Handler: unaryHandler(planMethod, PlannerServer.Plan)},
		{MethodName: "Catalogs", Handler: unaryHandler(catalogsMethod, PlannerServer.Catalogs)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "craftplan/v1/planner.proto",
}

// RegisterPlannerServer registers srv with s.
func RegisterPlannerServer(s grpc.ServiceRegistrar, srv PlannerServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type unaryMethod func(PlannerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PlannerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(PlannerServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Client is the client API for the planning service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Plan requests a plan.
func (c *Client) Plan(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, planMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Catalogs lists the served catalogs.
func (c *Client) Catalogs(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, catalogsMethod, &structpb.Struct{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
