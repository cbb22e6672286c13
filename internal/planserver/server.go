package planserver

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/craftplan/internal/planning/planner"
)

// Server implements PlannerServer on top of a planner.Service.
type Server struct {
	svc    *planner.Service
	logger *zap.Logger
}

// NewServer constructs a Server.
//
// Precondition: svc and logger must not be nil.
func NewServer(svc *planner.Service, logger *zap.Logger) *Server {
	if svc == nil || logger == nil {
		panic("planserver.NewServer: svc and logger must not be nil")
	}
	return &Server{svc: svc, logger: logger}
}

// Plan runs one search. An unknown catalog is NotFound and a malformed
// request or override is InvalidArgument; a search without a plan is a
// successful response whose outcome says why.
func (s *Server) Plan(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := DecodeRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	rep, err := s.svc.Plan(ctx, req)
	switch {
	case errors.Is(err, planner.ErrUnknownCatalog):
		return nil, status.Error(codes.NotFound, err.Error())
	case err != nil:
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	out, err := EncodeReport(rep)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding report: %v", err)
	}
	return out, nil
}

// Catalogs lists the registered catalogs in ID order.
func (s *Server) Catalogs(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	reg := s.svc.Registry()
	ids := reg.IDs()
	list := make([]any, 0, len(ids))
	for _, id := range ids {
		p, ok := reg.ProblemFor(id)
		if !ok {
			continue // replaced since IDs was taken
		}
		goal := make(map[string]any, len(p.Required))
		for k, v := range p.Required {
			goal[k] = v
		}
		list = append(list, map[string]any{
			"id":      p.ID,
			"items":   p.Vocab.Len(),
			"recipes": p.Rules.Len(),
			"goal":    goal,
		})
	}
	out, err := structpb.NewStruct(map[string]any{"catalogs": list})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding catalogs: %v", err)
	}
	return out, nil
}

// LoggingInterceptor logs every unary call with its duration and status code.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("elapsed", time.Since(start)),
		}
		if err != nil {
			logger.Warn("rpc failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("rpc", fields...)
		}
		return resp, err
	}
}

// NewGRPCServer returns a grpc.Server with the planning service and the
// logging interceptor installed.
func NewGRPCServer(srv PlannerServer, logger *zap.Logger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(LoggingInterceptor(logger))}, opts...)
	gs := grpc.NewServer(opts...)
	RegisterPlannerServer(gs, srv)
	return gs
}
