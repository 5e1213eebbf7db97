package server

import (
	"context"

	"google.golang.org/grpc"

	"github.com/ppiankov/clearlift/internal/control"
	"github.com/ppiankov/clearlift/internal/model"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "clearlift.v1.ElevatorService"

const (
	pressMethod       = "/" + ServiceName + "/Press"
	checkAccessMethod = "/" + ServiceName + "/CheckAccess"
	statusMethod      = "/" + ServiceName + "/Status"
)

// PressRequest is the Press RPC input. Levels and floors travel as their
// names ("Secret", "T1") and are parsed by the server.
type PressRequest struct {
	AgentID    string `json:"agent_id"`
	Clearance  string `json:"clearance"`
	StartFloor string `json:"start_floor,omitempty"`
	Floor      string `json:"floor"`
}

// PressResponse carries the outcome of one button press.
type PressResponse struct {
	Outcome model.Outcome `json:"outcome"`
}

// CheckAccessRequest is the CheckAccess RPC input.
type CheckAccessRequest struct {
	Clearance string `json:"clearance"`
	Floor     string `json:"floor"`
}

// CheckAccessResponse is the policy decision.
type CheckAccessResponse = control.CheckResponse

// StatusRequest is the (empty) Status RPC input.
type StatusRequest struct{}

// StatusResponse is the elevator snapshot.
type StatusResponse = control.Status

// ElevatorServiceServer is the server API for ElevatorService.
type ElevatorServiceServer interface {
	Press(context.Context, *PressRequest) (*PressResponse, error)
	CheckAccess(context.Context, *CheckAccessRequest) (*CheckAccessResponse, error)
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
}

// RegisterElevatorServiceServer registers srv on s.
func RegisterElevatorServiceServer(s grpc.ServiceRegistrar, srv ElevatorServiceServer) {
	s.RegisterService(&ElevatorServiceDesc, srv)
}

// ElevatorServiceDesc describes ElevatorService for grpc.Server.
var ElevatorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ElevatorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Press", Handler: pressHandler},
		{MethodName: "CheckAccess", Handler: checkAccessHandler},
		{MethodName: "Status", Handler: statusHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "clearlift/v1/elevator.proto",
}

func pressHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PressRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ElevatorServiceServer).Press(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: pressMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ElevatorServiceServer).Press(ctx, req.(*PressRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func checkAccessHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CheckAccessRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ElevatorServiceServer).CheckAccess(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: checkAccessMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ElevatorServiceServer).CheckAccess(ctx, req.(*CheckAccessRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func statusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ElevatorServiceServer).Status(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: statusMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ElevatorServiceServer).Status(ctx, req.(*StatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}
