// Package healthv1 defines the HealthService RPC surface.
package healthv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"goodies-auth/api/rpc"
)

const ServiceName = "goodies.health.v1.HealthService"

const HealthService_Check_FullMethodName = "/" + ServiceName + "/Check"

const (
	StatusServing    = "SERVING"
	StatusNotServing = "NOT_SERVING"
)

type CheckRequest struct{}

type CheckResponse struct {
	Status string `json:"status"`
}

// HealthServiceServer is the server API for HealthService.
type HealthServiceServer interface {
	Check(context.Context, *CheckRequest) (*CheckResponse, error)
}

type UnimplementedHealthServiceServer struct{}

func (UnimplementedHealthServiceServer) Check(context.Context, *CheckRequest) (*CheckResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Check not implemented")
}

var HealthService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*HealthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Check", Handler: rpc.Unary(HealthService_Check_FullMethodName, HealthServiceServer.Check)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "health/v1/health.json",
}

func RegisterHealthServiceServer(s grpc.ServiceRegistrar, srv HealthServiceServer) {
	s.RegisterService(&HealthService_ServiceDesc, srv)
}

type HealthServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewHealthServiceClient(cc grpc.ClientConnInterface) *HealthServiceClient {
	return &HealthServiceClient{cc: cc}
}

func (c *HealthServiceClient) Check(ctx context.Context, in *CheckRequest, opts ...grpc.CallOption) (*CheckResponse, error) {
	out := new(CheckResponse)
	if err := c.cc.Invoke(ctx, HealthService_Check_FullMethodName, in, out, rpc.CallOptions(opts...)...); err != nil {
		return nil, err
	}
	return out, nil
}
