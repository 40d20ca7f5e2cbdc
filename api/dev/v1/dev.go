// Package devv1 defines the dev-only DevService used to read OTP codes without SMS.
package devv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"goodies-auth/api/rpc"
)

const ServiceName = "goodies.dev.v1.DevService"

const DevService_GetOTP_FullMethodName = "/" + ServiceName + "/GetOTP"

type GetOTPRequest struct {
	RequestID string `json:"request_id"`
}

type GetOTPResponse struct {
	Otp  string `json:"otp"`
	Note string `json:"note"`
}

// DevServiceServer is the server API for DevService.
type DevServiceServer interface {
	GetOTP(context.Context, *GetOTPRequest) (*GetOTPResponse, error)
}

type UnimplementedDevServiceServer struct{}

func (UnimplementedDevServiceServer) GetOTP(context.Context, *GetOTPRequest) (*GetOTPResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetOTP not implemented")
}

var DevService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DevServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetOTP", Handler: rpc.Unary(DevService_GetOTP_FullMethodName, DevServiceServer.GetOTP)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dev/v1/dev.json",
}

func RegisterDevServiceServer(s grpc.ServiceRegistrar, srv DevServiceServer) {
	s.RegisterService(&DevService_ServiceDesc, srv)
}

type DevServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewDevServiceClient(cc grpc.ClientConnInterface) *DevServiceClient {
	return &DevServiceClient{cc: cc}
}

func (c *DevServiceClient) GetOTP(ctx context.Context, in *GetOTPRequest, opts ...grpc.CallOption) (*GetOTPResponse, error) {
	out := new(GetOTPResponse)
	if err := c.cc.Invoke(ctx, DevService_GetOTP_FullMethodName, in, out, rpc.CallOptions(opts...)...); err != nil {
		return nil, err
	}
	return out, nil
}
