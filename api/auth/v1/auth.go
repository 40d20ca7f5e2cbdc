// Package authv1 defines the AuthService RPC surface: JSON messages and the gRPC
// service descriptor for the phone OTP login flow.
package authv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"goodies-auth/api/rpc"
)

const ServiceName = "goodies.auth.v1.AuthService"

const (
	AuthService_Start_FullMethodName         = "/" + ServiceName + "/Start"
	AuthService_Confirm_FullMethodName       = "/" + ServiceName + "/Confirm"
	AuthService_AccountStatus_FullMethodName = "/" + ServiceName + "/AccountStatus"
	AuthService_LoginWithPin_FullMethodName  = "/" + ServiceName + "/LoginWithPin"
	AuthService_CreateAccount_FullMethodName = "/" + ServiceName + "/CreateAccount"
	AuthService_SetPin_FullMethodName        = "/" + ServiceName + "/SetPin"
	AuthService_Logout_FullMethodName        = "/" + ServiceName + "/Logout"
	AuthService_LogoutAll_FullMethodName     = "/" + ServiceName + "/LogoutAll"
)

type StartRequest struct {
	PhoneNumber string `json:"phone_number"`
}

type StartResponse struct {
	RequestID string `json:"request_id"`
}

type ConfirmRequest struct {
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
}

type ConfirmResponse struct {
	RequestID string `json:"request_id"`
	Success   bool   `json:"success"`
}

type AccountStatusRequest struct {
	RequestID   string `json:"request_id"`
	PhoneNumber string `json:"phone_number"`
}

type AccountStatusResponse struct {
	RequestID     string `json:"request_id"`
	PhoneNumber   string `json:"phone_number"`
	AccountExists bool   `json:"account_exists"`
}

type LoginWithPinRequest struct {
	PhoneNumber string `json:"phone_number"`
	RequestID   string `json:"request_id"`
	Pin         string `json:"pin"`
}

// CreateAccountRequest carries the new account's profile. PromoCode is optional.
type CreateAccountRequest struct {
	PhoneNumber string  `json:"phone_number"`
	RequestID   string  `json:"request_id"`
	Name        string  `json:"name"`
	PromoCode   *string `json:"promo_code,omitempty"`
	UserType    string  `json:"user_type"`
}

// SessionResponse returns a freshly issued session key. The key is shown once.
type SessionResponse struct {
	SessionKey string `json:"session_key"`
	UserID     string `json:"user_id"`
}

type SetPinRequest struct {
	Pin string `json:"pin"`
}

type SetPinResponse struct{}

type LogoutRequest struct{}

type LogoutResponse struct{}

type LogoutAllRequest struct{}

type LogoutAllResponse struct{}

// AuthServiceServer is the server API for AuthService.
type AuthServiceServer interface {
	Start(context.Context, *StartRequest) (*StartResponse, error)
	Confirm(context.Context, *ConfirmRequest) (*ConfirmResponse, error)
	AccountStatus(context.Context, *AccountStatusRequest) (*AccountStatusResponse, error)
	LoginWithPin(context.Context, *LoginWithPinRequest) (*SessionResponse, error)
	CreateAccount(context.Context, *CreateAccountRequest) (*SessionResponse, error)
	SetPin(context.Context, *SetPinRequest) (*SetPinResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	LogoutAll(context.Context, *LogoutAllRequest) (*LogoutAllResponse, error)
}

// UnimplementedAuthServiceServer can be embedded to get Unimplemented for every method.
type UnimplementedAuthServiceServer struct{}

func (UnimplementedAuthServiceServer) Start(context.Context, *StartRequest) (*StartResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Start not implemented")
}
func (UnimplementedAuthServiceServer) Confirm(context.Context, *ConfirmRequest) (*ConfirmResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Confirm not implemented")
}
func (UnimplementedAuthServiceServer) AccountStatus(context.Context, *AccountStatusRequest) (*AccountStatusResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method AccountStatus not implemented")
}
func (UnimplementedAuthServiceServer) LoginWithPin(context.Context, *LoginWithPinRequest) (*SessionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method LoginWithPin not implemented")
}
func (UnimplementedAuthServiceServer) CreateAccount(context.Context, *CreateAccountRequest) (*SessionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateAccount not implemented")
}
func (UnimplementedAuthServiceServer) SetPin(context.Context, *SetPinRequest) (*SetPinResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SetPin not implemented")
}
func (UnimplementedAuthServiceServer) Logout(context.Context, *LogoutRequest) (*LogoutResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Logout not implemented")
}
func (UnimplementedAuthServiceServer) LogoutAll(context.Context, *LogoutAllRequest) (*LogoutAllResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method LogoutAll not implemented")
}

// AuthService_ServiceDesc is the grpc.ServiceDesc for AuthService.
var AuthService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Start", Handler: rpc.Unary(AuthService_Start_FullMethodName, AuthServiceServer.Start)},
		{MethodName: "Confirm", Handler: rpc.Unary(AuthService_Confirm_FullMethodName, AuthServiceServer.Confirm)},
		{MethodName: "AccountStatus", Handler: rpc.Unary(AuthService_AccountStatus_FullMethodName, AuthServiceServer.AccountStatus)},
		{MethodName: "LoginWithPin", Handler: rpc.Unary(AuthService_LoginWithPin_FullMethodName, AuthServiceServer.LoginWithPin)},
		{MethodName: "CreateAccount", Handler: rpc.Unary(AuthService_CreateAccount_FullMethodName, AuthServiceServer.CreateAccount)},
		{MethodName: "SetPin", Handler: rpc.Unary(AuthService_SetPin_FullMethodName, AuthServiceServer.SetPin)},
		{MethodName: "Logout", Handler: rpc.Unary(AuthService_Logout_FullMethodName, AuthServiceServer.Logout)},
		{MethodName: "LogoutAll", Handler: rpc.Unary(AuthService_LogoutAll_FullMethodName, AuthServiceServer.LogoutAll)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "auth/v1/auth.json",
}

// RegisterAuthServiceServer registers srv with s.
func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&AuthService_ServiceDesc, srv)
}

// AuthServiceClient is a JSON client for AuthService.
type AuthServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAuthServiceClient returns a client that calls AuthService over cc.
func NewAuthServiceClient(cc grpc.ClientConnInterface) *AuthServiceClient {
	return &AuthServiceClient{cc: cc}
}

func (c *AuthServiceClient) Start(ctx context.Context, in *StartRequest, opts ...grpc.CallOption) (*StartResponse, error) {
	out := new(StartResponse)
	if err := c.cc.Invoke(ctx, AuthService_Start_FullMethodName, in, out, rpc.CallOptions(opts...)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AuthServiceClient) Confirm(ctx context.Context, in *ConfirmRequest, opts ...grpc.CallOption) (*ConfirmResponse, error) {
	out := new(ConfirmResponse)
	if err := c.cc.Invoke(ctx, AuthService_Confirm_FullMethodName, in, out, rpc.CallOptions(opts...)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AuthServiceClient) AccountStatus(ctx context.Context, in *AccountStatusRequest, opts ...grpc.CallOption) (*AccountStatusResponse, error) {
	out := new(AccountStatusResponse)
	if err := c.cc.Invoke(ctx, AuthService_AccountStatus_FullMethodName, in, out, rpc.CallOptions(opts...)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AuthServiceClient) LoginWithPin(ctx context.Context, in *LoginWithPinRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	out := new(SessionResponse)
	if err := c.cc.Invoke(ctx, AuthService_LoginWithPin_FullMethodName, in, out, rpc.CallOptions(opts...)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AuthServiceClient) CreateAccount(ctx context.Context, in *CreateAccountRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	out := new(SessionResponse)
	if err := c.cc.Invoke(ctx, AuthService_CreateAccount_FullMethodName, in, out, rpc.CallOptions(opts...)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AuthServiceClient) SetPin(ctx context.Context, in *SetPinRequest, opts ...grpc.CallOption) (*SetPinResponse, error) {
	out := new(SetPinResponse)
	if err := c.cc.Invoke(ctx, AuthService_SetPin_FullMethodName, in, out, rpc.CallOptions(opts...)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AuthServiceClient) Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error) {
	out := new(LogoutResponse)
	if err := c.cc.Invoke(ctx, AuthService_Logout_FullMethodName, in, out, rpc.CallOptions(opts...)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AuthServiceClient) LogoutAll(ctx context.Context, in *LogoutAllRequest, opts ...grpc.CallOption) (*LogoutAllResponse, error) {
	out := new(LogoutAllResponse)
	if err := c.cc.Invoke(ctx, AuthService_LogoutAll_FullMethodName, in, out, rpc.CallOptions(opts...)...); err != nil {
		return nil, err
	}
	return out, nil
}
