// Package handler exposes the OTP login flow as the gRPC AuthService.
package handler

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	authv1 "goodies-auth/api/auth/v1"
	"goodies-auth/internal/otp/service"
	"goodies-auth/internal/server/interceptors"
)

// AuthServer implements AuthService. Session-bound RPCs (SetPin, Logout, LogoutAll)
// read the caller's identity placed in the context by the auth interceptor.
type AuthServer struct {
	authv1.UnimplementedAuthServiceServer
	svc    *service.Service
	logger *zap.Logger
}

// NewAuthServer returns an AuthService server. If svc is nil, every RPC returns Unimplemented.
func NewAuthServer(svc *service.Service, logger *zap.Logger) *AuthServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthServer{svc: svc, logger: logger}
}

func (s *AuthServer) Start(ctx context.Context, req *authv1.StartRequest) (*authv1.StartResponse, error) {
	if s.svc == nil {
		return s.UnimplementedAuthServiceServer.Start(ctx, req)
	}
	id, err := s.svc.RequestOTP(ctx, req.PhoneNumber)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &authv1.StartResponse{RequestID: id}, nil
}

func (s *AuthServer) Confirm(ctx context.Context, req *authv1.ConfirmRequest) (*authv1.ConfirmResponse, error) {
	if s.svc == nil {
		return s.UnimplementedAuthServiceServer.Confirm(ctx, req)
	}
	ok, err := s.svc.ConfirmOTP(ctx, req.RequestID, req.Code)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &authv1.ConfirmResponse{RequestID: req.RequestID, Success: ok}, nil
}

func (s *AuthServer) AccountStatus(ctx context.Context, req *authv1.AccountStatusRequest) (*authv1.AccountStatusResponse, error) {
	if s.svc == nil {
		return s.UnimplementedAuthServiceServer.AccountStatus(ctx, req)
	}
	st, err := s.svc.ResolveAccountStatus(ctx, req.RequestID, req.PhoneNumber)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &authv1.AccountStatusResponse{
		RequestID:     st.RequestID,
		PhoneNumber:   st.PhoneNumber,
		AccountExists: st.AccountExists,
	}, nil
}

func (s *AuthServer) LoginWithPin(ctx context.Context, req *authv1.LoginWithPinRequest) (*authv1.SessionResponse, error) {
	if s.svc == nil {
		return s.UnimplementedAuthServiceServer.LoginWithPin(ctx, req)
	}
	sess, err := s.svc.FinishWithPIN(ctx, req.PhoneNumber, req.RequestID, req.Pin)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &authv1.SessionResponse{SessionKey: sess.Key, UserID: sess.UserID}, nil
}

func (s *AuthServer) CreateAccount(ctx context.Context, req *authv1.CreateAccountRequest) (*authv1.SessionResponse, error) {
	if s.svc == nil {
		return s.UnimplementedAuthServiceServer.CreateAccount(ctx, req)
	}
	sess, err := s.svc.FinishWithNewAccount(ctx, req.PhoneNumber, req.RequestID, service.NewAccount{
		Name:      req.Name,
		PromoCode: req.PromoCode,
		UserType:  req.UserType,
	})
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &authv1.SessionResponse{SessionKey: sess.Key, UserID: sess.UserID}, nil
}

func (s *AuthServer) SetPin(ctx context.Context, req *authv1.SetPinRequest) (*authv1.SetPinResponse, error) {
	if s.svc == nil {
		return s.UnimplementedAuthServiceServer.SetPin(ctx, req)
	}
	userID, ok := interceptors.GetUserID(ctx)
	if !ok || userID == "" {
		return nil, status.Error(codes.Unauthenticated, "missing session")
	}
	if err := s.svc.SetPIN(ctx, userID, req.Pin); err != nil {
		return nil, s.toStatus(err)
	}
	return &authv1.SetPinResponse{}, nil
}

// Logout revokes the session key used for this call.
func (s *AuthServer) Logout(ctx context.Context, req *authv1.LogoutRequest) (*authv1.LogoutResponse, error) {
	if s.svc == nil {
		return s.UnimplementedAuthServiceServer.Logout(ctx, req)
	}
	userID, _ := interceptors.GetUserID(ctx)
	sessionID, ok := interceptors.GetSessionID(ctx)
	if !ok || sessionID == "" {
		return nil, status.Error(codes.Unauthenticated, "missing session")
	}
	if err := s.svc.Logout(ctx, userID, sessionID); err != nil {
		return nil, s.toStatus(err)
	}
	return &authv1.LogoutResponse{}, nil
}

// LogoutAll revokes every session key of the caller, including the current one.
func (s *AuthServer) LogoutAll(ctx context.Context, req *authv1.LogoutAllRequest) (*authv1.LogoutAllResponse, error) {
	if s.svc == nil {
		return s.UnimplementedAuthServiceServer.LogoutAll(ctx, req)
	}
	userID, ok := interceptors.GetUserID(ctx)
	if !ok || userID == "" {
		return nil, status.Error(codes.Unauthenticated, "missing session")
	}
	if _, err := s.svc.LogoutAll(ctx, userID); err != nil {
		return nil, s.toStatus(err)
	}
	return &authv1.LogoutAllResponse{}, nil
}

// toStatus maps service errors to gRPC status. Unclassified errors are logged and hidden.
func (s *AuthServer) toStatus(err error) error {
	var se *service.Error
	if !errors.As(err, &se) {
		s.logger.Error("auth rpc failed", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
	switch se.Kind {
	case service.KindValidation, service.KindBadRequest:
		return status.Error(codes.InvalidArgument, se.Reason)
	case service.KindConflict:
		return status.Error(codes.AlreadyExists, se.Reason)
	case service.KindNotFound:
		return status.Error(codes.NotFound, se.Reason)
	case service.KindForbidden:
		return status.Error(codes.PermissionDenied, se.Reason)
	case service.KindExpired:
		return status.Error(codes.FailedPrecondition, se.Reason)
	case service.KindUnauthorized:
		return status.Error(codes.Unauthenticated, se.Reason)
	case service.KindUpstream:
		s.logger.Warn("auth rpc upstream failure", zap.Error(err))
		return status.Error(codes.Unavailable, se.Reason)
	default:
		s.logger.Error("auth rpc failed", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
}
