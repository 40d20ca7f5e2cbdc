// Package server assembles the gRPC server: service registration, interceptors and OTel stats handling.
package server

import (
	"context"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	authv1 "goodies-auth/api/auth/v1"
	devv1 "goodies-auth/api/dev/v1"
	healthv1 "goodies-auth/api/health/v1"
	healthhandler "goodies-auth/internal/health/handler"
	otphandler "goodies-auth/internal/otp/handler"
	otpservice "goodies-auth/internal/otp/service"
	"goodies-auth/internal/security"
	"goodies-auth/internal/server/interceptors"
	sessiondomain "goodies-auth/internal/session/domain"
	"goodies-auth/internal/telemetry"
)

// Deps holds optional service dependencies for gRPC handlers.
type Deps struct {
	// Auth is the OTP login service. If nil, AuthService RPCs return Unimplemented.
	Auth *otpservice.Service
	// Sessions resolves Bearer session keys for protected RPCs. If nil, every protected RPC is rejected.
	Sessions interceptors.Authenticator
	// HealthPinger is used by HealthService for readiness (e.g. *sql.DB). If nil, Check skips the DB ping.
	HealthPinger healthhandler.Pinger
	// HealthCachePinger is used by HealthService for readiness (e.g. the Redis session cache). If nil, Check skips it.
	HealthCachePinger healthhandler.CachePinger
	// DevOTPHandler is the dev-only DevService (GetOTP). If nil, DevService is not registered. Set only when dev OTP is enabled and not production.
	DevOTPHandler devv1.DevServiceServer
	// Emitter receives one rpc event per call. If nil, no RPC telemetry is emitted.
	Emitter telemetry.EventEmitter
	// Logger is used by handlers and the access log. If nil, logging is discarded.
	Logger *zap.Logger
}

// PublicMethods are the RPCs callable without a session key: the OTP flow itself,
// the health check and the dev OTP lookup.
func PublicMethods() map[string]bool {
	return map[string]bool{
		authv1.AuthService_Start_FullMethodName:         true,
		authv1.AuthService_Confirm_FullMethodName:       true,
		authv1.AuthService_AccountStatus_FullMethodName: true,
		authv1.AuthService_LoginWithPin_FullMethodName:  true,
		authv1.AuthService_CreateAccount_FullMethodName: true,
		healthv1.HealthService_Check_FullMethodName:     true,
		devv1.DevService_GetOTP_FullMethodName:          true,
	}
}

// RegisterServices registers all gRPC services with the given server.
//
// Service → handler mapping:
//   - AuthService   → internal/otp/handler
//   - HealthService → internal/health/handler
//   - DevService    → internal/devotp/handler (only when deps.DevOTPHandler is set)
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	authv1.RegisterAuthServiceServer(s, otphandler.NewAuthServer(deps.Auth, deps.Logger))
	healthv1.RegisterHealthServiceServer(s, healthhandler.NewServer(deps.HealthPinger, deps.HealthCachePinger, deps.Logger))
	if deps.DevOTPHandler != nil {
		devv1.RegisterDevServiceServer(s, deps.DevOTPHandler)
	}
}

// NewServer returns a gRPC server with the interceptor chain (access log, session auth, rpc telemetry),
// the otelgrpc stats handler and every service registered.
func NewServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	skip := map[string]bool{healthv1.HealthService_Check_FullMethodName: true}
	auth := deps.Sessions
	if auth == nil {
		auth = denyAll{}
	}
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.LoggingUnary(deps.Logger, skip),
			interceptors.AuthUnary(auth, PublicMethods(), deps.Logger),
			interceptors.TelemetryUnary(deps.Emitter, skip),
		),
	}
	s := grpc.NewServer(append(base, opts...)...)
	RegisterServices(s, deps)
	return s
}

type denyAll struct{}

func (denyAll) Authenticate(context.Context, string) (*sessiondomain.Session, error) {
	return nil, security.ErrInvalidSessionKey
}
