package interceptors

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"goodies-auth/internal/security"
	sessiondomain "goodies-auth/internal/session/domain"
)

const bearerPrefix = "bearer "

// Authenticator resolves a presented session key to its session.
type Authenticator interface {
	Authenticate(ctx context.Context, key string) (*sessiondomain.Session, error)
}

// AuthUnary returns a unary server interceptor that resolves the Bearer session key
// from gRPC metadata and sets user_id and session_id in context for protected RPCs.
// publicMethods is the set of full method names that do not require a session
// (the OTP flow itself and HealthService Check).
func AuthUnary(auth Authenticator, publicMethods map[string]bool, logger *zap.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		key := extractBearer(ctx)
		if key == "" {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}
		sess, err := auth.Authenticate(ctx, key)
		if err != nil {
			if !errors.Is(err, security.ErrInvalidSessionKey) {
				logger.Error("session lookup failed", zap.String("method", info.FullMethod), zap.Error(err))
				return nil, status.Error(codes.Internal, "internal error")
			}
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}
		ctx = WithIdentity(ctx, sess.UserID, sess.ID)
		return handler(ctx, req)
	}
}

// extractBearer returns the Bearer token from ctx metadata, or "" if missing or malformed.
func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	v := strings.TrimSpace(vals[0])
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
