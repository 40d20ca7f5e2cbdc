// Package handler implements the gRPC HealthService used by load balancers and orchestrators.
package handler

import (
	"context"

	"go.uber.org/zap"

	healthv1 "goodies-auth/api/health/v1"
)

// Pinger is used by health check to verify DB connectivity (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// CachePinger is used by health check to verify the session cache (e.g. the Redis session cache).
type CachePinger interface {
	Ping(ctx context.Context) error
}

// Server implements HealthService for readiness/liveness.
type Server struct {
	healthv1.UnimplementedHealthServiceServer
	pinger      Pinger
	cachePinger CachePinger
	logger      *zap.Logger
}

// NewServer returns a new Health gRPC server. Either dependency may be nil, in which case that check is skipped.
func NewServer(pinger Pinger, cachePinger CachePinger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{pinger: pinger, cachePinger: cachePinger, logger: logger}
}

// Check returns SERVING when every configured dependency answers, NOT_SERVING otherwise.
// A failing dependency never turns into a gRPC error.
func (s *Server) Check(ctx context.Context, req *healthv1.CheckRequest) (*healthv1.CheckResponse, error) {
	if s.pinger != nil {
		if err := s.pinger.PingContext(ctx); err != nil {
			s.logger.Warn("health: database ping failed", zap.Error(err))
			return &healthv1.CheckResponse{Status: healthv1.StatusNotServing}, nil
		}
	}
	if s.cachePinger != nil {
		if err := s.cachePinger.Ping(ctx); err != nil {
			s.logger.Warn("health: cache ping failed", zap.Error(err))
			return &healthv1.CheckResponse{Status: healthv1.StatusNotServing}, nil
		}
	}
	return &healthv1.CheckResponse{Status: healthv1.StatusServing}, nil
}
