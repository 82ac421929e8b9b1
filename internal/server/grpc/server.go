// Package grpc runs the gRPC endpoint. Health and reflection are public;
// the accounts service requires an access token in the "access_token"
// metadata key.
package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/services"
)

// Authenticator verifies access tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*services.AccountSummary, error)
}

// Sessions is the session functionality the gRPC endpoint needs.
type Sessions interface {
	Authenticator
	AccountLister
}

// ReadinessFunc reports whether storage is usable.
type ReadinessFunc func(ctx context.Context) error

type GRPCServer struct {
	address string
	logger  logging.Logger
	auth    Authenticator
	handler *accountsHandler
	ready   ReadinessFunc
	health  *health.Server
}

func NewGRPCServer(a string, l logging.Logger, sessions Sessions, ready ReadinessFunc) *GRPCServer {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		auth:    sessions,
		handler: &accountsHandler{accounts: sessions},
		ready:   ready,
		health:  hs,
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {
	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))

	healthpb.RegisterHealthServer(srv, s.health)
	srv.RegisterService(&accountsServiceDesc, s.handler)
	reflection.Register(srv)

	go s.watchReadiness(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	return srv.Serve(lis)
}

func (s *GRPCServer) watchReadiness(ctx context.Context) {
	if err := s.ready(ctx); err != nil {
		s.logger.Error(ctx, "storage not ready", "error", err)
		return
	}
	if ctx.Err() == nil {
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	}
}
