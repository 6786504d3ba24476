// Package grpc exposes the authentication and vault storage services over
// gRPC.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/zkkeeper/internal/api"
	"github.com/dmitrijs2005/zkkeeper/internal/logging"
	"github.com/dmitrijs2005/zkkeeper/internal/server/services"
	"github.com/dmitrijs2005/zkkeeper/internal/vaultx"
	"github.com/dmitrijs2005/zkkeeper/internal/zkp"
	"google.golang.org/grpc"
)

type AuthService interface {
	Register(ctx context.Context, r *services.Registration) error
	Challenge(ctx context.Context, username string) (*services.ChallengeInfo, error)
	Verify(ctx context.Context, username, challengeID string, p zkp.Proof) (*services.Session, error)
	Backup(ctx context.Context, username string) (*services.BackupMaterial, error)
	Authenticate(ctx context.Context, token string) (userID, sessionID string, err error)
	Logout(ctx context.Context, sessionID string) error
}

type VaultService interface {
	Get(ctx context.Context, userID string) (*vaultx.Blob, time.Time, error)
	Put(ctx context.Context, userID string, b *vaultx.Blob) (time.Time, error)
}

type GRPCServer struct {
	api.UnimplementedKeeperServiceServer
	address string
	auth    AuthService
	vaults  VaultService
	logger  logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, as AuthService, vs VaultService) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		auth:    as,
		vaults:  vs,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	api.RegisterKeeperServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}
	return nil
}
