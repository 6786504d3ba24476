package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/zkkeeper/internal/api"
	"github.com/dmitrijs2005/zkkeeper/internal/common"
	"github.com/dmitrijs2005/zkkeeper/internal/server/services"
	"github.com/dmitrijs2005/zkkeeper/internal/zkp"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors to gRPC status codes. Details of internal
// failures stay in the server log.
func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrAuthenticationFailed):
		return status.Error(codes.Unauthenticated, common.ErrAuthenticationFailed.Error())
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrInvalidUsername), errors.Is(err, common.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func (s *GRPCServer) Register(ctx context.Context, req *api.RegisterRequest) (*api.RegisterResponse, error) {
	s.logger.Info(ctx, "Registration request")

	err := s.auth.Register(ctx, &services.Registration{
		Username:   req.Username,
		Salt:       req.Salt,
		KDFParams:  req.KDFParams,
		Group:      req.Group,
		Commitment: req.Commitment,
		Backup:     req.Backup,
		Vault:      req.Vault,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	return &api.RegisterResponse{Status: api.StatusOK}, nil
}

func (s *GRPCServer) Challenge(ctx context.Context, req *api.ChallengeRequest) (*api.ChallengeResponse, error) {
	ch, err := s.auth.Challenge(ctx, req.Username)
	if err != nil {
		return nil, toStatus(err)
	}

	return &api.ChallengeResponse{
		ChallengeID: ch.ID,
		C:           ch.C,
		ExpiresAt:   ch.ExpiresAt,
		Group:       ch.Group,
		Salt:        ch.Salt,
		KDFParams:   ch.KDFParams,
	}, nil
}

func (s *GRPCServer) Verify(ctx context.Context, req *api.VerifyRequest) (*api.VerifyResponse, error) {
	sess, err := s.auth.Verify(ctx, req.Username, req.ChallengeID, zkp.Proof{R: req.R, S: req.S})
	if err != nil {
		return nil, toStatus(err)
	}

	return &api.VerifyResponse{
		Status:       api.StatusOK,
		SessionToken: sess.Token,
		ExpiresAt:    sess.ExpiresAt,
	}, nil
}

func (s *GRPCServer) Backup(ctx context.Context, req *api.BackupRequest) (*api.BackupResponse, error) {
	m, err := s.auth.Backup(ctx, req.Username)
	if err != nil {
		return nil, toStatus(err)
	}

	return &api.BackupResponse{
		Backup:    m.Backup,
		Salt:      m.Salt,
		KDFParams: m.KDFParams,
		Group:     m.Group,
	}, nil
}

func (s *GRPCServer) GetVault(ctx context.Context, _ *api.GetVaultRequest) (*api.GetVaultResponse, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	b, updated, err := s.vaults.Get(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}

	return &api.GetVaultResponse{Vault: b, UpdatedAt: updated}, nil
}

func (s *GRPCServer) PutVault(ctx context.Context, req *api.PutVaultRequest) (*api.PutVaultResponse, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	updated, err := s.vaults.Put(ctx, userID, req.Vault)
	if err != nil {
		return nil, toStatus(err)
	}

	return &api.PutVaultResponse{Status: api.StatusOK, UpdatedAt: updated}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, _ *api.LogoutRequest) (*api.LogoutResponse, error) {
	sessionID, ok := sessionIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	if err := s.auth.Logout(ctx, sessionID); err != nil {
		return nil, toStatus(err)
	}

	return &api.LogoutResponse{Status: api.StatusOK}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *api.PingRequest) (*api.PingResponse, error) {
	return &api.PingResponse{Status: api.StatusOK}, nil
}
