package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/zkkeeper/internal/api"
	"github.com/dmitrijs2005/zkkeeper/internal/common"
	"github.com/dmitrijs2005/zkkeeper/internal/vaultx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const DefaultRequestTimeout = 10 * time.Second

type GRPCClient struct {
	endpointURL string
	timeout     time.Duration
	conn        *grpc.ClientConn
	client      api.KeeperServiceClient

	mu          sync.RWMutex
	accessToken string
}

var _ Client = (*GRPCClient)(nil)

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

// tokenOverride carries a token that replaces the stored one for a single
// call.
type tokenOverride struct{}

func (s *GRPCClient) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *GRPCClient) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = token
}

func (s *GRPCClient) HasToken() bool {
	return s.token() != ""
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	tok := s.token()
	if v, ok := ctx.Value(tokenOverride{}).(string); ok {
		tok = v
	}
	if tok != "" {
		ctx = withAccessToken(ctx, tok)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	return invoker(ctx, method, req, reply, cc, opts...)
}

func NewKeeperClient(endpointURL string, timeout time.Duration) (*GRPCClient, error) {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	c := &GRPCClient{endpointURL: endpointURL, timeout: timeout}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = api.NewKeeperServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) Register(ctx context.Context, req *api.RegisterRequest) error {
	if _, err := s.client.Register(ctx, req); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) Challenge(ctx context.Context, username string) (*api.ChallengeResponse, error) {
	resp, err := s.client.Challenge(ctx, &api.ChallengeRequest{Username: username})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Verify(ctx context.Context, req *api.VerifyRequest) (*api.VerifyResponse, error) {
	resp, err := s.client.Verify(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Backup(ctx context.Context, username string) (*api.BackupResponse, error) {
	resp, err := s.client.Backup(ctx, &api.BackupRequest{Username: username})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) GetVault(ctx context.Context) (*vaultx.Blob, error) {
	resp, err := s.client.GetVault(ctx, &api.GetVaultRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Vault, nil
}

func (s *GRPCClient) PutVault(ctx context.Context, b *vaultx.Blob) error {
	if _, err := s.client.PutVault(ctx, &api.PutVaultRequest{Vault: b}); err != nil {
		return s.mapError(err)
	}
	return nil
}

// Logout revokes the server session and always drops the local token.
func (s *GRPCClient) Logout(ctx context.Context) error {
	defer s.SetToken("")

	if !s.HasToken() {
		return nil
	}
	if _, err := s.client.Logout(ctx, &api.LogoutRequest{}); err != nil {
		return s.mapError(err)
	}
	return nil
}

// RevokeToken ends the server session named by token. The stored token is
// left alone.
func (s *GRPCClient) RevokeToken(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	ctx = context.WithValue(ctx, tokenOverride{}, token)
	if _, err := s.client.Logout(ctx, &api.LogoutRequest{}); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &api.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}

	if resp.Status != api.StatusOK {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	case codes.AlreadyExists:
		return ErrAlreadyExists
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, st.Message())
	case codes.NotFound:
		return ErrVaultNotFound
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
