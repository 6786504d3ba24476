package grpc

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/zkkeeper/internal/api"
	"github.com/dmitrijs2005/zkkeeper/internal/common"
	"github.com/dmitrijs2005/zkkeeper/internal/logging"
	"github.com/dmitrijs2005/zkkeeper/internal/vaultx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func newTestServer() (*GRPCServer, *fakeAuth) {
	fa := &fakeAuth{tokens: map[string][2]string{"good": {"u1", "s1"}}}
	return NewGRPCServer("", logging.Nop(), fa, &fakeVaults{blobs: map[string]*vaultx.Blob{}}), fa
}

func TestInterceptor_PublicMethodWithoutToken(t *testing.T) {
	s, _ := newTestServer()

	called := false
	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		called = true
		return "ok", nil
	}

	resp, err := s.accessTokenInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: api.MethodChallenge}, h)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "ok", resp)
}

func TestInterceptor_MissingToken(t *testing.T) {
	s, _ := newTestServer()

	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Fatal("handler should not be called when token missing")
		return nil, nil
	}

	for _, m := range []string{api.MethodGetVault, api.MethodPutVault, api.MethodLogout} {
		_, err := s.accessTokenInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: m}, h)
		assert.Equal(t, codes.Unauthenticated, status.Code(err), m)
	}
}

func TestInterceptor_InvalidToken(t *testing.T) {
	s, _ := newTestServer()

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AccessTokenHeaderName, "bad"))
	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Fatal("handler should not be called")
		return nil, nil
	}

	_, err := s.accessTokenInterceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: api.MethodGetVault}, h)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestInterceptor_ValidTokenSetsContext(t *testing.T) {
	s, _ := newTestServer()

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AccessTokenHeaderName, "good"))
	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		uid, ok := userIDFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, "u1", uid)
		sid, ok := sessionIDFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, "s1", sid)
		return "ok", nil
	}

	_, err := s.accessTokenInterceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: api.MethodPutVault}, h)
	require.NoError(t, err)
}
