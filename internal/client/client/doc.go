// Package client contains the client-side transport for zkkeeper.
//
// GRPCClient talks to the KeeperService, attaches the session token to
// every outgoing call through a unary interceptor, bounds each call with a
// request timeout and maps gRPC status codes to sentinel errors
// (ErrUnauthorized, ErrUnavailable, ErrAlreadyExists, ErrInvalidArgument,
// ErrVaultNotFound) that callers match with errors.Is.
//
// InitDatabase and RunMigrations bootstrap the local SQLite credential
// cache with embedded goose migrations.
package client
