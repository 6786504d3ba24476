package common

import "errors"

var (
	// repository specific errors
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// service specific errors
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// ErrAuthenticationFailed is the only login failure a remote peer ever
	// sees. Unknown user, wrong password, expired or reused challenge and
	// rejected proof all collapse into it.
	ErrAuthenticationFailed = errors.New("authentication failed")

	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidArgument = errors.New("invalid argument")
)
