package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/zkkeeper/internal/common"
	"github.com/dmitrijs2005/zkkeeper/internal/server/services"
	"github.com/dmitrijs2005/zkkeeper/internal/vaultx"
	"github.com/dmitrijs2005/zkkeeper/internal/zkp"
)

type fakeAuth struct {
	registerErr error
	registered  *services.Registration

	challenge    *services.ChallengeInfo
	challengeErr error

	session   *services.Session
	verifyErr error

	backup    *services.BackupMaterial
	backupErr error

	// token -> user/session
	tokens    map[string][2]string
	loggedOut []string
}

func (f *fakeAuth) Register(_ context.Context, r *services.Registration) error {
	f.registered = r
	return f.registerErr
}

func (f *fakeAuth) Challenge(context.Context, string) (*services.ChallengeInfo, error) {
	return f.challenge, f.challengeErr
}

func (f *fakeAuth) Verify(context.Context, string, string, zkp.Proof) (*services.Session, error) {
	return f.session, f.verifyErr
}

func (f *fakeAuth) Backup(context.Context, string) (*services.BackupMaterial, error) {
	return f.backup, f.backupErr
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (string, string, error) {
	v, ok := f.tokens[token]
	if !ok {
		return "", "", common.ErrorUnauthorized
	}
	return v[0], v[1], nil
}

func (f *fakeAuth) Logout(_ context.Context, sessionID string) error {
	f.loggedOut = append(f.loggedOut, sessionID)
	return nil
}

type fakeVaults struct {
	blobs map[string]*vaultx.Blob
}

func (f *fakeVaults) Get(_ context.Context, userID string) (*vaultx.Blob, time.Time, error) {
	b, ok := f.blobs[userID]
	if !ok {
		return nil, time.Time{}, common.ErrorNotFound
	}
	return b, time.Unix(100, 0), nil
}

func (f *fakeVaults) Put(_ context.Context, userID string, b *vaultx.Blob) (time.Time, error) {
	if b == nil {
		return time.Time{}, common.ErrInvalidArgument
	}
	f.blobs[userID] = b
	return time.Unix(200, 0), nil
}
