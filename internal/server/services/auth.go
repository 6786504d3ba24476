// Package services contains server-side business logic: the authentication
// service that registers users and verifies login proofs, and the vault
// storage service.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/zkkeeper/internal/backup"
	"github.com/dmitrijs2005/zkkeeper/internal/common"
	"github.com/dmitrijs2005/zkkeeper/internal/cryptox"
	"github.com/dmitrijs2005/zkkeeper/internal/dbx"
	"github.com/dmitrijs2005/zkkeeper/internal/kdf"
	"github.com/dmitrijs2005/zkkeeper/internal/logging"
	"github.com/dmitrijs2005/zkkeeper/internal/server/auth"
	"github.com/dmitrijs2005/zkkeeper/internal/server/config"
	"github.com/dmitrijs2005/zkkeeper/internal/server/models"
	"github.com/dmitrijs2005/zkkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/zkkeeper/internal/vaultx"
	"github.com/dmitrijs2005/zkkeeper/internal/zkp"
	"github.com/google/uuid"
)

const (
	labelSessionToken = "session-token-key"
	labelDecoy        = "decoy-material"
	labelDecoyProof   = "decoy-commitment"
)

var checkProof = (*zkp.Engine).Check

// Registration is everything a client uploads when creating an account.
type Registration struct {
	Username   string
	Salt       []byte
	KDFParams  kdf.Params
	Group      string
	Commitment []byte
	Backup     backup.EncryptedBackup
	Vault      *vaultx.Blob
}

// ChallengeInfo is a fresh challenge plus the derivation hints for the user.
type ChallengeInfo struct {
	ID        string
	C         []byte
	ExpiresAt time.Time
	Group     string
	Salt      []byte
	KDFParams kdf.Params
}

type Session struct {
	Token     string
	ExpiresAt time.Time
}

type BackupMaterial struct {
	Backup    backup.EncryptedBackup
	Salt      []byte
	KDFParams kdf.Params
	Group     string
}

type AuthService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	logger          logging.Logger
	tokenKey        []byte
	decoyKey        []byte
	sessionValidity time.Duration
	challengeTTL    time.Duration
	now             func() time.Time
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) (*AuthService, error) {
	tokenKey, err := cryptox.DeriveSubkey([]byte(cfg.SecretKey), labelSessionToken, "", cryptox.KeySize)
	if err != nil {
		return nil, err
	}
	decoyKey, err := cryptox.DeriveSubkey([]byte(cfg.SecretKey), labelDecoy, "", cryptox.KeySize)
	if err != nil {
		return nil, err
	}

	return &AuthService{
		db:              db,
		repomanager:     m,
		logger:          logger,
		tokenKey:        tokenKey,
		decoyKey:        decoyKey,
		sessionValidity: cfg.SessionValidityDuration,
		challengeTTL:    cfg.ChallengeTTL,
		now:             time.Now,
	}, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func (s *AuthService) validateRegistration(r *Registration) (string, error) {
	username, err := common.NormalizeUsername(r.Username)
	if err != nil {
		return "", err
	}
	if err := kdf.ValidateSalt(r.Salt); err != nil {
		return "", invalid("salt: %v", err)
	}
	if err := r.KDFParams.Validate(); err != nil {
		return "", invalid("kdf params: %v", err)
	}
	g, err := zkp.GroupByName(r.Group)
	if err != nil {
		return "", invalid("group: %v", err)
	}
	if err := zkp.NewEngine(g).ValidateCommitment(r.Commitment); err != nil {
		return "", invalid("commitment: %v", err)
	}
	if err := r.Backup.Validate(); err != nil {
		return "", invalid("backup: %v", err)
	}
	if r.Vault != nil {
		if err := r.Vault.Validate(); err != nil {
			return "", invalid("vault: %v", err)
		}
	}
	return username, nil
}

// Register stores a new credential and, if supplied, the initial vault.
func (s *AuthService) Register(ctx context.Context, r *Registration) error {
	username, err := s.validateRegistration(r)
	if err != nil {
		return err
	}

	params, err := r.KDFParams.Encode()
	if err != nil {
		return invalid("kdf params: %v", err)
	}
	g, _ := zkp.GroupByName(r.Group)

	cred := &models.Credential{
		Username:     username,
		Salt:         r.Salt,
		KDFParams:    params,
		Group:        g.Name(),
		Commitment:   r.Commitment,
		BackupIV:     r.Backup.IV,
		BackupCipher: r.Backup.Ciphertext,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Credentials(tx).Create(ctx, cred)
		if err != nil {
			return err
		}
		if r.Vault == nil {
			return nil
		}
		_, err = s.repomanager.Vaults(tx).Put(ctx, &models.Vault{
			UserID:     created.ID,
			Version:    r.Vault.Version,
			IV:         r.Vault.IV,
			Ciphertext: r.Vault.Ciphertext,
			Tag:        r.Vault.Tag,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return common.ErrorAlreadyExists
		}
		s.logger.Error(ctx, "register failed", "user", username, "error", err)
		return common.ErrorInternal
	}

	s.logger.Info(ctx, "user registered", "user", username, "group", g.Name())
	return nil
}

// decoy derives stable per-username material for unknown users, so that
// Challenge and Backup answer the same way whether or not the account
// exists.
func (s *AuthService) decoy(username string) (*BackupMaterial, error) {
	g := zkp.Ristretto255()
	// salt, nonce, then x sealed with its tag
	n := kdf.SaltSize + cryptox.NonceSize + g.ScalarSize() + cryptox.TagSize
	raw, err := cryptox.DeriveSubkey(s.decoyKey, labelDecoy, username, n)
	if err != nil {
		return nil, err
	}

	salt := raw[:kdf.SaltSize]
	iv := raw[kdf.SaltSize : kdf.SaltSize+cryptox.NonceSize]
	ct := raw[kdf.SaltSize+cryptox.NonceSize:]

	return &BackupMaterial{
		Backup:    backup.EncryptedBackup{IV: iv, Ciphertext: ct},
		Salt:      salt,
		KDFParams: kdf.DefaultParams(),
		Group:     g.Name(),
	}, nil
}

// decoyCommitment derives a stable commitment for an unknown user so that
// Verify does the same work for every username.
func (s *AuthService) decoyCommitment(engine *zkp.Engine, username string) ([]byte, error) {
	seed, err := cryptox.DeriveSubkey(s.decoyKey, labelDecoyProof, username, cryptox.KeySize)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(seed)

	x, err := engine.DeriveSecret(seed)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(x)
	return engine.RegisterKeyPair(x)
}

func (s *AuthService) material(ctx context.Context, username string) (*BackupMaterial, bool, error) {
	cred, err := s.repomanager.Credentials(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			m, err := s.decoy(username)
			return m, false, err
		}
		return nil, false, err
	}

	params, err := kdf.DecodeParams(cred.KDFParams)
	if err != nil {
		return nil, false, fmt.Errorf("stored kdf params: %w", err)
	}

	return &BackupMaterial{
		Backup:    backup.EncryptedBackup{IV: cred.BackupIV, Ciphertext: cred.BackupCipher},
		Salt:      cred.Salt,
		KDFParams: params,
		Group:     cred.Group,
	}, true, nil
}

// Challenge issues a single-use challenge. Unknown users get a real
// challenge with decoy hints; their proofs fail at Verify.
func (s *AuthService) Challenge(ctx context.Context, rawUsername string) (*ChallengeInfo, error) {
	username, err := common.NormalizeUsername(rawUsername)
	if err != nil {
		return nil, err
	}

	m, known, err := s.material(ctx, username)
	if err != nil {
		s.logger.Error(ctx, "challenge lookup failed", "user", username, "error", err)
		return nil, common.ErrorInternal
	}

	g, err := zkp.GroupByName(m.Group)
	if err != nil {
		s.logger.Error(ctx, "stored group unknown", "user", username, "group", m.Group)
		return nil, common.ErrorInternal
	}

	issuer := zkp.NewIssuer(g, s.repomanager.Challenges(s.db), s.challengeTTL)
	ch, err := issuer.IssueChallenge(ctx, username)
	if err != nil {
		s.logger.Error(ctx, "issue challenge failed", "user", username, "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "challenge issued", "user", username, "challenge_id", ch.ID.String(), "known", known)

	return &ChallengeInfo{
		ID:        ch.ID.String(),
		C:         ch.C,
		ExpiresAt: ch.ExpiresAt,
		Group:     m.Group,
		Salt:      m.Salt,
		KDFParams: m.KDFParams,
	}, nil
}

// fail logs the real reason and returns the generic error.
func (s *AuthService) fail(ctx context.Context, username string, reason error) error {
	s.logger.Warn(ctx, "authentication failed", "user", username, "reason", reason.Error())
	return common.ErrAuthenticationFailed
}

func isChallengeError(err error) bool {
	return errors.Is(err, zkp.ErrChallengeNotFound) ||
		errors.Is(err, zkp.ErrChallengeReuse) ||
		errors.Is(err, zkp.ErrChallengeExpired) ||
		errors.Is(err, zkp.ErrChallengeMismatch)
}

// Verify redeems the challenge and checks the proof. Every protocol
// failure returns common.ErrAuthenticationFailed.
func (s *AuthService) Verify(ctx context.Context, rawUsername, challengeID string, p zkp.Proof) (*Session, error) {
	username, err := common.NormalizeUsername(rawUsername)
	if err != nil {
		return nil, s.fail(ctx, rawUsername, err)
	}
	id, err := uuid.Parse(challengeID)
	if err != nil {
		return nil, s.fail(ctx, username, fmt.Errorf("challenge id: %w", err))
	}

	cred, err := s.repomanager.Credentials(s.db).GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		s.logger.Error(ctx, "credential lookup failed", "user", username, "error", err)
		return nil, common.ErrorInternal
	}

	g := zkp.Ristretto255()
	if cred != nil {
		if g, err = zkp.GroupByName(cred.Group); err != nil {
			s.logger.Error(ctx, "stored group unknown", "user", username, "group", cred.Group)
			return nil, common.ErrorInternal
		}
	}

	issuer := zkp.NewIssuer(g, s.repomanager.Challenges(s.db), s.challengeTTL)
	ch, err := issuer.Redeem(ctx, id, username)
	if err != nil {
		if isChallengeError(err) {
			return nil, s.fail(ctx, username, err)
		}
		s.logger.Error(ctx, "redeem challenge failed", "user", username, "error", err)
		return nil, common.ErrorInternal
	}

	engine := zkp.NewEngine(g)
	var commitment []byte
	if cred != nil {
		commitment = cred.Commitment
	} else if commitment, err = s.decoyCommitment(engine, username); err != nil {
		s.logger.Error(ctx, "derive decoy commitment failed", "error", err)
		return nil, common.ErrorInternal
	}

	checkErr := checkProof(engine, commitment, ch.C, zkp.Binding(challengeID, username), p)
	if cred == nil {
		return nil, s.fail(ctx, username, errors.New("unknown user"))
	}
	if checkErr != nil {
		return nil, s.fail(ctx, username, checkErr)
	}

	sess := &models.Session{
		ID:        uuid.NewString(),
		UserID:    cred.ID,
		ExpiresAt: s.now().Add(s.sessionValidity),
	}
	if err := s.repomanager.Sessions(s.db).Create(ctx, sess); err != nil {
		s.logger.Error(ctx, "create session failed", "user", username, "error", err)
		return nil, common.ErrorInternal
	}

	token, err := auth.GenerateToken(sess.UserID, sess.ID, s.tokenKey, sess.ExpiresAt)
	if err != nil {
		s.logger.Error(ctx, "sign token failed", "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "user authenticated", "user", username, "session_id", sess.ID)
	return &Session{Token: token, ExpiresAt: sess.ExpiresAt}, nil
}

// Backup returns the encrypted proof-secret backup. Unknown users get
// decoy material that never decrypts.
func (s *AuthService) Backup(ctx context.Context, rawUsername string) (*BackupMaterial, error) {
	username, err := common.NormalizeUsername(rawUsername)
	if err != nil {
		return nil, err
	}

	m, _, err := s.material(ctx, username)
	if err != nil {
		s.logger.Error(ctx, "backup lookup failed", "user", username, "error", err)
		return nil, common.ErrorInternal
	}
	return m, nil
}

// Authenticate resolves a session token to the user and session it names.
// Expired, revoked and unknown sessions all yield common.ErrorUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, token string) (userID, sessionID string, err error) {
	claims, err := auth.ParseToken(token, s.tokenKey)
	if err != nil {
		return "", "", common.ErrorUnauthorized
	}

	sess, err := s.repomanager.Sessions(s.db).Find(ctx, claims.SessionID())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", "", common.ErrorUnauthorized
		}
		return "", "", common.ErrorInternal
	}
	if sess.UserID != claims.UserID || !sess.Active(s.now()) {
		return "", "", common.ErrorUnauthorized
	}
	return sess.UserID, sess.ID, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.repomanager.Sessions(s.db).Revoke(ctx, sessionID); err != nil {
		s.logger.Error(ctx, "revoke session failed", "session_id", sessionID, "error", err)
		return common.ErrorInternal
	}
	s.logger.Info(ctx, "session revoked", "session_id", sessionID)
	return nil
}

// Sweep deletes expired challenges and sessions.
func (s *AuthService) Sweep(ctx context.Context) error {
	now := s.now()

	nc, err := s.repomanager.Challenges(s.db).DeleteExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("sweep challenges: %w", err)
	}
	ns, err := s.repomanager.Sessions(s.db).DeleteExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("sweep sessions: %w", err)
	}

	if nc > 0 || ns > 0 {
		s.logger.Info(ctx, "expired records removed", "challenges", nc, "sessions", ns)
	}
	return nil
}
