package zkp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrChallengeReuse    = errors.New("challenge already consumed")
	ErrChallengeExpired  = errors.New("challenge expired")
	ErrChallengeMismatch = errors.New("challenge issued for another user")
)

const DefaultChallengeTTL = 2 * time.Minute

// Challenge binds a random scalar to one login attempt.
type Challenge struct {
	ID        uuid.UUID
	Username  string
	C         []byte
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// ChallengeStore persists issued challenges. Consume must be atomic: of
// any number of concurrent calls for one id, at most one succeeds and the
// rest get ErrChallengeReuse.
type ChallengeStore interface {
	Save(ctx context.Context, ch *Challenge) error
	Consume(ctx context.Context, id uuid.UUID) (*Challenge, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Issuer creates and redeems challenges.
type Issuer struct {
	group Group
	store ChallengeStore
	ttl   time.Duration
	now   func() time.Time
}

func NewIssuer(g Group, store ChallengeStore, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &Issuer{group: g, store: store, ttl: ttl, now: time.Now}
}

// IssueChallenge generates a fresh unpredictable c for username.
func (i *Issuer) IssueChallenge(ctx context.Context, username string) (*Challenge, error) {
	c, err := i.group.RandomScalar()
	if err != nil {
		return nil, err
	}

	now := i.now().UTC()
	ch := &Challenge{
		ID:        uuid.New(),
		Username:  username,
		C:         c,
		IssuedAt:  now,
		ExpiresAt: now.Add(i.ttl),
	}

	if err := i.store.Save(ctx, ch); err != nil {
		return nil, fmt.Errorf("save challenge: %w", err)
	}
	return ch, nil
}

// Redeem consumes the challenge and checks it is still valid for username.
// The challenge is spent even when the expiry or username check fails.
func (i *Issuer) Redeem(ctx context.Context, id uuid.UUID, username string) (*Challenge, error) {
	ch, err := i.store.Consume(ctx, id)
	if err != nil {
		return nil, err
	}
	if ch.Expired(i.now()) {
		return nil, ErrChallengeExpired
	}
	if ch.Username != username {
		return nil, ErrChallengeMismatch
	}
	return ch, nil
}

// MemoryChallengeStore is a ChallengeStore for a single server process.
type MemoryChallengeStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*memoryChallenge
}

type memoryChallenge struct {
	ch       Challenge
	consumed bool
}

func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{items: make(map[uuid.UUID]*memoryChallenge)}
}

func (s *MemoryChallengeStore) Save(_ context.Context, ch *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[ch.ID]; ok {
		return fmt.Errorf("duplicate challenge id %s", ch.ID)
	}
	cp := *ch
	cp.C = append([]byte(nil), ch.C...)
	s.items[ch.ID] = &memoryChallenge{ch: cp}
	return nil
}

func (s *MemoryChallengeStore) Consume(_ context.Context, id uuid.UUID) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	if item.consumed {
		return nil, ErrChallengeReuse
	}
	item.consumed = true

	cp := item.ch
	return &cp, nil
}

func (s *MemoryChallengeStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, item := range s.items {
		if !before.Before(item.ch.ExpiresAt) {
			delete(s.items, id)
			n++
		}
	}
	return n, nil
}
