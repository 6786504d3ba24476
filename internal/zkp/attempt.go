package zkp

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is a login attempt's position in its lifecycle.
type State int

const (
	StateStart State = iota
	StateChallengeRequested
	StateProofSubmitted
	StateVerified
	StateRejected
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateChallengeRequested:
		return "challenge_requested"
	case StateProofSubmitted:
		return "proof_submitted"
	case StateVerified:
		return "verified"
	case StateRejected:
		return "rejected"
	case StateExpired:
		return "expired"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) Terminal() bool {
	return s == StateVerified || s == StateRejected || s == StateExpired
}

var ErrInvalidTransition = errors.New("invalid login state transition")

// Attempt tracks one login attempt on the client. It allows exactly one
// proof per challenge.
type Attempt struct {
	mu        sync.Mutex
	state     State
	challenge string
	c         []byte
	bind      []byte
	expiresAt time.Time
	now       func() time.Time
}

func NewAttempt() *Attempt {
	return &Attempt{now: time.Now}
}

func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Attempt) ChallengeID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.challenge
}

// ChallengeReceived records the server challenge.
func (a *Attempt) ChallengeReceived(id string, c, bind []byte, expiresAt time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateStart {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.state, StateChallengeRequested)
	}
	a.state = StateChallengeRequested
	a.challenge = id
	a.c = c
	a.bind = bind
	a.expiresAt = expiresAt
	return nil
}

// Prove constructs the single proof this attempt is allowed. A challenge
// past its expiry moves the attempt to StateExpired.
func (a *Attempt) Prove(e *Engine, x []byte) (Proof, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateChallengeRequested {
		return Proof{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.state, StateProofSubmitted)
	}
	if !a.now().Before(a.expiresAt) {
		a.state = StateExpired
		return Proof{}, ErrChallengeExpired
	}

	p, err := e.ConstructProof(x, a.c, a.bind)
	if err != nil {
		return Proof{}, err
	}
	a.state = StateProofSubmitted
	return p, nil
}

// Complete records the verifier's decision.
func (a *Attempt) Complete(verified bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateProofSubmitted {
		return fmt.Errorf("%w: %s is not awaiting a verdict", ErrInvalidTransition, a.state)
	}
	if verified {
		a.state = StateVerified
	} else {
		a.state = StateRejected
	}
	return nil
}

// Expire abandons a non-terminal attempt.
func (a *Attempt) Expire() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.state.Terminal() {
		a.state = StateExpired
	}
}
