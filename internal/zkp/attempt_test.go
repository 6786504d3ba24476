package zkp

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttempt_HappyPath(t *testing.T) {
	e := NewEngine(Ristretto255())
	x, y := newKeyPair(t, e)
	c, err := e.Group().RandomScalar()
	require.NoError(t, err)
	bind := Binding("id", "alice")

	a := NewAttempt()
	assert.Equal(t, StateStart, a.State())

	require.NoError(t, a.ChallengeReceived("id", c, bind, time.Now().Add(time.Minute)))
	assert.Equal(t, StateChallengeRequested, a.State())
	assert.Equal(t, "id", a.ChallengeID())

	p, err := a.Prove(e, x)
	require.NoError(t, err)
	assert.Equal(t, StateProofSubmitted, a.State())
	assert.True(t, e.Verify(y, c, bind, p))

	require.NoError(t, a.Complete(true))
	assert.Equal(t, StateVerified, a.State())
	assert.True(t, a.State().Terminal())
}

func TestAttempt_OneProofPerChallenge(t *testing.T) {
	e := NewEngine(Ristretto255())
	x, _ := newKeyPair(t, e)
	c, err := e.Group().RandomScalar()
	require.NoError(t, err)

	a := NewAttempt()
	require.NoError(t, a.ChallengeReceived("id", c, nil, time.Now().Add(time.Minute)))
	_, err = a.Prove(e, x)
	require.NoError(t, err)

	_, err = a.Prove(e, x)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAttempt_InvalidTransitions(t *testing.T) {
	e := NewEngine(Ristretto255())
	x, _ := newKeyPair(t, e)

	a := NewAttempt()
	_, err := a.Prove(e, x)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, a.Complete(true), ErrInvalidTransition)

	require.NoError(t, a.ChallengeReceived("id", nil, nil, time.Now().Add(time.Minute)))
	assert.ErrorIs(t, a.ChallengeReceived("id2", nil, nil, time.Now()), ErrInvalidTransition)
}

func TestAttempt_Expiry(t *testing.T) {
	e := NewEngine(Ristretto255())
	x, _ := newKeyPair(t, e)
	c, err := e.Group().RandomScalar()
	require.NoError(t, err)

	now := time.Now()
	a := NewAttempt()
	a.now = func() time.Time { return now }
	require.NoError(t, a.ChallengeReceived("id", c, nil, now))

	_, err = a.Prove(e, x)
	assert.ErrorIs(t, err, ErrChallengeExpired)
	assert.Equal(t, StateExpired, a.State())
}

func TestAttempt_RejectedAndExpire(t *testing.T) {
	e := NewEngine(Ristretto255())
	x, _ := newKeyPair(t, e)
	c, err := e.Group().RandomScalar()
	require.NoError(t, err)

	a := NewAttempt()
	require.NoError(t, a.ChallengeReceived("id", c, nil, time.Now().Add(time.Minute)))
	_, err = a.Prove(e, x)
	require.NoError(t, err)
	require.NoError(t, a.Complete(false))
	assert.Equal(t, StateRejected, a.State())

	a.Expire()
	assert.Equal(t, StateRejected, a.State(), "terminal states are final")

	b := NewAttempt()
	b.Expire()
	assert.Equal(t, StateExpired, b.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "proof_submitted", StateProofSubmitted.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func TestResolution(t *testing.T) {
	var hit string
	r := Resolved([]byte{1})
	err := r.Match(
		func(x []byte) error { hit = "resolved"; return nil },
		func() error { hit = "backup"; return nil },
	)
	require.NoError(t, err)
	assert.Equal(t, "resolved", hit)
	x, err := r.Secret()
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, x)

	nb := NeedsBackup()
	sentinel := errors.New("fetch failed")
	err = nb.Match(
		func([]byte) error { return nil },
		func() error { return sentinel },
	)
	assert.ErrorIs(t, err, sentinel)
	assert.False(t, nb.IsResolved())
	_, err = nb.Secret()
	assert.ErrorIs(t, err, ErrUnresolved)
}
