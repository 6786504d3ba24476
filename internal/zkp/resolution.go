package zkp

import "errors"

var ErrUnresolved = errors.New("proof secret not resolved")

// Resolution is the outcome of trying to obtain the proof secret locally:
// either the secret itself, or a signal that the encrypted backup must be
// fetched. Callers handle both cases through Match.
type Resolution struct {
	secret   []byte
	resolved bool
}

func Resolved(x []byte) Resolution {
	return Resolution{secret: x, resolved: true}
}

func NeedsBackup() Resolution {
	return Resolution{}
}

func (r Resolution) IsResolved() bool { return r.resolved }

// Match calls onResolved with the secret or onBackup when the local path
// failed. Exactly one callback runs.
func (r Resolution) Match(onResolved func(x []byte) error, onBackup func() error) error {
	if r.resolved {
		return onResolved(r.secret)
	}
	return onBackup()
}

// Secret returns x, or ErrUnresolved for the backup variant.
func (r Resolution) Secret() ([]byte, error) {
	if !r.resolved {
		return nil, ErrUnresolved
	}
	return r.secret, nil
}
