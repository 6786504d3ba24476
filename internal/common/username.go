package common

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// MaxUsernameLength bounds a normalized username in bytes.
const MaxUsernameLength = 256

var folder = cases.Fold()

// NormalizeUsername trims, applies NFKC and case-folds a username so that
// visually identical spellings map to one account. Every place a username
// enters the system (registration, challenge, backup lookup, vault
// context) must go through this function.
func NormalizeUsername(raw string) (string, error) {
	if !utf8.ValidString(raw) {
		return "", fmt.Errorf("%w: not valid utf-8", ErrInvalidUsername)
	}
	s := strings.TrimSpace(raw)
	s = norm.NFKC.String(s)
	s = folder.String(s)
	s = norm.NFKC.String(s)

	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidUsername)
	}
	if len(s) > MaxUsernameLength {
		return "", fmt.Errorf("%w: too long", ErrInvalidUsername)
	}
	return s, nil
}
