// Package models holds client-side helpers for the entries kept in a vault:
// password strength classification and password generation.
package models

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"unicode"

	"github.com/dmitrijs2005/zkkeeper/internal/vaultx"
)

// Strength scores one point each for length >= 8, length >= 12, and the
// presence of lowercase, uppercase, digit and symbol characters.
func Strength(password string) string {
	score := 0
	n := len([]rune(password))
	if n >= 8 {
		score++
	}
	if n >= 12 {
		score++
	}

	var lower, upper, digit, other bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			other = true
		}
	}
	for _, b := range []bool{lower, upper, digit, other} {
		if b {
			score++
		}
	}

	switch {
	case score <= 2:
		return vaultx.StrengthWeak
	case score <= 4:
		return vaultx.StrengthMedium
	default:
		return vaultx.StrengthStrong
	}
}

const (
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"

	MinGeneratedLength     = 4
	MaxGeneratedLength     = 128
	DefaultGeneratedLength = 16
)

var (
	ErrNoCharacterClass = errors.New("at least one character class is required")
	ErrInvalidLength    = errors.New("invalid password length")
)

type GeneratorOptions struct {
	Length    int
	Uppercase bool
	Lowercase bool
	Numbers   bool
	Symbols   bool
}

func DefaultGeneratorOptions() GeneratorOptions {
	return GeneratorOptions{
		Length:    DefaultGeneratedLength,
		Uppercase: true,
		Lowercase: true,
		Numbers:   true,
		Symbols:   true,
	}
}

var randReader = rand.Reader

// Generate returns a random password drawn uniformly from the enabled
// classes. Every enabled class appears at least once.
func Generate(o GeneratorOptions) (string, error) {
	var classes []string
	if o.Uppercase {
		classes = append(classes, upperChars)
	}
	if o.Lowercase {
		classes = append(classes, lowerChars)
	}
	if o.Numbers {
		classes = append(classes, digitChars)
	}
	if o.Symbols {
		classes = append(classes, symbolChars)
	}
	if len(classes) == 0 {
		return "", ErrNoCharacterClass
	}
	if o.Length < MinGeneratedLength || o.Length > MaxGeneratedLength || o.Length < len(classes) {
		return "", ErrInvalidLength
	}

	charset := strings.Join(classes, "")
	out := make([]byte, o.Length)
	for i := range out {
		c, err := pick(charset)
		if err != nil {
			return "", err
		}
		out[i] = c
	}

	// Place one character of each class at distinct random positions.
	positions, err := perm(o.Length)
	if err != nil {
		return "", err
	}
	for i, class := range classes {
		c, err := pick(class)
		if err != nil {
			return "", err
		}
		out[positions[i]] = c
	}
	return string(out), nil
}

func pick(set string) (byte, error) {
	i, err := randInt(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

func randInt(n int) (int, error) {
	v, err := rand.Int(randReader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// perm is a Fisher-Yates shuffle of [0, n).
func perm(n int) ([]int, error) {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return nil, err
		}
		p[i], p[j] = p[j], p[i]
	}
	return p, nil
}

// IsPrintable reports whether s is safe to echo on a terminal.
func IsPrintable(s string) bool {
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
