package models

import (
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/zkkeeper/internal/vaultx"
	"github.com/stretchr/testify/require"
)

func TestStrength(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", vaultx.StrengthWeak},
		{"abc", vaultx.StrengthWeak},
		{"abcdefgh", vaultx.StrengthWeak},
		{"abcdefgH", vaultx.StrengthMedium},
		{"abcdefgH1", vaultx.StrengthMedium},
		{"abcdefgH1!", vaultx.StrengthStrong},
		{"abcdefghijkL1", vaultx.StrengthStrong},
		{"Short1!", vaultx.StrengthMedium},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, Strength(tt.in))
		})
	}
}

func TestGenerate_Defaults(t *testing.T) {
	pw, err := Generate(DefaultGeneratorOptions())
	require.NoError(t, err)
	require.Len(t, pw, DefaultGeneratedLength)
	require.True(t, strings.ContainsAny(pw, upperChars))
	require.True(t, strings.ContainsAny(pw, lowerChars))
	require.True(t, strings.ContainsAny(pw, digitChars))
	require.True(t, strings.ContainsAny(pw, symbolChars))
	require.Equal(t, vaultx.StrengthStrong, Strength(pw))
}

func TestGenerate_SingleClass(t *testing.T) {
	pw, err := Generate(GeneratorOptions{Length: 32, Numbers: true})
	require.NoError(t, err)
	require.Len(t, pw, 32)
	require.Empty(t, strings.Trim(pw, digitChars))
}

func TestGenerate_Distinct(t *testing.T) {
	a, err := Generate(DefaultGeneratorOptions())
	require.NoError(t, err)
	b, err := Generate(DefaultGeneratorOptions())
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestGenerate_Errors(t *testing.T) {
	_, err := Generate(GeneratorOptions{Length: 16})
	require.ErrorIs(t, err, ErrNoCharacterClass)

	_, err = Generate(GeneratorOptions{Length: 2, Lowercase: true})
	require.ErrorIs(t, err, ErrInvalidLength)

	_, err = Generate(GeneratorOptions{Length: MaxGeneratedLength + 1, Lowercase: true})
	require.ErrorIs(t, err, ErrInvalidLength)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGenerate_RandFailure(t *testing.T) {
	orig := randReader
	randReader = failingReader{}
	t.Cleanup(func() { randReader = orig })

	_, err := Generate(DefaultGeneratorOptions())
	require.Error(t, err)
}

func TestIsPrintable(t *testing.T) {
	require.True(t, IsPrintable("hello world!"))
	require.False(t, IsPrintable("bell\a"))
}
