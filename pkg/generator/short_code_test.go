package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_DefaultLength(t *testing.T) {
	code, err := Generate(0)

	assert.NoError(t, err)
	assert.Len(t, code, 8, "Short code should default to 8 characters")
	assert.Regexp(t, "^[A-Za-z0-9_-]+$", code, "Short code should be URL-safe")
}

func TestGenerate_ExplicitLength(t *testing.T) {
	for _, length := range []int{1, 6, 12, 32} {
		code, err := Generate(length)

		require.NoError(t, err)
		assert.Len(t, code, length)
	}
}

func TestGenerate_AlphabetSize(t *testing.T) {
	assert.Len(t, Alphabet, 64)

	seen := make(map[rune]bool)
	for _, r := range Alphabet {
		assert.False(t, seen[r], "Duplicate symbol in alphabet: %q", r)
		seen[r] = true
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	codes := make(map[string]bool, 1000)

	for i := 0; i < 1000; i++ {
		code, err := Generate(DefaultLength)
		assert.NoError(t, err)

		assert.False(t, codes[code], "Duplicate code generated: %s", code)
		codes[code] = true
	}

	assert.Equal(t, 1000, len(codes), "Should generate 1000 unique codes")
}

func TestGenerate_UsesWholeAlphabet(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		code, err := Generate(32)
		require.NoError(t, err)
		sb.WriteString(code)
	}

	all := sb.String()
	for _, r := range Alphabet {
		assert.Contains(t, all, string(r))
	}
}
