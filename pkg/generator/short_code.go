package generator

import (
	"crypto/rand"
	"math/big"
)

const (
	// Alphabet is URL-safe and exactly 64 symbols long.
	Alphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
	DefaultLength = 8
)

var alphabetSize = big.NewInt(int64(len(Alphabet)))

// Generate returns a random code of the given length drawn uniformly from
// Alphabet. A non-positive length falls back to DefaultLength.
func Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}

	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}

		b[i] = Alphabet[n.Int64()]
	}

	return string(b), nil
}
