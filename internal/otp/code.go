package otp

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

var codeSpace = big.NewInt(1_000_000)

// GenerateCode returns a zero-padded six digit code drawn from r.
func GenerateCode(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	n, err := rand.Int(r, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}
