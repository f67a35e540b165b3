package internal

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
)

const (
	minCodeDigits = 6
	maxCodeDigits = 10
)

// NewNumericCode returns a numeric secret with exactly the requested number
// of digits, uniformly distributed over [10^(digits-1), 10^digits). The
// first digit is never zero so the printed code always has full length.
//
// The randomness source is crypto/rand; a predictable generator would make
// the code guessable and the code is the sole proof of address ownership.
func NewNumericCode(digits int) (string, error) {
	if digits < minCodeDigits || digits > maxCodeDigits {
		return "", errors.New("invalid code digits")
	}

	low := int64(1)
	for i := 1; i < digits; i++ {
		low *= 10
	}

	n, err := rand.Int(rand.Reader, big.NewInt(9*low))
	if err != nil {
		return "", err
	}

	code := strconv.FormatInt(low+n.Int64(), 10)
	if len(code) != digits {
		return "", errors.New("invalid code generation length")
	}
	return code, nil
}
