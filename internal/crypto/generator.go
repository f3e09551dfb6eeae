package crypto

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const (
	uppercaseChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowercaseChars = "abcdefghijklmnopqrstuvwxyz"
	numberChars    = "0123456789"
	symbolChars    = "!@#$%^&*()_+-=[]{}|;:,.<>?"

	MinPasswordLength = 8
	MaxPasswordLength = 128
)

var ErrPasswordLength = errors.New("generated password length must be between 8 and 128")

// GeneratePassword returns a random password of the given length drawn from
// upper, lower, digit and symbol characters, with at least one of each.
func GeneratePassword(length int) (string, error) {
	if length < MinPasswordLength || length > MaxPasswordLength {
		return "", ErrPasswordLength
	}

	sets := []string{uppercaseChars, lowercaseChars, numberChars, symbolChars}
	pool := uppercaseChars + lowercaseChars + numberChars + symbolChars

	out := make([]byte, length)
	for i := range out {
		charset := pool
		if i < len(sets) {
			charset = sets[i]
		}
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		out[i] = charset[n.Int64()]
	}

	// Fisher-Yates so the guaranteed characters do not sit at the front.
	for i := len(out) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		out[i], out[j.Int64()] = out[j.Int64()], out[i]
	}

	return string(out), nil
}
