package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewETag generates a fresh opaque ETag as two 32-bit random values joined
// by "-" (glossary). Every successful mutation gets a new one.
func NewETag() (string, error) {
	a, err := randUint32Hex()
	if err != nil {
		return "", err
	}
	b, err := randUint32Hex()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", a, b), nil
}

func randUint32Hex() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// NewNonceValue generates a fresh 16-hex-digit nonce value.
func NewNonceValue() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
