package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// GenerateKey returns size random bytes hex encoded.
func GenerateKey(size int) (string, error) {
	if size <= 0 {
		return "", errors.New("size must be positive")
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
