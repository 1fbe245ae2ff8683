package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const (
	idBytes    = 32
	stateBytes = 24
)

// GenerateID returns a new session id with 256 bits of entropy.
func GenerateID() (string, error) {
	return randomToken(idBytes)
}

// GenerateState returns an opaque value for the OAuth state parameter.
func GenerateState() (string, error) {
	return randomToken(stateBytes)
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
