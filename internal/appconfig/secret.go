package appconfig

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const secretBytes = 48

// NewSecretKey generates a URL-safe random secret for the application.
func NewSecretKey() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
