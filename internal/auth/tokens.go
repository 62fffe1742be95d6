// Package auth provides opaque device-token issuance.
//
// Device tokens are not claims-bearing: they are random secrets stored
// alongside the device record and compared on every request. Rotation
// is a plain overwrite, so revocation is immediate.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// deviceTokenSize is 32 bytes (256 bits) of entropy, comfortably past
// the 128-bit class needed for unguessability and global uniqueness.
const deviceTokenSize = 32

// TokenService issues opaque device authentication tokens.
type TokenService struct{}

// NewTokenService creates a new token service.
func NewTokenService() *TokenService {
	return &TokenService{}
}

// Issue creates a cryptographically random opaque device token.
// Returns the token string in base64-urlencoded format.
func (s *TokenService) Issue() (string, error) {
	b := make([]byte, deviceTokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate device token: %w", err)
	}

	return base64.URLEncoding.EncodeToString(b), nil
}
