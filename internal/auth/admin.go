// Package auth verifies the shared admin key that guards hub and donation
// management.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/rajasatyajit/ReliefHub/config"
)

// AdminVerifier checks presented admin keys against either a plain key or
// a bcrypt hash. The hash wins when both are configured.
type AdminVerifier struct {
	key  []byte
	hash []byte
}

func NewAdminVerifier(cfg config.AdminConfig) *AdminVerifier {
	v := &AdminVerifier{}
	if cfg.KeyHash != "" {
		v.hash = []byte(cfg.KeyHash)
	} else if cfg.Key != "" {
		v.key = []byte(cfg.Key)
	}
	return v
}

// Configured reports whether any admin key is set
func (v *AdminVerifier) Configured() bool {
	return len(v.hash) > 0 || len(v.key) > 0
}

// Verify reports whether key is the admin key
func (v *AdminVerifier) Verify(key string) bool {
	if key == "" {
		return false
	}
	if len(v.hash) > 0 {
		return bcrypt.CompareHashAndPassword(v.hash, []byte(key)) == nil
	}
	if len(v.key) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(v.key, []byte(key)) == 1
}

// GenerateAdminKey returns a random url-safe key and its bcrypt hash, ready
// for ADMIN_KEY_HASH
func GenerateAdminKey() (key string, hash string, err error) {
	key = randomToken(32)
	if key == "" {
		return "", "", fmt.Errorf("failed to generate token")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return key, string(h), nil
}

func randomToken(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	// URL-safe base64 without padding, then trim to n chars
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) > n {
		return s[:n]
	}
	return s
}
