package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/rajasatyajit/ReliefHub/config"
)

func TestAdminVerifier(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	tests := []struct {
		name       string
		cfg        config.AdminConfig
		key        string
		want       bool
		configured bool
	}{
		{"plain match", config.AdminConfig{Key: "admin123"}, "admin123", true, true},
		{"plain mismatch", config.AdminConfig{Key: "admin123"}, "admin124", false, true},
		{"empty key never matches", config.AdminConfig{Key: "admin123"}, "", false, true},
		{"hash match", config.AdminConfig{KeyHash: string(hash)}, "s3cret", true, true},
		{"hash wins over plain", config.AdminConfig{Key: "admin123", KeyHash: string(hash)}, "admin123", false, true},
		{"unconfigured", config.AdminConfig{}, "anything", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewAdminVerifier(tt.cfg)
			if got := v.Verify(tt.key); got != tt.want {
				t.Errorf("Verify(%q) = %v, want %v", tt.key, got, tt.want)
			}
			if v.Configured() != tt.configured {
				t.Errorf("Configured() = %v, want %v", v.Configured(), tt.configured)
			}
		})
	}
}

func TestGenerateAdminKey(t *testing.T) {
	key, hash, err := GenerateAdminKey()
	if err != nil {
		t.Fatalf("GenerateAdminKey: %v", err)
	}
	if len(key) != 32 {
		t.Fatalf("key length = %d, want 32", len(key))
	}
	if !NewAdminVerifier(config.AdminConfig{KeyHash: hash}).Verify(key) {
		t.Fatal("generated hash does not verify generated key")
	}
	other, _, _ := GenerateAdminKey()
	if other == key {
		t.Fatal("keys should be random")
	}
}
