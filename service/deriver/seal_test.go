package deriver

import (
	"crypto/rand"
	"encoding/base64"
	"testing"
)

func TestSealOpen(t *testing.T) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		t.Fatalf("Failed to generate secret: %v", err)
	}

	testCases := []struct {
		name   string
		userID string
		seed   []byte
	}{
		{"Empty seed", "u1", []byte{}},
		{"Random seed", "u1", mustSeed(t)},
		{"Unicode user", "用户-42", mustSeed(t)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sealed, err := seal(secret, tc.userID, tc.seed)
			if err != nil {
				t.Fatalf("Seal failed: %v", err)
			}

			opened, err := open(secret, tc.userID, sealed)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}

			if string(opened) != string(tc.seed) {
				t.Errorf("Opened seed does not match. Got %x, want %x", opened, tc.seed)
			}
		})
	}
}

func TestSealUsesFreshNonce(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	seed := mustSeed(t)

	a, err := seal(secret, "u1", seed)
	if err != nil {
		t.Fatal(err)
	}

	b, err := seal(secret, "u1", seed)
	if err != nil {
		t.Fatal(err)
	}

	if a == b {
		t.Error("sealing the same seed twice produced identical output")
	}
}

func TestOpenInvalidInput(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	sealed, err := seal(secret, "u1", mustSeed(t))
	if err != nil {
		t.Fatal(err)
	}

	raw, _ := base64.StdEncoding.DecodeString(sealed)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	testCases := []struct {
		name   string
		secret []byte
		userID string
		sealed string
	}{
		{"Empty string", secret, "u1", ""},
		{"Invalid base64", secret, "u1", "This is not base64!"},
		{"Too short after base64 decode", secret, "u1", "aGVsbG8="},
		{"Rotated secret", []byte("fedcba9876543210fedcba9876543210"), "u1", sealed},
		{"Other user", secret, "u2", sealed},
		{"Tampered", secret, "u1", tampered},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := open(tc.secret, tc.userID, tc.sealed); err == nil {
				t.Error("Expected an error, but got nil")
			}
		})
	}
}

func mustSeed(t *testing.T) []byte {
	t.Helper()
	seed, err := newSeed()
	if err != nil {
		t.Fatal(err)
	}

	return seed
}
