package deriver

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	saltSize = 16
	seedSize = 32
)

func sealKey(secret, salt []byte, userID string) ([]byte, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, secret, salt, []byte("safe-pay/seed/"+userID))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}

	return key, nil
}

// seal encrypts seed for userID; the output is base64(salt|nonce|ciphertext).
func seal(secret []byte, userID string, seed []byte) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key, err := sealKey(secret, salt, userID)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	out := append(salt, nonce...)
	out = gcm.Seal(out, nonce, seed, []byte(userID))
	return base64.StdEncoding.EncodeToString(out), nil
}

func open(secret []byte, userID, sealed string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, err
	}

	if len(data) < saltSize {
		return nil, errors.New("sealed seed too short")
	}

	key, err := sealKey(secret, data[:saltSize], userID)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	data = data[saltSize:]
	if len(data) < gcm.NonceSize()+gcm.Overhead() {
		return nil, errors.New("sealed seed too short")
	}

	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, []byte(userID))
}

func newSeed() ([]byte, error) {
	seed := make([]byte, seedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}

	return seed, nil
}
