package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/GregMSThompson/treasury-backend/internal/errs"
)

const keySize = 32

var (
	keySalt = []byte("treasury-backend/credential-vault")
	keyInfo = []byte("aes-256-gcm v1")
)

type local struct {
	aead cipher.AEAD
}

// NewLocal derives an AES-256-GCM key from the server secret once and keeps
// the AEAD for the life of the process.
func NewLocal(secret []byte) (*local, error) {
	if len(secret) == 0 {
		return nil, errs.NewCryptoError("vault secret is not configured", nil)
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, keySalt, keyInfo), key); err != nil {
		return nil, errs.NewCryptoError("derive vault key", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errs.NewCryptoError("init cipher", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errs.NewCryptoError("init gcm", err)
	}
	return &local{aead: aead}, nil
}

// Encrypt returns base64(nonce || sealed box).
func (l *local) Encrypt(ctx context.Context, plaintext string) (string, error) {
	nonce := make([]byte, l.aead.NonceSize(), l.aead.NonceSize()+len(plaintext)+l.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", errs.NewCryptoError("generate nonce", err)
	}
	sealed := l.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (l *local) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errs.NewCryptoError("ciphertext is not valid base64", err)
	}
	n := l.aead.NonceSize()
	if len(raw) < n+l.aead.Overhead() {
		return "", errs.NewCryptoError("ciphertext too short", errors.New("truncated input"))
	}
	plain, err := l.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", errs.NewCryptoError("ciphertext failed authentication", err)
	}
	return string(plain), nil
}
