// Package crypto seals provider credentials before they reach Firestore.
package crypto

import "context"

// Vault encrypts and decrypts credential blobs. Ciphertexts are base64 text.
type Vault interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}
