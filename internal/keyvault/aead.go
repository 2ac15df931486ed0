package keyvault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"io"

	"github.com/pkg/errors"
)

const keySize = 32 // AES-256

// Aead encrypts and decrypts wallet mnemonics with the single process-wide
// key fetched from the secret store at startup. No other component handles
// raw key material.
type Aead struct {
	gcm cipher.AEAD
}

// New builds the AEAD from a hex-encoded 32-byte key.
func New(keyHex string) (*Aead, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, errors.Wrap(err, "encryption key is not valid hex")
	}
	if len(key) != keySize {
		return nil, errors.Errorf("encryption key must be %d bytes, got %d", keySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create AES cipher")
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create GCM")
	}

	return &Aead{gcm: gcm}, nil
}

// Encrypt seals plaintext and returns hex(nonce || ciphertext).
func (a *Aead) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("plaintext cannot be empty")
	}

	nonce := make([]byte, a.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Wrap(err, "failed to generate nonce")
	}

	ciphertext := a.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(ciphertext), nil
}

// Decrypt opens hex(nonce || ciphertext). A failure here means tampered data
// or the wrong key; callers must treat it as fatal, not fall back.
func (a *Aead) Decrypt(encrypted string) (string, error) {
	ciphertext, err := hex.DecodeString(encrypted)
	if err != nil {
		return "", errors.Wrap(err, "ciphertext is not valid hex")
	}

	if len(ciphertext) < a.gcm.NonceSize() {
		return "", errors.New("ciphertext too short")
	}

	nonce, sealed := ciphertext[:a.gcm.NonceSize()], ciphertext[a.gcm.NonceSize():]
	plaintext, err := a.gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", errors.Wrap(err, "decryption failed")
	}

	return string(plaintext), nil
}
