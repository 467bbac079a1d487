package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"musicbox/pkg/spec"

	"golang.org/x/crypto/pbkdf2"
)

// ErrShortFrame is returned when a sealed frame is smaller than its nonce.
var ErrShortFrame = errors.New("security: sealed frame too short")

// DeriveKey turns a passphrase and salt into a 32-byte AES key.
func DeriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, spec.KeyIterations, spec.KeyLength, sha256.New)
}

// NewSalt returns n random bytes.
func NewSalt(n int) ([]byte, error) {
	salt := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// Sealer encrypts and decrypts individual frames with AES-GCM.
// The nonce is prepended to every sealed frame.
type Sealer struct {
	gcm cipher.AEAD
}

func NewSealer(key []byte) (*Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{gcm: gcm}, nil
}

// Seal encrypts data using a random nonce.
func (s *Sealer) Seal(data []byte) ([]byte, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return s.gcm.Seal(nonce, nonce, data, nil), nil
}

// Open decrypts a frame produced by Seal.
func (s *Sealer) Open(data []byte) ([]byte, error) {
	nonceSize := s.gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, ErrShortFrame
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	return s.gcm.Open(nil, nonce, ciphertext, nil)
}
