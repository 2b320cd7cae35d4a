package envelope

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/credvault/credvault/pkg/model"
)

// MaxPasswordLength bounds a credential password both in characters and in
// UTF-8 bytes, so EncodedLen(MaxPasswordLength) always fits the column.
const MaxPasswordLength = 256

// passwordAAD binds every sealed value to its purpose.
var passwordAAD = []byte("credential.password")

var (
	ErrDecrypt = errors.New("unable to decrypt secret envelope")
	ErrEncrypt = errors.New("unable to encrypt secret")
)

var encoding = base64.URLEncoding

// DeriveKey turns the server master secret into a 32-byte AES-256 key.
func DeriveKey(masterSecret string) []byte {
	sum := sha256.Sum256([]byte(masterSecret))
	return sum[:]
}

// Envelope seals and opens credential passwords with a single static key.
type Envelope struct {
	cipher SymmetricCipher
}

// NewEnvelope builds an Envelope from a key produced by DeriveKey.
func NewEnvelope(key []byte) (*Envelope, error) {
	c, err := NewSymmetric(key)
	if err != nil {
		return nil, fmt.Errorf("envelope key: %w", err)
	}
	return &Envelope{cipher: c}, nil
}

// Seal encrypts plaintext into a text-safe SecretEnvelope.
func (e *Envelope) Seal(plaintext string) (model.SecretEnvelope, error) {
	packed, err := e.cipher.Encrypt(passwordAAD, []byte(plaintext))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	return model.SecretEnvelope(encoding.EncodeToString(packed)), nil
}

// Open decrypts a SecretEnvelope. Any malformed, tampered or foreign-key
// input yields ErrDecrypt.
func (e *Envelope) Open(sealed model.SecretEnvelope) (string, error) {
	packed, err := encoding.DecodeString(string(sealed))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	plain, err := e.cipher.Decrypt(passwordAAD, packed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return string(plain), nil
}

// EncodedLen is the stored length of an n-byte plaintext once sealed.
func EncodedLen(n int) int {
	return encoding.EncodedLen(packedOverhead + n)
}

// GenerateSecret returns a random base64 master secret suitable for
// CREDVAULT_SECRET_KEY.
func GenerateSecret() (string, error) {
	raw, err := RandomBytes(32)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
