// Package secret encrypts integration credentials at rest.
//
// The format is AES-256-GCM with a 16 character IV string used verbatim as
// a 16 byte nonce. Ciphertext and the 16 byte tag are stored together as one
// hex string. Rows written by the builder web app decrypt unchanged.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// KeySize is the required length of the encryption secret.
	KeySize = 32
	// IVLength is the length of the IV string stored next to the data.
	IVLength = 16
	tagSize  = 16
)

var (
	// ErrInvalidKey is returned when the secret is not exactly KeySize bytes.
	ErrInvalidKey = errors.New("encryption secret must be 32 bytes")
	// ErrMalformed is returned when stored data or IV cannot be parsed.
	ErrMalformed = errors.New("malformed encrypted data")
	// ErrDecrypt is returned when authentication of the ciphertext fails.
	ErrDecrypt = errors.New("could not decrypt data")
)

// randRead is swapped in tests.
var randRead = rand.Read

// Cipher encrypts and decrypts JSON values.
type Cipher struct {
	key []byte
}

// NewCipher creates a Cipher from the raw secret.
func NewCipher(secret string) (*Cipher, error) {
	if len(secret) != KeySize {
		return nil, ErrInvalidKey
	}
	return &Cipher{key: []byte(secret)}, nil
}

// Encrypt marshals v to JSON and seals it. It returns the hex data and IV.
func (c *Cipher) Encrypt(v any) (data string, iv string, err error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", "", fmt.Errorf("marshal payload: %w", err)
	}

	iv, err = newIV()
	if err != nil {
		return "", "", err
	}

	aead, err := c.aead()
	if err != nil {
		return "", "", err
	}

	sealed := aead.Seal(nil, []byte(iv), plaintext, nil)
	return hex.EncodeToString(sealed), iv, nil
}

// Decrypt opens data with iv and unmarshals the JSON payload into v.
func (c *Cipher) Decrypt(data, iv string, v any) error {
	if len(iv) != IVLength || len(data) < tagSize*2 {
		return ErrMalformed
	}
	sealed, err := hex.DecodeString(data)
	if err != nil {
		return ErrMalformed
	}

	aead, err := c.aead()
	if err != nil {
		return err
	}

	plaintext, err := aead.Open(nil, []byte(iv), sealed, nil)
	if err != nil {
		return ErrDecrypt
	}

	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return nil
}

func (c *Cipher) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("create block cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, IVLength)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return aead, nil
}

// newIV returns 16 hex characters drawn from crypto/rand.
func newIV() (string, error) {
	b := make([]byte, IVLength/2)
	if _, err := randRead(b); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}
	return hex.EncodeToString(b), nil
}
