// Package auth authenticates builder requests with API keys and session
// tokens.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// API keys look like fb_live_7a9f3c_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b.
// The six hex characters after the environment are stored in clear and used
// to find candidate hashes; the rest is only ever stored hashed.
const (
	keyScheme   = "fb"
	prefixBytes = 3
	secretBytes = 16
)

// Key environments.
const (
	EnvLive = "live"
	EnvTest = "test"
)

// ErrInvalidKeyFormat indicates the key does not match the fb_ format.
var ErrInvalidKeyFormat = errors.New("invalid API key format")

var keyPattern = regexp.MustCompile(`^fb_(live|test)_([a-f0-9]{6})_([a-f0-9]{32})$`)

// GeneratedKey is a freshly minted API key. Plaintext is shown to the user
// once and never stored.
type GeneratedKey struct {
	Plaintext string
	Hash      string
	Prefix    string
}

// GenerateAPIKey mints a key for env. Unknown environments become live.
func GenerateAPIKey(env string) (*GeneratedKey, error) {
	if env != EnvTest {
		env = EnvLive
	}

	buf := make([]byte, prefixBytes+secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}

	prefix := hex.EncodeToString(buf[:prefixBytes])
	plaintext := strings.Join([]string{keyScheme, env, prefix, hex.EncodeToString(buf[prefixBytes:])}, "_")

	hash, err := HashKey(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash key: %w", err)
	}

	return &GeneratedKey{
		Plaintext: plaintext,
		Hash:      hash,
		Prefix:    prefix,
	}, nil
}

// ParsedKey holds the parts of a plaintext API key.
type ParsedKey struct {
	Env    string
	Prefix string
	Secret string
}

// Redacted returns the key with its secret masked, for logs.
func (k *ParsedKey) Redacted() string {
	return keyScheme + "_" + k.Env + "_" + k.Prefix + "_****"
}

// ParseAPIKey splits a plaintext key into its parts.
func ParseAPIKey(key string) (*ParsedKey, error) {
	m := keyPattern.FindStringSubmatch(key)
	if m == nil {
		return nil, ErrInvalidKeyFormat
	}
	return &ParsedKey{Env: m[1], Prefix: m[2], Secret: m[3]}, nil
}

// ValidateKeyFormat reports whether key is shaped like an API key. Anything
// else presented as a credential is treated as a session token.
func ValidateKeyFormat(key string) bool {
	return keyPattern.MatchString(key)
}
