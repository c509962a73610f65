package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/flowbot/flowbot/internal/model"
)

const (
	sessionIssuer = "flowbot-builder"
	// DefaultSessionTTL is the lifetime of a builder session token.
	DefaultSessionTTL = 12 * time.Hour
)

var (
	// ErrInvalidSession indicates a malformed, expired or forged token.
	ErrInvalidSession = errors.New("invalid session token")
	// ErrSessionsDisabled is returned when no session secret is configured.
	ErrSessionsDisabled = errors.New("session tokens are disabled")
)

// SessionClaims are carried by builder session tokens.
type SessionClaims struct {
	Email  string   `json:"email,omitempty"`
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies HS256 session tokens.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionManager creates a SessionManager. An empty secret disables
// sessions.
func NewSessionManager(secret string, ttl time.Duration) (*SessionManager, error) {
	if secret == "" {
		return nil, ErrSessionsDisabled
	}
	if len(secret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a session token for a user. Sessions get read, write and
// upload scopes unless scopes are given.
func (m *SessionManager) Issue(userID, email string, scopes ...string) (string, error) {
	if len(scopes) == 0 {
		scopes = []string{model.ScopeRead, model.ScopeWrite, model.ScopeUpload}
	}
	now := m.now()
	claims := SessionClaims{
		Email:  email,
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses a session token into an AuthContext.
func (m *SessionManager) Verify(token string) (*model.AuthContext, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidSession
	}

	return &model.AuthContext{
		UserID:        claims.Subject,
		Scopes:        claims.Scopes,
		RateLimitTier: model.TierFree,
		Source:        model.AuthSourceSession,
	}, nil
}

// ExtractBearer returns the token of an "Authorization: Bearer" header value.
func ExtractBearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
