// Package model defines the entities shared by the builder API: API keys,
// workspaces, helpdesk credentials and stored results.
package model

import (
	"slices"
	"time"
)

// Scopes an API key or session can carry. Admin implies the others.
const (
	ScopeRead   = "read"
	ScopeWrite  = "write"
	ScopeUpload = "upload"
	ScopeAdmin  = "admin"
)

// ValidScopes lists every grantable scope.
var ValidScopes = []string{ScopeRead, ScopeWrite, ScopeUpload, ScopeAdmin}

// IsValidScope reports whether s is a known scope.
func IsValidScope(s string) bool {
	return slices.Contains(ValidScopes, s)
}

func grants(held []string, want string) bool {
	return slices.Contains(held, ScopeAdmin) || slices.Contains(held, want)
}

// Rate limit tiers.
const (
	TierFree      = "free"
	TierPro       = "pro"
	TierUnlimited = "unlimited"
)

// TierLimit is the per-minute budget of a rate limit tier.
type TierLimit struct {
	RequestsPerMinute int
	Burst             int
}

// Unlimited reports whether the tier skips rate limiting entirely.
func (l TierLimit) Unlimited() bool {
	return l.RequestsPerMinute <= 0
}

var tierLimits = map[string]TierLimit{
	TierFree:      {RequestsPerMinute: 60, Burst: 10},
	TierPro:       {RequestsPerMinute: 600, Burst: 50},
	TierUnlimited: {},
}

// LimitForTier returns the budget for tier. Unknown tiers get the free budget.
func LimitForTier(tier string) TierLimit {
	if l, ok := tierLimits[tier]; ok {
		return l
	}
	return tierLimits[TierFree]
}

// APIKey is a stored builder API key. Only the argon2id hash of the secret
// is kept; KeyPrefix is the six hex characters used for lookup.
type APIKey struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	KeyHash       string     `json:"-"`
	KeyPrefix     string     `json:"key_prefix"`
	Scopes        []string   `json:"scopes"`
	RateLimitTier string     `json:"rate_limit_tier"`
	Name          string     `json:"name,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// IsRevoked reports whether the key can no longer authenticate.
func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// HasScope reports whether the key grants scope.
func (k *APIKey) HasScope(scope string) bool {
	return grants(k.Scopes, scope)
}

// Limit returns the rate limit budget of the key's tier.
func (k *APIKey) Limit() TierLimit {
	return LimitForTier(k.RateLimitTier)
}

// ToResponse strips the hash and owner for listing.
func (k *APIKey) ToResponse() APIKeyResponse {
	return APIKeyResponse{
		ID:            k.ID,
		Name:          k.Name,
		KeyPrefix:     k.KeyPrefix,
		Scopes:        k.Scopes,
		RateLimitTier: k.RateLimitTier,
		CreatedAt:     k.CreatedAt,
		LastUsedAt:    k.LastUsedAt,
		Revoked:       k.IsRevoked(),
	}
}

// Principal sources recorded on AuthContext.
const (
	AuthSourceAPIKey  = "api_key"
	AuthSourceSession = "session"
)

// AuthContext is the authenticated principal of a request. KeyID and
// KeyPrefix are empty when Source is AuthSourceSession.
type AuthContext struct {
	KeyID         string
	KeyPrefix     string
	UserID        string
	Scopes        []string
	RateLimitTier string
	Source        string
}

// HasScope reports whether the principal grants scope.
func (a *AuthContext) HasScope(scope string) bool {
	return grants(a.Scopes, scope)
}

// IsSession reports whether the principal came from a builder session token.
func (a *AuthContext) IsSession() bool {
	return a.Source == AuthSourceSession
}

// Limit returns the rate limit budget of the principal's tier.
func (a *AuthContext) Limit() TierLimit {
	return LimitForTier(a.RateLimitTier)
}

// APIKeyResponse is the listing view of a key.
type APIKeyResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name,omitempty"`
	KeyPrefix     string     `json:"key_prefix"`
	Scopes        []string   `json:"scopes"`
	RateLimitTier string     `json:"rate_limit_tier"`
	CreatedAt     time.Time  `json:"created_at"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	Revoked       bool       `json:"revoked"`
}

// APIKeyCreateResponse adds the plaintext key, returned once on creation.
type APIKeyCreateResponse struct {
	APIKeyResponse
	Key string `json:"key"`
}
