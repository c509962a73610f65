package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScopeGrants(t *testing.T) {
	tests := []struct {
		name   string
		scopes []string
		want   string
		ok     bool
	}{
		{"exact", []string{ScopeRead, ScopeUpload}, ScopeUpload, true},
		{"missing", []string{ScopeRead}, ScopeWrite, false},
		{"admin implies read", []string{ScopeAdmin}, ScopeRead, true},
		{"admin implies upload", []string{ScopeAdmin}, ScopeUpload, true},
		{"write does not imply admin", []string{ScopeWrite}, ScopeAdmin, false},
		{"none", nil, ScopeRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := &APIKey{Scopes: tt.scopes}
			principal := &AuthContext{Scopes: tt.scopes}
			assert.Equal(t, tt.ok, key.HasScope(tt.want))
			assert.Equal(t, tt.ok, principal.HasScope(tt.want))
		})
	}
}

func TestIsValidScope(t *testing.T) {
	for _, s := range ValidScopes {
		assert.True(t, IsValidScope(s), s)
	}
	assert.False(t, IsValidScope("webhook"))
	assert.False(t, IsValidScope(""))
}

func TestLimitForTier(t *testing.T) {
	assert.Equal(t, TierLimit{RequestsPerMinute: 60, Burst: 10}, LimitForTier(TierFree))
	assert.Equal(t, TierLimit{RequestsPerMinute: 600, Burst: 50}, LimitForTier(TierPro))
	assert.True(t, LimitForTier(TierUnlimited).Unlimited())
	assert.Equal(t, LimitForTier(TierFree), LimitForTier("enterprise"))

	assert.Equal(t, 600, (&APIKey{RateLimitTier: TierPro}).Limit().RequestsPerMinute)
	assert.False(t, (&AuthContext{}).Limit().Unlimited())
}

func TestAPIKey_ToResponse(t *testing.T) {
	used := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	key := &APIKey{
		ID:            "key_1",
		UserID:        "user_1",
		KeyHash:       "$argon2id$...",
		KeyPrefix:     "7a9f3c",
		Name:          "ci",
		Scopes:        []string{ScopeRead},
		RateLimitTier: TierFree,
		LastUsedAt:    &used,
	}

	resp := key.ToResponse()
	assert.Equal(t, "key_1", resp.ID)
	assert.Equal(t, "7a9f3c", resp.KeyPrefix)
	assert.Equal(t, &used, resp.LastUsedAt)
	assert.False(t, resp.Revoked)

	key.RevokedAt = &used
	assert.True(t, key.IsRevoked())
	assert.True(t, key.ToResponse().Revoked)
}

func TestAuthContext_IsSession(t *testing.T) {
	assert.True(t, (&AuthContext{Source: AuthSourceSession}).IsSession())
	assert.False(t, (&AuthContext{Source: AuthSourceAPIKey, KeyID: "k"}).IsSession())
}
