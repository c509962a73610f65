// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/flowbot/flowbot/internal/model"
)

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// CreateTrudeskCredentialRequest is the body of a credential creation.
type CreateTrudeskCredentialRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Data struct {
		UserName string `json:"userName"`
		Password string `json:"password"`
		BaseURL  string `json:"baseUrl"`
	} `json:"data"`
}

// CredentialListResponse lists credential metadata.
type CredentialListResponse struct {
	Credentials []model.CredentialResponse `json:"credentials"`
}

// ToCredentialList converts credentials to their public view.
func ToCredentialList(creds []*model.Credential) CredentialListResponse {
	out := make([]model.CredentialResponse, 0, len(creds))
	for _, c := range creds {
		out = append(out, c.ToResponse())
	}
	return CredentialListResponse{Credentials: out}
}

// TicketVariablesResponse answers the viewer's ticket lookup. Missing
// variables are encoded as null.
type TicketVariablesResponse struct {
	Success     bool `json:"success"`
	TicketID    any  `json:"ticketId"`
	AccessToken any  `json:"accessToken"`
}

// CreateAPIKeyRequest is the body of an API key creation.
type CreateAPIKeyRequest struct {
	Name   string   `json:"name,omitempty"`
	Scopes []string `json:"scopes,omitempty"`
}

// APIKeyListResponse lists a user's keys without secrets.
type APIKeyListResponse struct {
	Keys []model.APIKeyResponse `json:"keys"`
}

// APIKeyRotateResponse is returned when a key is replaced.
type APIKeyRotateResponse struct {
	OldKeyID        string                     `json:"old_key_id"`
	OldKeyRevokedAt time.Time                  `json:"old_key_revoked_at"`
	NewKey          model.APIKeyCreateResponse `json:"new_key"`
}

// WorkspaceOverview is the admin view of a workspace.
type WorkspaceOverview struct {
	Workspace   *model.Workspace           `json:"workspace"`
	Credentials []model.CredentialResponse `json:"credentials"`
}
