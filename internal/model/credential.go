package model

import "time"

// Credential types.
const (
	CredentialTypeTrudesk = "trudesk"
)

// Credential is an encrypted integration secret stored per workspace.
// Data holds hex ciphertext and IV the nonce used to produce it.
type Credential struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Data        string    `json:"-"`
	IV          string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// TrudeskCredential is the decrypted payload of a trudesk credential.
// It must never be logged or persisted in clear.
type TrudeskCredential struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
	BaseURL  string `json:"baseUrl"`
}

// CredentialResponse is the public view of a credential (no secrets).
type CredentialResponse struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToResponse converts a Credential to its public view.
func (c *Credential) ToResponse() CredentialResponse {
	return CredentialResponse{
		ID:          c.ID,
		WorkspaceID: c.WorkspaceID,
		Name:        c.Name,
		Type:        c.Type,
		CreatedAt:   c.CreatedAt,
	}
}
