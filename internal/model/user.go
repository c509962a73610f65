package model

import "time"

// User is a builder account. It owns API keys and belongs to workspaces.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Workspace roles.
const (
	WorkspaceRoleAdmin  = "ADMIN"
	WorkspaceRoleMember = "MEMBER"
	WorkspaceRoleGuest  = "GUEST"
)

// Workspace groups bots, results and integration credentials.
type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// WorkspaceMember links a user to a workspace with a role.
type WorkspaceMember struct {
	WorkspaceID string `json:"workspace_id"`
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
}

// CanEdit reports whether the member may change workspace resources.
func (m *WorkspaceMember) CanEdit() bool {
	return m.Role == WorkspaceRoleAdmin || m.Role == WorkspaceRoleMember
}
