package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/flowbot/flowbot/internal/model"
)

// Common errors for workspace repository operations.
var (
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrNotMember         = errors.New("user is not a member of the workspace")
)

// CreateWorkspace inserts a workspace and its first member in one transaction.
func (r *Repository) CreateWorkspace(ctx context.Context, ws *model.Workspace, owner *model.WorkspaceMember) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO workspaces (id, name, created_at) VALUES ($1, $2, $3)`,
			ws.ID, ws.Name, ws.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to create workspace: %w", err)
		}

		if owner == nil {
			return nil
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO workspace_members (workspace_id, user_id, role) VALUES ($1, $2, $3)`,
			ws.ID, owner.UserID, owner.Role,
		); err != nil {
			if isForeignKeyViolation(err) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to add workspace member: %w", err)
		}
		return nil
	})
}

// GetWorkspace retrieves a workspace by ID.
func (r *Repository) GetWorkspace(ctx context.Context, id string) (*model.Workspace, error) {
	var ws model.Workspace
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM workspaces WHERE id = $1`, id,
	).Scan(&ws.ID, &ws.Name, &ws.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	return &ws, nil
}

// GetWorkspaceMember returns the membership of userID in workspaceID.
func (r *Repository) GetWorkspaceMember(ctx context.Context, workspaceID, userID string) (*model.WorkspaceMember, error) {
	m := model.WorkspaceMember{WorkspaceID: workspaceID, UserID: userID}
	err := r.pool.QueryRow(ctx,
		`SELECT role FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`,
		workspaceID, userID,
	).Scan(&m.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("failed to get workspace member: %w", err)
	}
	return &m, nil
}
