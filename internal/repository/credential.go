package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/flowbot/flowbot/internal/model"
)

// ErrCredentialNotFound is returned when no credential matches the id in
// the given workspace.
var ErrCredentialNotFound = errors.New("credential not found")

const credentialColumns = `id, workspace_id, name, type, data, iv, created_at`

// CreateCredential stores an already encrypted credential.
func (r *Repository) CreateCredential(ctx context.Context, c *model.Credential) error {
	query := `
		INSERT INTO credentials (id, workspace_id, name, type, data, iv, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query, c.ID, c.WorkspaceID, c.Name, c.Type, c.Data, c.IV, c.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrWorkspaceNotFound
		}
		return fmt.Errorf("failed to create credential: %w", err)
	}
	return nil
}

// FindCredential looks a credential up by id within one workspace. Both
// must match, so a credential is never visible from another workspace.
func (r *Repository) FindCredential(ctx context.Context, id, workspaceID string) (*model.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = $1 AND workspace_id = $2`

	c, err := scanCredential(r.pool.QueryRow(ctx, query, id, workspaceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to find credential: %w", err)
	}
	return c, nil
}

// ListCredentials returns the credentials of a workspace, newest first.
// An empty credType lists every type.
func (r *Repository) ListCredentials(ctx context.Context, workspaceID, credType string) ([]*model.Credential, error) {
	query := `
		SELECT ` + credentialColumns + `
		FROM credentials
		WHERE workspace_id = $1 AND ($2 = '' OR type = $2)
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, workspaceID, credType)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer rows.Close()

	creds := make([]*model.Credential, 0)
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		creds = append(creds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating credentials: %w", err)
	}

	return creds, nil
}

// DeleteCredential removes a credential from a workspace.
func (r *Repository) DeleteCredential(ctx context.Context, id, workspaceID string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM credentials WHERE id = $1 AND workspace_id = $2`, id, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

func scanCredential(row pgx.Row) (*model.Credential, error) {
	var c model.Credential
	if err := row.Scan(&c.ID, &c.WorkspaceID, &c.Name, &c.Type, &c.Data, &c.IV, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
