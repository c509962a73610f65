//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestIntegrationMigrations_ApplyAllTables(t *testing.T) {
	ctx, repo := newTestEnv(t)
	dbURL := repo.Pool().Config().ConnString()

	// ResetSchema leaves no bookkeeping, so Up re-applies idempotently.
	if err := RunMigrations(dbURL); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	if err := RunMigrations(dbURL); err != nil {
		t.Fatalf("second RunMigrations failed: %v", err)
	}

	version, dirty, err := MigrationVersion(dbURL)
	if err != nil {
		t.Fatalf("MigrationVersion failed: %v", err)
	}
	if dirty || version != 4 {
		t.Errorf("version = %d dirty = %v, want 4 clean", version, dirty)
	}

	for _, table := range []string{"users", "api_keys", "workspaces", "workspace_members", "credentials", "results"} {
		exists, err := tableExists(ctx, repo.Pool(), table)
		if err != nil {
			t.Fatalf("tableExists failed: %v", err)
		}
		if !exists {
			t.Errorf("table %q should exist after migrations", table)
		}
	}
}

func TestIntegrationMigrations_CredentialsCascadeWithWorkspace(t *testing.T) {
	ctx, repo := newTestEnv(t)
	_, ws := seedWorkspace(t, ctx, repo)

	if _, err := repo.Pool().Exec(ctx,
		`INSERT INTO credentials (id, workspace_id, name, type, data, iv) VALUES ('c1', $1, 'n', 'trudesk', 'd', 'i')`, ws,
	); err != nil {
		t.Fatalf("insert credential: %v", err)
	}
	if _, err := repo.Pool().Exec(ctx, `DELETE FROM workspaces WHERE id = $1`, ws); err != nil {
		t.Fatalf("delete workspace: %v", err)
	}

	var count int
	if err := repo.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM credentials WHERE id = 'c1'`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("credential should be removed with its workspace")
	}
}

func tableExists(ctx context.Context, pool *pgxpool.Pool, table string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)
	`, table).Scan(&exists)
	return exists, err
}
