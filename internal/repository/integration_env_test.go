//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/flowbot/flowbot/internal/model"
	"github.com/flowbot/flowbot/internal/testutil"
)

// newTestEnv connects to TEST_DATABASE_URL, serializes on the advisory lock
// and resets the schema.
func newTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "TEST_DATABASE_URL")

	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.ResetSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	return ctx, repo
}

// seedWorkspace creates a user and a workspace owned by that user.
func seedWorkspace(t *testing.T, ctx context.Context, repo *Repository) (userID, workspaceID string) {
	t.Helper()
	user := testutil.NewTestUser(t)
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	ws := testutil.NewTestWorkspace(t)
	if err := repo.CreateWorkspace(ctx, ws, &model.WorkspaceMember{UserID: user.ID, Role: model.WorkspaceRoleAdmin}); err != nil {
		t.Fatalf("CreateWorkspace failed: %v", err)
	}
	return user.ID, ws.ID
}
