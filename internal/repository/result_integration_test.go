//go:build integration

package repository

import (
	"errors"
	"testing"

	"github.com/flowbot/flowbot/internal/testutil"
)

func TestIntegrationResultRepository_RoundTrip(t *testing.T) {
	ctx, repo := newTestEnv(t)

	res := testutil.NewTestResult(t, "bot-1", map[string]any{
		"ticketId": "T-42",
		"token":    "abc",
		"count":    float64(3),
	})
	if err := repo.CreateResult(ctx, res); err != nil {
		t.Fatalf("CreateResult failed: %v", err)
	}

	got, err := repo.GetResult(ctx, "bot-1", res.ID)
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if len(got.Variables) != 3 {
		t.Fatalf("expected 3 variables, got %d", len(got.Variables))
	}
	if v, _ := got.VariableValue("ticketId"); v != "T-42" {
		t.Errorf("ticketId = %v", v)
	}
	if v, _ := got.VariableValue("count"); v != float64(3) {
		t.Errorf("count = %v", v)
	}
}

func TestIntegrationResultRepository_ScopedToBot(t *testing.T) {
	ctx, repo := newTestEnv(t)

	res := testutil.NewTestResult(t, "bot-1", nil)
	if err := repo.CreateResult(ctx, res); err != nil {
		t.Fatalf("CreateResult failed: %v", err)
	}

	if _, err := repo.GetResult(ctx, "bot-2", res.ID); !errors.Is(err, ErrResultNotFound) {
		t.Errorf("got %v, want ErrResultNotFound", err)
	}
	got, err := repo.GetResult(ctx, "bot-1", res.ID)
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if len(got.Variables) != 0 {
		t.Errorf("expected no variables, got %d", len(got.Variables))
	}
}
