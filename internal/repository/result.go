package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/flowbot/flowbot/internal/model"
)

// ErrResultNotFound is returned when no result matches.
var ErrResultNotFound = errors.New("result not found")

// CreateResult stores a conversation result with its variables.
func (r *Repository) CreateResult(ctx context.Context, res *model.Result) error {
	variables := res.Variables
	if variables == nil {
		variables = []model.Variable{}
	}
	payload, err := json.Marshal(variables)
	if err != nil {
		return fmt.Errorf("failed to encode variables: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO results (id, typebot_id, variables, created_at) VALUES ($1, $2, $3, $4)`,
		res.ID, res.TypebotID, payload, res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create result: %w", err)
	}
	return nil
}

// GetResult loads a result of a bot by id.
func (r *Repository) GetResult(ctx context.Context, typebotID, id string) (*model.Result, error) {
	var (
		res     model.Result
		payload []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, typebot_id, variables, created_at FROM results WHERE id = $1 AND typebot_id = $2`,
		id, typebotID,
	).Scan(&res.ID, &res.TypebotID, &payload, &res.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	if err := json.Unmarshal(payload, &res.Variables); err != nil {
		return nil, fmt.Errorf("failed to decode variables: %w", err)
	}
	return &res, nil
}
