package service

import (
	"context"
	"errors"

	"github.com/flowbot/flowbot/internal/model"
	"github.com/flowbot/flowbot/internal/repository"
)

// ResultStore loads stored conversation results.
type ResultStore interface {
	GetResult(ctx context.Context, typebotID, id string) (*model.Result, error)
}

// ResultService reads variables out of conversation results.
type ResultService struct {
	store ResultStore
}

// NewResultService creates a new ResultService.
func NewResultService(store ResultStore) *ResultService {
	return &ResultService{store: store}
}

// TicketVariables holds the ticket id and access token captured during a
// conversation. Nil means the variable was not found.
type TicketVariables struct {
	TicketID    any
	AccessToken any
}

// TicketVariables returns the values of the variables named ticketVar and
// tokenVar. A missing result yields nil values rather than an error.
func (s *ResultService) TicketVariables(ctx context.Context, typebotID, resultID, ticketVar, tokenVar string) (*TicketVariables, error) {
	res, err := s.store.GetResult(ctx, typebotID, resultID)
	if err != nil {
		if errors.Is(err, repository.ErrResultNotFound) {
			return &TicketVariables{}, nil
		}
		return nil, err
	}

	out := &TicketVariables{}
	if ticketVar != "" {
		out.TicketID, _ = res.VariableValue(ticketVar)
	}
	if tokenVar != "" {
		out.AccessToken, _ = res.VariableValue(tokenVar)
	}
	return out, nil
}
