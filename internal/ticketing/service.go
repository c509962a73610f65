// Package ticketing loads the helpdesk catalog used to configure ticket
// blocks: decrypt the workspace credential, log in, then read ticket types,
// groups and agents in parallel.
package ticketing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flowbot/flowbot/internal/metrics"
	"github.com/flowbot/flowbot/internal/model"
	"github.com/flowbot/flowbot/internal/repository"
	"github.com/flowbot/flowbot/internal/trudesk"
)

// Store looks up credentials and workspace membership.
// FindCredential returns repository.ErrCredentialNotFound when nothing
// matches; GetWorkspaceMember returns repository.ErrNotMember.
type Store interface {
	FindCredential(ctx context.Context, id, workspaceID string) (*model.Credential, error)
	GetWorkspaceMember(ctx context.Context, workspaceID, userID string) (*model.WorkspaceMember, error)
}

// Decrypter opens stored credential data.
type Decrypter interface {
	Decrypt(data, iv string, v any) error
}

// API is the subset of the helpdesk client used here.
type API interface {
	Login(ctx context.Context, username, password string) (string, error)
	TicketTypes(ctx context.Context, token string) ([]trudesk.TicketType, error)
	Groups(ctx context.Context, token string) ([]trudesk.Group, error)
	Users(ctx context.Context, token string) ([]trudesk.User, error)
}

// ClientFactory builds an API client for a decrypted base URL.
type ClientFactory func(baseURL string) (API, error)

// Service implements the ticket catalog gateway.
type Service struct {
	store     Store
	decrypter Decrypter
	newClient ClientFactory
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// NewService creates a new Service.
func NewService(store Store, decrypter Decrypter, newClient ClientFactory, recorder metrics.Recorder, logger *slog.Logger) *Service {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		decrypter: decrypter,
		newClient: newClient,
		metrics:   recorder,
		logger:    logger.With("component", "ticketing"),
	}
}

// ListTicketTypes returns the normalized catalog for a workspace credential.
// userID must belong to the workspace; outsiders get the same NotFound as a
// missing credential. Every failure is an *Error; a partial catalog is never
// returned.
func (s *Service) ListTicketTypes(ctx context.Context, credentialsID, workspaceID, userID string) (*model.TicketCatalog, error) {
	catalog, err := s.listTicketTypes(ctx, credentialsID, workspaceID, userID)
	s.metrics.IncTicketCatalog(outcome(err))
	if err != nil {
		return nil, err
	}

	s.logger.Debug("ticket catalog loaded",
		"workspace_id", workspaceID,
		"credentials_id", credentialsID,
		"user_id", userID,
		"types", len(catalog.Types),
		"groups", len(catalog.Groups),
		"agents", len(catalog.Users),
	)
	return catalog, nil
}

func (s *Service) listTicketTypes(ctx context.Context, credentialsID, workspaceID, userID string) (*model.TicketCatalog, error) {
	if credentialsID == "" || workspaceID == "" {
		return nil, fail(KindInvalidInput, ErrMissingArgument)
	}

	if _, err := s.store.GetWorkspaceMember(ctx, workspaceID, userID); err != nil {
		if errors.Is(err, repository.ErrNotMember) {
			return nil, fail(KindNotFound, err)
		}
		return nil, fail(KindInternal, fmt.Errorf("check membership: %w", err))
	}

	cred, err := s.store.FindCredential(ctx, credentialsID, workspaceID)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return nil, fail(KindNotFound, err)
		}
		return nil, fail(KindInternal, fmt.Errorf("find credential: %w", err))
	}

	var secret model.TrudeskCredential
	if err := s.decrypter.Decrypt(cred.Data, cred.IV, &secret); err != nil {
		return nil, fail(KindInternal, fmt.Errorf("decrypt credential: %w", err))
	}

	client, err := s.newClient(secret.BaseURL)
	if err != nil {
		return nil, fail(KindInternal, err)
	}

	var token string
	err = s.observe("login", func() error {
		var loginErr error
		token, loginErr = client.Login(ctx, secret.UserName, secret.Password)
		return loginErr
	})
	if err != nil {
		if errors.Is(err, trudesk.ErrLoginFailed) {
			return nil, fail(KindAuthenticationFailed, err)
		}
		return nil, fail(KindUpstreamError, err)
	}

	var (
		types  []trudesk.TicketType
		groups []trudesk.Group
		users  []trudesk.User
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.observe("ticket_types", func() (err error) {
			types, err = client.TicketTypes(gctx, token)
			return err
		})
	})
	g.Go(func() error {
		return s.observe("groups", func() (err error) {
			groups, err = client.Groups(gctx, token)
			return err
		})
	})
	g.Go(func() error {
		return s.observe("users", func() (err error) {
			users, err = client.Users(gctx, token)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return nil, fail(KindUpstreamError, err)
	}

	return normalize(types, groups, users), nil
}

func (s *Service) observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.metrics.ObserveUpstreamDuration(op, time.Since(start))
	return err
}

func outcome(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	switch KindOf(err) {
	case KindNotFound:
		return metrics.OutcomeNotFound
	case KindAuthenticationFailed:
		return metrics.OutcomeAuthFailed
	case KindUpstreamError:
		return metrics.OutcomeUpstreamError
	default:
		return metrics.OutcomeInternal
	}
}
