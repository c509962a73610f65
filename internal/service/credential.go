package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flowbot/flowbot/internal/metrics"
	"github.com/flowbot/flowbot/internal/model"
	"github.com/flowbot/flowbot/internal/repository"
	"github.com/flowbot/flowbot/internal/trudesk"
)

const maxCredentialNameLength = 100

// CredentialStore persists encrypted credentials and answers membership.
type CredentialStore interface {
	CreateCredential(ctx context.Context, c *model.Credential) error
	ListCredentials(ctx context.Context, workspaceID, credType string) ([]*model.Credential, error)
	DeleteCredential(ctx context.Context, id, workspaceID string) error
	GetWorkspaceMember(ctx context.Context, workspaceID, userID string) (*model.WorkspaceMember, error)
}

// Encrypter seals credential payloads.
type Encrypter interface {
	Encrypt(v any) (data string, iv string, err error)
}

// CredentialService manages integration credentials of a workspace.
type CredentialService struct {
	store        CredentialStore
	encrypter    Encrypter
	allowPrivate bool
	metrics      metrics.Recorder
}

// NewCredentialService creates a new CredentialService. allowPrivate lets
// base URLs point at private networks.
func NewCredentialService(store CredentialStore, encrypter Encrypter, allowPrivate bool, recorder metrics.Recorder) *CredentialService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &CredentialService{
		store:        store,
		encrypter:    encrypter,
		allowPrivate: allowPrivate,
		metrics:      recorder,
	}
}

// CreateTrudeskInput defines input for storing a Trudesk credential.
type CreateTrudeskInput struct {
	WorkspaceID string
	UserID      string
	Name        string
	UserName    string
	Password    string
	BaseURL     string
}

// CreateTrudeskCredential validates, encrypts and stores a credential.
func (s *CredentialService) CreateTrudeskCredential(ctx context.Context, input CreateTrudeskInput) (*model.Credential, error) {
	if err := s.validateTrudesk(&input); err != nil {
		return nil, err
	}
	if err := s.requireEditor(ctx, input.WorkspaceID, input.UserID); err != nil {
		return nil, err
	}

	data, iv, err := s.encrypter.Encrypt(model.TrudeskCredential{
		UserName: input.UserName,
		Password: input.Password,
		BaseURL:  input.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt credential: %w", err)
	}

	cred := &model.Credential{
		ID:          generateID(),
		WorkspaceID: input.WorkspaceID,
		Name:        input.Name,
		Type:        model.CredentialTypeTrudesk,
		Data:        data,
		IV:          iv,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.CreateCredential(ctx, cred); err != nil {
		if errors.Is(err, repository.ErrWorkspaceNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, err
	}

	s.metrics.IncCredentialCreated()
	return cred, nil
}

// ListCredentials returns credential metadata visible to a member.
func (s *CredentialService) ListCredentials(ctx context.Context, workspaceID, userID, credType string) ([]*model.Credential, error) {
	if _, err := s.member(ctx, workspaceID, userID); err != nil {
		return nil, err
	}
	return s.store.ListCredentials(ctx, workspaceID, credType)
}

// DeleteCredential removes a credential. Guests may not delete.
func (s *CredentialService) DeleteCredential(ctx context.Context, id, workspaceID, userID string) error {
	if err := s.requireEditor(ctx, workspaceID, userID); err != nil {
		return err
	}

	if err := s.store.DeleteCredential(ctx, id, workspaceID); err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return ErrCredentialNotFound
		}
		return err
	}

	s.metrics.IncCredentialDeleted()
	return nil
}

func (s *CredentialService) validateTrudesk(input *CreateTrudeskInput) error {
	input.Name = strings.TrimSpace(input.Name)
	input.UserName = strings.TrimSpace(input.UserName)
	input.BaseURL = strings.TrimRight(strings.TrimSpace(input.BaseURL), "/")

	switch {
	case input.WorkspaceID == "":
		return fmt.Errorf("%w: workspace is required", ErrInvalidCredential)
	case input.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidCredential)
	case len(input.Name) > maxCredentialNameLength:
		return fmt.Errorf("%w: name is too long", ErrInvalidCredential)
	case input.UserName == "" || input.Password == "":
		return fmt.Errorf("%w: userName and password are required", ErrInvalidCredential)
	}

	if err := trudesk.ValidateBaseURL(input.BaseURL, s.allowPrivate); err != nil {
		return fmt.Errorf("%w: baseUrl: %v", ErrInvalidCredential, err)
	}
	return nil
}

func (s *CredentialService) member(ctx context.Context, workspaceID, userID string) (*model.WorkspaceMember, error) {
	m, err := s.store.GetWorkspaceMember(ctx, workspaceID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotMember) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	return m, nil
}

func (s *CredentialService) requireEditor(ctx context.Context, workspaceID, userID string) error {
	m, err := s.member(ctx, workspaceID, userID)
	if err != nil {
		return err
	}
	if !m.CanEdit() {
		return ErrForbidden
	}
	return nil
}
