// Package service provides business logic for the application.
package service

import (
	"errors"
	"strings"

	"github.com/oklog/ulid/v2"
)

// Service errors.
var (
	ErrForbidden          = errors.New("not allowed in this workspace")
	ErrInvalidCredential  = errors.New("invalid credential")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrWorkspaceNotFound  = errors.New("workspace not found")
)

// generateID returns a lowercase ULID.
func generateID() string {
	return strings.ToLower(ulid.Make().String())
}
