package middleware

import (
	"errors"
	"net/http"
	"regexp"
	"unicode"

	"github.com/go-chi/chi/v5"
)

// Validation limits.
const (
	// MaxIdentifierLength bounds route identifiers (workspace, credential,
	// typebot and result ids).
	MaxIdentifierLength = 64

	// MaxVariableNameLength bounds result variable names taken from the URL.
	MaxVariableNameLength = 128
)

// Validation errors.
var (
	ErrIdentifierEmpty       = errors.New("identifier is required")
	ErrIdentifierTooLong     = errors.New("identifier exceeds maximum length")
	ErrIdentifierInvalid     = errors.New("identifier contains invalid characters")
	ErrVariableNameEmpty     = errors.New("variable name is required")
	ErrVariableNameTooLong   = errors.New("variable name exceeds maximum length")
	ErrVariableNameMalformed = errors.New("variable name contains control characters")
)

// validIdentifierPattern matches cuid, ulid and uuid style ids.
var validIdentifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateIdentifier validates an id taken from a path or query parameter.
func ValidateIdentifier(id string) error {
	if id == "" {
		return ErrIdentifierEmpty
	}
	if len(id) > MaxIdentifierLength {
		return ErrIdentifierTooLong
	}
	if !validIdentifierPattern.MatchString(id) {
		return ErrIdentifierInvalid
	}
	return nil
}

// ValidateVariableName validates a result variable name. Names are free
// text chosen by bot authors, so only length and control characters are
// checked.
func ValidateVariableName(name string) error {
	if name == "" {
		return ErrVariableNameEmpty
	}
	if len(name) > MaxVariableNameLength {
		return ErrVariableNameTooLong
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return ErrVariableNameMalformed
		}
	}
	return nil
}

// ValidateIDParams returns middleware rejecting requests whose named chi
// URL parameters are not valid identifiers.
func ValidateIDParams(names ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, name := range names {
				if err := ValidateIdentifier(chi.URLParam(r, name)); err != nil {
					writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid "+name+": "+err.Error())
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
