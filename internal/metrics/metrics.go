// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Catalog outcomes recorded by IncTicketCatalog.
const (
	OutcomeSuccess       = "success"
	OutcomeNotFound      = "not_found"
	OutcomeAuthFailed    = "auth_failed"
	OutcomeUpstreamError = "upstream_error"
	OutcomeInternal      = "internal"
)

// Recorder captures metric events for the application.
type Recorder interface {
	// Ticketing gateway metrics
	IncTicketCatalog(outcome string)
	ObserveUpstreamDuration(op string, duration time.Duration)

	// Credential management metrics
	IncCredentialCreated()
	IncCredentialDeleted()

	// Storage metrics
	IncUploadURLIssued(provider string)
}
