package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncTicketCatalog is a no-op.
func (n *NoopRecorder) IncTicketCatalog(outcome string) {}

// ObserveUpstreamDuration is a no-op.
func (n *NoopRecorder) ObserveUpstreamDuration(op string, duration time.Duration) {}

// IncCredentialCreated is a no-op.
func (n *NoopRecorder) IncCredentialCreated() {}

// IncCredentialDeleted is a no-op.
func (n *NoopRecorder) IncCredentialDeleted() {}

// IncUploadURLIssued is a no-op.
func (n *NoopRecorder) IncUploadURLIssued(provider string) {}
