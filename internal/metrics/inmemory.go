package metrics

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	TicketCatalogs        map[string]uint64
	UpstreamCalls         map[string]uint64
	UpstreamDurationTotal time.Duration
	CredentialsCreated    uint64
	CredentialsDeleted    uint64
	UploadURLsIssued      map[string]uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu                 sync.Mutex
	ticketCatalogs     map[string]uint64
	upstreamCalls      map[string]uint64
	upstreamDurationNs int64
	uploadURLs         map[string]uint64

	credentialsCreated uint64
	credentialsDeleted uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		ticketCatalogs: make(map[string]uint64),
		upstreamCalls:  make(map[string]uint64),
		uploadURLs:     make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		TicketCatalogs:        maps.Clone(m.ticketCatalogs),
		UpstreamCalls:         maps.Clone(m.upstreamCalls),
		UpstreamDurationTotal: time.Duration(atomic.LoadInt64(&m.upstreamDurationNs)),
		CredentialsCreated:    atomic.LoadUint64(&m.credentialsCreated),
		CredentialsDeleted:    atomic.LoadUint64(&m.credentialsDeleted),
		UploadURLsIssued:      maps.Clone(m.uploadURLs),
	}
}

// IncTicketCatalog counts a gateway request by outcome.
func (m *InMemoryRecorder) IncTicketCatalog(outcome string) {
	m.mu.Lock()
	m.ticketCatalogs[outcome]++
	m.mu.Unlock()
}

// ObserveUpstreamDuration records one helpdesk call.
func (m *InMemoryRecorder) ObserveUpstreamDuration(op string, duration time.Duration) {
	m.mu.Lock()
	m.upstreamCalls[op]++
	m.mu.Unlock()
	atomic.AddInt64(&m.upstreamDurationNs, duration.Nanoseconds())
}

// IncCredentialCreated increments credential created counter.
func (m *InMemoryRecorder) IncCredentialCreated() {
	atomic.AddUint64(&m.credentialsCreated, 1)
}

// IncCredentialDeleted increments credential deleted counter.
func (m *InMemoryRecorder) IncCredentialDeleted() {
	atomic.AddUint64(&m.credentialsDeleted, 1)
}

// IncUploadURLIssued counts a presigned upload URL by provider.
func (m *InMemoryRecorder) IncUploadURLIssued(provider string) {
	m.mu.Lock()
	m.uploadURLs[provider]++
	m.mu.Unlock()
}
