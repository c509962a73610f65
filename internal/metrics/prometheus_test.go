package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	p := NewPrometheus()

	p.IncTicketCatalog(OutcomeSuccess)
	p.IncTicketCatalog(OutcomeSuccess)
	p.IncTicketCatalog(OutcomeNotFound)
	p.ObserveUpstreamDuration("login", 120*time.Millisecond)
	p.IncCredentialCreated()
	p.IncUploadURLIssued("s3")

	assert.Equal(t, 2.0, testutil.ToFloat64(p.ticketCatalogs.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.ticketCatalogs.WithLabelValues(OutcomeNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.credentialsCreated))
	assert.Equal(t, 0.0, testutil.ToFloat64(p.credentialsDeleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.uploadURLs.WithLabelValues("s3")))

	families, err := p.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["flowbot_trudesk_upstream_duration_seconds"])
	assert.True(t, names["go_goroutines"])
}

func TestInMemoryRecorder(t *testing.T) {
	m := NewInMemory()
	m.IncTicketCatalog(OutcomeAuthFailed)
	m.ObserveUpstreamDuration("login", time.Second)
	m.ObserveUpstreamDuration("users", time.Second)
	m.IncCredentialCreated()
	m.IncCredentialDeleted()
	m.IncUploadURLIssued("azure")

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.TicketCatalogs[OutcomeAuthFailed])
	assert.Equal(t, uint64(1), snap.UpstreamCalls["login"])
	assert.Equal(t, 2*time.Second, snap.UpstreamDurationTotal)
	assert.Equal(t, uint64(1), snap.CredentialsCreated)
	assert.Equal(t, uint64(1), snap.CredentialsDeleted)
	assert.Equal(t, uint64(1), snap.UploadURLsIssued["azure"])

	// Snapshots are copies.
	snap.TicketCatalogs[OutcomeAuthFailed] = 99
	assert.Equal(t, uint64(1), m.Snapshot().TicketCatalogs[OutcomeAuthFailed])
}

var (
	_ Recorder = (*PrometheusRecorder)(nil)
	_ Recorder = (*InMemoryRecorder)(nil)
	_ Recorder = (*NoopRecorder)(nil)
)
