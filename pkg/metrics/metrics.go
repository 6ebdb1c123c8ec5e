// Package metrics provides observability for hybrid channels: counters and
// latency histograms, Prometheus text export, tracing with an optional
// OpenTelemetry backend, and logrus logger construction.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector aggregates metrics from connections and listeners.
type Collector struct {
	// Session metrics
	sessionsActive   atomic.Uint64
	sessionsTotal    atomic.Uint64
	sessionsFailed   atomic.Uint64
	handshakeLatency *Histogram

	// Traffic metrics
	bytesSent       atomic.Uint64
	bytesReceived   atomic.Uint64
	recordsSent     atomic.Uint64
	recordsReceived atomic.Uint64

	// Security metrics
	replaysRejected atomic.Uint64
	authFailures    atomic.Uint64

	// Error metrics
	encryptErrors  atomic.Uint64
	decryptErrors  atomic.Uint64
	protocolErrors atomic.Uint64

	// Admission control
	connectionRateLimits atomic.Uint64
	handshakeRateLimits  atomic.Uint64

	encryptLatency *Histogram
	decryptLatency *Histogram

	createdAt time.Time
	labels    Labels
}

// Labels represents key-value pairs for metric labeling.
type Labels map[string]string

// NewCollector creates a new metrics collector.
func NewCollector(labels Labels) *Collector {
	if labels == nil {
		labels = make(Labels)
	}

	return &Collector{
		handshakeLatency: NewHistogram(HandshakeLatencyBuckets),
		encryptLatency:   NewHistogram(LatencyBuckets),
		decryptLatency:   NewHistogram(LatencyBuckets),
		createdAt:        time.Now(),
		labels:           labels,
	}
}

// Default bucket configurations for histograms.
var (
	// HandshakeLatencyBuckets for handshake duration (milliseconds).
	HandshakeLatencyBuckets = []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 1000}

	// LatencyBuckets for encrypt/decrypt operations (microseconds).
	LatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000}
)

// SessionStarted increments active and total session counters.
func (c *Collector) SessionStarted() {
	c.sessionsActive.Add(1)
	c.sessionsTotal.Add(1)
}

// SessionEnded decrements active session counter.
func (c *Collector) SessionEnded() {
	for {
		current := c.sessionsActive.Load()
		if current == 0 {
			return
		}
		if c.sessionsActive.CompareAndSwap(current, current-1) {
			return
		}
	}
}

// SessionFailed records a failed handshake.
func (c *Collector) SessionFailed() {
	c.sessionsFailed.Add(1)
}

// RecordHandshakeLatency records a handshake duration.
func (c *Collector) RecordHandshakeLatency(d time.Duration) {
	c.handshakeLatency.Observe(float64(d.Microseconds()) / 1000)
}

// RecordSent counts one record carrying n plaintext bytes.
func (c *Collector) RecordSent(n int) {
	c.recordsSent.Add(1)
	c.bytesSent.Add(uint64(n))
}

// RecordReceived counts one accepted record of n ciphertext bytes.
func (c *Collector) RecordReceived(n int) {
	c.recordsReceived.Add(1)
	c.bytesReceived.Add(uint64(n))
}

// RecordReplayRejected increments the replay counter.
func (c *Collector) RecordReplayRejected() {
	c.replaysRejected.Add(1)
}

// RecordAuthFailure increments the authentication failure counter.
func (c *Collector) RecordAuthFailure() {
	c.authFailures.Add(1)
}

// RecordEncryptError increments encryption error counter.
func (c *Collector) RecordEncryptError() {
	c.encryptErrors.Add(1)
}

// RecordDecryptError increments decryption error counter.
func (c *Collector) RecordDecryptError() {
	c.decryptErrors.Add(1)
}

// RecordProtocolError increments protocol error counter.
func (c *Collector) RecordProtocolError() {
	c.protocolErrors.Add(1)
}

// RecordConnectionRateLimit counts a connection refused by the per-IP cap.
func (c *Collector) RecordConnectionRateLimit() {
	c.connectionRateLimits.Add(1)
}

// RecordHandshakeRateLimit counts a connection refused by the handshake rate.
func (c *Collector) RecordHandshakeRateLimit() {
	c.handshakeRateLimits.Add(1)
}

// RecordEncryptLatency records encryption operation latency.
func (c *Collector) RecordEncryptLatency(d time.Duration) {
	c.encryptLatency.Observe(float64(d.Nanoseconds()) / 1000)
}

// RecordDecryptLatency records decryption operation latency.
func (c *Collector) RecordDecryptLatency(d time.Duration) {
	c.decryptLatency.Observe(float64(d.Nanoseconds()) / 1000)
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	Timestamp time.Time
	Uptime    time.Duration

	SessionsActive uint64
	SessionsTotal  uint64
	SessionsFailed uint64

	BytesSent       uint64
	BytesReceived   uint64
	RecordsSent     uint64
	RecordsReceived uint64

	ReplaysRejected uint64
	AuthFailures    uint64

	EncryptErrors  uint64
	DecryptErrors  uint64
	ProtocolErrors uint64

	ConnectionRateLimits uint64
	HandshakeRateLimits  uint64

	HandshakeLatency HistogramSummary
	EncryptLatency   HistogramSummary
	DecryptLatency   HistogramSummary

	Labels Labels
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		Timestamp:            time.Now(),
		Uptime:               time.Since(c.createdAt),
		SessionsActive:       c.sessionsActive.Load(),
		SessionsTotal:        c.sessionsTotal.Load(),
		SessionsFailed:       c.sessionsFailed.Load(),
		BytesSent:            c.bytesSent.Load(),
		BytesReceived:        c.bytesReceived.Load(),
		RecordsSent:          c.recordsSent.Load(),
		RecordsReceived:      c.recordsReceived.Load(),
		ReplaysRejected:      c.replaysRejected.Load(),
		AuthFailures:         c.authFailures.Load(),
		EncryptErrors:        c.encryptErrors.Load(),
		DecryptErrors:        c.decryptErrors.Load(),
		ProtocolErrors:       c.protocolErrors.Load(),
		ConnectionRateLimits: c.connectionRateLimits.Load(),
		HandshakeRateLimits:  c.handshakeRateLimits.Load(),
		HandshakeLatency:     c.handshakeLatency.Summary(),
		EncryptLatency:       c.encryptLatency.Summary(),
		DecryptLatency:       c.decryptLatency.Summary(),
		Labels:               c.labels,
	}
}

// Reset clears all metrics (useful for testing).
func (c *Collector) Reset() {
	for _, v := range []*atomic.Uint64{
		&c.sessionsActive, &c.sessionsTotal, &c.sessionsFailed,
		&c.bytesSent, &c.bytesReceived, &c.recordsSent, &c.recordsReceived,
		&c.replaysRejected, &c.authFailures,
		&c.encryptErrors, &c.decryptErrors, &c.protocolErrors,
		&c.connectionRateLimits, &c.handshakeRateLimits,
	} {
		v.Store(0)
	}
	c.handshakeLatency.Reset()
	c.encryptLatency.Reset()
	c.decryptLatency.Reset()
	c.createdAt = time.Now()
}

// --- Global Collector ---

var (
	globalCollector     *Collector
	globalCollectorOnce sync.Once
)

// Global returns the global metrics collector.
// Creates one with default settings if not already initialized.
func Global() *Collector {
	globalCollectorOnce.Do(func() {
		if globalCollector == nil {
			globalCollector = NewCollector(Labels{"instance": "default"})
		}
	})
	return globalCollector
}

// SetGlobal sets the global metrics collector.
// Should be called during initialization before any metrics are recorded.
func SetGlobal(c *Collector) {
	globalCollectorOnce.Do(func() {})
	globalCollector = c
}
