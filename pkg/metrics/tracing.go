package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Span names opened by TunnelObserver.
const (
	SpanHandshakeInitiator = "hybrid.handshake.initiator"
	SpanHandshakeResponder = "hybrid.handshake.responder"
	SpanEncrypt            = "hybrid.channel.encrypt"
	SpanDecrypt            = "hybrid.channel.decrypt"
)

// Span attribute keys set by TunnelObserver.
const (
	AttrConnID      = "conn.id"
	AttrConnRole    = "conn.role"
	AttrRecordBytes = "record.bytes"
)

// Tracer opens a span around one handshake or record operation.
type Tracer interface {
	StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, SpanEnder)
}

// SpanEnder finishes a span. A non-nil error marks it failed.
type SpanEnder func(err error)

// SpanOption configures a span at start.
type SpanOption func(*spanConfig)

type spanConfig struct {
	kind  SpanKind
	attrs map[string]interface{}
}

func newSpanConfig(opts []SpanOption) spanConfig {
	cfg := spanConfig{kind: SpanKindInternal}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// SpanKind says which side of the channel a span belongs to.
type SpanKind int

const (
	SpanKindInternal SpanKind = iota
	SpanKindServer
	SpanKindClient
)

// WithSpanKind sets the span kind.
func WithSpanKind(kind SpanKind) SpanOption {
	return func(c *spanConfig) { c.kind = kind }
}

// WithAttribute attaches one attribute to the span.
func WithAttribute(key string, value interface{}) SpanOption {
	return func(c *spanConfig) {
		if c.attrs == nil {
			c.attrs = make(map[string]interface{})
		}
		c.attrs[key] = value
	}
}

// NoOpTracer discards every span.
type NoOpTracer struct{}

// StartSpan returns ctx unchanged.
func (NoOpTracer) StartSpan(ctx context.Context, _ string, _ ...SpanOption) (context.Context, SpanEnder) {
	return ctx, func(error) {}
}

// DefaultSpanLogSize is how many finished spans a SpanLog retains.
const DefaultSpanLogSize = 1024

// SpanRecord is a finished span kept by a SpanLog.
type SpanRecord struct {
	Name     string
	Kind     SpanKind
	ID       string
	ConnID   string // from the conn.id attribute
	Start    time.Time
	Duration time.Duration
	Attrs    map[string]interface{}
	Err      error
}

// SpanLog is the tracer behind --tracing=simple. Each finished span is logged
// at debug level and the most recent ones are kept for inspection.
type SpanLog struct {
	log  *logrus.Entry
	keep int

	mu    sync.Mutex
	spans []SpanRecord
}

// NewSpanLog creates a SpanLog retaining up to keep spans (DefaultSpanLogSize
// if keep <= 0). A nil log keeps spans in memory only.
func NewSpanLog(log *logrus.Entry, keep int) *SpanLog {
	if keep <= 0 {
		keep = DefaultSpanLogSize
	}
	return &SpanLog{log: log, keep: keep}
}

// StartSpan starts a span. ctx is returned unchanged.
func (t *SpanLog) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, SpanEnder) {
	cfg := newSpanConfig(opts)
	rec := SpanRecord{
		Name:  name,
		Kind:  cfg.kind,
		ID:    uuid.NewString(),
		Start: time.Now(),
		Attrs: cfg.attrs,
	}
	if id, ok := cfg.attrs[AttrConnID].(string); ok {
		rec.ConnID = id
	}

	return ctx, func(err error) {
		rec.Duration = time.Since(rec.Start)
		rec.Err = err
		t.finish(rec)
	}
}

func (t *SpanLog) finish(rec SpanRecord) {
	if t.log != nil {
		entry := t.log.WithFields(logrus.Fields(rec.Attrs)).WithFields(logrus.Fields{
			"span":     rec.Name,
			"span_id":  rec.ID,
			"duration": rec.Duration.String(),
		})
		if rec.Err != nil {
			entry.WithError(rec.Err).Debug("span failed")
		} else {
			entry.Debug("span finished")
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.spans) == t.keep {
		n := copy(t.spans, t.spans[1:])
		t.spans = t.spans[:n]
	}
	t.spans = append(t.spans, rec)
}

// Spans returns the retained spans, oldest first.
func (t *SpanLog) Spans() []SpanRecord {
	return t.filter(func(SpanRecord) bool { return true })
}

// Named returns the retained spans called name.
func (t *SpanLog) Named(name string) []SpanRecord {
	return t.filter(func(r SpanRecord) bool { return r.Name == name })
}

// ForConn returns the retained spans of one connection.
func (t *SpanLog) ForConn(connID string) []SpanRecord {
	return t.filter(func(r SpanRecord) bool { return r.ConnID == connID })
}

func (t *SpanLog) filter(keep func(SpanRecord) bool) []SpanRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []SpanRecord
	for _, r := range t.spans {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

var (
	globalTracer   Tracer = NoOpTracer{}
	globalTracerMu sync.RWMutex
)

// SetTracer sets the tracer observers fall back to.
func SetTracer(t Tracer) {
	globalTracerMu.Lock()
	defer globalTracerMu.Unlock()
	globalTracer = t
}

// GetTracer returns the global tracer.
func GetTracer() Tracer {
	globalTracerMu.RLock()
	defer globalTracerMu.RUnlock()
	return globalTracer
}

// NewTracer returns the tracer selected by name: "none", "simple" or "otel".
// "simple" logs finished spans to log. "otel" fails unless the binary was
// built with the otel tag.
func NewTracer(name, serviceName string, log *logrus.Entry) (Tracer, error) {
	switch name {
	case "", "none":
		return NoOpTracer{}, nil
	case "simple":
		return NewSpanLog(log, 0), nil
	case "otel":
		if !OTelEnabled() {
			return nil, fmt.Errorf("tracer %q requires building with -tags otel", name)
		}
		return NewOTelTracer(serviceName), nil
	default:
		return nil, fmt.Errorf("unknown tracer %q", name)
	}
}
