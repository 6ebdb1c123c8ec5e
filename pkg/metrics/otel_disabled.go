//go:build !otel
// +build !otel

package metrics

import "context"

// OTelTracer is a no-op without the otel build tag.
type OTelTracer struct{}

// NewOTelTracer returns the no-op stub.
func NewOTelTracer(string) *OTelTracer {
	return &OTelTracer{}
}

// StartSpan returns a no-op span.
func (t *OTelTracer) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, SpanEnder) {
	return ctx, func(err error) {}
}

// OTelEnabled reports whether OpenTelemetry support is built in.
func OTelEnabled() bool {
	return false
}
