//go:build otel
// +build otel

package metrics

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func TestOTelTracer(t *testing.T) {
	if !OTelEnabled() {
		t.Fatal("expected OTelEnabled with the otel tag")
	}

	tracer, err := NewTracer("otel", "", nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, end := tracer.StartSpan(context.Background(), SpanHandshakeInitiator,
		WithSpanKind(SpanKindClient),
		WithAttribute(AttrConnID, "abc"))
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}
	_, endChild := tracer.StartSpan(ctx, SpanEncrypt)
	endChild(errors.New("failed"))
	end(nil)
}

func TestOTelSpanKind(t *testing.T) {
	if otelSpanKind(SpanKindServer) != trace.SpanKindServer {
		t.Error("server kind")
	}
	if otelSpanKind(SpanKindClient) != trace.SpanKindClient {
		t.Error("client kind")
	}
	if otelSpanKind(SpanKindInternal) != trace.SpanKindInternal {
		t.Error("internal kind")
	}
}

func TestOTelAttributes(t *testing.T) {
	attrs := otelAttributes(map[string]interface{}{
		"s": "x",
		"b": true,
		"i": 3,
		"u": uint64(4),
		"f": 1.5,
		"o": struct{ A int }{7},
	})

	got := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, kv := range attrs {
		got[kv.Key] = kv.Value
	}
	if len(got) != 6 {
		t.Fatalf("expected 6 attributes, got %d", len(got))
	}
	if got["s"].AsString() != "x" || !got["b"].AsBool() || got["i"].AsInt64() != 3 || got["u"].AsInt64() != 4 {
		t.Errorf("unexpected attribute values: %v", got)
	}
	if got["o"].AsString() != "{7}" {
		t.Errorf("expected fallback string, got %q", got["o"].AsString())
	}
}
