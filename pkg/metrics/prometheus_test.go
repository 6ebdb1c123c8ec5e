package metrics

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPrometheusExporterWriteMetrics(t *testing.T) {
	c := NewCollector(Labels{"instance": "test"})

	c.SessionStarted()
	c.RecordSent(1000)
	c.RecordReplayRejected()
	c.RecordHandshakeLatency(100 * time.Millisecond)

	exp := NewPrometheusExporter(c, "hybrid_channel")

	var buf bytes.Buffer
	exp.WriteMetrics(&buf)
	output := buf.String()

	for _, line := range []string{
		`hybrid_channel_sessions_active{instance="test"} 1`,
		`hybrid_channel_sessions_total{instance="test"} 1`,
		`hybrid_channel_bytes_sent_total{instance="test"} 1000`,
		`hybrid_channel_records_sent_total{instance="test"} 1`,
		`hybrid_channel_replays_rejected_total{instance="test"} 1`,
		`hybrid_channel_handshake_duration_milliseconds_count{instance="test"} 1`,
		"# HELP hybrid_channel_sessions_active",
		"# TYPE hybrid_channel_sessions_active gauge",
		"# TYPE hybrid_channel_sessions_total counter",
		"# TYPE hybrid_channel_handshake_duration_milliseconds histogram",
	} {
		if !strings.Contains(output, line) {
			t.Errorf("expected %q in output", line)
		}
	}
}

func TestPrometheusExporterHistogramBuckets(t *testing.T) {
	c := NewCollector(nil)
	c.RecordHandshakeLatency(3 * time.Millisecond)

	var buf bytes.Buffer
	NewPrometheusExporter(c, "hc").WriteMetrics(&buf)
	output := buf.String()

	if !strings.Contains(output, `hc_handshake_duration_milliseconds_bucket{le="+Inf"} 1`) {
		t.Error("expected +Inf bucket with one observation")
	}
	if !strings.Contains(output, `hc_handshake_duration_milliseconds_bucket{le="5"} 1`) {
		t.Error("expected le=5 bucket to contain the 3ms observation")
	}
	if !strings.Contains(output, `hc_handshake_duration_milliseconds_bucket{le="1"} 0`) {
		t.Error("expected le=1 bucket to be empty")
	}
}

func TestPrometheusExporterEmptyNamespace(t *testing.T) {
	var buf bytes.Buffer
	NewPrometheusExporter(NewCollector(nil), "").WriteMetrics(&buf)

	if !strings.Contains(buf.String(), "\nsessions_total 0\n") {
		t.Errorf("expected unprefixed metric names, got:\n%s", buf.String())
	}
}

func TestPrometheusExporterHandler(t *testing.T) {
	c := NewCollector(nil)
	c.SessionStarted()

	handler := NewPrometheusExporter(c, "test").Handler()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("expected text/plain content type, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "test_sessions_active 1") {
		t.Error("expected sessions_active in response")
	}
}

func TestFormatLabels(t *testing.T) {
	tests := []struct {
		labels Labels
		want   string
	}{
		{nil, ""},
		{Labels{"a": "1"}, `a="1"`},
		{Labels{"b": "2", "a": "1"}, `a="1",b="2"`},
	}
	for _, tt := range tests {
		if got := formatLabels(tt.labels); got != tt.want {
			t.Errorf("formatLabels(%v) = %q, want %q", tt.labels, got, tt.want)
		}
	}
}

func TestEscapePromValue(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{`a"b`, `a\"b`},
		{`a\b`, `a\\b`},
		{"a\nb", `a\nb`},
	}
	for _, tt := range tests {
		if got := escapePromValue(tt.in); got != tt.want {
			t.Errorf("escapePromValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
