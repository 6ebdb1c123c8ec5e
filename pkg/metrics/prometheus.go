package metrics

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
)

// PrometheusExporter writes a Collector in the Prometheus text exposition format.
type PrometheusExporter struct {
	collector *Collector
	namespace string
}

// NewPrometheusExporter creates an exporter. namespace prefixes every metric
// name, e.g. "hybrid_channel".
func NewPrometheusExporter(c *Collector, namespace string) *PrometheusExporter {
	return &PrometheusExporter{
		collector: c,
		namespace: namespace,
	}
}

// Handler returns an http.Handler that serves the metrics.
func (e *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		e.WriteMetrics(w)
	})
}

type promScalar struct {
	name  string
	typ   string
	help  string
	value float64
}

// WriteMetrics writes all metrics to w.
func (e *PrometheusExporter) WriteMetrics(w io.Writer) {
	snap := e.collector.Snapshot()
	labels := formatLabels(snap.Labels)

	scalars := []promScalar{
		{"sessions_active", "gauge", "Connections currently open", float64(snap.SessionsActive)},
		{"sessions_total", "counter", "Connections started", float64(snap.SessionsTotal)},
		{"sessions_failed_total", "counter", "Handshakes that failed", float64(snap.SessionsFailed)},
		{"bytes_sent_total", "counter", "Plaintext bytes sent", float64(snap.BytesSent)},
		{"bytes_received_total", "counter", "Ciphertext bytes accepted", float64(snap.BytesReceived)},
		{"records_sent_total", "counter", "Records sent", float64(snap.RecordsSent)},
		{"records_received_total", "counter", "Records accepted", float64(snap.RecordsReceived)},
		{"replays_rejected_total", "counter", "Records rejected as replays", float64(snap.ReplaysRejected)},
		{"auth_failures_total", "counter", "Records that failed authentication", float64(snap.AuthFailures)},
		{"encrypt_errors_total", "counter", "Encrypt failures", float64(snap.EncryptErrors)},
		{"decrypt_errors_total", "counter", "Decrypt failures of any kind", float64(snap.DecryptErrors)},
		{"protocol_errors_total", "counter", "Malformed messages from peers", float64(snap.ProtocolErrors)},
		{"connection_rate_limited_total", "counter", "Connections refused by the per-IP cap", float64(snap.ConnectionRateLimits)},
		{"handshake_rate_limited_total", "counter", "Connections refused by the handshake rate", float64(snap.HandshakeRateLimits)},
		{"uptime_seconds", "gauge", "Time since the collector was created", snap.Uptime.Seconds()},
	}
	for _, m := range scalars {
		e.writeHeader(w, m.name, m.typ, m.help)
		fmt.Fprintf(w, "%s%s %g\n", e.fullName(m.name), braced(labels), m.value)
	}

	e.writeHistogram(w, "handshake_duration_milliseconds", "Handshake duration in milliseconds", labels, snap.HandshakeLatency)
	e.writeHistogram(w, "encrypt_duration_microseconds", "Encrypt duration in microseconds", labels, snap.EncryptLatency)
	e.writeHistogram(w, "decrypt_duration_microseconds", "Decrypt duration in microseconds", labels, snap.DecryptLatency)
}

func (e *PrometheusExporter) fullName(name string) string {
	if e.namespace == "" {
		return name
	}
	return e.namespace + "_" + name
}

func (e *PrometheusExporter) writeHeader(w io.Writer, name, typ, help string) {
	fmt.Fprintf(w, "# HELP %s %s\n", e.fullName(name), help)
	fmt.Fprintf(w, "# TYPE %s %s\n", e.fullName(name), typ)
}

func (e *PrometheusExporter) writeHistogram(w io.Writer, name, help, labels string, h HistogramSummary) {
	e.writeHeader(w, name, "histogram", help)
	full := e.fullName(name)

	for _, b := range h.Buckets {
		le := "+Inf"
		if !math.IsInf(b.UpperBound, 1) {
			le = fmt.Sprintf("%g", b.UpperBound)
		}
		fmt.Fprintf(w, "%s_bucket%s %d\n", full, braced(joinLabels(labels, `le="`+le+`"`)), b.Count)
	}
	fmt.Fprintf(w, "%s_sum%s %g\n", full, braced(labels), h.Sum)
	fmt.Fprintf(w, "%s_count%s %d\n", full, braced(labels), h.Count)
}

// formatLabels renders labels sorted by key.
func formatLabels(labels Labels) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf(`%s="%s"`, k, escapePromValue(labels[k])))
	}
	return strings.Join(parts, ",")
}

func joinLabels(a, b string) string {
	if a == "" {
		return b
	}
	return a + "," + b
}

func braced(labels string) string {
	if labels == "" {
		return ""
	}
	return "{" + labels + "}"
}

// escapePromValue escapes a string for use as a Prometheus label value.
func escapePromValue(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(s)
}
