package commands

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sara-star-quant/hybrid-channel/pkg/protocol"
	"github.com/sara-star-quant/hybrid-channel/pkg/tunnel"
)

func setupQuiet(t *testing.T) {
	t.Helper()
	logLevel, logFormat, tracing = "silent", "text", "simple"
	require.NoError(t, setup())
}

func startServer(t *testing.T, withMetrics bool) (addr string, metricsAddr string) {
	t.Helper()
	setupQuiet(t)

	ln, err := tunnel.Listen("tcp", "127.0.0.1:0", tunnelConfig())
	require.NoError(t, err)

	var mln net.Listener
	if withMetrics {
		mln, err = net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		metricsAddr = mln.Addr().String()
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- serve(ctx, ln, mln) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-errc)
	})
	return ln.Addr().String(), metricsAddr
}

func TestServerEchoesClientLines(t *testing.T) {
	addr, _ := startServer(t, false)

	conn, err := tunnel.Dial(context.Background(), "tcp", addr, tunnelConfig())
	require.NoError(t, err)
	defer conn.Close()

	var out bytes.Buffer
	in := strings.NewReader("hello\n\nworld\n")
	require.NoError(t, interact(conn, in, &out))
	require.Equal(t, "Server received: hello\nServer received: world\n", out.String())
}

func TestServerIdlePeerDoesNotBlockOthers(t *testing.T) {
	addr, _ := startServer(t, false)

	// Holds a socket open without ever sending a ClientHello.
	idle, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer idle.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	start := time.Now()
	conn, err := tunnel.Dial(ctx, "tcp", addr, tunnelConfig())
	require.NoError(t, err)
	defer conn.Close()
	require.Less(t, time.Since(start), 2*time.Second)

	var out bytes.Buffer
	require.NoError(t, exchange(conn, "still here", &out))
	require.Equal(t, "Server received: still here\n", out.String())
}

func TestServerDropsConnectionOnTamperedRecord(t *testing.T) {
	addr, _ := startServer(t, false)

	raw, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	conn, err := tunnel.Client(context.Background(), raw, tunnelConfig())
	require.NoError(t, err)
	defer conn.Close()

	var out bytes.Buffer
	require.NoError(t, exchange(conn, "first", &out))

	forged := &protocol.AppData{Seq: 2, Ciphertext: bytes.Repeat([]byte{0x42}, 32)}
	require.NoError(t, protocol.WriteFrame(raw, protocol.NewCodec().EncodeAppData(forged)))

	require.NoError(t, raw.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err = conn.Receive()
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, uint64(1), collector.Snapshot().AuthFailures)
}

func TestServerMetricsEndpoint(t *testing.T) {
	addr, metricsAddr := startServer(t, true)

	conn, err := tunnel.Dial(context.Background(), "tcp", addr, tunnelConfig())
	require.NoError(t, err)
	var out bytes.Buffer
	require.NoError(t, exchange(conn, "ping", &out))
	require.Equal(t, "Server received: ping\n", out.String())
	require.NoError(t, conn.Close())

	resp, err := http.Get("http://" + metricsAddr + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "hybrid_channel_records_sent_total")

	resp, err = http.Get("http://" + metricsAddr + "/healthz")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"self_test"`)
}

func TestBench(t *testing.T) {
	setupQuiet(t)

	var out bytes.Buffer
	require.NoError(t, runBench(context.Background(), &out, 3, 5, 64))
	require.Contains(t, out.String(), "handshakes: 3")
	require.Contains(t, out.String(), "records: 5 x 64 bytes")
}

func TestSetupRejectsBadFlags(t *testing.T) {
	defer func() { logLevel, logFormat, tracing = "", "text", "none" }()

	logLevel, logFormat, tracing = "loud", "text", "none"
	require.Error(t, setup())

	logLevel, logFormat, tracing = "", "yaml", "none"
	require.Error(t, setup())

	logLevel, logFormat, tracing = "", "text", "jaeger"
	require.Error(t, setup())
}
