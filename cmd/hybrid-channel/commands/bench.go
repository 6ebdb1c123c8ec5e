package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sara-star-quant/hybrid-channel/pkg/metrics"
	"github.com/sara-star-quant/hybrid-channel/pkg/tunnel"
)

func benchCmd() *cobra.Command {
	var handshakes, records, size int
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure handshake latency and record throughput over loopback TCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handshakes <= 0 && records <= 0 {
				return errors.New("nothing to measure: set --handshakes or --records")
			}
			if size < 0 {
				return errors.New("--size must not be negative")
			}
			return runBench(cmd.Context(), cmd.OutOrStdout(), handshakes, records, size)
		},
	}

	cmd.Flags().IntVar(&handshakes, "handshakes", 100, "number of handshakes")
	cmd.Flags().IntVar(&records, "records", 0, "number of records to stream over one connection")
	cmd.Flags().IntVar(&size, "size", 1024, "record plaintext size in bytes")
	return cmd
}

func runBench(ctx context.Context, out io.Writer, handshakes, records, size int) error {
	bc := metrics.NewCollector(nil)

	serverCfg := tunnel.DefaultConfig()
	serverCfg.Log = logger.WithField("component", "bench")
	clientCfg := serverCfg
	clientCfg.ObserverFactory = metrics.ObserverFactory(metrics.TunnelObserverConfig{
		Collector: bc,
		Tracer:    metrics.NoOpTracer{},
		Logger:    logger,
	})

	ln, err := tunnel.Listen("tcp", "127.0.0.1:0", serverCfg)
	if err != nil {
		return err
	}
	defer func() { _ = ln.Close() }()
	addr := ln.Addr().String()

	conns := max(handshakes, 0)
	if records > 0 {
		conns++
	}

	var g errgroup.Group
	g.Go(func() error { return drain(ctx, ln, conns) })

	if handshakes > 0 {
		start := time.Now()
		for i := 0; i < handshakes; i++ {
			conn, err := tunnel.Dial(ctx, "tcp", addr, clientCfg)
			if err != nil {
				return errors.Wrapf(err, "handshake %d", i)
			}
			_ = conn.Close()
		}
		elapsed := time.Since(start)

		h := bc.Snapshot().HandshakeLatency
		fmt.Fprintf(out, "handshakes: %d in %v (%.1f/s)\n", handshakes, elapsed.Round(time.Millisecond),
			float64(handshakes)/elapsed.Seconds())
		fmt.Fprintf(out, "  latency ms: mean %.2f  p50 %.2f  p90 %.2f  p99 %.2f  max %.2f\n",
			h.Mean, h.P50, h.P90, h.P99, h.Max)
	}

	if records > 0 {
		conn, err := tunnel.Dial(ctx, "tcp", addr, clientCfg)
		if err != nil {
			return err
		}
		payload := make([]byte, size)

		start := time.Now()
		for i := 0; i < records; i++ {
			if err := conn.Send(payload); err != nil {
				_ = conn.Close()
				return errors.Wrapf(err, "record %d", i)
			}
		}
		_ = conn.Close()
		elapsed := time.Since(start)

		total := float64(records) * float64(size)
		fmt.Fprintf(out, "records: %d x %d bytes in %v (%.1f MiB/s)\n", records, size,
			elapsed.Round(time.Millisecond), total/elapsed.Seconds()/(1<<20))
		e := bc.Snapshot().EncryptLatency
		fmt.Fprintf(out, "  encrypt us: mean %.2f  p50 %.2f  p99 %.2f\n", e.Mean, e.P50, e.P99)
	}

	return g.Wait()
}

// drain accepts n connections and reads each until the peer closes it.
func drain(ctx context.Context, ln *tunnel.Listener, n int) error {
	var g errgroup.Group
	for i := 0; i < n; i++ {
		conn, err := ln.Accept(ctx)
		if err != nil {
			return err
		}
		g.Go(func() error {
			defer func() { _ = conn.Close() }()
			for {
				if _, err := conn.Receive(); err != nil {
					if errors.Is(err, io.EOF) {
						return nil
					}
					return err
				}
			}
		})
	}
	return g.Wait()
}
