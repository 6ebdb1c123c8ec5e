package commands

import (
	"context"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sara-star-quant/hybrid-channel/pkg/metrics"
	"github.com/sara-star-quant/hybrid-channel/pkg/tunnel"
	"github.com/sara-star-quant/hybrid-channel/pkg/version"
)

func serverCmd() *cobra.Command {
	var (
		addr        string
		metricsAddr string
		limits      tunnel.RateLimitConfig
	)
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Accept connections and echo each message back",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, addr, metricsAddr, limits)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /healthz here (empty disables)")
	cmd.Flags().IntVar(&limits.MaxConnectionsPerIP, "max-conns-per-ip", 0, "concurrent connections per remote IP (0 = unlimited)")
	cmd.Flags().Float64Var(&limits.HandshakeRateLimit, "handshake-rate", 0, "handshakes per second across all peers (0 = unlimited)")
	cmd.Flags().IntVar(&limits.HandshakeBurst, "handshake-burst", 0, "handshake burst size (default 1 when --handshake-rate is set)")
	return cmd
}

func runServer(ctx context.Context, addr, metricsAddr string, limits tunnel.RateLimitConfig) error {
	cfg := tunnelConfig()
	cfg.RateLimit = limits
	cfg.RateLimitObserver = metrics.NewRateLimitObserver(collector, logger)

	ln, err := tunnel.Listen("tcp", addr, cfg)
	if err != nil {
		return err
	}

	var mln net.Listener
	if metricsAddr != "" {
		mln, err = net.Listen("tcp", metricsAddr)
		if err != nil {
			_ = ln.Close()
			return errors.Wrapf(err, "listen %s", metricsAddr)
		}
	}
	return serve(ctx, ln, mln)
}

// serve runs the echo loop on ln, and the metrics endpoint on mln when it
// is non-nil, until ctx is cancelled. Both listeners are closed on return.
func serve(ctx context.Context, ln *tunnel.Listener, mln net.Listener) error {
	log := logger.WithField("component", "server")
	log.WithField("addr", ln.Addr().String()).Info("listening")

	g, ctx := errgroup.WithContext(ctx)

	if mln != nil {
		srv := metrics.NewServer(metrics.ServerConfig{
			Collector: collector,
			Version:   version.String(),
			Logger:    logger,
		})
		srv.AddHealthCheck("self_test", selfTest)
		log.WithField("addr", mln.Addr().String()).Info("serving metrics")
		g.Go(func() error { return srv.Serve(ctx, mln) })
	}

	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})

	g.Go(func() error {
		for {
			pending, err := ln.Admit()
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if err != nil {
				log.WithError(err).Warn("connection rejected")
				continue
			}
			g.Go(func() error {
				conn, err := pending.Handshake(ctx)
				if err != nil {
					log.WithError(err).WithField("remote", pending.RemoteAddr().String()).Warn("handshake failed")
					return nil
				}
				echo(ctx, conn, log)
				return nil
			})
		}
	})

	err := g.Wait()
	log.Info("server stopped")
	return err
}

// echo answers every record on conn with "Server received: <msg>" until the
// peer leaves, a record is rejected, or ctx is cancelled.
func echo(ctx context.Context, conn *tunnel.Conn, log *logrus.Entry) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer func() { _ = conn.Close() }()

	log = log.WithFields(logrus.Fields{
		"conn_id": conn.ID(),
		"remote":  conn.RemoteAddr().String(),
	})
	log.Info("client connected")

	for {
		msg, err := conn.Receive()
		switch {
		case err == nil:
		case errors.Is(err, tunnel.ErrReplayDetected), errors.Is(err, tunnel.ErrDecryptionFailed):
			log.WithError(err).Warn("record rejected, dropping connection")
			return
		case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed), errors.Is(err, tunnel.ErrChannelClosed):
			log.Info("client disconnected")
			return
		default:
			log.WithError(err).Warn("receive failed")
			return
		}

		if err := conn.Send([]byte("Server received: " + string(msg))); err != nil {
			log.WithError(err).Warn("send failed")
			return
		}
	}
}
