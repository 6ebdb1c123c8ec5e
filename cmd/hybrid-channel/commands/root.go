package commands

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sara-star-quant/hybrid-channel/pkg/crypto"
	"github.com/sara-star-quant/hybrid-channel/pkg/metrics"
	"github.com/sara-star-quant/hybrid-channel/pkg/tunnel"
)

const serviceName = "hybrid-channel"

var (
	logLevel  string
	logFormat string
	tracing   string

	logger    *logrus.Logger
	collector *metrics.Collector
	tracer    metrics.Tracer
)

func Execute() error {
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Hybrid ML-KEM-768 + X25519 encrypted channel",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "trace, debug, info, warn, error or silent (default $LOG, else info)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "text or json")
	root.PersistentFlags().StringVar(&tracing, "tracing", "none", "none, simple or otel (otel needs -tags otel)")

	root.AddCommand(serverCmd(), clientCmd(), benchCmd(), versionCmd())

	err := root.Execute()
	if err != nil {
		if logger == nil {
			logger = metrics.NewLogger()
		}
		logger.WithError(err).Error("command failed")
	}
	return err
}

func setup() error {
	format, err := metrics.ParseFormat(logFormat)
	if err != nil {
		return err
	}
	opts := []metrics.LoggerOption{metrics.WithFormat(format)}
	if logLevel != "" {
		level, silent, err := metrics.ParseLevel(logLevel)
		if err != nil {
			return errors.Wrap(err, "--log-level")
		}
		opts = append(opts, metrics.WithLevel(level))
		if silent {
			opts = append(opts, metrics.WithSilent())
		}
	}
	logger = metrics.NewLogger(opts...)
	metrics.SetLogger(logger)

	tracer, err = metrics.NewTracer(tracing, serviceName, logger.WithField("component", "trace"))
	if err != nil {
		return err
	}
	metrics.SetTracer(tracer)

	collector = metrics.NewCollector(metrics.Labels{"service": serviceName})
	metrics.SetGlobal(collector)

	if err := selfTest(); err != nil {
		return err
	}
	logger.Debug("self-tests passed")
	return nil
}

// selfTest runs the primitive self-tests. It doubles as a health check.
func selfTest() error {
	res := crypto.RunSelfTest()
	if !res.Passed {
		return errors.Errorf("self-test: %s", strings.Join(res.Errors, "; "))
	}
	return nil
}

// tunnelConfig returns the transport config shared by every command.
func tunnelConfig() tunnel.Config {
	cfg := tunnel.DefaultConfig()
	cfg.Log = logger.WithField("component", "transport")
	cfg.ObserverFactory = metrics.ObserverFactory(metrics.TunnelObserverConfig{
		Collector: collector,
		Tracer:    tracer,
		Logger:    logger,
	})
	return cfg
}
