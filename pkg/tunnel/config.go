package tunnel

import (
	"io"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Config holds configuration for connections and listeners.
type Config struct {
	// ReadTimeout bounds each Receive. Zero means no deadline.
	ReadTimeout time.Duration

	// WriteTimeout bounds each Send. Zero means no deadline.
	WriteTimeout time.Duration

	// HandshakeTimeout bounds the whole handshake. Zero means no deadline.
	HandshakeTimeout time.Duration

	// Handshaker selects the algorithms. Nil means DefaultHandshaker.
	Handshaker *Handshaker

	// Log receives connection events. Nil discards them.
	Log *logrus.Entry

	// Observer is a shared observer for all connections (ignored if ObserverFactory is set).
	Observer Observer

	// ObserverFactory builds a per-connection observer (takes precedence over Observer).
	ObserverFactory ObserverFactory

	RateLimit RateLimitConfig

	// RateLimitObserver receives notifications when rate limits are hit.
	RateLimitObserver RateLimitObserver

	// Clock drives the handshake rate limiter. Nil means the real clock.
	Clock clockwork.Clock
}

// RateLimitConfig holds listener admission limits.
type RateLimitConfig struct {
	// MaxConnectionsPerIP is the maximum number of concurrent connections allowed from a single IP.
	// 0 means no limit.
	MaxConnectionsPerIP int

	// HandshakeRateLimit is the maximum number of handshakes per second allowed globally.
	// 0 means no limit.
	HandshakeRateLimit float64

	// HandshakeBurst is the maximum burst of handshakes allowed.
	// If 0, defaults to 1 when HandshakeRateLimit is set.
	HandshakeBurst int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:      0,
		WriteTimeout:     30 * time.Second,
		HandshakeTimeout: 10 * time.Second,
	}
}

func (c Config) handshaker() *Handshaker {
	if c.Handshaker != nil {
		return c.Handshaker
	}
	return DefaultHandshaker()
}

func (c Config) log() *logrus.Entry {
	if c.Log != nil {
		return c.Log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func (c Config) clock() clockwork.Clock {
	if c.Clock != nil {
		return c.Clock
	}
	return clockwork.NewRealClock()
}

