package metrics

import (
	"github.com/sirupsen/logrus"

	"github.com/sara-star-quant/hybrid-channel/pkg/tunnel"
)

// RateLimitObserver implements tunnel.RateLimitObserver and records rate limit events.
type RateLimitObserver struct {
	collector *Collector
	log       *logrus.Entry
}

var _ tunnel.RateLimitObserver = (*RateLimitObserver)(nil)

// NewRateLimitObserver creates a rate limit observer that records metrics and logs events.
func NewRateLimitObserver(collector *Collector, logger *logrus.Logger) *RateLimitObserver {
	if collector == nil {
		collector = Global()
	}
	if logger == nil {
		logger = GetLogger()
	}

	return &RateLimitObserver{
		collector: collector,
		log:       logger.WithField("component", "rate_limit"),
	}
}

// OnConnectionRateLimit records a connection rate limit event.
func (o *RateLimitObserver) OnConnectionRateLimit(remoteIP string) {
	o.collector.RecordConnectionRateLimit()
	o.log.WithField("remote_ip", remoteIP).Warn("connection rate limit exceeded")
}

// OnHandshakeRateLimit records a handshake rate limit event.
func (o *RateLimitObserver) OnHandshakeRateLimit(remoteIP string) {
	o.collector.RecordHandshakeRateLimit()
	o.log.WithField("remote_ip", remoteIP).Warn("handshake rate limit exceeded")
}
