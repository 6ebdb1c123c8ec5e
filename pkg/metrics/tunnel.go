package metrics

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sara-star-quant/hybrid-channel/pkg/tunnel"
)

// TunnelObserver implements tunnel.Observer by recording into a Collector,
// opening spans on a Tracer and logging through logrus.
type TunnelObserver struct {
	collector *Collector
	tracer    Tracer
	log       *logrus.Entry
	info      tunnel.ConnInfo
}

var _ tunnel.Observer = (*TunnelObserver)(nil)

// TunnelObserverConfig configures a tunnel observer. Nil fields fall back to
// the package globals.
type TunnelObserverConfig struct {
	Collector *Collector
	Tracer    Tracer
	Logger    *logrus.Logger
}

// NewTunnelObserver creates an observer for one connection.
func NewTunnelObserver(cfg TunnelObserverConfig, info tunnel.ConnInfo) *TunnelObserver {
	if cfg.Collector == nil {
		cfg.Collector = Global()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = GetTracer()
	}
	if cfg.Logger == nil {
		cfg.Logger = GetLogger()
	}

	fields := logrus.Fields{
		"component": "tunnel",
		"conn_id":   info.ID,
		"role":      info.Role.String(),
	}
	if info.RemoteAddr != nil {
		fields["remote"] = info.RemoteAddr.String()
	}

	return &TunnelObserver{
		collector: cfg.Collector,
		tracer:    cfg.Tracer,
		log:       cfg.Logger.WithFields(fields),
		info:      info,
	}
}

// ObserverFactory returns a tunnel.ObserverFactory building a TunnelObserver
// per connection, all sharing cfg.
func ObserverFactory(cfg TunnelObserverConfig) tunnel.ObserverFactory {
	return func(info tunnel.ConnInfo) tunnel.Observer {
		return NewTunnelObserver(cfg, info)
	}
}

// spanOptions tags a span with the connection it belongs to.
func (o *TunnelObserver) spanOptions(extra ...SpanOption) []SpanOption {
	return append([]SpanOption{
		WithAttribute(AttrConnID, o.info.ID),
		WithAttribute(AttrConnRole, o.info.Role.String()),
	}, extra...)
}

// OnSessionStart is called before the handshake begins.
func (o *TunnelObserver) OnSessionStart() {
	o.collector.SessionStarted()
	o.log.Debug("session started")
}

// OnSessionEnd is called once the connection is closed or its handshake failed.
func (o *TunnelObserver) OnSessionEnd() {
	o.collector.SessionEnded()
	o.log.Debug("session ended")
}

// OnSessionFailed is called when the handshake fails.
func (o *TunnelObserver) OnSessionFailed(err error) {
	o.collector.SessionFailed()
	o.log.WithError(err).Warn("session failed")
}

// OnHandshakeStart opens a handshake span and times it.
func (o *TunnelObserver) OnHandshakeStart(ctx context.Context) (context.Context, func(error)) {
	name, kind := SpanHandshakeInitiator, SpanKindClient
	if o.info.Role == tunnel.RoleResponder {
		name, kind = SpanHandshakeResponder, SpanKindServer
	}

	start := time.Now()
	ctx, endSpan := o.tracer.StartSpan(ctx, name, o.spanOptions(WithSpanKind(kind))...)

	return ctx, func(err error) {
		duration := time.Since(start)
		o.collector.RecordHandshakeLatency(duration)

		if err == nil {
			o.log.WithField("duration", duration.String()).Info("handshake completed")
		}
		endSpan(err)
	}
}

// OnEncrypt times one Encrypt call.
func (o *TunnelObserver) OnEncrypt(ctx context.Context, plaintextLen int) (context.Context, func(error)) {
	start := time.Now()
	ctx, endSpan := o.tracer.StartSpan(ctx, SpanEncrypt, o.spanOptions(WithAttribute(AttrRecordBytes, plaintextLen))...)

	return ctx, func(err error) {
		o.collector.RecordEncryptLatency(time.Since(start))
		if err != nil {
			o.collector.RecordEncryptError()
			o.log.WithError(err).Debug("encrypt failed")
		} else {
			o.collector.RecordSent(plaintextLen)
		}
		endSpan(err)
	}
}

// OnDecrypt times one Decrypt call.
func (o *TunnelObserver) OnDecrypt(ctx context.Context, ciphertextLen int) (context.Context, func(error)) {
	start := time.Now()
	ctx, endSpan := o.tracer.StartSpan(ctx, SpanDecrypt, o.spanOptions(WithAttribute(AttrRecordBytes, ciphertextLen))...)

	return ctx, func(err error) {
		o.collector.RecordDecryptLatency(time.Since(start))
		if err != nil {
			o.collector.RecordDecryptError()
		} else {
			o.collector.RecordReceived(ciphertextLen)
		}
		endSpan(err)
	}
}

// OnReplayDetected counts a rejected replay.
func (o *TunnelObserver) OnReplayDetected() {
	o.collector.RecordReplayRejected()
}

// OnAuthFailure counts a record that failed authentication.
func (o *TunnelObserver) OnAuthFailure() {
	o.collector.RecordAuthFailure()
}

// OnProtocolError counts a malformed message from the peer.
func (o *TunnelObserver) OnProtocolError(err error) {
	o.collector.RecordProtocolError()
	o.log.WithError(err).Warn("protocol error")
}

// Logger returns the observer's log entry.
func (o *TunnelObserver) Logger() *logrus.Entry {
	return o.log
}
