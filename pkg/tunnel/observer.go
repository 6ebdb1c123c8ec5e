package tunnel

import (
	"context"
	"net"
)

// Observer provides hooks for connection lifecycle, metrics, and tracing.
// Implementations should be lightweight; callbacks may run on hot paths.
type Observer interface {
	OnSessionStart()
	OnSessionEnd()
	OnSessionFailed(err error)
	OnHandshakeStart(ctx context.Context) (context.Context, func(error))
	OnEncrypt(ctx context.Context, plaintextLen int) (context.Context, func(error))
	OnDecrypt(ctx context.Context, ciphertextLen int) (context.Context, func(error))
	OnReplayDetected()
	OnAuthFailure()
	OnProtocolError(err error)
}

// ConnInfo describes a connection before its handshake runs.
type ConnInfo struct {
	ID         string // random, for correlating logs and spans
	Role       Role
	LocalAddr  net.Addr
	RemoteAddr net.Addr
}

// ObserverFactory builds a per-connection observer.
type ObserverFactory func(info ConnInfo) Observer

func observerFromConfig(config Config, info ConnInfo) Observer {
	if config.ObserverFactory != nil {
		if o := config.ObserverFactory(info); o != nil {
			return o
		}
	}
	if config.Observer != nil {
		return config.Observer
	}
	return noopObserver{}
}

type noopObserver struct{}

func (noopObserver) OnSessionStart()       {}
func (noopObserver) OnSessionEnd()         {}
func (noopObserver) OnSessionFailed(error) {}
func (noopObserver) OnReplayDetected()     {}
func (noopObserver) OnAuthFailure()        {}
func (noopObserver) OnProtocolError(error) {}

func (noopObserver) OnHandshakeStart(ctx context.Context) (context.Context, func(error)) {
	return ctx, func(error) {}
}

func (noopObserver) OnEncrypt(ctx context.Context, _ int) (context.Context, func(error)) {
	return ctx, func(error) {}
}

func (noopObserver) OnDecrypt(ctx context.Context, _ int) (context.Context, func(error)) {
	return ctx, func(error) {}
}
