package tunnel

import qerrors "github.com/sara-star-quant/hybrid-channel/internal/errors"

// Errors returned by the handshake, the secure channel and the transport.
// Match them with errors.Is; they usually arrive wrapped in a
// *ProtocolError or *FrameError carrying context.
var (
	ErrInvalidVersion      = qerrors.ErrInvalidVersion
	ErrInvalidKeySize      = qerrors.ErrInvalidKeySize
	ErrDecapsulationFailed = qerrors.ErrDecapsulationFailed
	ErrInvalidState        = qerrors.ErrInvalidState

	ErrAuthenticationFailed = qerrors.ErrAuthenticationFailed

	ErrDecryptionFailed = qerrors.ErrDecryptionFailed
	ErrReplayDetected   = qerrors.ErrReplayDetected
	ErrInvalidSequence  = qerrors.ErrInvalidSequence
	ErrNonceExhausted   = qerrors.ErrNonceExhausted
	ErrChannelClosed    = qerrors.ErrChannelClosed

	ErrInvalidMessage = qerrors.ErrInvalidMessage
	ErrFrameTooLarge  = qerrors.ErrFrameTooLarge

	ErrRateLimited = qerrors.ErrRateLimited
)

type (
	// ProtocolError wraps a handshake or channel failure with its phase.
	ProtocolError = qerrors.ProtocolError

	// FrameError reports a transport framing failure.
	FrameError = qerrors.FrameError

	// CryptoError wraps a primitive failure with the operation name.
	CryptoError = qerrors.CryptoError
)

func handshakeError(err error) error {
	return qerrors.NewProtocolError("handshake", err)
}

func channelError(err error) error {
	return qerrors.NewProtocolError("channel", err)
}

// isProtocolError reports whether err is the peer's fault rather than a
// local or network failure.
func isProtocolError(err error) bool {
	if err == nil {
		return false
	}
	var ferr *qerrors.FrameError
	if qerrors.As(err, &ferr) {
		return qerrors.Is(err, qerrors.ErrFrameTooLarge)
	}
	return qerrors.Is(err, qerrors.ErrInvalidMessage) ||
		qerrors.Is(err, qerrors.ErrInvalidVersion) ||
		qerrors.Is(err, qerrors.ErrInvalidKeySize) ||
		qerrors.Is(err, qerrors.ErrInvalidState)
}
