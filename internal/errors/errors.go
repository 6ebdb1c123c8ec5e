// Package errors defines custom error types for the hybrid-channel protocol.
// These errors provide detailed information for debugging while maintaining
// security by not leaking sensitive information in error messages.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for cryptographic primitives
var (
	// ErrInvalidPublicKey indicates that a public key is malformed or has the wrong type
	ErrInvalidPublicKey = errors.New("crypto: invalid public key")

	// ErrInvalidPrivateKey indicates that a private key is missing, zeroized or has the wrong type
	ErrInvalidPrivateKey = errors.New("crypto: invalid private key")

	// ErrInvalidCiphertext indicates that a KEM ciphertext is malformed
	ErrInvalidCiphertext = errors.New("crypto: invalid ciphertext")

	// ErrInvalidLength indicates a key-derivation input or output of the wrong size
	ErrInvalidLength = errors.New("crypto: invalid length")
)

// Sentinel errors for the handshake
var (
	// ErrInvalidVersion indicates the peer advertised an unsupported protocol version
	ErrInvalidVersion = errors.New("handshake: invalid protocol version")

	// ErrInvalidKeySize indicates a received public key or ciphertext has the
	// wrong length or fails structural decoding
	ErrInvalidKeySize = errors.New("handshake: invalid key size")

	// ErrDecapsulationFailed is reserved for KEM decapsulation failure
	ErrDecapsulationFailed = errors.New("handshake: decapsulation failed")

	// ErrInvalidState indicates a handshake value was used out of order or twice
	ErrInvalidState = errors.New("handshake: invalid state")
)

// Sentinel errors for AEAD operations
var (
	// ErrAuthenticationFailed indicates AEAD authentication/decryption failed.
	// The cause is deliberately not differentiated.
	ErrAuthenticationFailed = errors.New("aead: authentication failed")
)

// Sentinel errors for the secure channel
var (
	// ErrDecryptionFailed indicates a record failed to decrypt; channel state is unchanged
	ErrDecryptionFailed = errors.New("channel: decryption failed")

	// ErrReplayDetected indicates a sequence number not above the last accepted one
	ErrReplayDetected = errors.New("channel: replay detected")

	// ErrInvalidSequence is reserved for stricter sequence policies
	ErrInvalidSequence = errors.New("channel: invalid sequence")

	// ErrNonceExhausted indicates the send counter cannot advance without wrapping
	ErrNonceExhausted = errors.New("channel: sequence space exhausted")

	// ErrChannelClosed indicates the channel keys have been zeroized
	ErrChannelClosed = errors.New("channel: closed")
)

// Sentinel errors for message encoding and framing
var (
	// ErrInvalidMessage indicates a protocol message is malformed
	ErrInvalidMessage = errors.New("protocol: invalid message")

	// ErrFrameTooLarge indicates a frame length above the configured maximum
	ErrFrameTooLarge = errors.New("frame: too large")
)

// Sentinel errors for listeners
var (
	// ErrRateLimited indicates a connection was refused by admission control
	ErrRateLimited = errors.New("listener: rate limit exceeded")
)

// CryptoError wraps a cryptographic error with additional context
type CryptoError struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// NewCryptoError creates a new CryptoError
func NewCryptoError(op string, err error) *CryptoError {
	return &CryptoError{Op: op, Err: err}
}

// ProtocolError wraps a protocol error with additional context
type ProtocolError struct {
	Phase string // Protocol phase (e.g., "handshake", "channel")
	Err   error  // Underlying error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol %s: %v", e.Phase, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// NewProtocolError creates a new ProtocolError
func NewProtocolError(phase string, err error) *ProtocolError {
	return &ProtocolError{Phase: phase, Err: err}
}

// FrameError reports a transport framing failure: an I/O error or an
// oversized frame. Either way the connection should be dropped.
type FrameError struct {
	Err error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame: %v", e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// NewFrameError creates a new FrameError
func NewFrameError(err error) *FrameError {
	return &FrameError{Err: err}
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
