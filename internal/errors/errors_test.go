package errors

import (
	"errors"
	"io"
	"strings"
	"testing"
)

// TestCryptoError tests CryptoError type.
func TestCryptoError(t *testing.T) {
	baseErr := errors.New("base error")
	cerr := NewCryptoError("mlkem768-encapsulate", baseErr)

	errStr := cerr.Error()
	if !strings.Contains(errStr, "mlkem768-encapsulate") {
		t.Errorf("Error string should contain operation: %q", errStr)
	}
	if !strings.Contains(errStr, "base error") {
		t.Errorf("Error string should contain base error: %q", errStr)
	}
	if cerr.Unwrap() != baseErr {
		t.Errorf("Unwrap() returned %v, want %v", cerr.Unwrap(), baseErr)
	}
}

// TestProtocolError tests ProtocolError type.
func TestProtocolError(t *testing.T) {
	perr := NewProtocolError("handshake", ErrInvalidVersion)

	errStr := perr.Error()
	if !strings.Contains(errStr, "handshake") {
		t.Errorf("Error string should contain phase: %q", errStr)
	}
	if !strings.Contains(errStr, "invalid protocol version") {
		t.Errorf("Error string should contain base error: %q", errStr)
	}
	if !errors.Is(perr, ErrInvalidVersion) {
		t.Error("ProtocolError should unwrap to its sentinel")
	}
}

// TestFrameError tests FrameError wrapping of I/O and size errors.
func TestFrameError(t *testing.T) {
	ferr := NewFrameError(io.ErrUnexpectedEOF)
	if !errors.Is(ferr, io.ErrUnexpectedEOF) {
		t.Error("FrameError should unwrap to the I/O error")
	}

	var target *FrameError
	if !As(NewProtocolError("transport", NewFrameError(ErrFrameTooLarge)), &target) {
		t.Fatal("As() should find FrameError through ProtocolError")
	}
	if !Is(target, ErrFrameTooLarge) {
		t.Error("extracted FrameError should match ErrFrameTooLarge")
	}
}

// TestSentinelErrors tests all sentinel error definitions.
func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		ErrInvalidPublicKey,
		ErrInvalidPrivateKey,
		ErrInvalidCiphertext,
		ErrInvalidLength,
		ErrInvalidVersion,
		ErrInvalidKeySize,
		ErrDecapsulationFailed,
		ErrInvalidState,
		ErrAuthenticationFailed,
		ErrDecryptionFailed,
		ErrReplayDetected,
		ErrInvalidSequence,
		ErrNonceExhausted,
		ErrChannelClosed,
		ErrInvalidMessage,
		ErrFrameTooLarge,
		ErrRateLimited,
	}

	seen := make(map[string]bool)
	for _, err := range sentinels {
		if err == nil {
			t.Fatal("sentinel is nil")
		}
		msg := err.Error()
		if msg == "" {
			t.Error("sentinel has empty message")
		}
		if seen[msg] {
			t.Errorf("duplicate sentinel message %q", msg)
		}
		seen[msg] = true
	}
}

// TestMixedErrorTypes tests mixing CryptoError and ProtocolError.
func TestMixedErrorTypes(t *testing.T) {
	cryptoErr := NewCryptoError("x25519", ErrInvalidPublicKey)
	protocolErr := NewProtocolError("handshake", cryptoErr)

	var ce *CryptoError
	if !errors.As(protocolErr, &ce) {
		t.Error("Should be able to extract CryptoError from ProtocolError wrapper")
	}
	if !errors.Is(protocolErr, ErrInvalidPublicKey) {
		t.Error("Should match base sentinel error through multiple wrappers")
	}
	if Is(protocolErr, ErrInvalidKeySize) {
		t.Error("Should not match an unrelated sentinel")
	}
}

// TestNilErrorHandling tests handling of nil errors.
func TestNilErrorHandling(t *testing.T) {
	if Is(nil, ErrInvalidKeySize) {
		t.Error("Is(nil, target) should return false")
	}
	var target *CryptoError
	if As(nil, &target) {
		t.Error("As(nil, target) should return false")
	}
}
