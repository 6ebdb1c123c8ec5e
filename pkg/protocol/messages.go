// Package protocol defines the messages of the hybrid-channel protocol, their
// canonical wire encoding, the transcript hash over the handshake and the
// length-prefixed framing used on stream transports.
//
// This file (messages.go) implements the message flow:
//
//	Initiator                              Responder
//	    |                                      |
//	    | -------- ClientHello --------------> |
//	    |                                      |
//	    | <------- ServerHello --------------- |
//	    |                                      |
//	    |    === Channel Established ===       |
//	    |                                      |
//	    | <======= AppData ==================> |
//
// Every message travels in its own frame.
package protocol

import (
	"bytes"

	"github.com/sara-star-quant/hybrid-channel/internal/constants"
)

// ClientHello is sent by the initiator to begin the handshake.
type ClientHello struct {
	// Protocol version offered by the client
	Version uint8

	// Client's ML-KEM-768 encapsulation key (1184 bytes)
	MLKEMPublicKey []byte

	// Client's ephemeral X25519 public key
	X25519PublicKey [constants.X25519PublicKeySize]byte
}

// ServerHello is sent by the responder in response to ClientHello.
type ServerHello struct {
	// ML-KEM-768 ciphertext encapsulated to the client's key (1088 bytes)
	MLKEMCiphertext []byte

	// Server's ephemeral X25519 public key
	X25519PublicKey [constants.X25519PublicKeySize]byte
}

// AppData is one encrypted application record.
type AppData struct {
	// Sequence number, 1 for the first record in each direction
	Seq uint64

	// ChaCha20-Poly1305 ciphertext with the tag appended
	Ciphertext []byte
}

// Equal reports whether two ClientHellos are identical.
func (m *ClientHello) Equal(o *ClientHello) bool {
	return m.Version == o.Version &&
		bytes.Equal(m.MLKEMPublicKey, o.MLKEMPublicKey) &&
		m.X25519PublicKey == o.X25519PublicKey
}

// Equal reports whether two ServerHellos are identical.
func (m *ServerHello) Equal(o *ServerHello) bool {
	return bytes.Equal(m.MLKEMCiphertext, o.MLKEMCiphertext) &&
		m.X25519PublicKey == o.X25519PublicKey
}

// Clone returns a deep copy, so a retained hello cannot be changed through
// the caller's slices.
func (m *ClientHello) Clone() *ClientHello {
	c := *m
	c.MLKEMPublicKey = bytes.Clone(m.MLKEMPublicKey)
	return &c
}
