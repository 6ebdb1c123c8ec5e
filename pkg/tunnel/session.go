// Package tunnel implements the hybrid post-quantum channel: the handshake
// state machine, the sequence-numbered secure channel it produces, and a
// framed network transport that runs both over a net.Conn.
//
// The tunnel provides:
//   - Hybrid key exchange using ML-KEM-768 and X25519
//   - Authenticated encryption using ChaCha20-Poly1305
//   - Forward secrecy through ephemeral keys
//   - Strict replay protection through sequence numbers
package tunnel

import (
	"sync/atomic"

	qerrors "github.com/sara-star-quant/hybrid-channel/internal/errors"
	"github.com/sara-star-quant/hybrid-channel/pkg/crypto"
)

// Role indicates whether this endpoint is the initiator or responder.
type Role int

const (
	RoleInitiator Role = iota
	RoleResponder
)

// String returns "initiator" or "responder".
func (r Role) String() string {
	if r == RoleInitiator {
		return "initiator"
	}
	return "responder"
}

// Session is the result of a completed handshake.
//
// Both peers hold identical Keys and Transcript and differ only in IsClient.
// A Session is consumed once by NewChannel.
type Session struct {
	Keys       crypto.SessionKeys
	Transcript [32]byte
	IsClient   bool

	used atomic.Bool
}

func newSession(keys *crypto.SessionKeys, transcript [32]byte, isClient bool) *Session {
	s := &Session{
		Keys:       *keys,
		Transcript: transcript,
		IsClient:   isClient,
	}
	keys.Zeroize()
	return s
}

// Role returns the endpoint role of this session.
func (s *Session) Role() Role {
	if s.IsClient {
		return RoleInitiator
	}
	return RoleResponder
}

// NewChannel builds the SecureChannel for this session and erases the keys
// held by the Session. Only the first call succeeds; later calls return
// ErrInvalidState so two channels can never share a nonce space.
func (s *Session) NewChannel() (*SecureChannel, error) {
	if !s.used.CompareAndSwap(false, true) {
		return nil, channelError(qerrors.ErrInvalidState)
	}
	ch, err := NewSecureChannel(s.Keys, s.Transcript, s.IsClient)
	s.Keys.Zeroize()
	return ch, err
}
