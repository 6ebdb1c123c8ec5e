// handshake.go implements the hybrid ML-KEM-768 + X25519 handshake.
//
// Handshake Protocol:
//
//	Initiator                              Responder
//	    |                                      |
//	    | -------- ClientHello --------------> |
//	    |   - version                          |
//	    |   - ML-KEM-768 public key            |
//	    |   - ephemeral X25519 public key      |
//	    |                                      |
//	    |          [encapsulate, DH, derive]   |
//	    |                                      |
//	    | <------- ServerHello --------------- |
//	    |   - ML-KEM-768 ciphertext            |
//	    |   - ephemeral X25519 public key      |
//	    |                                      |
//	    |   [decapsulate, DH, derive]          |
//	    |                                      |
//	    |    === Channel Established ===       |
//
// Both sides compute transcript = SHA-256(ClientHello || ServerHello) and
// derive session keys from ss_pq || ss_classical salted with it. There is no
// Finished exchange: a tampered hello yields different keys on the two sides,
// and the first record fails to authenticate.
//
// Security Properties:
//   - Hybrid secrecy: the session survives a break of either ML-KEM or X25519
//   - Forward secrecy: all key pairs are ephemeral and zeroized after use
//   - No peer authentication: this is unauthenticated key agreement
package tunnel

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/sara-star-quant/hybrid-channel/internal/constants"
	qerrors "github.com/sara-star-quant/hybrid-channel/internal/errors"
	"github.com/sara-star-quant/hybrid-channel/pkg/crypto"
	"github.com/sara-star-quant/hybrid-channel/pkg/protocol"
)

// HandshakeState represents the progress of one handshake attempt.
type HandshakeState int

const (
	HandshakeStateIdle HandshakeState = iota
	HandshakeStateHelloSent
	HandshakeStateHelloReceived
	HandshakeStateEstablished
	HandshakeStateFailed
)

// String returns a human-readable name for the handshake state.
func (s HandshakeState) String() string {
	switch s {
	case HandshakeStateIdle:
		return "Idle"
	case HandshakeStateHelloSent:
		return "HelloSent"
	case HandshakeStateHelloReceived:
		return "HelloReceived"
	case HandshakeStateEstablished:
		return "Established"
	case HandshakeStateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Handshaker runs the handshake with a given pair of algorithms.
// The zero value is not usable; start from DefaultHandshaker.
type Handshaker struct {
	// KEM is the post-quantum key encapsulation.
	KEM crypto.KEM

	// DH is the classical key agreement. Its public keys must be 32 bytes.
	DH crypto.DH
}

// DefaultHandshaker returns a Handshaker using ML-KEM-768 and X25519.
func DefaultHandshaker() *Handshaker {
	return &Handshaker{
		KEM: crypto.MLKEM768{},
		DH:  crypto.X25519{},
	}
}

// ClientState is the initiator's in-flight handshake: its ephemeral secrets
// and the ClientHello it sent. It is single-use; HandleServerHello consumes it
// whether or not the handshake succeeds.
type ClientState struct {
	mu    sync.Mutex
	state HandshakeState
	hello *protocol.ClientHello
	kemSK crypto.PrivateKey
	dhSK  crypto.PrivateKey
}

// State returns the current handshake state.
func (s *ClientState) State() HandshakeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Abort discards the ephemeral secrets without completing the handshake.
func (s *ClientState) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == HandshakeStateHelloSent {
		s.finish(HandshakeStateFailed)
	}
}

// finish zeroizes the secrets and moves to a terminal state. Callers hold mu.
func (s *ClientState) finish(state HandshakeState) {
	if s.kemSK != nil {
		s.kemSK.Zeroize()
		s.kemSK = nil
	}
	if s.dhSK != nil {
		s.dhSK.Zeroize()
		s.dhSK = nil
	}
	s.state = state
}

// GenerateClientHello starts a handshake with the default algorithms.
func GenerateClientHello() (*protocol.ClientHello, *ClientState, error) {
	return DefaultHandshaker().GenerateClientHello()
}

// HandleClientHello answers a ClientHello with the default algorithms.
func HandleClientHello(ch *protocol.ClientHello) (*protocol.ServerHello, *Session, error) {
	return DefaultHandshaker().HandleClientHello(ch)
}

// HandleServerHello finishes a handshake with the default algorithms.
func HandleServerHello(sh *protocol.ServerHello, state *ClientState) (*Session, error) {
	return DefaultHandshaker().HandleServerHello(sh, state)
}

// --- Initiator Functions ---

// GenerateClientHello generates fresh ML-KEM and X25519 key pairs and the
// ClientHello that carries their public halves.
func (h *Handshaker) GenerateClientHello() (*protocol.ClientHello, *ClientState, error) {
	kemPK, kemSK, err := h.KEM.GenerateKeyPair()
	if err != nil {
		return nil, nil, handshakeError(err)
	}
	dhPK, dhSK, err := h.DH.GenerateKeyPair()
	if err != nil {
		kemSK.Zeroize()
		return nil, nil, handshakeError(err)
	}

	ch := &protocol.ClientHello{
		Version:        protocol.Current,
		MLKEMPublicKey: kemPK.Bytes(),
	}
	if err := putDHPublicKey(&ch.X25519PublicKey, dhPK); err != nil {
		kemSK.Zeroize()
		dhSK.Zeroize()
		return nil, nil, handshakeError(err)
	}

	state := &ClientState{
		state: HandshakeStateHelloSent,
		hello: ch.Clone(),
		kemSK: kemSK,
		dhSK:  dhSK,
	}
	return ch, state, nil
}

// HandleServerHello decapsulates the ML-KEM ciphertext, completes the X25519
// exchange and derives the client's Session.
//
// The state is consumed by this call. A second call with the same state
// returns ErrInvalidState.
func (h *Handshaker) HandleServerHello(sh *protocol.ServerHello, state *ClientState) (*Session, error) {
	if state == nil {
		return nil, handshakeError(qerrors.ErrInvalidState)
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.state != HandshakeStateHelloSent {
		return nil, handshakeError(qerrors.ErrInvalidState)
	}

	session, err := h.completeClient(sh, state)
	if err != nil {
		state.finish(HandshakeStateFailed)
		return nil, handshakeError(err)
	}
	state.finish(HandshakeStateEstablished)
	return session, nil
}

func (h *Handshaker) completeClient(sh *protocol.ServerHello, state *ClientState) (*Session, error) {
	if sh == nil {
		return nil, qerrors.ErrInvalidMessage
	}
	if len(sh.MLKEMCiphertext) != h.KEM.CiphertextSize() {
		return nil, errors.Wrapf(qerrors.ErrInvalidKeySize, "%s ciphertext is %d bytes", h.KEM.Name(), len(sh.MLKEMCiphertext))
	}

	ssPQ, err := h.KEM.Decapsulate(state.kemSK, sh.MLKEMCiphertext)
	if err != nil {
		if qerrors.Is(err, qerrors.ErrInvalidCiphertext) {
			return nil, errors.Wrap(qerrors.ErrInvalidKeySize, err.Error())
		}
		return nil, errors.Wrap(qerrors.ErrDecapsulationFailed, err.Error())
	}
	defer crypto.Zeroize(ssPQ)

	ssClassical, err := h.dhWithPeer(state.dhSK, sh.X25519PublicKey[:])
	if err != nil {
		return nil, err
	}
	defer crypto.Zeroize(ssClassical)

	transcript := protocol.ComputeTranscript(state.hello, sh)
	keys, err := crypto.DeriveSessionKeys(ssPQ, ssClassical, transcript)
	if err != nil {
		return nil, err
	}
	return newSession(keys, transcript, true), nil
}

// --- Responder Functions ---

// HandleClientHello validates a ClientHello, encapsulates to the client's
// ML-KEM key, runs X25519 with a fresh ephemeral key and derives the
// server's Session.
func (h *Handshaker) HandleClientHello(ch *protocol.ClientHello) (*protocol.ServerHello, *Session, error) {
	sh, session, err := h.respond(ch)
	if err != nil {
		return nil, nil, handshakeError(err)
	}
	return sh, session, nil
}

func (h *Handshaker) respond(ch *protocol.ClientHello) (*protocol.ServerHello, *Session, error) {
	if ch == nil {
		return nil, nil, qerrors.ErrInvalidMessage
	}
	if !protocol.IsSupported(ch.Version) {
		return nil, nil, errors.Wrapf(qerrors.ErrInvalidVersion, "version %d", ch.Version)
	}
	if len(ch.MLKEMPublicKey) != h.KEM.PublicKeySize() {
		return nil, nil, errors.Wrapf(qerrors.ErrInvalidKeySize, "%s public key is %d bytes", h.KEM.Name(), len(ch.MLKEMPublicKey))
	}
	kemPK, err := h.KEM.ParsePublicKey(ch.MLKEMPublicKey)
	if err != nil {
		return nil, nil, errors.Wrap(qerrors.ErrInvalidKeySize, err.Error())
	}

	dhPK, dhSK, err := h.DH.GenerateKeyPair()
	if err != nil {
		return nil, nil, err
	}
	defer dhSK.Zeroize()

	ct, ssPQ, err := h.KEM.Encapsulate(kemPK)
	if err != nil {
		return nil, nil, err
	}
	defer crypto.Zeroize(ssPQ)

	ssClassical, err := h.dhWithPeer(dhSK, ch.X25519PublicKey[:])
	if err != nil {
		return nil, nil, err
	}
	defer crypto.Zeroize(ssClassical)

	sh := &protocol.ServerHello{MLKEMCiphertext: ct}
	if err := putDHPublicKey(&sh.X25519PublicKey, dhPK); err != nil {
		return nil, nil, err
	}

	transcript := protocol.ComputeTranscript(ch, sh)
	keys, err := crypto.DeriveSessionKeys(ssPQ, ssClassical, transcript)
	if err != nil {
		return nil, nil, err
	}
	return sh, newSession(keys, transcript, false), nil
}

// dhWithPeer parses the peer's classical key and runs DH. Malformed and
// low-order keys are both reported as ErrInvalidKeySize.
func (h *Handshaker) dhWithPeer(sk crypto.PrivateKey, peer []byte) ([]byte, error) {
	pk, err := h.DH.ParsePublicKey(peer)
	if err != nil {
		return nil, errors.Wrap(qerrors.ErrInvalidKeySize, err.Error())
	}
	ss, err := h.DH.DiffieHellman(sk, pk)
	if err != nil {
		return nil, errors.Wrap(qerrors.ErrInvalidKeySize, err.Error())
	}
	return ss, nil
}

func putDHPublicKey(dst *[constants.X25519PublicKeySize]byte, pk crypto.PublicKey) error {
	b := pk.Bytes()
	if len(b) != len(dst) {
		return qerrors.NewCryptoError("handshake.PublicKey", qerrors.ErrInvalidPublicKey)
	}
	copy(dst[:], b)
	return nil
}
