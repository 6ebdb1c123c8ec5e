// Package hybridchannel is a two-party secure channel keyed by a hybrid
// ML-KEM-768 + X25519 handshake.
//
// A client sends its ephemeral ML-KEM-768 encapsulation key and X25519 public
// key. The server encapsulates to the first, answers with its own X25519 key,
// and both sides bind the exchange with a SHA-256 transcript hash. The two
// shared secrets and the transcript feed HKDF-SHA256, which yields one
// ChaCha20-Poly1305 key and nonce base per direction. Records carry an
// explicit sequence number that the receiver requires to strictly increase.
//
// # Quick Start
//
//	import "github.com/sara-star-quant/hybrid-channel/pkg/tunnel"
//
//	// Server
//	ln, _ := tunnel.Listen("tcp", "127.0.0.1:8080", tunnel.DefaultConfig())
//	pending, _ := ln.Admit()
//	go func() {
//		conn, _ := pending.Handshake(ctx)
//		msg, _ := conn.Receive()
//	}()
//
//	// Client
//	conn, _ := tunnel.Dial(ctx, "tcp", "127.0.0.1:8080", tunnel.DefaultConfig())
//	_ = conn.Send([]byte("hello"))
//
// Without a network, run the handshake in memory:
//
//	hello, state, _ := tunnel.GenerateClientHello()
//	reply, serverSession, _ := tunnel.HandleClientHello(hello)
//	clientSession, _ := tunnel.HandleServerHello(reply, state)
//	ch, _ := clientSession.NewChannel()
//	record, _ := ch.Encrypt([]byte("hello"))
//
// # Package Structure
//
//   - pkg/crypto: ML-KEM-768, X25519, HKDF session keys, ChaCha20-Poly1305
//   - pkg/protocol: handshake and record messages, framing, transcript hash
//   - pkg/tunnel: handshake state machine, secure channel, network transport
//   - pkg/metrics: counters, logging, tracing, Prometheus and health endpoints
//   - internal/constants: sizes, labels and protocol version
//   - internal/errors: sentinel errors and wrapper types
//
// # Security Properties
//
//   - Hybrid: session keys stay secret while either ML-KEM-768 or X25519 holds
//   - Forward secrecy: both sides use fresh ephemeral keys for every session
//   - Replay protection: a record whose sequence number is not above the last
//     accepted one is rejected
//   - No authentication of the peer: the handshake is anonymous and does not
//     resist an active man in the middle
//
// # Testing
//
//	go test ./...
//	go test -fuzz=FuzzDecodeClientHello ./pkg/protocol
//	go test -bench=. ./pkg/crypto ./pkg/tunnel
//
// # References
//
//   - NIST FIPS 203: Module-Lattice-Based Key-Encapsulation Mechanism Standard
//   - RFC 7748: Elliptic Curves for Security
//   - RFC 5869: HMAC-based Extract-and-Expand Key Derivation Function
//   - RFC 8439: ChaCha20 and Poly1305 for IETF Protocols
package hybridchannel
