// Package constants defines security parameters and protocol constants for the
// hybrid-channel protocol.
//
// Security Level: NIST Category 3 for the post-quantum half (ML-KEM-768),
// ~128-bit classical security for the X25519 half.
package constants

// Protocol version and identification
const (
	// ProtocolVersion is the only ClientHello version a responder accepts.
	ProtocolVersion uint8 = 1

	// ProtocolName identifies the protocol in logs and traces.
	ProtocolName = "hybrid-pq-channel-v1"
)

// ML-KEM-768 Parameters (NIST FIPS 203)
const (
	// MLKEMPublicKeySize is the size of an ML-KEM-768 encapsulation key in bytes
	MLKEMPublicKeySize = 1184

	// MLKEMCiphertextSize is the size of an ML-KEM-768 ciphertext in bytes
	MLKEMCiphertextSize = 1088

	// MLKEMSharedSecretSize is the size of the shared secret from ML-KEM in bytes
	MLKEMSharedSecretSize = 32
)

// X25519 Parameters (RFC 7748)
const (
	// X25519PublicKeySize is the size of X25519 public key in bytes
	X25519PublicKeySize = 32

	// X25519PrivateKeySize is the size of X25519 private key in bytes
	X25519PrivateKeySize = 32

	// X25519SharedSecretSize is the size of the X25519 shared secret in bytes
	X25519SharedSecretSize = 32
)

// Symmetric Encryption Parameters (ChaCha20-Poly1305)
const (
	// KeySize is the size of a directional traffic key in bytes
	KeySize = 32

	// NonceSize is the size of an AEAD nonce and of a nonce base (96 bits)
	NonceSize = 12

	// TagSize is the size of the Poly1305 authentication tag in bytes
	TagSize = 16

	// NonceSeqOffset is where the big-endian sequence number is XORed into the nonce base
	NonceSeqOffset = 4

	// SeqSize is the encoded size of a sequence number
	SeqSize = 8
)

// Key Derivation Parameters (HKDF-SHA256)
const (
	// TranscriptHashSize is the size of the handshake transcript hash in bytes
	TranscriptHashSize = 32

	// SessionKeyMaterialSize is the HKDF output length: two keys and two nonce bases
	SessionKeyMaterialSize = 2*KeySize + 2*NonceSize

	// DomainSeparatorSession is the HKDF info label for session key derivation
	DomainSeparatorSession = "hybrid-pq-channel-v1"

	// DomainSeparatorX25519KEM is the HKDF info label used by the X25519 KEM adapter
	DomainSeparatorX25519KEM = "x25519-kem"

	// X25519KEMSharedSecretSize is the output size of the X25519 KEM adapter
	X25519KEMSharedSecretSize = 32
)

// Message Size Limits
const (
	// MaxFrameSize bounds a single length-prefixed frame (1 MiB)
	MaxFrameSize = 1 << 20

	// FrameHeaderSize is the length prefix size in bytes
	FrameHeaderSize = 4

	// AADSize is the associated data size: sequence number || transcript
	AADSize = SeqSize + TranscriptHashSize
)
