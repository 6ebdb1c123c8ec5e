// Package crypto provides the primitives the hybrid-channel handshake is built
// from: the KEM and Diffie-Hellman capability interfaces with their concrete
// algorithms, HKDF session key derivation and the ChaCha20-Poly1305 AEAD.
//
// The handshake only talks to the KEM and DH interfaces, so an algorithm can be
// replaced without touching the state machine.
package crypto

// PublicKey is an encoded-on-demand public key of some KEM or DH algorithm.
type PublicKey interface {
	// Bytes returns the wire encoding of the key.
	Bytes() []byte
}

// PrivateKey is a secret key owned by the party that generated it.
// Private keys are never serialized by the protocol.
type PrivateKey interface {
	// Public returns the matching public key.
	Public() PublicKey

	// Zeroize erases the secret material. The key must not be used afterwards.
	Zeroize()
}

// KEM is a key-encapsulation mechanism.
//
// For any key pair, Decapsulate(sk, ct) must return the same shared secret
// that Encapsulate(pk) returned alongside ct.
type KEM interface {
	Name() string

	GenerateKeyPair() (PublicKey, PrivateKey, error)
	ParsePublicKey(data []byte) (PublicKey, error)

	// Encapsulate produces a ciphertext and the shared secret it carries.
	Encapsulate(pk PublicKey) (ciphertext, sharedSecret []byte, err error)

	// Decapsulate recovers the shared secret from a ciphertext.
	Decapsulate(sk PrivateKey, ciphertext []byte) ([]byte, error)

	PublicKeySize() int
	CiphertextSize() int
	SharedSecretSize() int
}

// DH is a Diffie-Hellman key agreement.
//
// DiffieHellman(skA, PublicKey(skB)) equals DiffieHellman(skB, PublicKey(skA)).
type DH interface {
	Name() string

	GenerateKeyPair() (PublicKey, PrivateKey, error)
	PublicKey(sk PrivateKey) (PublicKey, error)
	ParsePublicKey(data []byte) (PublicKey, error)
	DiffieHellman(sk PrivateKey, pk PublicKey) ([]byte, error)

	PublicKeySize() int
}

var (
	_ KEM = MLKEM768{}
	_ KEM = X25519KEM{}
	_ DH  = X25519{}
)
