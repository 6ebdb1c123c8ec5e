package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/sara-star-quant/hybrid-channel/internal/constants"
	qerrors "github.com/sara-star-quant/hybrid-channel/internal/errors"
)

// X25519KEM shapes X25519 as a KEM: every encapsulation uses a fresh
// ephemeral key pair, the "ciphertext" is the ephemeral public key and the
// shared secret is HKDF-Expand(SHA-256, dh, "x25519-kem") with no extract step.
//
// The handshake performs the raw DH itself; this adapter lets a caller put the
// classical exchange behind the KEM interface.
type X25519KEM struct {
	DH X25519
}

// Name returns the algorithm identifier.
func (X25519KEM) Name() string { return "X25519-KEM" }

// PublicKeySize returns the size of an X25519 public key in bytes.
func (X25519KEM) PublicKeySize() int { return constants.X25519PublicKeySize }

// CiphertextSize returns the size of the ephemeral public key sent as ciphertext.
func (X25519KEM) CiphertextSize() int { return constants.X25519PublicKeySize }

// SharedSecretSize returns the size of the expanded shared secret in bytes.
func (X25519KEM) SharedSecretSize() int { return constants.X25519KEMSharedSecretSize }

// GenerateKeyPair generates the recipient's static key pair.
func (k X25519KEM) GenerateKeyPair() (PublicKey, PrivateKey, error) {
	return k.DH.GenerateKeyPair()
}

// ParsePublicKey parses a 32-byte X25519 public key.
func (k X25519KEM) ParsePublicKey(data []byte) (PublicKey, error) {
	return k.DH.ParsePublicKey(data)
}

// Encapsulate runs an ephemeral DH against pk.
func (k X25519KEM) Encapsulate(pk PublicKey) (ciphertext, sharedSecret []byte, err error) {
	ePub, eSec, err := k.DH.GenerateKeyPair()
	if err != nil {
		return nil, nil, err
	}
	defer eSec.Zeroize()

	dh, err := k.DH.DiffieHellman(eSec, pk)
	if err != nil {
		return nil, nil, err
	}
	defer Zeroize(dh)

	ss, err := expandX25519Secret(dh)
	if err != nil {
		return nil, nil, err
	}
	return ePub.Bytes(), ss, nil
}

// Decapsulate repeats the DH with the static secret and the ephemeral key.
func (k X25519KEM) Decapsulate(sk PrivateKey, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) != constants.X25519PublicKeySize {
		return nil, qerrors.NewCryptoError("x25519kem.Decapsulate", qerrors.ErrInvalidCiphertext)
	}
	ePub, err := k.DH.ParsePublicKey(ciphertext)
	if err != nil {
		return nil, err
	}

	dh, err := k.DH.DiffieHellman(sk, ePub)
	if err != nil {
		return nil, err
	}
	defer Zeroize(dh)

	return expandX25519Secret(dh)
}

func expandX25519Secret(dh []byte) ([]byte, error) {
	ss := make([]byte, constants.X25519KEMSharedSecretSize)
	r := hkdf.Expand(sha256.New, dh, []byte(constants.DomainSeparatorX25519KEM))
	if _, err := io.ReadFull(r, ss); err != nil {
		return nil, qerrors.NewCryptoError("x25519kem.Expand", err)
	}
	return ss, nil
}
