// x25519.go implements X25519 Elliptic Curve Diffie-Hellman operations.
//
// X25519 (RFC 7748) is the Diffie-Hellman function on Curve25519, a Montgomery
// curve over F_p with p = 2^255 - 19. It provides about 128 bits of classical
// security and keeps the hybrid session safe if ML-KEM is ever broken.
//
// Note: X25519 is NOT quantum-resistant.
package crypto

import (
	"github.com/cloudflare/circl/dh/x25519"

	"github.com/sara-star-quant/hybrid-channel/internal/constants"
	qerrors "github.com/sara-star-quant/hybrid-channel/internal/errors"
)

// X25519PublicKey is a 32-byte Curve25519 u-coordinate.
type X25519PublicKey struct {
	key x25519.Key
}

// X25519PrivateKey is a clamped Curve25519 scalar and its public key.
type X25519PrivateKey struct {
	secret x25519.Key
	pub    X25519PublicKey
	zeroed bool
}

// X25519 is the classical half of the hybrid exchange, used as raw DH.
type X25519 struct{}

// Name returns the algorithm identifier.
func (X25519) Name() string { return "X25519" }

// PublicKeySize returns the public key size (32 bytes).
func (X25519) PublicKeySize() int { return constants.X25519PublicKeySize }

// GenerateKeyPair generates a fresh X25519 key pair from the CSPRNG.
func (X25519) GenerateKeyPair() (PublicKey, PrivateKey, error) {
	sk := new(X25519PrivateKey)
	if err := SecureRandom(sk.secret[:]); err != nil {
		return nil, nil, qerrors.NewCryptoError("x25519.GenerateKeyPair", err)
	}
	x25519.KeyGen(&sk.pub.key, &sk.secret)

	pub := sk.pub
	return &pub, sk, nil
}

// NewX25519PrivateKey builds a private key from a 32-byte scalar.
// The same bytes always produce the same key pair.
func NewX25519PrivateKey(secret []byte) (*X25519PrivateKey, error) {
	if len(secret) != constants.X25519PrivateKeySize {
		return nil, qerrors.ErrInvalidPrivateKey
	}
	sk := new(X25519PrivateKey)
	copy(sk.secret[:], secret)
	x25519.KeyGen(&sk.pub.key, &sk.secret)
	return sk, nil
}

// PublicKey derives the public key of sk.
func (X25519) PublicKey(sk PrivateKey) (PublicKey, error) {
	k, err := x25519Private(sk)
	if err != nil {
		return nil, err
	}
	pub := k.pub
	return &pub, nil
}

// ParsePublicKey decodes a 32-byte public key. Any 32 bytes are a valid
// encoding; low-order points are caught by DiffieHellman.
func (X25519) ParsePublicKey(data []byte) (PublicKey, error) {
	if len(data) != constants.X25519PublicKeySize {
		return nil, qerrors.NewCryptoError("x25519.ParsePublicKey", qerrors.ErrInvalidPublicKey)
	}
	pk := new(X25519PublicKey)
	copy(pk.key[:], data)
	return pk, nil
}

// DiffieHellman computes the shared value between sk and a peer public key.
//
// Peer keys of low order produce an all-zero value; those are rejected with
// ErrInvalidPublicKey so a contributory exchange is guaranteed.
func (X25519) DiffieHellman(sk PrivateKey, pk PublicKey) ([]byte, error) {
	k, err := x25519Private(sk)
	if err != nil {
		return nil, err
	}
	peer, ok := pk.(*X25519PublicKey)
	if !ok || peer == nil {
		return nil, qerrors.ErrInvalidPublicKey
	}

	var shared x25519.Key
	if !x25519.Shared(&shared, &k.secret, &peer.key) {
		return nil, qerrors.NewCryptoError("x25519.DiffieHellman", qerrors.ErrInvalidPublicKey)
	}
	out := make([]byte, constants.X25519SharedSecretSize)
	copy(out, shared[:])
	Zeroize(shared[:])
	return out, nil
}

func x25519Private(sk PrivateKey) (*X25519PrivateKey, error) {
	k, ok := sk.(*X25519PrivateKey)
	if !ok || k == nil || k.zeroed {
		return nil, qerrors.ErrInvalidPrivateKey
	}
	return k, nil
}

// Bytes returns a copy of the encoded public key.
func (pk *X25519PublicKey) Bytes() []byte {
	if pk == nil {
		return nil
	}
	out := make([]byte, constants.X25519PublicKeySize)
	copy(out, pk.key[:])
	return out
}

// Array returns the public key as a fixed-size array, the form protocol
// messages carry it in.
func (pk *X25519PublicKey) Array() [constants.X25519PublicKeySize]byte {
	return pk.key
}

// Public returns the public key that belongs to sk.
func (sk *X25519PrivateKey) Public() PublicKey {
	if sk == nil {
		return nil
	}
	pub := sk.pub
	return &pub
}

// Zeroize overwrites the scalar in place.
func (sk *X25519PrivateKey) Zeroize() {
	if sk == nil {
		return
	}
	Zeroize(sk.secret[:])
	sk.zeroed = true
}
