// mlkem.go implements the ML-KEM-768 key encapsulation mechanism.
//
// ML-KEM (Module-Lattice-based Key-Encapsulation Mechanism) is standardized in
// NIST FIPS 203. Its security rests on the Module Learning With Errors problem
// over R_q = Z_q[X]/(X^256 + 1), q = 3329, with module rank k = 3 for the
// 768 parameter set.
//
// Decapsulation uses the Fujisaki-Okamoto transform with implicit rejection: a
// well-sized but corrupted ciphertext yields a pseudorandom secret rather than
// an error, so decapsulation never fails structurally.
//
// Security Level: NIST Category 3
package crypto

import (
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"

	"github.com/sara-star-quant/hybrid-channel/internal/constants"
	qerrors "github.com/sara-star-quant/hybrid-channel/internal/errors"
)

// MLKEMPublicKey wraps an ML-KEM-768 encapsulation key.
type MLKEMPublicKey struct {
	key *mlkem768.PublicKey
}

// MLKEMPrivateKey wraps an ML-KEM-768 decapsulation key.
type MLKEMPrivateKey struct {
	key *mlkem768.PrivateKey
	pub *MLKEMPublicKey
}

// MLKEM768 is the post-quantum half of the hybrid exchange.
type MLKEM768 struct{}

// Name returns the algorithm identifier.
func (MLKEM768) Name() string { return "ML-KEM-768" }

// PublicKeySize returns the encapsulation key size (1184 bytes).
func (MLKEM768) PublicKeySize() int { return constants.MLKEMPublicKeySize }

// CiphertextSize returns the ciphertext size (1088 bytes).
func (MLKEM768) CiphertextSize() int { return constants.MLKEMCiphertextSize }

// SharedSecretSize returns the shared secret size (32 bytes).
func (MLKEM768) SharedSecretSize() int { return constants.MLKEMSharedSecretSize }

// GenerateKeyPair generates a fresh ML-KEM-768 key pair from the CSPRNG.
func (MLKEM768) GenerateKeyPair() (PublicKey, PrivateKey, error) {
	pk, sk, err := mlkem768.GenerateKeyPair(Reader)
	if err != nil {
		return nil, nil, qerrors.NewCryptoError("mlkem768.GenerateKeyPair", err)
	}
	pub := &MLKEMPublicKey{key: pk}
	return pub, &MLKEMPrivateKey{key: sk, pub: pub}, nil
}

// ParsePublicKey decodes an encapsulation key. Besides the length, circl
// checks that every coefficient is reduced modulo q.
func (MLKEM768) ParsePublicKey(data []byte) (PublicKey, error) {
	if len(data) != constants.MLKEMPublicKeySize {
		return nil, qerrors.NewCryptoError("mlkem768.ParsePublicKey", qerrors.ErrInvalidPublicKey)
	}

	pk := new(mlkem768.PublicKey)
	if err := pk.Unpack(data); err != nil {
		return nil, qerrors.NewCryptoError("mlkem768.ParsePublicKey", qerrors.ErrInvalidPublicKey)
	}
	return &MLKEMPublicKey{key: pk}, nil
}

// Encapsulate generates a random shared secret and encrypts it to pk.
func (MLKEM768) Encapsulate(pk PublicKey) (ciphertext, sharedSecret []byte, err error) {
	ek, ok := pk.(*MLKEMPublicKey)
	if !ok || ek == nil || ek.key == nil {
		return nil, nil, qerrors.ErrInvalidPublicKey
	}

	seed := make([]byte, mlkem768.EncapsulationSeedSize)
	if err := SecureRandom(seed); err != nil {
		return nil, nil, qerrors.NewCryptoError("mlkem768.Encapsulate", err)
	}
	defer Zeroize(seed)

	ct := make([]byte, mlkem768.CiphertextSize)
	ss := make([]byte, mlkem768.SharedKeySize)
	ek.key.EncapsulateTo(ct, ss, seed)

	return ct, ss, nil
}

// Decapsulate recovers the shared secret from ciphertext.
// Only the length is checked; content corruption is absorbed by implicit rejection.
func (MLKEM768) Decapsulate(sk PrivateKey, ciphertext []byte) ([]byte, error) {
	dk, ok := sk.(*MLKEMPrivateKey)
	if !ok || dk == nil || dk.key == nil {
		return nil, qerrors.ErrInvalidPrivateKey
	}
	if len(ciphertext) != constants.MLKEMCiphertextSize {
		return nil, qerrors.NewCryptoError("mlkem768.Decapsulate", qerrors.ErrInvalidCiphertext)
	}

	ss := make([]byte, mlkem768.SharedKeySize)
	dk.key.DecapsulateTo(ss, ciphertext)
	return ss, nil
}

// Bytes returns the packed encapsulation key.
func (pk *MLKEMPublicKey) Bytes() []byte {
	if pk == nil || pk.key == nil {
		return nil
	}
	buf := make([]byte, mlkem768.PublicKeySize)
	pk.key.Pack(buf)
	return buf
}

// Public returns the encapsulation key that belongs to sk.
func (sk *MLKEMPrivateKey) Public() PublicKey {
	if sk == nil || sk.pub == nil {
		return nil
	}
	return sk.pub
}

// Zeroize drops the decapsulation key. circl keeps the secret polynomials
// behind pointers, so overwriting the struct releases them to the collector
// and clears the implicit-rejection seed held inline.
func (sk *MLKEMPrivateKey) Zeroize() {
	if sk == nil || sk.key == nil {
		return
	}
	*sk.key = mlkem768.PrivateKey{}
	sk.key = nil
}
