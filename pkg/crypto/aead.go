// aead.go implements the record protection of the secure channel with
// ChaCha20-Poly1305 (RFC 8439).
//
// Nonces are never transmitted. Each direction has a random 96-bit nonce base
// from the key schedule; the record's sequence number is XORed big-endian into
// bytes 4..11 of it:
//
//	nonce = base XOR (0x00000000 || BE64(seq))
//
// The associated data binds every record to its sequence number and to the
// handshake:
//
//	aad = BE64(seq) || transcript
//
// CRITICAL: nonce reuse completely breaks ChaCha20-Poly1305. A (key, seq) pair
// must never be sealed twice; the channel guarantees this by never letting its
// send counter repeat.
package crypto

import (
	"crypto/cipher"
	"encoding/binary"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/sara-star-quant/hybrid-channel/internal/constants"
	qerrors "github.com/sara-star-quant/hybrid-channel/internal/errors"
)

// AEAD is a ChaCha20-Poly1305 instance for one direction of a session.
type AEAD struct {
	cipher    cipher.AEAD
	nonceBase [constants.NonceSize]byte
}

// NewAEAD creates the cipher for a 32-byte key and its nonce base.
func NewAEAD(key []byte, nonceBase [constants.NonceSize]byte) (*AEAD, error) {
	if len(key) != constants.KeySize {
		return nil, qerrors.NewCryptoError("NewAEAD", qerrors.ErrInvalidLength)
	}
	c, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, qerrors.NewCryptoError("NewAEAD", err)
	}
	return &AEAD{cipher: c, nonceBase: nonceBase}, nil
}

// ComputeNonce XORs seq big-endian into bytes 4..11 of base.
func ComputeNonce(base [constants.NonceSize]byte, seq uint64) [constants.NonceSize]byte {
	var ctr [constants.SeqSize]byte
	binary.BigEndian.PutUint64(ctr[:], seq)

	nonce := base
	for i := range ctr {
		nonce[constants.NonceSeqOffset+i] ^= ctr[i]
	}
	return nonce
}

// BuildAAD returns BE64(seq) || transcript.
func BuildAAD(seq uint64, transcript [constants.TranscriptHashSize]byte) []byte {
	aad := make([]byte, constants.AADSize)
	binary.BigEndian.PutUint64(aad, seq)
	copy(aad[constants.SeqSize:], transcript[:])
	return aad
}

// Seal encrypts plaintext as record seq and returns ciphertext || tag.
func (a *AEAD) Seal(seq uint64, transcript [constants.TranscriptHashSize]byte, plaintext []byte) []byte {
	nonce := ComputeNonce(a.nonceBase, seq)
	return a.cipher.Seal(nil, nonce[:], plaintext, BuildAAD(seq, transcript))
}

// Open authenticates and decrypts record seq.
//
// Every failure, including input shorter than the tag, is reported as
// ErrAuthenticationFailed so callers cannot learn why a record was rejected.
func (a *AEAD) Open(seq uint64, transcript [constants.TranscriptHashSize]byte, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < constants.TagSize {
		return nil, qerrors.ErrAuthenticationFailed
	}
	nonce := ComputeNonce(a.nonceBase, seq)
	plaintext, err := a.cipher.Open(nil, nonce[:], ciphertext, BuildAAD(seq, transcript))
	if err != nil {
		return nil, qerrors.ErrAuthenticationFailed
	}
	return plaintext, nil
}

// Zeroize clears the nonce base. The expanded cipher state is owned by
// x/crypto and is released with the AEAD.
func (a *AEAD) Zeroize() {
	Zeroize(a.nonceBase[:])
	a.cipher = nil
}
