// kdf.go derives session keys with HKDF-SHA256 (RFC 5869).
//
// A single extract-and-expand call turns both shared secrets into every key the
// secure channel needs:
//
//	PRK = HKDF-Extract(salt = transcript, IKM = ss_pq || ss_classical)
//	OKM = HKDF-Expand(PRK, "hybrid-pq-channel-v1", 88)
//
// The ML-KEM secret always comes first. OKM is sliced in fixed order into the
// client-to-server key, the server-to-client key and the two nonce bases.
package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/sara-star-quant/hybrid-channel/internal/constants"
	qerrors "github.com/sara-star-quant/hybrid-channel/internal/errors"
)

// SessionKeys holds the directional traffic keys and nonce bases of one session.
// A peer sends with one direction and receives with the other, chosen by role.
type SessionKeys struct {
	KClientToServer [constants.KeySize]byte
	KServerToClient [constants.KeySize]byte
	NonceBaseC2S    [constants.NonceSize]byte
	NonceBaseS2C    [constants.NonceSize]byte
}

// DeriveSessionKeys derives SessionKeys from the two shared secrets, salted
// with the handshake transcript. It is a pure function of its inputs.
func DeriveSessionKeys(ssPQ, ssClassical []byte, transcript [constants.TranscriptHashSize]byte) (*SessionKeys, error) {
	if len(ssPQ) != constants.MLKEMSharedSecretSize || len(ssClassical) != constants.X25519SharedSecretSize {
		return nil, qerrors.NewCryptoError("DeriveSessionKeys", qerrors.ErrInvalidLength)
	}

	ikm := make([]byte, 0, len(ssPQ)+len(ssClassical))
	ikm = append(ikm, ssPQ...)
	ikm = append(ikm, ssClassical...)
	defer Zeroize(ikm)

	okm := make([]byte, constants.SessionKeyMaterialSize)
	defer Zeroize(okm)

	r := hkdf.New(sha256.New, ikm, transcript[:], []byte(constants.DomainSeparatorSession))
	if _, err := io.ReadFull(r, okm); err != nil {
		return nil, qerrors.NewCryptoError("DeriveSessionKeys", err)
	}

	keys := new(SessionKeys)
	off := 0
	off += copy(keys.KClientToServer[:], okm[off:])
	off += copy(keys.KServerToClient[:], okm[off:])
	off += copy(keys.NonceBaseC2S[:], okm[off:])
	copy(keys.NonceBaseS2C[:], okm[off:])

	return keys, nil
}

// SendKey returns the key and nonce base this role encrypts with.
func (k *SessionKeys) SendKey(isClient bool) ([]byte, [constants.NonceSize]byte) {
	if isClient {
		return k.KClientToServer[:], k.NonceBaseC2S
	}
	return k.KServerToClient[:], k.NonceBaseS2C
}

// RecvKey returns the key and nonce base this role decrypts with.
func (k *SessionKeys) RecvKey(isClient bool) ([]byte, [constants.NonceSize]byte) {
	return k.SendKey(!isClient)
}

// Zeroize erases all key material.
func (k *SessionKeys) Zeroize() {
	if k == nil {
		return
	}
	ZeroizeMultiple(k.KClientToServer[:], k.KServerToClient[:], k.NonceBaseC2S[:], k.NonceBaseS2C[:])
}
