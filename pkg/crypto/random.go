package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"io"

	qerrors "github.com/sara-star-quant/hybrid-channel/internal/errors"
)

// Reader is the randomness source for all key generation.
// It is crypto/rand.Reader, the OS CSPRNG.
var Reader io.Reader = rand.Reader

// SecureRandom fills b from Reader.
//
// An error means the system's random number generator failed, which should be
// treated as a critical failure.
func SecureRandom(b []byte) error {
	if _, err := io.ReadFull(Reader, b); err != nil {
		return qerrors.NewCryptoError("SecureRandom", err)
	}
	return nil
}

// SecureRandomBytes returns n random bytes.
func SecureRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if err := SecureRandom(b); err != nil {
		return nil, err
	}
	return b, nil
}

// ConstantTimeCompare reports whether a and b are equal without leaking
// where they differ.
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Zeroize overwrites b with zeros.
//
// The Go runtime may already have copied the data, so this is best effort.
func Zeroize(b []byte) {
	clear(b)
}

// ZeroizeMultiple zeroizes every slice.
func ZeroizeMultiple(slices ...[]byte) {
	for _, s := range slices {
		Zeroize(s)
	}
}
