package crypto_test

import (
	"bytes"
	"errors"
	"testing"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/sara-star-quant/hybrid-channel/internal/constants"
	qerrors "github.com/sara-star-quant/hybrid-channel/internal/errors"
	"github.com/sara-star-quant/hybrid-channel/pkg/crypto"
)

func newTestAEAD(t *testing.T) *crypto.AEAD {
	t.Helper()
	key, err := crypto.SecureRandomBytes(constants.KeySize)
	if err != nil {
		t.Fatal(err)
	}
	var base [constants.NonceSize]byte
	copy(base[:], fill(0xA5, constants.NonceSize))
	a, err := crypto.NewAEAD(key, base)
	if err != nil {
		t.Fatalf("NewAEAD failed: %v", err)
	}
	return a
}

func TestComputeNonce(t *testing.T) {
	var base [12]byte
	copy(base[:], fill(0xFF, 12))

	got := crypto.ComputeNonce(base, 0x0102030405060708)
	want := [12]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFE, 0xFD, 0xFC, 0xFB, 0xFA, 0xF9, 0xF8, 0xF7}
	if got != want {
		t.Errorf("ComputeNonce = %x, want %x", got, want)
	}

	if crypto.ComputeNonce(base, 0) != base {
		t.Error("sequence 0 must leave the base unchanged")
	}
}

func TestBuildAAD(t *testing.T) {
	var transcript [32]byte
	copy(transcript[:], fill(0xCC, 32))

	aad := crypto.BuildAAD(258, transcript)
	if len(aad) != constants.AADSize {
		t.Fatalf("AAD size: got %d, want %d", len(aad), constants.AADSize)
	}
	if !bytes.Equal(aad[:8], []byte{0, 0, 0, 0, 0, 0, 1, 2}) {
		t.Errorf("sequence prefix = %x", aad[:8])
	}
	if !bytes.Equal(aad[8:], transcript[:]) {
		t.Error("transcript suffix mismatch")
	}
}

func TestAEADRoundTrip(t *testing.T) {
	a := newTestAEAD(t)
	var transcript [32]byte

	for _, msg := range [][]byte{nil, []byte("x"), fill(0x42, 4096)} {
		ct := a.Seal(7, transcript, msg)
		if len(ct) != len(msg)+constants.TagSize {
			t.Fatalf("ciphertext size: got %d, want %d", len(ct), len(msg)+constants.TagSize)
		}
		pt, err := a.Open(7, transcript, ct)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if !bytes.Equal(pt, msg) {
			t.Error("plaintext mismatch")
		}
	}
}

func TestAEADWrongSequence(t *testing.T) {
	a := newTestAEAD(t)
	var transcript [32]byte

	ct := a.Seal(1, transcript, []byte("hello"))
	if _, err := a.Open(2, transcript, ct); !errors.Is(err, qerrors.ErrAuthenticationFailed) {
		t.Errorf("got %v, want ErrAuthenticationFailed", err)
	}
}

func TestAEADWrongTranscript(t *testing.T) {
	a := newTestAEAD(t)
	var t1, t2 [32]byte
	t2[0] = 1

	ct := a.Seal(1, t1, []byte("hello"))
	if _, err := a.Open(1, t2, ct); !errors.Is(err, qerrors.ErrAuthenticationFailed) {
		t.Errorf("got %v, want ErrAuthenticationFailed", err)
	}
}

func TestAEADTamperEveryByte(t *testing.T) {
	a := newTestAEAD(t)
	var transcript [32]byte

	ct := a.Seal(3, transcript, []byte("attack at dawn"))
	for i := range ct {
		tampered := bytes.Clone(ct)
		tampered[i] ^= 0x01
		if _, err := a.Open(3, transcript, tampered); !errors.Is(err, qerrors.ErrAuthenticationFailed) {
			t.Fatalf("flip at byte %d: got %v, want ErrAuthenticationFailed", i, err)
		}
	}
}

func TestAEADShortInput(t *testing.T) {
	a := newTestAEAD(t)
	var transcript [32]byte

	for _, n := range []int{0, 1, constants.TagSize - 1} {
		if _, err := a.Open(1, transcript, make([]byte, n)); !errors.Is(err, qerrors.ErrAuthenticationFailed) {
			t.Errorf("len %d: got %v, want ErrAuthenticationFailed", n, err)
		}
	}
}

func TestAEADSealUsesDerivedNonce(t *testing.T) {
	key := fill(0x11, constants.KeySize)
	var base [constants.NonceSize]byte
	copy(base[:], fill(0xA5, constants.NonceSize))
	var transcript [constants.TranscriptHashSize]byte
	copy(transcript[:], fill(0x33, constants.TranscriptHashSize))

	a, err := crypto.NewAEAD(key, base)
	if err != nil {
		t.Fatalf("NewAEAD failed: %v", err)
	}
	ref, err := chacha20poly1305.New(key)
	if err != nil {
		t.Fatal(err)
	}

	for _, seq := range []uint64{1, 2, 1 << 40} {
		nonce := crypto.ComputeNonce(base, seq)
		want := ref.Seal(nil, nonce[:], []byte("payload"), crypto.BuildAAD(seq, transcript))
		got := a.Seal(seq, transcript, []byte("payload"))
		if !bytes.Equal(got, want) {
			t.Errorf("seq %d: Seal = %x, want %x", seq, got, want)
		}
		if len(got) != len("payload")+constants.TagSize {
			t.Errorf("seq %d: ciphertext length %d", seq, len(got))
		}
	}
}

func TestNewAEADInvalidKey(t *testing.T) {
	if _, err := crypto.NewAEAD(make([]byte, 16), [12]byte{}); !errors.Is(err, qerrors.ErrInvalidLength) {
		t.Errorf("got %v, want ErrInvalidLength", err)
	}
}
