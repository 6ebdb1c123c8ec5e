package crypto_test

import (
	"testing"

	"github.com/sara-star-quant/hybrid-channel/internal/constants"
	"github.com/sara-star-quant/hybrid-channel/pkg/crypto"
)

// Run with: go test -bench=. -benchmem ./pkg/crypto/

func BenchmarkSecureRandom32(b *testing.B) {
	buf := make([]byte, 32)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = crypto.SecureRandom(buf)
	}
}

func BenchmarkX25519KeyGeneration(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := (crypto.X25519{}).GenerateKeyPair(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkX25519SharedSecret(b *testing.B) {
	dh := crypto.X25519{}
	_, aliceSK, _ := dh.GenerateKeyPair()
	bobPK, _, _ := dh.GenerateKeyPair()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dh.DiffieHellman(aliceSK, bobPK); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMLKEMKeyGeneration(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := (crypto.MLKEM768{}).GenerateKeyPair(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMLKEMEncapsulation(b *testing.B) {
	kem := crypto.MLKEM768{}
	pk, _, _ := kem.GenerateKeyPair()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := kem.Encapsulate(pk); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMLKEMDecapsulation(b *testing.B) {
	kem := crypto.MLKEM768{}
	pk, sk, _ := kem.GenerateKeyPair()
	ct, _, _ := kem.Encapsulate(pk)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := kem.Decapsulate(sk, ct); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDeriveSessionKeys(b *testing.B) {
	ssPQ := make([]byte, 32)
	ssClassical := make([]byte, 32)
	var transcript [constants.TranscriptHashSize]byte

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := crypto.DeriveSessionKeys(ssPQ, ssClassical, transcript); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAEADSeal64B(b *testing.B)  { benchmarkAEADSeal(b, 64) }
func BenchmarkAEADSeal1KB(b *testing.B)  { benchmarkAEADSeal(b, 1024) }
func BenchmarkAEADSeal16KB(b *testing.B) { benchmarkAEADSeal(b, 16*1024) }

func benchmarkAEADSeal(b *testing.B, size int) {
	key := make([]byte, constants.KeySize)
	var nonceBase [constants.NonceSize]byte
	aead, err := crypto.NewAEAD(key, nonceBase)
	if err != nil {
		b.Fatal(err)
	}
	var transcript [constants.TranscriptHashSize]byte
	plaintext := make([]byte, size)

	b.SetBytes(int64(size))
	var seq uint64
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		seq++
		_ = aead.Seal(seq, transcript, plaintext)
	}
}

func BenchmarkAEADOpen1KB(b *testing.B) {
	key := make([]byte, constants.KeySize)
	var nonceBase [constants.NonceSize]byte
	aead, _ := crypto.NewAEAD(key, nonceBase)
	var transcript [constants.TranscriptHashSize]byte
	ct := aead.Seal(1, transcript, make([]byte, 1024))

	b.SetBytes(1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := aead.Open(1, transcript, ct); err != nil {
			b.Fatal(err)
		}
	}
}
