package protocol

import (
	"crypto/sha256"

	"github.com/sara-star-quant/hybrid-channel/internal/constants"
)

// ComputeTranscript hashes the canonical encodings of both hellos:
//
//	transcript = SHA-256(encode(ClientHello) || encode(ServerHello))
//
// The digest salts the session key derivation and is part of every record's
// associated data. Peers that saw different hellos end up with different keys,
// so tampering surfaces as decryption failure rather than as an error here.
func ComputeTranscript(ch *ClientHello, sh *ServerHello) [constants.TranscriptHashSize]byte {
	codec := NewCodec()
	h := sha256.New()
	h.Write(codec.EncodeClientHello(ch))
	h.Write(codec.EncodeServerHello(sh))

	var out [constants.TranscriptHashSize]byte
	h.Sum(out[:0])
	return out
}
