// codec.go implements serialization and deserialization of protocol messages.
//
// Wire Format:
//
// Messages use the protocol-buffers wire format: a sequence of
// (field number, wire type) tags each followed by its value. The encoding is
// canonical: every field is written exactly once, in field-number order, with
// minimal varints, even when it holds a zero value.
//
// ClientHello:
//
//	1: varint  version
//	2: bytes   ML-KEM public key
//	3: bytes   X25519 public key (32 bytes)
//
// ServerHello:
//
//	1: bytes   ML-KEM ciphertext
//	2: bytes   X25519 public key (32 bytes)
//
// AppData:
//
//	1: fixed64 sequence number
//	2: bytes   ciphertext || tag
//
// Decoders accept only this exact layout. Missing, repeated, reordered or
// unknown fields and trailing bytes are rejected with ErrInvalidMessage. The
// ML-KEM key and ciphertext lengths are not checked here; the handshake
// reports those as ErrInvalidKeySize.
package protocol

import (
	"bytes"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/sara-star-quant/hybrid-channel/internal/constants"
	qerrors "github.com/sara-star-quant/hybrid-channel/internal/errors"
)

// Codec provides message serialization and deserialization.
type Codec struct{}

// NewCodec creates a new protocol codec.
func NewCodec() *Codec {
	return &Codec{}
}

// EncodeClientHello serializes a ClientHello message.
func (c *Codec) EncodeClientHello(m *ClientHello) []byte {
	size := protowire.SizeTag(1) + protowire.SizeVarint(uint64(m.Version)) +
		protowire.SizeTag(2) + protowire.SizeBytes(len(m.MLKEMPublicKey)) +
		protowire.SizeTag(3) + protowire.SizeBytes(constants.X25519PublicKeySize)

	b := make([]byte, 0, size)
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Version))
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, m.MLKEMPublicKey)
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendBytes(b, m.X25519PublicKey[:])
	return b
}

// DecodeClientHello deserializes a ClientHello message.
func (c *Codec) DecodeClientHello(data []byte) (*ClientHello, error) {
	d := decoder{msg: "ClientHello", buf: data}

	version := d.varint(1)
	mlkemPK := d.bytes(2)
	x25519PK := d.bytes(3)
	if err := d.finish(); err != nil {
		return nil, err
	}
	if version > math.MaxUint8 || len(x25519PK) != constants.X25519PublicKeySize {
		return nil, invalidMessage("ClientHello")
	}

	m := &ClientHello{
		Version:        uint8(version),
		MLKEMPublicKey: mlkemPK,
	}
	copy(m.X25519PublicKey[:], x25519PK)
	return m, nil
}

// EncodeServerHello serializes a ServerHello message.
func (c *Codec) EncodeServerHello(m *ServerHello) []byte {
	size := protowire.SizeTag(1) + protowire.SizeBytes(len(m.MLKEMCiphertext)) +
		protowire.SizeTag(2) + protowire.SizeBytes(constants.X25519PublicKeySize)

	b := make([]byte, 0, size)
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, m.MLKEMCiphertext)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, m.X25519PublicKey[:])
	return b
}

// DecodeServerHello deserializes a ServerHello message.
func (c *Codec) DecodeServerHello(data []byte) (*ServerHello, error) {
	d := decoder{msg: "ServerHello", buf: data}

	ct := d.bytes(1)
	x25519PK := d.bytes(2)
	if err := d.finish(); err != nil {
		return nil, err
	}
	if len(x25519PK) != constants.X25519PublicKeySize {
		return nil, invalidMessage("ServerHello")
	}

	m := &ServerHello{MLKEMCiphertext: ct}
	copy(m.X25519PublicKey[:], x25519PK)
	return m, nil
}

// EncodeAppData serializes an AppData record.
func (c *Codec) EncodeAppData(m *AppData) []byte {
	size := protowire.SizeTag(1) + protowire.SizeFixed64() +
		protowire.SizeTag(2) + protowire.SizeBytes(len(m.Ciphertext))

	b := make([]byte, 0, size)
	b = protowire.AppendTag(b, 1, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, m.Seq)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, m.Ciphertext)
	return b
}

// DecodeAppData deserializes an AppData record.
func (c *Codec) DecodeAppData(data []byte) (*AppData, error) {
	d := decoder{msg: "AppData", buf: data}

	seq := d.fixed64(1)
	ct := d.bytes(2)
	if err := d.finish(); err != nil {
		return nil, err
	}
	return &AppData{Seq: seq, Ciphertext: ct}, nil
}

// decoder reads fields in a fixed order and remembers the first failure,
// so callers can read every field and check once.
type decoder struct {
	msg    string
	buf    []byte
	failed bool
}

func (d *decoder) tag(num protowire.Number, typ protowire.Type) bool {
	if d.failed {
		return false
	}
	gotNum, gotTyp, n := protowire.ConsumeTag(d.buf)
	if n < 0 || n != protowire.SizeTag(num) || gotNum != num || gotTyp != typ {
		d.failed = true
		return false
	}
	d.buf = d.buf[n:]
	return true
}

func (d *decoder) varint(num protowire.Number) uint64 {
	if !d.tag(num, protowire.VarintType) {
		return 0
	}
	v, n := protowire.ConsumeVarint(d.buf)
	if n < 0 || n != protowire.SizeVarint(v) {
		d.failed = true
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

func (d *decoder) fixed64(num protowire.Number) uint64 {
	if !d.tag(num, protowire.Fixed64Type) {
		return 0
	}
	v, n := protowire.ConsumeFixed64(d.buf)
	if n < 0 {
		d.failed = true
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

// bytes copies the value out so decoded messages never alias the frame buffer.
func (d *decoder) bytes(num protowire.Number) []byte {
	if !d.tag(num, protowire.BytesType) {
		return nil
	}
	v, n := protowire.ConsumeBytes(d.buf)
	if n < 0 || n != protowire.SizeBytes(len(v)) {
		d.failed = true
		return nil
	}
	d.buf = d.buf[n:]
	return bytes.Clone(v)
}

func (d *decoder) finish() error {
	if d.failed || len(d.buf) != 0 {
		return invalidMessage(d.msg)
	}
	return nil
}

func invalidMessage(msg string) error {
	return qerrors.NewProtocolError("decode "+msg, qerrors.ErrInvalidMessage)
}
