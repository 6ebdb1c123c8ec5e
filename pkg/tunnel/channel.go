package tunnel

import (
	"fmt"
	"math"

	qerrors "github.com/sara-star-quant/hybrid-channel/internal/errors"
	"github.com/sara-star-quant/hybrid-channel/pkg/crypto"
	"github.com/sara-star-quant/hybrid-channel/pkg/protocol"
)

// SecureChannel turns session keys into a stream of AppData records.
//
// Each direction has its own key, nonce base and counter. The first record
// sent carries sequence 1. A received record is accepted only if its sequence
// is strictly greater than the last one accepted: there is no reordering
// window, so a record that arrives after a later one is rejected as a replay.
//
// A SecureChannel is not safe for concurrent use. Conn serializes access.
type SecureChannel struct {
	send       *crypto.AEAD
	recv       *crypto.AEAD
	transcript [32]byte
	isClient   bool

	sendSeq uint64
	recvSeq uint64
	closed  bool
}

// NewSecureChannel creates a channel from session keys. isClient selects
// which direction is used for sending.
func NewSecureChannel(keys crypto.SessionKeys, transcript [32]byte, isClient bool) (*SecureChannel, error) {
	defer keys.Zeroize()

	sendKey, sendBase := keys.SendKey(isClient)
	recvKey, recvBase := keys.RecvKey(isClient)

	send, err := crypto.NewAEAD(sendKey, sendBase)
	if err != nil {
		return nil, err
	}
	recv, err := crypto.NewAEAD(recvKey, recvBase)
	if err != nil {
		return nil, err
	}

	return &SecureChannel{
		send:       send,
		recv:       recv,
		transcript: transcript,
		isClient:   isClient,
	}, nil
}

// Encrypt seals plaintext as the next record.
//
// The send counter is advanced before sealing. Once it reaches the maximum
// uint64 the channel refuses to send rather than reuse a nonce.
func (c *SecureChannel) Encrypt(plaintext []byte) (*protocol.AppData, error) {
	if c.closed {
		return nil, channelError(qerrors.ErrChannelClosed)
	}
	if c.sendSeq == math.MaxUint64 {
		return nil, channelError(qerrors.ErrNonceExhausted)
	}

	c.sendSeq++
	return &protocol.AppData{
		Seq:        c.sendSeq,
		Ciphertext: c.send.Seal(c.sendSeq, c.transcript, plaintext),
	}, nil
}

// Decrypt authenticates and opens a record.
//
// A record whose sequence is not above the last accepted one fails with
// ErrReplayDetected. An authentication failure returns ErrDecryptionFailed,
// which also matches ErrAuthenticationFailed. In both cases the channel
// state is unchanged.
func (c *SecureChannel) Decrypt(record *protocol.AppData) ([]byte, error) {
	if c.closed {
		return nil, channelError(qerrors.ErrChannelClosed)
	}
	if record == nil {
		return nil, channelError(qerrors.ErrInvalidMessage)
	}
	if record.Seq <= c.recvSeq {
		return nil, channelError(qerrors.ErrReplayDetected)
	}

	plaintext, err := c.recv.Open(record.Seq, c.transcript, record.Ciphertext)
	if err != nil {
		return nil, channelError(fmt.Errorf("%w: %w", qerrors.ErrDecryptionFailed, err))
	}
	c.recvSeq = record.Seq
	return plaintext, nil
}

// SendSeq returns the sequence number of the last record sent.
func (c *SecureChannel) SendSeq() uint64 { return c.sendSeq }

// RecvSeq returns the sequence number of the last record accepted.
func (c *SecureChannel) RecvSeq() uint64 { return c.recvSeq }

// NextRecvSeq returns the lowest sequence number Decrypt will still accept.
func (c *SecureChannel) NextRecvSeq() uint64 {
	if c.recvSeq == math.MaxUint64 {
		return math.MaxUint64
	}
	return c.recvSeq + 1
}

// IsClient reports whether this channel belongs to the initiator.
func (c *SecureChannel) IsClient() bool { return c.isClient }

// Transcript returns the handshake transcript the channel is bound to.
func (c *SecureChannel) Transcript() [32]byte { return c.transcript }

// Close erases the channel's key material. Further calls fail with
// ErrChannelClosed.
func (c *SecureChannel) Close() {
	if c.closed {
		return
	}
	c.send.Zeroize()
	c.recv.Zeroize()
	c.closed = true
}
