package protocol_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sara-star-quant/hybrid-channel/internal/constants"
	qerrors "github.com/sara-star-quant/hybrid-channel/internal/errors"
	"github.com/sara-star-quant/hybrid-channel/pkg/protocol"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payloads := [][]byte{[]byte("first"), {}, bytes.Repeat([]byte{9}, constants.MaxFrameSize)}
	for _, p := range payloads {
		require.NoError(t, protocol.WriteFrame(&buf, p))
	}
	for _, p := range payloads {
		got, err := protocol.ReadFrame(&buf)
		require.NoError(t, err)
		require.True(t, bytes.Equal(p, got))
	}

	_, err := protocol.ReadFrame(&buf)
	require.ErrorIs(t, err, io.EOF)
}

func TestFrameHeaderLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, protocol.WriteFrame(&buf, []byte("abc")))
	require.Equal(t, []byte{0, 0, 0, 3, 'a', 'b', 'c'}, buf.Bytes())
}

func TestReadFrameTooLarge(t *testing.T) {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], constants.MaxFrameSize+1)

	_, err := protocol.ReadFrame(bytes.NewReader(hdr[:]))
	require.ErrorIs(t, err, qerrors.ErrFrameTooLarge)

	var ferr *qerrors.FrameError
	require.ErrorAs(t, err, &ferr)

	// 0xFFFFFFFF must be rejected without trying to allocate 4 GiB.
	_, err = protocol.ReadFrame(bytes.NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF}))
	require.ErrorIs(t, err, qerrors.ErrFrameTooLarge)
}

func TestWriteFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	err := protocol.WriteFrame(&buf, make([]byte, constants.MaxFrameSize+1))
	require.ErrorIs(t, err, qerrors.ErrFrameTooLarge)
	require.Zero(t, buf.Len())
}

func TestReadFrameTruncated(t *testing.T) {
	_, err := protocol.ReadFrame(bytes.NewReader([]byte{0, 0}))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = protocol.ReadFrame(bytes.NewReader([]byte{0, 0, 0, 5, 'a'}))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = protocol.ReadFrame(bytes.NewReader([]byte{0, 0, 0, 5}))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
