package protocol

import (
	"encoding/binary"
	"io"

	"github.com/sara-star-quant/hybrid-channel/internal/constants"
	qerrors "github.com/sara-star-quant/hybrid-channel/internal/errors"
)

// WriteFrame writes payload as one frame: a 4-byte big-endian length
// followed by the payload bytes.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > constants.MaxFrameSize {
		return qerrors.NewFrameError(qerrors.ErrFrameTooLarge)
	}

	buf := make([]byte, constants.FrameHeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[constants.FrameHeaderSize:], payload)

	if _, err := w.Write(buf); err != nil {
		return qerrors.NewFrameError(err)
	}
	return nil
}

// ReadFrame reads one frame and returns its payload.
//
// The declared length is checked against MaxFrameSize before any buffer is
// allocated. A stream that ends exactly on a frame boundary yields an error
// matching io.EOF; one that ends inside a frame yields io.ErrUnexpectedEOF.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [constants.FrameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, qerrors.NewFrameError(err)
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > constants.MaxFrameSize {
		return nil, qerrors.NewFrameError(qerrors.ErrFrameTooLarge)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, qerrors.NewFrameError(err)
	}
	return payload, nil
}
