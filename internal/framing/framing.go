// Package framing implements the native-messaging wire format: each message
// is a 4-byte native-endian unsigned length followed by that many bytes of
// UTF-8 encoded JSON.
package framing

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize caps the accepted payload length. A peer announcing anything
// larger is treated as malformed rather than allocated for.
const MaxFrameSize = 32 << 20

var (
	// ErrChannelClosed is returned when the peer closed the stream at a
	// frame boundary.
	ErrChannelClosed = errors.New("channel closed")
	// ErrTruncatedFrame is returned when the stream ended inside a frame.
	ErrTruncatedFrame = errors.New("truncated frame")
	// ErrFrameTooLarge is returned when the announced length exceeds MaxFrameSize.
	ErrFrameTooLarge = errors.New("frame too large")
)

// ReadFrame reads one complete frame from r. It blocks until the whole frame
// is available and never returns a partial payload. EOF before the length
// prefix yields ErrChannelClosed; EOF after it yields ErrTruncatedFrame.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrChannelClosed
		}
		return nil, fmt.Errorf("reading frame length: %w", err)
	}

	length := binary.NativeEndian.Uint32(header[:])
	if length > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLarge, length, MaxFrameSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: expected %d bytes", ErrTruncatedFrame, length)
		}
		return nil, fmt.Errorf("reading frame payload: %w", err)
	}

	return payload, nil
}

// WriteFrame writes payload as one frame to w. The caller is responsible for
// serializing concurrent writers; a frame must never interleave with another.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLarge, len(payload), MaxFrameSize)
	}

	var header [4]byte
	binary.NativeEndian.PutUint32(header[:], uint32(len(payload)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("writing frame length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("writing frame payload: %w", err)
	}

	if f, ok := w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flushing frame: %w", err)
		}
	}

	return nil
}
