package framing

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestReadFrameRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
	}{
		{
			name:    "simple json",
			payload: `{"type":"ping"}`,
		},
		{
			name:    "empty payload",
			payload: "",
		},
		{
			name:    "multi byte utf8",
			payload: `{"body":"резюме 履歴書 ✓"}`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if err := WriteFrame(&buf, []byte(tt.payload)); err != nil {
				t.Fatalf("WriteFrame: %v", err)
			}

			got, err := ReadFrame(&buf)
			if err != nil {
				t.Fatalf("ReadFrame: %v", err)
			}
			if string(got) != tt.payload {
				t.Fatalf("round trip mismatch: got %q, want %q", got, tt.payload)
			}
		})
	}
}

func TestReadFrameSequential(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	payloads := []string{`{"a":1}`, `{"b":2}`, `{"c":3}`}
	for _, p := range payloads {
		if err := WriteFrame(&buf, []byte(p)); err != nil {
			t.Fatalf("WriteFrame(%q): %v", p, err)
		}
	}

	for _, want := range payloads {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		if string(got) != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}

	if _, err := ReadFrame(&buf); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed after last frame, got %v", err)
	}
}

func TestReadFrameEOFAtBoundary(t *testing.T) {
	t.Parallel()

	if _, err := ReadFrame(bytes.NewReader(nil)); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed on empty stream, got %v", err)
	}
}

func TestReadFrameShortLengthPrefix(t *testing.T) {
	t.Parallel()

	if _, err := ReadFrame(bytes.NewReader([]byte{0x01, 0x02})); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed on partial length prefix, got %v", err)
	}
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	var header [4]byte
	binary.NativeEndian.PutUint32(header[:], 100)
	buf.Write(header[:])
	buf.WriteString("only a few bytes")

	if _, err := ReadFrame(&buf); !errors.Is(err, ErrTruncatedFrame) {
		t.Fatalf("expected ErrTruncatedFrame, got %v", err)
	}
}

func TestReadFrameTooLarge(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	var header [4]byte
	binary.NativeEndian.PutUint32(header[:], MaxFrameSize+1)
	buf.Write(header[:])

	if _, err := ReadFrame(&buf); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestWriteFrameTooLarge(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteFrame(&buf, make([]byte, MaxFrameSize+1)); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing written, got %d bytes", buf.Len())
	}
}
