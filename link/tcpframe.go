package link

import (
	"encoding/binary"
	"errors"
	"io"
)

// MaxTCPFrameSize is the per-frame ceiling: 1 MiB.
const MaxTCPFrameSize = 1024 * 1024

// ErrFrameTooLarge is returned when a send exceeds MaxTCPFrameSize.
var ErrFrameTooLarge = errors.New("link: tcp frame exceeds 1 MiB limit")

// ErrFrameLengthMismatch is returned when a frame's trailing length does
// not match its leading length prefix — a framing bug or stream desync.
var ErrFrameLengthMismatch = errors.New("link: tcp frame length prefix/suffix mismatch")

// writeTCPFrame writes [len u32 BE][data][len u32 BE] to w.
func writeTCPFrame(w io.Writer, data []byte) error {
	if len(data) > MaxTCPFrameSize {
		return ErrFrameTooLarge
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))

	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	return nil
}

// readTCPFrame reads one [len][data][len] frame from r and returns data.
// It reports ErrFrameLengthMismatch if prefix and suffix disagree.
func readTCPFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length > MaxTCPFrameSize {
		return nil, ErrFrameTooLarge
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}

	var suffixBuf [4]byte
	if _, err := io.ReadFull(r, suffixBuf[:]); err != nil {
		return nil, err
	}
	suffix := binary.BigEndian.Uint32(suffixBuf[:])
	if suffix != length {
		return nil, ErrFrameLengthMismatch
	}

	return data, nil
}
