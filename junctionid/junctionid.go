// Package junctionid defines the overlay's endpoint identifier type.
package junctionid

import (
	"bytes"
	"encoding/binary"
	"errors"
	"unicode/utf8"
)

// MaxLen is the largest encodable identifier, bounded by the u16 length prefix.
const MaxLen = 65535

// ErrTruncated is returned when the input does not contain a complete,
// well-formed JunctionId encoding.
var ErrTruncated = errors.New("junctionid: truncated or malformed encoding")

// HelloSentinel and AllSentinel are the reserved recipient values used by
// the Hello and Howdy package types respectively.
const (
	HelloSentinel = "none"
	AllSentinel   = "all"
)

// ID is an opaque, equatable, hashable endpoint name. Equality and hashing
// follow plain Go string semantics on the underlying UTF-8 bytes, so ID is
// safe to use directly as a map key.
type ID string

// New wraps a raw string as an ID. It does not validate length; Pack returns
// an error if the string exceeds MaxLen bytes.
func New(id string) ID {
	return ID(id)
}

// String returns the identifier's textual form.
func (id ID) String() string {
	return string(id)
}

// Pack appends the little-endian length-prefixed UTF-8 encoding of id to buf.
// It returns an error, and writes nothing, if id exceeds MaxLen bytes.
func (id ID) Pack(buf *bytes.Buffer) error {
	b := []byte(id)
	if len(b) > MaxLen {
		return errors.New("junctionid: id exceeds maximum length")
	}
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(b)))
	buf.Write(lenBuf[:])
	buf.Write(b)
	return nil
}

// Unpack reads a length-prefixed JunctionId from the front of data and
// returns the decoded ID along with the number of bytes consumed.
func Unpack(data []byte) (ID, int, error) {
	if len(data) < 2 {
		return "", 0, ErrTruncated
	}
	n := int(binary.LittleEndian.Uint16(data[:2]))
	if len(data) < 2+n {
		return "", 0, ErrTruncated
	}
	raw := data[2 : 2+n]
	// UTF-8 validity is required by the wire format; reject non-UTF-8 bytes
	// rather than silently accepting them as an opaque string.
	if !utf8.Valid(raw) {
		return "", 0, ErrTruncated
	}
	return ID(raw), 2 + n, nil
}
