// Package packet implements the overlay envelope wire format: the
// end-to-end Package that is forwarded, unchanged in its payload, from an
// originating junction to its destination across any number of relays.
package packet

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/jython234/slowmesh/junctionid"
)

// Type identifies the kind of payload carried by a Package. The encoding is
// a single byte in {0..5}, stable across versions.
type Type uint8

const (
	Hello Type = iota
	Ping
	Pong
	Json
	Bin
	Howdy
)

// MaxHopCount is the hop ceiling; packages reaching it are dropped rather
// than forwarded.
const MaxHopCount = 128

// ErrInvalid is returned for any malformed input: truncation at a field
// boundary, a payload_size mismatch, or an unrecognized package_type.
var ErrInvalid = errors.New("packet: invalid encoding")

// Package is the overlay's end-to-end envelope.
type Package struct {
	Type      Type
	Recipient junctionid.ID
	Sender    junctionid.ID
	HopCount  uint8
	PackageID uint32
	Payload   []byte
}

func (t Type) valid() bool {
	return t <= Howdy
}

// Pack serializes p in the order: type, recipient_id, sender_id, hop_count,
// package_id (u32 LE), payload_size (u16 LE), payload.
func (p *Package) Pack() ([]byte, error) {
	if len(p.Payload) > 0xFFFF {
		return nil, errors.New("packet: payload exceeds u16 length")
	}

	var buf bytes.Buffer
	buf.WriteByte(byte(p.Type))

	if err := p.Recipient.Pack(&buf); err != nil {
		return nil, err
	}
	if err := p.Sender.Pack(&buf); err != nil {
		return nil, err
	}

	buf.WriteByte(p.HopCount)

	var idBuf [4]byte
	binary.LittleEndian.PutUint32(idBuf[:], p.PackageID)
	buf.Write(idBuf[:])

	var sizeBuf [2]byte
	binary.LittleEndian.PutUint16(sizeBuf[:], uint16(len(p.Payload)))
	buf.Write(sizeBuf[:])

	buf.Write(p.Payload)

	return buf.Bytes(), nil
}

// Unpack decodes a Package from data. It fails with ErrInvalid on
// truncation at any field boundary, non-UTF-8 JunctionId bytes, a
// payload_size not matching the remaining byte count, or an unrecognized
// package_type.
func Unpack(data []byte) (*Package, error) {
	if len(data) < 1 {
		return nil, ErrInvalid
	}

	typ := Type(data[0])
	if !typ.valid() {
		return nil, ErrInvalid
	}
	off := 1

	recipient, n, err := junctionid.Unpack(data[off:])
	if err != nil {
		return nil, ErrInvalid
	}
	off += n

	sender, n, err := junctionid.Unpack(data[off:])
	if err != nil {
		return nil, ErrInvalid
	}
	off += n

	if len(data) < off+1+4+2 {
		return nil, ErrInvalid
	}
	hopCount := data[off]
	off++

	packageID := binary.LittleEndian.Uint32(data[off : off+4])
	off += 4

	payloadSize := binary.LittleEndian.Uint16(data[off : off+2])
	off += 2

	payload := data[off:]
	if int(payloadSize) != len(payload) {
		return nil, ErrInvalid
	}

	// Copy the payload out so the returned Package does not alias the
	// caller's buffer (e.g. a reused UDP receive buffer). An empty payload
	// decodes as nil, matching packages built without a payload.
	var payloadCopy []byte
	if len(payload) > 0 {
		payloadCopy = make([]byte, len(payload))
		copy(payloadCopy, payload)
	}

	return &Package{
		Type:      typ,
		Recipient: recipient,
		Sender:    sender,
		HopCount:  hopCount,
		PackageID: packageID,
		Payload:   payloadCopy,
	}, nil
}

// IncrementHops bumps HopCount by one and returns the new value.
func (p *Package) IncrementHops() uint8 {
	p.HopCount++
	return p.HopCount
}

// Dropped reports whether the package has traveled past the hop ceiling and
// should be discarded rather than forwarded.
func (p *Package) Dropped() bool {
	return p.HopCount >= MaxHopCount
}

// NewHello builds an "open" Hello package (package_id 0) addressed to the
// sentinel recipient, or a reply Hello (package_id 1) addressed back to a
// specific peer — see junctionid.HelloSentinel.
func NewHello(sender junctionid.ID, recipient junctionid.ID, packageID uint32) *Package {
	return &Package{
		Type:      Hello,
		Recipient: recipient,
		Sender:    sender,
		PackageID: packageID,
	}
}

// NewHowdy builds a Howdy package addressed to the broadcast sentinel.
func NewHowdy(sender junctionid.ID, packageID uint32) *Package {
	return &Package{
		Type:      Howdy,
		Recipient: junctionid.New(junctionid.AllSentinel),
		Sender:    sender,
		PackageID: packageID,
	}
}

// NewJSON builds a Json package carrying raw (already-serialized) payload
// bytes addressed to recipient.
func NewJSON(sender, recipient junctionid.ID, payload []byte, packageID uint32) *Package {
	return &Package{
		Type:      Json,
		Recipient: recipient,
		Sender:    sender,
		PackageID: packageID,
		Payload:   payload,
	}
}

// NewBin builds a Bin package carrying arbitrary payload bytes.
func NewBin(sender, recipient junctionid.ID, payload []byte, packageID uint32) *Package {
	return &Package{
		Type:      Bin,
		Recipient: recipient,
		Sender:    sender,
		PackageID: packageID,
		Payload:   payload,
	}
}

// NewPing builds a Ping control package.
func NewPing(sender, recipient junctionid.ID, packageID uint32) *Package {
	return &Package{Type: Ping, Recipient: recipient, Sender: sender, PackageID: packageID}
}

// NewPong builds a Pong control package.
func NewPong(sender, recipient junctionid.ID, packageID uint32) *Package {
	return &Package{Type: Pong, Recipient: recipient, Sender: sender, PackageID: packageID}
}
