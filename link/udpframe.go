// Package link implements the two transports packages travel over: UDP
// datagrams with a per-link sequence id, and TCP streams with
// length-prefixed framing plus a hello/welcome handshake.
package link

import (
	"encoding/binary"
	"errors"
)

// udpFrameType is the byte-0 tag of a UDP link frame.
type udpFrameType byte

const (
	udpFrameAck     udpFrameType = 0
	udpFrameHello   udpFrameType = 1
	udpFramePayload udpFrameType = 2
)

// MaxUDPPayload is the UDP MTU slowmesh enforces end-to-end: the reference
// implementation hard-codes a 4 KiB receive buffer, so slowmesh documents
// and rejects anything larger at the sender (see SPEC_FULL.md §3).
const MaxUDPPayload = 4096

// udpFrameHeaderLen is the fixed overhead before the payload in a Payload
// frame: 1 (type) + 8 (packet_id) + 2 (payload_len).
const udpFrameHeaderLen = 1 + 8 + 2

// ErrUDPFrameInvalid is returned for any unrecognized or malformed UDP
// frame.
var ErrUDPFrameInvalid = errors.New("link: invalid udp frame")

// packUDPPayloadFrame packs a Payload-tagged UDP frame carrying packetID and
// the given opaque payload bytes (the serialized overlay Package).
func packUDPPayloadFrame(packetID uint64, payload []byte) []byte {
	out := make([]byte, udpFrameHeaderLen+len(payload))
	out[0] = byte(udpFramePayload)
	binary.BigEndian.PutUint64(out[1:9], packetID)
	binary.BigEndian.PutUint16(out[9:11], uint16(len(payload)))
	copy(out[11:], payload)
	return out
}

// packUDPAckFrame packs an Ack-tagged UDP frame. Ack generation/consumption
// is not part of the core contract (spec.md §1); slowmesh only provides
// the framing so a caller could round-trip one if it chose to.
func packUDPAckFrame(highestID, bitfield uint64) []byte {
	out := make([]byte, 1+8+8)
	out[0] = byte(udpFrameAck)
	binary.BigEndian.PutUint64(out[1:9], highestID)
	binary.BigEndian.PutUint64(out[9:17], bitfield)
	return out
}

// packUDPHelloFrame packs the 1-byte HelloLink frame: its single byte is
// both the type tag and the frame's entire content (value 1).
func packUDPHelloFrame() []byte {
	return []byte{byte(udpFrameHello)}
}

// udpFrame is a decoded UDP link frame.
type udpFrame struct {
	typ       udpFrameType
	packetID  uint64
	highestID uint64
	bitfield  uint64
	payload   []byte
}

// unpackUDPFrame dispatches on byte 0 and decodes the rest of the frame
// accordingly.
func unpackUDPFrame(data []byte) (*udpFrame, error) {
	if len(data) < 1 {
		return nil, ErrUDPFrameInvalid
	}

	switch udpFrameType(data[0]) {
	case udpFramePayload:
		if len(data) < udpFrameHeaderLen {
			return nil, ErrUDPFrameInvalid
		}
		packetID := binary.BigEndian.Uint64(data[1:9])
		length := binary.BigEndian.Uint16(data[9:11])
		rest := data[11:]
		if int(length) != len(rest) {
			return nil, ErrUDPFrameInvalid
		}
		payload := make([]byte, len(rest))
		copy(payload, rest)
		return &udpFrame{typ: udpFramePayload, packetID: packetID, payload: payload}, nil

	case udpFrameAck:
		if len(data) != 1+8+8 {
			return nil, ErrUDPFrameInvalid
		}
		highest := binary.BigEndian.Uint64(data[1:9])
		bitfield := binary.BigEndian.Uint64(data[9:17])
		return &udpFrame{typ: udpFrameAck, highestID: highest, bitfield: bitfield}, nil

	case udpFrameHello:
		if len(data) != 1 {
			return nil, ErrUDPFrameInvalid
		}
		return &udpFrame{typ: udpFrameHello}, nil

	default:
		return nil, ErrUDPFrameInvalid
	}
}
