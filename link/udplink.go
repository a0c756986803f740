package link

import (
	"net"
	"sync/atomic"

	"github.com/jython234/slowmesh/tracker"
)

// PacketSocket is the minimal UDP surface a UdpLink needs; *net.UDPConn
// satisfies it, and tests substitute a fake.
type PacketSocket interface {
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
}

// UdpLink is bound to one remote socket address. It stamps outgoing frames
// with a strictly increasing per-link sequence number and drops replays of
// incoming frames using its own PacketTracker.
type UdpLink struct {
	RemoteAddr *net.UDPAddr

	socket PacketSocket
	sent   atomic.Uint64

	unpacked *tracker.PacketTracker
}

// NewUdpLink returns a link bound to remoteAddr, sending through socket.
func NewUdpLink(remoteAddr *net.UDPAddr, socket PacketSocket) *UdpLink {
	return &UdpLink{
		RemoteAddr: remoteAddr,
		socket:     socket,
		unpacked:   tracker.New(),
	}
}

// SendPayload pre-increments the link's outgoing counter, stamps it as the
// frame's packet_id, and writes the framed payload to the remote address.
func (l *UdpLink) SendPayload(payload []byte) error {
	if len(payload) > MaxUDPPayload-udpFrameHeaderLen {
		return ErrUDPFrameInvalid
	}
	id := l.sent.Add(1)
	frame := packUDPPayloadFrame(id, payload)
	_, err := l.socket.WriteToUDP(frame, l.RemoteAddr)
	return err
}

// SendHello writes the 1-byte HelloLink frame to the remote address.
func (l *UdpLink) SendHello() error {
	_, err := l.socket.WriteToUDP(packUDPHelloFrame(), l.RemoteAddr)
	return err
}

// HandleIncoming decodes a raw datagram received from this link's remote
// address. For a Payload frame it admits the packet_id into the link's
// tracker and returns the payload bytes, with fresh reporting whether the
// packet_id was newly admitted (false for a replay or an out-of-window id).
// Ack and Hello frames are recognized but produce no payload.
func (l *UdpLink) HandleIncoming(data []byte) (payload []byte, fresh bool, err error) {
	frame, err := unpackUDPFrame(data)
	if err != nil {
		return nil, false, err
	}

	switch frame.typ {
	case udpFramePayload:
		result := l.unpacked.Update(frame.packetID)
		return frame.payload, result == tracker.Success, nil
	default:
		// Ack/Hello are recognized but not otherwise acted on in the core.
		return nil, false, nil
	}
}
