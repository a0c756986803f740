// Package junction implements the concurrent engine that ties the wire
// codec, duplicate detector, and route table together: it accepts incoming
// packets on each link, suppresses duplicates, delivers local packages, and
// forwards the rest to a best next-hop or broadcasts when none is known.
package junction

import (
	"context"
	"errors"

	"github.com/jython234/slowmesh/junctionid"
	"github.com/jython234/slowmesh/metrics"
)

// ReceivedJSON is one entry popped from a junction's receive queue: the
// address/link the Json package arrived from, and its raw payload bytes.
type ReceivedJSON struct {
	Source  string
	Payload []byte
}

// ErrClosed is returned by operations attempted after Close.
var ErrClosed = errors.New("junction: closed")

// Junction is the application-facing control surface every transport
// (UdpJunction, TcpJunction) implements.
type Junction interface {
	// ID returns this junction's own identifier.
	ID() junctionid.ID

	// Join sends a Hello(0) to peerAddr and records the peer as known right
	// away (UDP: its address; TCP: the new link's id).
	Join(ctx context.Context, peerAddr string) error

	// Send enqueues a Json package addressed to recipient.
	Send(payload []byte, recipient junctionid.ID) error

	// SendBin enqueues a Bin package addressed to recipient.
	SendBin(payload []byte, recipient junctionid.ID) error

	// Ping enqueues a Ping control package addressed to recipient.
	Ping(recipient junctionid.ID) error

	// Pong enqueues a Pong control package addressed to recipient.
	Pong(recipient junctionid.ID) error

	// Recv pops one entry from the receive queue without blocking.
	Recv() (ReceivedJSON, bool)

	// WaitForPackage blocks until an entry is available or ctx is done.
	WaitForPackage(ctx context.Context) (ReceivedJSON, bool)

	// Seed adds a peer without performing a handshake.
	Seed(addr string)

	// KnownPeers lists the peer keys this junction has learned about: remote
	// addresses for UDP, link ids for TCP, plus any seeded addresses.
	KnownPeers() []string

	// MetricsSnapshot reports the §6.4 observability counters.
	MetricsSnapshot() metrics.Snapshot

	// Close signals the engine to stop and releases owned resources.
	Close() error
}
