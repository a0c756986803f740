package junction

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jython234/slowmesh/internal/slowlog"
	"github.com/jython234/slowmesh/junctionid"
	"github.com/jython234/slowmesh/metrics"
	"github.com/jython234/slowmesh/packet"
	"github.com/jython234/slowmesh/route"
)

// sendJob is one request sitting on a junction's send queue, waiting for
// the engine to assign it a fresh package id and emit it.
type sendJob struct {
	typ       packet.Type
	recipient junctionid.ID
	payload   []byte
}

// forwarder is the transport-specific half of the engine: given the raw
// serialized bytes of a package, send them to one specific next hop, or to
// every known next hop except one (used when relaying and broadcasting).
// "key" values are transport-specific opaque strings: a remote UDP address
// or a TCP link id, used only as route-table/known-peers map keys.
type forwarder interface {
	sendFramed(key string, data []byte) error
	broadcast(exceptKey string, data []byte)
	knownKeys() []string
}

// core is the shared engine state embedded by UdpJunction and TcpJunction:
// the route table, queues, and counters that spec.md §3 assigns to every
// Junction regardless of transport.
type core struct {
	id junctionid.ID

	routes *route.Table

	peersMu sync.Mutex
	peers   map[string]struct{}

	sendQueue   chan sendJob
	sentCounter atomic.Uint32

	recvMu   sync.Mutex
	recvCond *sync.Cond
	recvQ    []ReceivedJSON

	uniqueCounter    atomic.Uint64
	duplicateCounter atomic.Uint64
	pongCounter      atomic.Uint64
	sentCount        atomic.Uint64
	receivedCount    atomic.Uint64
	rejectedCounter  atomic.Uint64

	closeOnce sync.Once
	closed    chan struct{}

	log slowlog.Logger
}

func newCore(id junctionid.ID, log slowlog.Logger) *core {
	c := &core{
		id:        id,
		routes:    route.New(),
		peers:     make(map[string]struct{}),
		sendQueue: make(chan sendJob, 256),
		closed:    make(chan struct{}),
		log:       log,
	}
	c.recvCond = sync.NewCond(&c.recvMu)
	return c
}

func (c *core) ID() junctionid.ID { return c.id }

func (c *core) addPeer(key string) {
	c.peersMu.Lock()
	c.peers[key] = struct{}{}
	c.peersMu.Unlock()
}

// Seed adds a peer without performing a handshake.
func (c *core) Seed(addr string) {
	c.addPeer(addr)
}

func (c *core) KnownPeers() []string {
	c.peersMu.Lock()
	defer c.peersMu.Unlock()
	out := make([]string, 0, len(c.peers))
	for k := range c.peers {
		out = append(out, k)
	}
	return out
}

func (c *core) enqueueSend(typ packet.Type, payload []byte, recipient junctionid.ID) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	select {
	case c.sendQueue <- sendJob{typ: typ, recipient: recipient, payload: payload}:
		return nil
	case <-c.closed:
		return ErrClosed
	}
}

func (c *core) Send(payload []byte, recipient junctionid.ID) error {
	return c.enqueueSend(packet.Json, payload, recipient)
}

func (c *core) SendBin(payload []byte, recipient junctionid.ID) error {
	return c.enqueueSend(packet.Bin, payload, recipient)
}

func (c *core) Ping(recipient junctionid.ID) error {
	return c.enqueueSend(packet.Ping, nil, recipient)
}

func (c *core) Pong(recipient junctionid.ID) error {
	return c.enqueueSend(packet.Pong, nil, recipient)
}

func (c *core) Recv() (ReceivedJSON, bool) {
	c.recvMu.Lock()
	defer c.recvMu.Unlock()
	if len(c.recvQ) == 0 {
		return ReceivedJSON{}, false
	}
	item := c.recvQ[0]
	c.recvQ = c.recvQ[1:]
	return item, true
}

// WaitForPackage blocks until an entry is available, ctx is done, or the
// junction is closed.
func (c *core) WaitForPackage(ctx context.Context) (ReceivedJSON, bool) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-c.closed:
		}
		c.recvMu.Lock()
		c.recvCond.Broadcast()
		c.recvMu.Unlock()
		close(done)
	}()

	c.recvMu.Lock()
	defer c.recvMu.Unlock()
	for len(c.recvQ) == 0 {
		select {
		case <-ctx.Done():
			return ReceivedJSON{}, false
		case <-c.closed:
			return ReceivedJSON{}, false
		default:
		}
		c.recvCond.Wait()
	}
	item := c.recvQ[0]
	c.recvQ = c.recvQ[1:]
	return item, true
}

func (c *core) pushReceived(item ReceivedJSON) {
	c.recvMu.Lock()
	c.recvQ = append(c.recvQ, item)
	c.recvCond.Broadcast()
	c.recvMu.Unlock()
}

// baseSnapshot reports the transport-independent counters; callers fill in
// Links themselves since link accounting is transport-specific.
func (c *core) baseSnapshot() metrics.Snapshot {
	c.recvMu.Lock()
	waiting := float64(len(c.recvQ))
	c.recvMu.Unlock()

	return metrics.Snapshot{
		Waiting:   waiting,
		Unique:    float64(c.uniqueCounter.Load()),
		Duplicate: float64(c.duplicateCounter.Load()),
		Pong:      float64(c.pongCounter.Load()),
		Sent:      float64(c.sentCount.Load()),
		Received:  float64(c.receivedCount.Load()),
		Rejected:  float64(c.rejectedCounter.Load()),
	}
}

func (c *core) closeDone() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.recvMu.Lock()
		c.recvCond.Broadcast()
		c.recvMu.Unlock()
	})
}

// handleIncoming implements the §4.6 state machine for one decoded
// Package that arrived from sourceKey: the peer/link that Hello replies go
// back to, that is recorded as the route's next hop, and that is excluded
// when broadcasting a relay.
func (c *core) handleIncoming(pkg *packet.Package, sourceKey string, fwd forwarder) {
	c.receivedCount.Add(1)

	// 1. Hello handling.
	if pkg.Type == packet.Hello {
		c.addPeer(sourceKey)
		if pkg.PackageID == 0 {
			reply := packet.NewHello(c.id, pkg.Sender, 1)
			data, err := reply.Pack()
			if err == nil {
				_ = fwd.sendFramed(sourceKey, data)
			}
		}
		return
	}

	// 2. Route learning / end-to-end de-duplication.
	fresh := c.routes.Update(pkg.Sender, sourceKey, pkg.HopCount, 0, pkg.PackageID)
	if !fresh {
		c.duplicateCounter.Add(1)
		return
	}

	// 3. Unique counter.
	c.uniqueCounter.Add(1)

	// 4. Destination check.
	if pkg.Recipient == c.id {
		c.deliver(pkg, sourceKey)
		return
	}
	if pkg.Recipient == junctionid.New(junctionid.AllSentinel) {
		// Howdy (or any future all-sentinel type): route learning above is
		// the only required side effect.
		return
	}

	// 5. Forwarding.
	pkg.IncrementHops()
	if pkg.Dropped() {
		return
	}

	data, err := pkg.Pack()
	if err != nil {
		c.rejectedCounter.Add(1)
		return
	}

	if via, _, ok := c.routes.Best(pkg.Recipient); ok {
		if err := fwd.sendFramed(via, data); err == nil {
			return
		}
	}
	fwd.broadcast(sourceKey, data)
}

func (c *core) deliver(pkg *packet.Package, sourceKey string) {
	switch pkg.Type {
	case packet.Ping:
		_ = c.enqueueSend(packet.Pong, nil, pkg.Sender)
	case packet.Pong:
		c.pongCounter.Add(1)
	case packet.Json:
		c.pushReceived(ReceivedJSON{Source: sourceKey, Payload: pkg.Payload})
	case packet.Bin:
		// Reserved; not delivered to the receive queue in this core.
	case packet.Howdy:
		// Accepted; route learning above was the only required side effect.
	}
}

// decode wraps packet.Unpack, counting malformed input as rejected rather
// than tearing down the calling link.
func (c *core) decode(data []byte) (*packet.Package, bool) {
	pkg, err := packet.Unpack(data)
	if err != nil {
		c.rejectedCounter.Add(1)
		return nil, false
	}
	return pkg, true
}

// nextSendPackageID pre-increments and returns the next outgoing
// package_id for packages this junction originates.
func (c *core) nextSendPackageID() uint32 {
	return c.sentCounter.Add(1)
}
