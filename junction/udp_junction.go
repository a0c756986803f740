package junction

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/jython234/slowmesh/internal/slowlog"
	"github.com/jython234/slowmesh/junctionid"
	"github.com/jython234/slowmesh/link"
	"github.com/jython234/slowmesh/metrics"
	"github.com/jython234/slowmesh/packet"
)

// udpRecvBufSize bounds a single incoming datagram; oversize datagrams are
// truncated by the kernel before slowmesh ever sees them (spec.md §4.4).
const udpRecvBufSize = link.MaxUDPPayload

// UdpJunction owns a bound UDP socket and drives routing for packages sent
// and received over it. Each known peer address has its own UdpLink so
// that per-peer replay suppression works independently for every path.
type UdpJunction struct {
	*core

	conn *net.UDPConn

	linksMu sync.Mutex
	links   map[string]*link.UdpLink

	wg sync.WaitGroup
}

// NewUDPJunction binds bindAddr and starts the engine.
func NewUDPJunction(bindAddr string, id junctionid.ID) (*UdpJunction, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", bindAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}

	log := slowlog.Std().WithField("junction_id", string(id))
	j := &UdpJunction{
		core:  newCore(id, log),
		conn:  conn,
		links: make(map[string]*link.UdpLink),
	}

	j.wg.Add(2)
	go j.receivePump()
	go j.sendPump()

	return j, nil
}

// LocalAddr returns the bound socket address.
func (j *UdpJunction) LocalAddr() net.Addr { return j.conn.LocalAddr() }

func (j *UdpJunction) linkFor(addr *net.UDPAddr) *link.UdpLink {
	key := addr.String()
	j.linksMu.Lock()
	defer j.linksMu.Unlock()
	l, ok := j.links[key]
	if !ok {
		l = link.NewUdpLink(addr, j.conn)
		j.links[key] = l
	}
	return l
}

func (j *UdpJunction) receivePump() {
	defer j.wg.Done()
	buf := make([]byte, udpRecvBufSize)
	for {
		j.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, addr, err := j.conn.ReadFromUDP(buf)
		select {
		case <-j.closed:
			return
		default:
		}
		if err != nil {
			continue // read timeout, or transient error; keep polling
		}

		l := j.linkFor(addr)
		payload, fresh, err := l.HandleIncoming(buf[:n])
		if err != nil || !fresh || payload == nil {
			continue
		}

		pkg, ok := j.decode(payload)
		if !ok {
			continue
		}
		j.handleIncoming(pkg, addr.String(), j)
	}
}

// sendTickInterval drives the belt-and-suspenders poll branch described in
// SPEC_FULL.md §4.9: a periodic drain of the send queue alongside the
// channel-wakeup path, matching the original engine's polling run loop.
const sendTickInterval = 100 * time.Millisecond

func (j *UdpJunction) sendPump() {
	defer j.wg.Done()
	ticker := time.NewTicker(sendTickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-j.closed:
			return
		case job := <-j.sendQueue:
			j.processSendJob(job)
		case <-ticker.C:
			select {
			case job := <-j.sendQueue:
				j.processSendJob(job)
			default:
			}
		}
	}
}

func (j *UdpJunction) processSendJob(job sendJob) {
	pkg := &packet.Package{
		Type:      job.typ,
		Recipient: job.recipient,
		Sender:    j.id,
		PackageID: j.nextSendPackageID(),
		Payload:   job.payload,
	}
	data, err := pkg.Pack()
	if err != nil {
		j.rejectedCounter.Add(1)
		return
	}

	if via, _, ok := j.routes.Best(job.recipient); ok {
		if err := j.sendFramed(via, data); err == nil {
			j.sentCount.Add(1)
			return
		}
	}
	j.broadcast("", data)
	j.sentCount.Add(1)
}

// sendFramed implements the forwarder interface for UDP: key is the
// remote address string of a known peer.
func (j *UdpJunction) sendFramed(key string, data []byte) error {
	addr, err := net.ResolveUDPAddr("udp", key)
	if err != nil {
		return err
	}
	return j.linkFor(addr).SendPayload(data)
}

func (j *UdpJunction) broadcast(exceptKey string, data []byte) {
	for _, key := range j.knownKeys() {
		if key == exceptKey {
			continue
		}
		_ = j.sendFramed(key, data)
	}
}

func (j *UdpJunction) knownKeys() []string {
	return j.KnownPeers()
}

// Join records peerAddr as a known peer and sends it a Hello(0).
func (j *UdpJunction) Join(ctx context.Context, peerAddr string) error {
	addr, err := net.ResolveUDPAddr("udp", peerAddr)
	if err != nil {
		return err
	}
	hello := packet.NewHello(j.id, junctionid.New(junctionid.HelloSentinel), 0)
	data, err := hello.Pack()
	if err != nil {
		return err
	}
	j.addPeer(addr.String())
	return j.linkFor(addr).SendPayload(data)
}

// MetricsSnapshot reports the §6.4 observability counters.
func (j *UdpJunction) MetricsSnapshot() metrics.Snapshot {
	snap := j.baseSnapshot()
	j.linksMu.Lock()
	snap.Links = float64(len(j.links))
	j.linksMu.Unlock()
	return snap
}

// Close signals the engine to stop and closes the bound socket.
func (j *UdpJunction) Close() error {
	j.closeDone()
	err := j.conn.Close()
	j.wg.Wait()
	return err
}
