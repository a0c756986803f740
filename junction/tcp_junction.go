package junction

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/jython234/slowmesh/internal/slowlog"
	"github.com/jython234/slowmesh/junctionid"
	"github.com/jython234/slowmesh/link"
	"github.com/jython234/slowmesh/metrics"
	"github.com/jython234/slowmesh/packet"
)

// TcpJunction owns a listening socket, accepts and dials peers, and
// maintains many concurrently active TcpLinks. Unlike UDP, a link here is
// a reliable ordered stream, so only the destination's route-table window
// needs to reject redundant copies arriving via different links; no
// per-link replay tracker is needed (§4.6).
type TcpJunction struct {
	*core

	ln net.Listener

	linksMu sync.Mutex
	links   map[string]*link.TcpLink // keyed by strconv.FormatUint(link.ID, 10)

	wg sync.WaitGroup
}

// NewTCPJunction binds bindAddr, starts listening, and starts the engine.
func NewTCPJunction(bindAddr string, id junctionid.ID) (*TcpJunction, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}

	log := slowlog.Std().WithField("junction_id", string(id))
	j := &TcpJunction{
		core:  newCore(id, log),
		ln:    ln,
		links: make(map[string]*link.TcpLink),
	}

	j.wg.Add(2)
	go j.acceptLoop()
	go j.sendPump()

	return j, nil
}

// LocalAddr returns the listening socket address.
func (j *TcpJunction) LocalAddr() net.Addr { return j.ln.Addr() }

func (j *TcpJunction) acceptLoop() {
	defer j.wg.Done()
	for {
		conn, err := j.ln.Accept()
		if err != nil {
			select {
			case <-j.closed:
				return
			default:
				continue
			}
		}

		l, err := link.AcceptTcpLink(conn)
		if err != nil {
			j.log.WithField("remote", conn.RemoteAddr().String()).Warn("tcp handshake failed on accept")
			continue
		}
		j.addLink(l)
	}
}

// Join dials peerAddr, performs the TCP handshake, registers the resulting
// link, and sends a Hello(0) over it.
func (j *TcpJunction) Join(ctx context.Context, peerAddr string) error {
	l, err := link.DialTcpLink(ctx, peerAddr)
	if err != nil {
		return err
	}
	j.addLink(l)

	hello := packet.NewHello(j.id, junctionid.New(junctionid.HelloSentinel), 0)
	data, err := hello.Pack()
	if err != nil {
		return err
	}
	return l.Send(data)
}

func (j *TcpJunction) linkKey(l *link.TcpLink) string {
	return strconv.FormatUint(l.ID, 10)
}

func (j *TcpJunction) addLink(l *link.TcpLink) {
	key := j.linkKey(l)
	j.linksMu.Lock()
	j.links[key] = l
	j.linksMu.Unlock()
	j.addPeer(key)

	j.wg.Add(1)
	go j.receiveLoop(key, l)
}

func (j *TcpJunction) removeLink(key string) {
	j.linksMu.Lock()
	l, ok := j.links[key]
	if ok {
		delete(j.links, key)
	}
	j.linksMu.Unlock()
	if ok {
		l.Close()
	}
}

func (j *TcpJunction) receiveLoop(key string, l *link.TcpLink) {
	defer j.wg.Done()
	for {
		data, err := l.Receive()
		if err != nil {
			select {
			case <-j.closed:
				return
			default:
			}
			j.log.WithField("link_id", l.ID).WithField("error", fmt.Sprint(err)).Warn("tcp link read failed, tearing down")
			j.removeLink(key)
			return
		}

		pkg, ok := j.decode(data)
		if !ok {
			continue
		}
		j.handleIncoming(pkg, key, j)
	}
}

func (j *TcpJunction) sendPump() {
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

func (j *TcpJunction) processSendJob(job sendJob) {
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

// sendFramed implements the forwarder interface for TCP: key is the
// string-encoded link id.
func (j *TcpJunction) sendFramed(key string, data []byte) error {
	j.linksMu.Lock()
	l, ok := j.links[key]
	j.linksMu.Unlock()
	if !ok {
		return fmt.Errorf("junction: no such link %q", key)
	}
	if err := l.Send(data); err != nil {
		j.removeLink(key)
		return err
	}
	return nil
}

func (j *TcpJunction) broadcast(exceptKey string, data []byte) {
	for _, key := range j.knownKeys() {
		if key == exceptKey {
			continue
		}
		_ = j.sendFramed(key, data)
	}
}

func (j *TcpJunction) knownKeys() []string {
	j.linksMu.Lock()
	defer j.linksMu.Unlock()
	out := make([]string, 0, len(j.links))
	for k := range j.links {
		out = append(out, k)
	}
	return out
}

// MetricsSnapshot reports the §6.4 observability counters.
func (j *TcpJunction) MetricsSnapshot() metrics.Snapshot {
	snap := j.baseSnapshot()
	j.linksMu.Lock()
	snap.Links = float64(len(j.links))
	j.linksMu.Unlock()
	return snap
}

// Close signals the engine to stop, closes the listener and every link.
func (j *TcpJunction) Close() error {
	j.closeDone()
	err := j.ln.Close()

	j.linksMu.Lock()
	links := make([]*link.TcpLink, 0, len(j.links))
	for _, l := range j.links {
		links = append(links, l)
	}
	j.linksMu.Unlock()
	for _, l := range links {
		l.Close()
	}

	j.wg.Wait()
	return err
}
