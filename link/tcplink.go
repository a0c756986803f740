package link

import (
	"bytes"
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"

	"github.com/jython234/slowmesh/internal/slowlog"
)

var helloMessage = []byte("SLOW_HELLO")
var welcomeMessage = []byte("SLOW_WELCOME")

// HandshakeTimeout bounds how long the hello/welcome exchange may take.
const HandshakeTimeout = 5 * time.Second

// ErrHandshakeFailed is returned when the peer sends the wrong literal or
// the handshake does not complete within HandshakeTimeout.
var ErrHandshakeFailed = errors.New("link: tcp handshake failed")

// nextLinkID is the process-wide monotonic counter backing TcpLink.ID; its
// only invariant is uniqueness within this process's lifetime.
var nextLinkID atomic.Uint64

// TcpLink is a TCP stream peer, reachable after a completed hello/welcome
// handshake, framed with writeTCPFrame/readTCPFrame.
type TcpLink struct {
	ID         uint64
	Tag        string // loggable, human-readable (xid), never compared on the wire
	RemoteAddr net.Addr

	conn   net.Conn
	connMu sync.Mutex // serializes writes; reads are single-owner per §5

	log slowlog.Logger
}

func newTcpLink(conn net.Conn) *TcpLink {
	id := nextLinkID.Add(1)
	tag := xid.New().String()
	return &TcpLink{
		ID:         id,
		Tag:        tag,
		RemoteAddr: conn.RemoteAddr(),
		conn:       conn,
		log: slowlog.Std().WithFields(slowlog.Fields{
			"link_id":  id,
			"link_tag": tag,
			"remote":   conn.RemoteAddr().String(),
		}),
	}
}

// DialTcpLink connects to addr and performs the client side of the
// handshake (send SLOW_HELLO, expect SLOW_WELCOME within HandshakeTimeout).
func DialTcpLink(ctx context.Context, addr string) (*TcpLink, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	l := newTcpLink(conn)
	if err := l.hello(); err != nil {
		conn.Close()
		return nil, err
	}
	l.log.Info("tcp link established (dial)")
	return l, nil
}

// AcceptTcpLink wraps an already-accepted net.Conn and performs the server
// side of the handshake (expect SLOW_HELLO within HandshakeTimeout, reply
// SLOW_WELCOME).
func AcceptTcpLink(conn net.Conn) (*TcpLink, error) {
	l := newTcpLink(conn)
	if err := l.welcome(); err != nil {
		conn.Close()
		return nil, err
	}
	l.log.Info("tcp link established (accept)")
	return l, nil
}

// Send frames and writes data over the link. Size validation and framing
// are delegated to writeTCPFrame.
func (l *TcpLink) Send(data []byte) error {
	l.connMu.Lock()
	defer l.connMu.Unlock()
	return writeTCPFrame(l.conn, data)
}

// Receive reads and unframes one message from the link.
func (l *TcpLink) Receive() ([]byte, error) {
	return readTCPFrame(l.conn)
}

// Close tears down the underlying connection.
func (l *TcpLink) Close() error {
	return l.conn.Close()
}

func (l *TcpLink) hello() error {
	l.conn.SetDeadline(time.Now().Add(HandshakeTimeout))
	defer l.conn.SetDeadline(time.Time{})

	if err := writeTCPFrame(l.conn, helloMessage); err != nil {
		return ErrHandshakeFailed
	}
	resp, err := readTCPFrame(l.conn)
	if err != nil || !bytes.Equal(resp, welcomeMessage) {
		return ErrHandshakeFailed
	}
	return nil
}

func (l *TcpLink) welcome() error {
	l.conn.SetDeadline(time.Now().Add(HandshakeTimeout))
	defer l.conn.SetDeadline(time.Time{})

	req, err := readTCPFrame(l.conn)
	if err != nil || !bytes.Equal(req, helloMessage) {
		return ErrHandshakeFailed
	}
	if err := writeTCPFrame(l.conn, welcomeMessage); err != nil {
		return ErrHandshakeFailed
	}
	return nil
}
