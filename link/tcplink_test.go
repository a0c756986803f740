package link

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTcpLinkDialAcceptHandshake(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	serverLinkCh := make(chan *TcpLink, 1)
	serverErrCh := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			serverErrCh <- err
			return
		}
		l, err := AcceptTcpLink(conn)
		if err != nil {
			serverErrCh <- err
			return
		}
		serverLinkCh <- l
	}()

	clientLink, err := DialTcpLink(context.Background(), ln.Addr().String())
	require.NoError(t, err)
	defer clientLink.Close()

	select {
	case serverLink := <-serverLinkCh:
		defer serverLink.Close()
		require.NotEqual(t, serverLink.ID, clientLink.ID)
	case err := <-serverErrCh:
		t.Fatalf("server handshake failed: %v", err)
	}
}

func TestTcpLinkSendReceiveAfterHandshake(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	serverLinkCh := make(chan *TcpLink, 1)
	go func() {
		conn, _ := ln.Accept()
		l, _ := AcceptTcpLink(conn)
		serverLinkCh <- l
	}()

	clientLink, err := DialTcpLink(context.Background(), ln.Addr().String())
	require.NoError(t, err)
	defer clientLink.Close()

	serverLink := <-serverLinkCh
	require.NotNil(t, serverLink)
	defer serverLink.Close()

	require.NoError(t, clientLink.Send([]byte("ping payload")))
	got, err := serverLink.Receive()
	require.NoError(t, err)
	require.Equal(t, []byte("ping payload"), got)
}

func TestTcpLinkHandshakeFailsOnWrongLiteral(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		// Reply with garbage instead of SLOW_WELCOME.
		_ = writeTCPFrame(conn, []byte("not the hello you are looking for"))
	}()

	_, err = DialTcpLink(context.Background(), ln.Addr().String())
	require.ErrorIs(t, err, ErrHandshakeFailed)
}
