package link

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSocket struct {
	sent [][]byte
}

func (f *fakeSocket) WriteToUDP(b []byte, addr *net.UDPAddr) (int, error) {
	cp := make([]byte, len(b))
	copy(cp, b)
	f.sent = append(f.sent, cp)
	return len(b), nil
}

func TestUdpLinkSendStampsIncreasingIDs(t *testing.T) {
	sock := &fakeSocket{}
	l := NewUdpLink(&net.UDPAddr{Port: 1234}, sock)

	require.NoError(t, l.SendPayload([]byte("one")))
	require.NoError(t, l.SendPayload([]byte("two")))

	f1, err := unpackUDPFrame(sock.sent[0])
	require.NoError(t, err)
	f2, err := unpackUDPFrame(sock.sent[1])
	require.NoError(t, err)

	require.Equal(t, uint64(1), f1.packetID)
	require.Equal(t, uint64(2), f2.packetID)
}

func TestUdpLinkHandleIncomingFreshThenDuplicate(t *testing.T) {
	sock := &fakeSocket{}
	l := NewUdpLink(&net.UDPAddr{Port: 1234}, sock)

	frame := packUDPPayloadFrame(5, []byte("payload"))

	payload, fresh, err := l.HandleIncoming(frame)
	require.NoError(t, err)
	require.True(t, fresh)
	require.Equal(t, []byte("payload"), payload)

	_, fresh, err = l.HandleIncoming(frame)
	require.NoError(t, err)
	require.False(t, fresh)
}

func TestUdpLinkRejectsOversizePayload(t *testing.T) {
	sock := &fakeSocket{}
	l := NewUdpLink(&net.UDPAddr{Port: 1234}, sock)

	err := l.SendPayload(make([]byte, MaxUDPPayload))
	require.Error(t, err)
}
