package junction

import (
	"context"
	"testing"
	"time"

	"github.com/jython234/slowmesh/junctionid"
	"github.com/stretchr/testify/require"
)

func mustUDPJunction(t *testing.T, id string) *UdpJunction {
	t.Helper()
	j, err := NewUDPJunction("127.0.0.1:0", junctionid.New(id))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestPairPingPong(t *testing.T) {
	a := mustUDPJunction(t, "1")
	b := mustUDPJunction(t, "2")

	require.NoError(t, a.Join(context.Background(), b.LocalAddr().String()))

	require.Eventually(t, func() bool {
		return len(a.KnownPeers()) > 0 && len(b.KnownPeers()) > 0
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, a.Ping(junctionid.New("2")))

	require.Eventually(t, func() bool {
		return a.MetricsSnapshot().Pong == 1
	}, time.Second, 10*time.Millisecond)

	require.GreaterOrEqual(t, b.MetricsSnapshot().Unique, float64(1))
}

func TestLineOfFourDeliversAndLearnsReturnRoute(t *testing.T) {
	n1 := mustUDPJunction(t, "1")
	n2 := mustUDPJunction(t, "2")
	n3 := mustUDPJunction(t, "3")
	n4 := mustUDPJunction(t, "4")

	ctx := context.Background()
	require.NoError(t, n1.Join(ctx, n2.LocalAddr().String()))
	require.NoError(t, n2.Join(ctx, n3.LocalAddr().String()))
	require.NoError(t, n3.Join(ctx, n4.LocalAddr().String()))

	require.Eventually(t, func() bool {
		return len(n1.KnownPeers()) > 0 && len(n2.KnownPeers()) > 0 &&
			len(n3.KnownPeers()) > 0 && len(n4.KnownPeers()) > 0
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, n1.Send([]byte(`{"key":"ping"}`), junctionid.New("4")))

	var received ReceivedJSON
	require.Eventually(t, func() bool {
		item, ok := n4.Recv()
		if ok {
			received = item
			return true
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, `{"key":"ping"}`, string(received.Payload))

	// "4"'s best_route("1") should now be populated from observed traffic.
	_, _, ok := n4.routes.Best(junctionid.New("1"))
	require.True(t, ok)

	require.NoError(t, n4.Pong(junctionid.New("1")))
	require.Eventually(t, func() bool {
		return n1.MetricsSnapshot().Pong == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSquareFanInDeduplicates(t *testing.T) {
	n1 := mustUDPJunction(t, "1")
	n2 := mustUDPJunction(t, "2")
	n3 := mustUDPJunction(t, "3")
	n4 := mustUDPJunction(t, "4")

	ctx := context.Background()
	require.NoError(t, n1.Join(ctx, n2.LocalAddr().String()))
	require.NoError(t, n1.Join(ctx, n3.LocalAddr().String()))
	require.NoError(t, n2.Join(ctx, n4.LocalAddr().String()))
	require.NoError(t, n3.Join(ctx, n4.LocalAddr().String()))

	require.Eventually(t, func() bool {
		return len(n1.KnownPeers()) == 2 && len(n4.KnownPeers()) == 2
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, n1.Send([]byte(`{"k":"v"}`), junctionid.New("4")))

	require.Eventually(t, func() bool {
		_, ok := n4.Recv()
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return n4.MetricsSnapshot().Duplicate == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, ok := n4.Recv()
	require.False(t, ok, "exactly one copy should have reached the receive queue")
}

func TestPyramidFanInDeduplicatesAcrossThreePaths(t *testing.T) {
	hub := mustUDPJunction(t, "hub")
	mid1 := mustUDPJunction(t, "mid1")
	mid2 := mustUDPJunction(t, "mid2")
	mid3 := mustUDPJunction(t, "mid3")
	dst := mustUDPJunction(t, "dst")

	ctx := context.Background()
	require.NoError(t, hub.Join(ctx, mid1.LocalAddr().String()))
	require.NoError(t, hub.Join(ctx, mid2.LocalAddr().String()))
	require.NoError(t, hub.Join(ctx, mid3.LocalAddr().String()))
	require.NoError(t, mid1.Join(ctx, dst.LocalAddr().String()))
	require.NoError(t, mid2.Join(ctx, dst.LocalAddr().String()))
	require.NoError(t, mid3.Join(ctx, dst.LocalAddr().String()))

	require.Eventually(t, func() bool {
		return len(hub.KnownPeers()) == 3 && len(dst.KnownPeers()) == 3
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Send([]byte(`{"fan":"in"}`), junctionid.New("dst")))

	require.Eventually(t, func() bool {
		_, ok := dst.Recv()
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	// Three independent paths converge at dst: one unique delivery, two
	// redundant arrivals suppressed by the route table's package-id window.
	require.Eventually(t, func() bool {
		return dst.MetricsSnapshot().Duplicate == 2
	}, 2*time.Second, 10*time.Millisecond)

	_, ok := dst.Recv()
	require.False(t, ok, "exactly one copy should have reached the receive queue")
}

func TestSeedWithoutHandshake(t *testing.T) {
	a := mustUDPJunction(t, "a")
	b := mustUDPJunction(t, "b")

	a.Seed(b.LocalAddr().String())
	require.Contains(t, a.KnownPeers(), b.LocalAddr().String())
}
