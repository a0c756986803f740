package junction

import (
	"context"
	"testing"
	"time"

	"github.com/jython234/slowmesh/internal/slowlog"
	"github.com/jython234/slowmesh/junctionid"
	"github.com/stretchr/testify/require"
)

func TestWaitForPackageUnblocksOnPush(t *testing.T) {
	c := newCore(junctionid.New("x"), slowlog.Std())

	go func() {
		time.Sleep(20 * time.Millisecond)
		c.pushReceived(ReceivedJSON{Source: "y", Payload: []byte("hi")})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	item, ok := c.WaitForPackage(ctx)
	require.True(t, ok)
	require.Equal(t, "hi", string(item.Payload))
}

func TestWaitForPackageReturnsFalseOnContextDone(t *testing.T) {
	c := newCore(junctionid.New("x"), slowlog.Std())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := c.WaitForPackage(ctx)
	require.False(t, ok)
}

func TestSendAfterCloseFails(t *testing.T) {
	c := newCore(junctionid.New("x"), slowlog.Std())
	c.closeDone()

	err := c.Send([]byte("x"), junctionid.New("y"))
	require.ErrorIs(t, err, ErrClosed)
}
