package junctionid

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	id := New("junction-7")

	var buf bytes.Buffer
	require.NoError(t, id.Pack(&buf))

	got, n, err := Unpack(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, id, got)
	require.Equal(t, buf.Len(), n)
}

func TestUnpackTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New("some-id").Pack(&buf))

	full := buf.Bytes()
	for i := 0; i < len(full); i++ {
		_, _, err := Unpack(full[:i])
		require.ErrorIs(t, err, ErrTruncated, "prefix length %d should fail", i)
	}
}

func TestUnpackRejectsNonUTF8(t *testing.T) {
	data := []byte{2, 0, 0xff, 0xfe}
	_, _, err := Unpack(data)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestEmptyIDRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New("").Pack(&buf))
	require.Equal(t, []byte{0, 0}, buf.Bytes())

	got, n, err := Unpack(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, ID(""), got)
	require.Equal(t, 2, n)
}
