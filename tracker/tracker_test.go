package tracker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpecScenario(t *testing.T) {
	tr := New()
	require.Equal(t, Success, tr.Update(5))
	require.Equal(t, Success, tr.Update(3))
	require.Equal(t, Duplicate, tr.Update(3))
	require.Equal(t, Duplicate, tr.Update(5))
	require.Equal(t, Success, tr.Update(64))
	require.Equal(t, Duplicate, tr.Update(5))
	require.Equal(t, Success, tr.Update(100))
	require.Equal(t, Old, tr.Update(1))
}

func TestMonotonicSequenceAllSucceed(t *testing.T) {
	tr := New()
	// i starts at 1: on a fresh tracker highest==0, so Update(0) is the
	// exact-replay case (shift==0, Duplicate), not a fresh id.
	for i := uint64(1); i < 200; i++ {
		require.Equal(t, Success, tr.Update(i))
		require.Equal(t, i, tr.Highest())
	}
}

func TestDuplicateThenOldAfterWindowSlides(t *testing.T) {
	tr := New()
	require.Equal(t, Success, tr.Update(10))
	require.Equal(t, Duplicate, tr.Update(10))

	require.Equal(t, Success, tr.Update(10+64))
	require.Equal(t, Old, tr.Update(10))
}

func TestLargeForwardJumpResetsWindow(t *testing.T) {
	tr := New()
	require.Equal(t, Success, tr.Update(5))
	require.Equal(t, Success, tr.Update(1000))
	require.Equal(t, uint64(1000), tr.Highest())
	require.Equal(t, uint64(1), tr.Bitfield())

	// Anything within the old window before the jump is now Old.
	require.Equal(t, Old, tr.Update(5))
}

func TestZeroValueTrackerFirstUpdateIsDuplicateAtZero(t *testing.T) {
	tr := New()
	// A fresh tracker starts at highest=0; admitting id 0 is shift==0,
	// which the spec defines as Duplicate (exact replay of current highest).
	require.Equal(t, Duplicate, tr.Update(0))
}
