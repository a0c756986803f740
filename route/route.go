// Package route implements the per-destination route table: candidate
// next hops keyed by observed hop count, plus the per-destination package-id
// window used to recognize already-processed originating packages.
package route

import (
	"sync"

	"github.com/jython234/slowmesh/junctionid"
	"github.com/jython234/slowmesh/tracker"
)

// Info is what the table remembers about one candidate next hop for a
// destination.
type Info struct {
	Hops uint8
	Time float32
}

// entry is the per-destination state: candidate next hops plus the window
// that recognizes duplicate originating packages from that destination.
type entry struct {
	hops   map[string]Info
	window *tracker.PacketTracker
}

// Table maps destination JunctionIds to their known routes. It is safe for
// concurrent use.
type Table struct {
	mu    sync.Mutex
	dests map[junctionid.ID]*entry
}

// New returns an empty route table.
func New() *Table {
	return &Table{dests: make(map[junctionid.ID]*entry)}
}

// Update records that dest was reached via "via" (a next-hop address or
// link identifier, as an opaque string key) in hops hops, and admits pkgID
// into dest's package-id window. It reports whether the window accepted
// pkgID as fresh — false means the same originating package has already
// been processed from this sender via some route.
func (t *Table) Update(dest junctionid.ID, via string, hops uint8, tm float32, pkgID uint32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.dests[dest]
	if !ok {
		e = &entry{hops: make(map[string]Info), window: tracker.New()}
		t.dests[dest] = e
	}
	e.hops[via] = Info{Hops: hops, Time: tm}

	return e.window.Update(uint64(pkgID)) == tracker.Success
}

// Best returns the next-hop key with the minimum observed hop count for
// dest, and whether any route is known at all. Ties between equal-hop
// routes are broken by Go map iteration order, which the spec leaves
// unspecified (see DESIGN.md).
func (t *Table) Best(dest junctionid.ID) (via string, info Info, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, exists := t.dests[dest]
	if !exists || len(e.hops) == 0 {
		return "", Info{}, false
	}

	best := ""
	var bestInfo Info
	first := true
	for k, v := range e.hops {
		if first || v.Hops < bestInfo.Hops {
			best = k
			bestInfo = v
			first = false
		}
	}
	return best, bestInfo, true
}

// Remove evicts all known routes for dest.
func (t *Table) Remove(dest junctionid.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.dests, dest)
}
