package texcache

import (
	"errors"
	"image"
	"math/rand"
	"testing"

	"github.com/eak1mov/go-terrain/gpu"
	"github.com/eak1mov/go-terrain/tile"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	size    int
	fetches map[tile.ID]int
	fail    map[tile.ID]bool
}

func newFakeSource(size int) *fakeSource {
	return &fakeSource{size: size, fetches: make(map[tile.ID]int), fail: make(map[tile.ID]bool)}
}

func (s *fakeSource) FetchTile(tileID tile.ID, flip bool) (*image.RGBA, error) {
	s.fetches[tileID]++
	if s.fail[tileID] {
		return nil, errors.New("corrupt tile")
	}
	return image.NewRGBA(image.Rect(0, 0, s.size, s.size)), nil
}

// checkPartition verifies that every activated entry sits in exactly one list
// at the index it records.
func checkPartition(t *testing.T, c *Cache) {
	t.Helper()
	seen := make(map[*TileTexture]int)
	for i, e := range c.active {
		require.Equal(t, i, e.idx, "active[%d] records index %d", i, e.idx)
		require.Equal(t, inActive, e.list)
		require.True(t, e.active)
		seen[e]++
	}
	for i, e := range c.inactive {
		require.Equal(t, i, e.idx, "inactive[%d] records index %d", i, e.idx)
		require.Equal(t, inInactive, e.list)
		require.False(t, e.active)
		seen[e]++
	}
	for _, e := range c.table {
		if e.list == inNone {
			require.Equal(t, -1, e.idx)
			require.False(t, e.active)
			continue
		}
		require.Equal(t, 1, seen[e], "%v listed %d times", e.tileID, seen[e])
	}
	var resident uint64
	for _, e := range c.table {
		if e.txt != nil {
			resident += e.txt.Size()
		}
	}
	require.Equal(t, resident, c.residentBytes)
}

func TestGetIsLazy(t *testing.T) {
	device := gpu.NewMemDevice()
	src := newFakeSource(8)
	c := New(device)

	a := c.Get(src, tile.ID{Level: 1, Row: 1, Col: 0})
	require.Same(t, a, c.Get(src, tile.ID{Level: 1, Row: 1, Col: 0}))
	require.NotSame(t, a, c.Get(newFakeSource(8), tile.ID{Level: 1, Row: 1, Col: 0}))
	require.Nil(t, a.Texture())
	require.False(t, a.Active())
	require.Empty(t, src.fetches)
	require.Zero(t, device.Stats().TexturesCreated)
	checkPartition(t, c)
}

func TestActivateLoadsOnce(t *testing.T) {
	device := gpu.NewMemDevice()
	src := newFakeSource(8)
	c := New(device)
	id := tile.ID{Level: 2, Row: 3, Col: 1}
	e := c.Get(src, id)

	require.NoError(t, c.Activate(e))
	require.True(t, e.Active())
	require.NotNil(t, e.Texture())
	txt := e.Texture()
	checkPartition(t, c)

	c.Deactivate(e)
	require.False(t, e.Active())
	checkPartition(t, c)

	require.NoError(t, c.Activate(e))
	require.Same(t, txt, e.Texture())
	require.Equal(t, 1, src.fetches[id])
	require.Equal(t, 1, device.Stats().TexturesCreated)
	require.Equal(t, 1, c.Stats().Hits)
	require.Equal(t, 1, c.Stats().Misses)
}

func TestStateViolations(t *testing.T) {
	c := New(gpu.NewMemDevice())
	src := newFakeSource(4)
	e := c.Get(src, tile.ID{})

	require.Panics(t, func() { c.Deactivate(e) })
	require.NoError(t, c.Activate(e))
	require.Panics(t, func() { c.Activate(e) })
	require.Panics(t, func() { c.Remove(e) })

	other := New(gpu.NewMemDevice())
	require.Panics(t, func() { other.Deactivate(e) })
	checkPartition(t, c)

	c.Deactivate(e)
	c.Remove(e)
	require.Panics(t, func() { c.Remove(e) })
	require.Zero(t, c.Stats().Entries)
	checkPartition(t, c)
}

func TestActivateFailure(t *testing.T) {
	device := gpu.NewMemDevice()
	src := newFakeSource(4)
	c := New(device)

	bad := c.Get(src, tile.ID{Level: 1})
	src.fail[tile.ID{Level: 1}] = true
	require.Error(t, c.Activate(bad))
	require.False(t, bad.Active())

	e := c.Get(src, tile.ID{})
	device.FailTextures = 1
	require.ErrorIs(t, c.Activate(e), gpu.ErrResourceCreation)
	require.False(t, e.Active())
	checkPartition(t, c)

	require.NoError(t, c.Activate(e))
	checkPartition(t, c)
}

func TestPartitionRandomized(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	c := New(gpu.NewMemDevice())
	src := newFakeSource(2)

	var entries []*TileTexture
	for row := range 4 {
		for col := range 4 {
			entries = append(entries, c.Get(src, tile.ID{Level: 2, Row: uint32(row), Col: uint32(col)}))
		}
	}

	for range 2000 {
		e := entries[rnd.Intn(len(entries))]
		if e.Active() {
			c.Deactivate(e)
		} else {
			require.NoError(t, c.Activate(e))
		}
		checkPartition(t, c)
	}
	for id, n := range src.fetches {
		require.Equal(t, 1, n, "tile %v fetched %d times", id, n)
	}
}

func TestEviction(t *testing.T) {
	device := gpu.NewMemDevice()
	src := newFakeSource(16)
	probe := gpu.TileTextureDescriptor("", image.NewRGBA(image.Rect(0, 0, 16, 16))).ByteSize()
	c := New(device, WithResidentLimit(3*probe))

	entries := make([]*TileTexture, 5)
	for i := range entries {
		entries[i] = c.Get(src, tile.ID{Level: 3, Row: 0, Col: uint32(i)})
	}

	// three fit
	for _, e := range entries[:3] {
		require.NoError(t, c.Activate(e))
	}
	require.Zero(t, c.Stats().Evictions)

	// deactivate in order 1, 0, 2: entry 1 is least recently used
	c.Deactivate(entries[1])
	c.Deactivate(entries[0])
	c.Deactivate(entries[2])

	require.NoError(t, c.Activate(entries[3]))
	require.Equal(t, 1, c.Stats().Evictions)
	require.False(t, entries[1].Resident())
	require.True(t, entries[0].Resident())
	require.Equal(t, inInactive, entries[1].list, "evicted entries stay on the inactive list")
	checkPartition(t, c)

	require.NoError(t, c.Activate(entries[4]))
	require.False(t, entries[0].Resident())
	require.LessOrEqual(t, c.Stats().ResidentBytes, c.Stats().ResidentLimit)
	checkPartition(t, c)

	// a reactivated evicted entry is fetched again
	require.NoError(t, c.Activate(entries[1]))
	require.Equal(t, 2, src.fetches[entries[1].TileID()])
	require.True(t, entries[1].Resident())
	checkPartition(t, c)
	require.Equal(t, device.Stats().LiveBytes, c.Stats().ResidentBytes)
}

func TestOverBudgetWithOnlyActive(t *testing.T) {
	c := New(gpu.NewMemDevice(), WithResidentLimit(1))
	src := newFakeSource(4)
	a := c.Get(src, tile.ID{})
	require.NoError(t, c.Activate(a))
	require.True(t, a.Resident())
	require.Zero(t, c.Trim())

	c.Deactivate(a)
	require.Equal(t, 1, c.Trim())
	require.False(t, a.Resident())
	checkPartition(t, c)
}

func TestRemoveSourceAndClose(t *testing.T) {
	device := gpu.NewMemDevice()
	c := New(device)
	a, b := newFakeSource(4), newFakeSource(4)
	for _, src := range []Source{a, b} {
		for tileID := range tile.Pyramid(1) {
			e := c.Get(src, tileID)
			require.NoError(t, c.Activate(e))
			if tileID.Level == 1 {
				c.Deactivate(e)
			}
		}
	}
	require.Panics(t, func() { c.RemoveSource(a) })

	c.Deactivate(c.Get(b, tile.ID{}))
	require.Equal(t, 5, c.RemoveSource(b))
	require.Equal(t, 5, c.Stats().Entries)
	checkPartition(t, c)

	c.Close()
	require.Zero(t, device.Stats().LiveBytes)
	require.Panics(t, func() { c.Get(a, tile.ID{}) })
}
