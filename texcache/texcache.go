// Package texcache caches GPU textures for the tiles of texture quadtrees.
//
// Every texture the cache hands out is either active (needed for the current
// frame) or inactive (kept for reuse). Both sets are slices, and each texture
// remembers which slice holds it and at what index, so moving a texture between
// the sets is O(1). The cache is not safe for concurrent use.
package texcache

import (
	"cmp"
	"fmt"
	"image"
	"log/slog"
	"slices"

	"github.com/eak1mov/go-terrain/gpu"
	"github.com/eak1mov/go-terrain/tile"
)

const (
	OneMeg = 1 << 20
	OneGig = 1 << 30

	// DefaultResidentLimit is the default budget for texture memory.
	DefaultResidentLimit = OneGig
)

// Source supplies decoded tiles; *tqt.Reader implements it.
type Source interface {
	FetchTile(tileID tile.ID, flip bool) (*image.RGBA, error)
}

type membership uint8

const (
	inNone membership = iota
	inActive
	inInactive
)

// TileTexture is the cache entry for one tile of one source.
type TileTexture struct {
	cache    *Cache
	src      Source
	tileID   tile.ID
	txt      gpu.Texture
	active   bool
	list     membership
	idx      int
	lastUsed uint64
}

func (t *TileTexture) Source() Source   { return t.src }
func (t *TileTexture) TileID() tile.ID  { return t.tileID }
func (t *TileTexture) Active() bool     { return t.active }
func (t *TileTexture) Resident() bool   { return t.txt != nil }
func (t *TileTexture) LastUsed() uint64 { return t.lastUsed }

// Texture returns the GPU texture, or nil if the tile has never been activated
// or its texture was evicted.
func (t *TileTexture) Texture() gpu.Texture { return t.txt }

type key struct {
	src    Source
	tileID tile.ID
}

type Stats struct {
	Entries       int
	Active        int
	Inactive      int
	ResidentBytes uint64
	ResidentLimit uint64
	Hits          int
	Misses        int
	Evictions     int
}

type config struct {
	logger        *slog.Logger
	residentLimit uint64
	flip          bool
}

type Option func(*config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

func WithResidentLimit(bytes uint64) Option {
	return func(c *config) { c.residentLimit = bytes }
}

// WithFlip sets whether tiles are flipped vertically on load (default true).
func WithFlip(flip bool) Option {
	return func(c *config) { c.flip = flip }
}

type Cache struct {
	device        gpu.Device
	logger        *slog.Logger
	flip          bool
	residentLimit uint64
	residentBytes uint64
	clock         uint64

	table    map[key]*TileTexture
	active   []*TileTexture
	inactive []*TileTexture

	hits, misses, evictions int
	closed                  bool
}

func New(device gpu.Device, opts ...Option) *Cache {
	config := config{
		logger:        slog.New(slog.DiscardHandler),
		residentLimit: DefaultResidentLimit,
		flip:          true,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Cache{
		device:        device,
		logger:        config.logger,
		flip:          config.flip,
		residentLimit: config.residentLimit,
		table:         make(map[key]*TileTexture),
	}
}

// Get returns the entry for a tile, creating it if needed. It never reads the
// source or touches the device.
func (c *Cache) Get(src Source, tileID tile.ID) *TileTexture {
	c.checkOpen()
	k := key{src, tileID}
	if t, ok := c.table[k]; ok {
		return t
	}
	t := &TileTexture{
		cache:  c,
		src:    src,
		tileID: tileID,
		idx:    -1,
	}
	c.table[k] = t
	return t
}

// Activate marks a texture as needed, loading the tile and creating its GPU
// texture if it has none. Activating an active texture panics.
func (c *Cache) Activate(t *TileTexture) error {
	c.checkOwned(t)
	if t.active {
		panic(fmt.Sprintf("texcache: activate of active texture %v", t.tileID))
	}

	created := false
	if t.txt == nil {
		img, err := t.src.FetchTile(t.tileID, c.flip)
		if err != nil {
			return fmt.Errorf("texcache: loading %v: %w", t.tileID, err)
		}
		txt, err := c.device.CreateTexture(gpu.TileTextureDescriptor("tile "+t.tileID.String(), img), img)
		if err != nil {
			return fmt.Errorf("texcache: creating texture %v: %w", t.tileID, err)
		}
		t.txt = txt
		c.residentBytes += txt.Size()
		c.misses++
		created = true
		instrumentActivate(false)
		instrumentResidentBytes(float64(txt.Size()))
		c.logger.Debug("texcache: created texture", "tile", t.tileID, "bytes", txt.Size(), "resident", c.residentBytes)
	} else {
		c.hits++
		instrumentActivate(true)
	}

	c.move(t, inActive)
	t.active = true

	if created && c.residentBytes > c.residentLimit {
		c.evict()
	}
	return nil
}

// Deactivate marks an active texture as no longer needed. The texture stays
// resident until evicted. Deactivating an inactive texture panics.
func (c *Cache) Deactivate(t *TileTexture) {
	c.checkOwned(t)
	if !t.active {
		panic(fmt.Sprintf("texcache: deactivate of inactive texture %v", t.tileID))
	}
	c.clock++
	t.lastUsed = c.clock
	c.move(t, inInactive)
	t.active = false
}

// Remove forgets an inactive entry and frees its texture. Removing an active or
// unknown entry panics.
func (c *Cache) Remove(t *TileTexture) {
	c.checkOwned(t)
	if t.active {
		panic(fmt.Sprintf("texcache: remove of active texture %v", t.tileID))
	}
	c.release(t)
	c.move(t, inNone)
	delete(c.table, key{t.src, t.tileID})
	t.cache = nil
}

// RemoveSource removes every entry of src, e.g. when its file is closed.
// It panics if any of them is active.
func (c *Cache) RemoveSource(src Source) int {
	c.checkOpen()
	var victims []*TileTexture
	for k, t := range c.table {
		if k.src == src {
			if t.active {
				panic(fmt.Sprintf("texcache: remove of active texture %v", t.tileID))
			}
			victims = append(victims, t)
		}
	}
	for _, t := range victims {
		c.Remove(t)
	}
	return len(victims)
}

// Trim evicts inactive textures until the resident total is within the limit.
func (c *Cache) Trim() int {
	c.checkOpen()
	if c.residentBytes <= c.residentLimit {
		return 0
	}
	return c.evict()
}

// evict frees the textures of the least recently deactivated inactive entries.
// Evicted entries stay on the inactive list without a texture.
func (c *Cache) evict() int {
	candidates := make([]*TileTexture, 0, len(c.inactive))
	for _, t := range c.inactive {
		if t.txt != nil {
			candidates = append(candidates, t)
		}
	}
	slices.SortFunc(candidates, func(a, b *TileTexture) int {
		return cmp.Compare(a.lastUsed, b.lastUsed)
	})

	n := 0
	for _, t := range candidates {
		if c.residentBytes <= c.residentLimit {
			break
		}
		c.release(t)
		n++
	}
	c.evictions += n
	instrumentEvictions(n)
	if c.residentBytes > c.residentLimit {
		c.logger.Debug("texcache: over budget with no inactive textures left",
			"resident", c.residentBytes, "limit", c.residentLimit, "active", len(c.active))
	} else if n > 0 {
		c.logger.Debug("texcache: evicted", "count", n, "resident", c.residentBytes)
	}
	return n
}

func (c *Cache) release(t *TileTexture) {
	if t.txt == nil {
		return
	}
	size := t.txt.Size()
	t.txt.Destroy()
	t.txt = nil
	c.residentBytes -= size
	instrumentResidentBytes(-float64(size))
}

// move takes t out of its current list (if any) and appends it to the list named by to.
// Removal swaps the last element into t's slot and updates that element's index.
func (c *Cache) move(t *TileTexture, to membership) {
	if t.list != inNone {
		from := c.list(t.list)
		list := *from
		if t.idx < 0 || t.idx >= len(list) || list[t.idx] != t {
			panic(fmt.Sprintf("texcache: corrupt membership for %v", t.tileID))
		}
		last := list[len(list)-1]
		list[t.idx] = last
		last.idx = t.idx
		list[len(list)-1] = nil
		*from = list[:len(list)-1]
	}

	t.list = to
	if to == inNone {
		t.idx = -1
		return
	}
	dst := c.list(to)
	*dst = append(*dst, t)
	t.idx = len(*dst) - 1
}

func (c *Cache) list(m membership) *[]*TileTexture {
	if m == inActive {
		return &c.active
	}
	return &c.inactive
}

func (c *Cache) Stats() Stats {
	return Stats{
		Entries:       len(c.table),
		Active:        len(c.active),
		Inactive:      len(c.inactive),
		ResidentBytes: c.residentBytes,
		ResidentLimit: c.residentLimit,
		Hits:          c.hits,
		Misses:        c.misses,
		Evictions:     c.evictions,
	}
}

// Close frees every texture. The cache cannot be used afterwards.
func (c *Cache) Close() {
	if c.closed {
		return
	}
	if len(c.active) > 0 {
		c.logger.Warn("texcache: closing with active textures", "active", len(c.active))
	}
	for _, t := range c.table {
		c.release(t)
		t.active = false
		t.list = inNone
		t.idx = -1
		t.cache = nil
	}
	c.table = nil
	c.active = nil
	c.inactive = nil
	c.closed = true
}

func (c *Cache) checkOpen() {
	if c.closed {
		panic("texcache: cache is closed")
	}
}

func (c *Cache) checkOwned(t *TileTexture) {
	c.checkOpen()
	if t.cache != c || c.table[key{t.src, t.tileID}] != t {
		panic(fmt.Sprintf("texcache: texture %v is not in this cache", t.tileID))
	}
}
