// Package stream drives the per-frame residency of terrain geometry and textures.
package stream

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/eak1mov/go-terrain/bufcache"
	"github.com/eak1mov/go-terrain/gpu"
	"github.com/eak1mov/go-terrain/terrain"
	"github.com/eak1mov/go-terrain/texcache"
	"github.com/eak1mov/go-terrain/tqt"
)

const DefaultThreshold = 2.0 // pixels

// Item is one tile to draw: its geometry slot and, when the cell has them, its
// color and normal textures.
type Item struct {
	Tile   *terrain.Tile
	Slot   *bufcache.Slot
	Color  *texcache.TileTexture
	Normal *texcache.TileTexture
}

type Stats struct {
	Frames   int
	Drawn    int
	Added    int // items created by the last frame
	Dropped  int // items released by the last frame
	Textures texcache.Stats
	Buffers  bufcache.Stats
}

type config struct {
	logger    *slog.Logger
	threshold float64
	texOpts   []texcache.Option
	bufOpts   []bufcache.Option
}

type Option func(*config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithThreshold sets the screen-space error bound in pixels.
func WithThreshold(pixels float64) Option {
	return func(c *config) { c.threshold = pixels }
}

func WithTextureOptions(opts ...texcache.Option) Option {
	return func(c *config) { c.texOpts = append(c.texOpts, opts...) }
}

func WithBufferOptions(opts ...bufcache.Option) Option {
	return func(c *config) { c.bufOpts = append(c.bufOpts, opts...) }
}

// Streamer owns the texture cache and buffer pool of one view.
type Streamer struct {
	m         *terrain.Map
	logger    *slog.Logger
	threshold float64
	textures  *texcache.Cache
	buffers   *bufcache.Pool

	drawn map[*terrain.Tile]*Item
	refs  map[*texcache.TileTexture]int

	frames, added, dropped int
}

func New(m *terrain.Map, device gpu.Device, opts ...Option) *Streamer {
	config := config{
		logger:    slog.New(slog.DiscardHandler),
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(&config)
	}
	texOpts := append([]texcache.Option{texcache.WithLogger(config.logger)}, config.texOpts...)
	bufOpts := append([]bufcache.Option{bufcache.WithLogger(config.logger)}, config.bufOpts...)
	return &Streamer{
		m:         m,
		logger:    config.logger,
		threshold: config.threshold,
		textures:  texcache.New(device, texOpts...),
		buffers:   bufcache.New(device, bufOpts...),
		drawn:     make(map[*terrain.Tile]*Item),
		refs:      make(map[*texcache.TileTexture]int),
	}
}

func (s *Streamer) Textures() *texcache.Cache { return s.textures }
func (s *Streamer) Buffers() *bufcache.Pool   { return s.buffers }

// LoadCell loads a cell's quadtree and opens its texture quadtrees.
func (s *Streamer) LoadCell(cell *terrain.Cell) error {
	if err := cell.Load(); err != nil {
		return err
	}
	return cell.OpenTextures()
}

// UnloadCell drops every item of the cell, forgets its textures and unloads it.
func (s *Streamer) UnloadCell(cell *terrain.Cell) error {
	for t, item := range s.drawn {
		if t.Cell() == cell {
			s.drop(item)
			delete(s.drawn, t)
		}
	}
	for _, r := range []*tqt.Reader{cell.ColorTQT(), cell.NormalTQT()} {
		if r != nil {
			n := s.textures.RemoveSource(r)
			s.logger.Debug("stream: removed textures", "file", r.Path(), "count", n)
		}
	}
	return cell.Unload()
}

// Frame selects the tiles of every loaded cell for the view and returns the draw
// list. Resources for newly selected tiles are acquired before those of tiles no
// longer selected are released. Tiles whose resources fail are left out of the
// list and their errors are joined into the returned error.
func (s *Streamer) Frame(view terrain.View) ([]*Item, error) {
	s.frames++
	s.added, s.dropped = 0, 0

	next := make(map[*terrain.Tile]*Item, len(s.drawn))
	var items []*Item
	var errs []error
	for _, cell := range s.m.Cells() {
		if !cell.Loaded() {
			continue
		}
		for _, t := range terrain.Select(cell, view, s.threshold) {
			item, ok := s.drawn[t]
			if !ok {
				var err error
				if item, err = s.add(t); err != nil {
					errs = append(errs, err)
					continue
				}
				s.added++
			}
			next[t] = item
			items = append(items, item)
		}
	}

	for t, item := range s.drawn {
		if _, ok := next[t]; !ok {
			s.drop(item)
			s.dropped++
		}
	}
	s.drawn = next

	if s.dropped > 0 {
		s.textures.Trim()
	}
	s.logger.Debug("stream: frame", "frame", s.frames, "drawn", len(items), "added", s.added, "dropped", s.dropped)
	instrumentFrame(len(items), s.added, s.dropped)
	return items, errors.Join(errs...)
}

func (s *Streamer) add(t *terrain.Tile) (*Item, error) {
	item := &Item{Tile: t, Slot: s.buffers.Acquire()}
	if err := s.buffers.Load(item.Slot, t.Chunk()); err != nil {
		s.buffers.Release(item.Slot)
		return nil, fmt.Errorf("stream: tile %d of cell %d,%d: %w", t.ID(), t.Cell().Row(), t.Cell().Col(), err)
	}

	var err error
	if item.Color, err = s.texture(t.Cell().ColorTQT(), t); err == nil {
		item.Normal, err = s.texture(t.Cell().NormalTQT(), t)
	}
	if err != nil {
		s.drop(item)
		return nil, fmt.Errorf("stream: tile %d of cell %d,%d: %w", t.ID(), t.Cell().Row(), t.Cell().Col(), err)
	}
	return item, nil
}

func (s *Streamer) texture(src *tqt.Reader, t *terrain.Tile) (*texcache.TileTexture, error) {
	if src == nil {
		return nil, nil
	}
	txt := s.textures.Get(src, t.TextureID(src.Depth()))
	if s.refs[txt] == 0 {
		if err := s.textures.Activate(txt); err != nil {
			return nil, err
		}
	}
	s.refs[txt]++
	return txt, nil
}

func (s *Streamer) unref(txt *texcache.TileTexture) {
	if txt == nil {
		return
	}
	s.refs[txt]--
	if s.refs[txt] == 0 {
		delete(s.refs, txt)
		s.textures.Deactivate(txt)
	}
}

func (s *Streamer) drop(item *Item) {
	s.unref(item.Color)
	s.unref(item.Normal)
	s.buffers.Release(item.Slot)
}

func (s *Streamer) Stats() Stats {
	return Stats{
		Frames:   s.frames,
		Drawn:    len(s.drawn),
		Added:    s.added,
		Dropped:  s.dropped,
		Textures: s.textures.Stats(),
		Buffers:  s.buffers.Stats(),
	}
}

// Close releases everything and destroys the GPU resources of both caches.
func (s *Streamer) Close() {
	for t, item := range s.drawn {
		s.drop(item)
		delete(s.drawn, t)
	}
	s.textures.Close()
	s.buffers.Close()
}
