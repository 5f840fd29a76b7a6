// Package tqt reads and writes texture quadtree files: a pyramid of square image
// tiles with a directory indexed by quadtree node id, so that any tile can be
// fetched with a single positioned read.
package tqt

import (
	"errors"
	"log/slog"

	"github.com/eak1mov/go-terrain/qtree"
	"github.com/eak1mov/go-terrain/tile"
	"github.com/eak1mov/go-terrain/tqt/spec"
)

var (
	// ErrAddress is returned for tile addresses outside the pyramid.
	ErrAddress = errors.New("tqt: tile address out of range")
	// ErrMissingTile is returned when the directory has no payload for a tile.
	ErrMissingTile = errors.New("tqt: missing tile")
	// ErrDecode is returned when a tile payload is not a valid image of the expected size.
	ErrDecode = errors.New("tqt: cannot decode tile")
)

type config struct {
	logger    *slog.Logger
	tileType  spec.TileType
	clustered bool
}

type Option func(*config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithTileType records the payload format in the header instead of sniffing the first tile.
func WithTileType(tileType spec.TileType) Option {
	return func(c *config) { c.tileType = tileType }
}

// WithClustered marks the file as written in level-then-Hilbert order.
func WithClustered() Option {
	return func(c *config) { c.clustered = true }
}

func newConfig(opts []Option) config {
	c := config{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

func nodeID(tileID tile.ID) int {
	return qtree.NodeID(int(tileID.Level), int(tileID.Row), int(tileID.Col))
}

func tileIDOf(id int) tile.ID {
	level, row, col := qtree.Locate(id)
	return tile.ID{Level: uint32(level), Row: uint32(row), Col: uint32(col)}
}
