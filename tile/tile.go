// Package tile provides common tile interfaces and types for image pyramids.
package tile

import "fmt"

// ID addresses one tile of an image pyramid. Level 0 is the single root tile;
// Row counts south and Col counts east from the north-west corner.
type ID struct {
	Level uint32
	Row   uint32
	Col   uint32
}

// Valid reports whether the tile exists in a pyramid with levels 0..depth.
func (t ID) Valid(depth int) bool {
	return int(t.Level) <= depth && t.Level < 31 && t.Row < (1<<t.Level) && t.Col < (1<<t.Level)
}

func (t ID) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Level, t.Row, t.Col)
}

// Writer defines an interface for writing tiles to a tileset.
type Writer interface {
	// WriteTile writes a single tile to the tileset.
	WriteTile(tileID ID, tileData []byte) error

	// Finalize completes the writing process: flushes buffers, writes header and indices.
	// It must be called before closing the Writer.
	Finalize() error
}

type Reader interface {
	// ReadTile reads a single tile from the tileset.
	// It returns the tile data or an error if the tile cannot be read.
	// If the tile does not exist, it returns an empty slice with no error.
	ReadTile(tileID ID) ([]byte, error)
}

type Visitor interface {
	// VisitTiles visits all tiles in the tileset, calling the visitor for each.
	// It returns an error if visiting fails.
	// Order of tiles, upfront cpu and memory consumption are implementation-defined.
	VisitTiles(visitor func(ID, []byte) error) error
}

// Location represents the absolute location of tile data inside a tileset file.
type Location struct {
	Offset uint64
	Length uint64
}

type LocationReader interface {
	ReadLocation(tileID ID) (Location, error)
}

type LocationVisitor interface {
	VisitLocations(visitor func(ID, Location) error) error
}
