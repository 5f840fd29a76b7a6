package terrain

import (
	"fmt"
	"path/filepath"

	"github.com/eak1mov/go-terrain/qtree"
	"github.com/eak1mov/go-terrain/tile"
	"github.com/eak1mov/go-terrain/tqt"
)

// Data file names inside a cell directory.
const (
	HeightfieldFile = "hf.cell"
	ColorFile       = "color.tqt"
	NormalFile      = "norm.tqt"
)

type Cell struct {
	m        *Map
	row, col uint32
	dir      string
	nLODs    int
	tiles    []Tile
	colorTQT *tqt.Reader
	normTQT  *tqt.Reader
}

func (c *Cell) Map() *Map    { return c.m }
func (c *Cell) Row() uint32  { return c.row }
func (c *Cell) Col() uint32  { return c.col }
func (c *Cell) Loaded() bool { return c.tiles != nil }

// Depth returns the number of levels of detail.
func (c *Cell) Depth() int { return c.nLODs }

// Width returns the width of the cell in hScale units.
func (c *Cell) Width() uint32 { return c.m.info.CellSize }

// Datafile returns the path of a data file of this cell.
func (c *Cell) Datafile(name string) string {
	return filepath.Join(c.dir, name)
}

// ColorTQT returns the color texture quadtree, or nil if the cell has none.
func (c *Cell) ColorTQT() *tqt.Reader { return c.colorTQT }

// NormalTQT returns the normal-map texture quadtree, or nil if the cell has none.
func (c *Cell) NormalTQT() *tqt.Reader { return c.normTQT }

// Load reads the cell's chunk file and builds its LOD quadtree. Tiles are filled
// leaves first so every interior box is the union of its own and its children's boxes.
func (c *Cell) Load() error {
	if c.Loaded() {
		return nil
	}
	filePath := c.Datafile(HeightfieldFile)
	f, err := readCellFile(filePath)
	if err != nil {
		return fmt.Errorf("%s: %w", filePath, err)
	}
	if f.header.Size != c.m.info.CellSize {
		return fmt.Errorf("%s: %w: cell size %d, map cell size %d", filePath, ErrInvalidCell, f.header.Size, c.m.info.CellSize)
	}

	nLODs := int(f.header.NumLODs)
	if f.header.Size>>(nLODs-1) == 0 {
		return fmt.Errorf("%s: %w: %d LODs do not fit a cell of size %d", filePath, ErrInvalidCell, nLODs, f.header.Size)
	}
	tiles := make([]Tile, qtree.NumNodes(nLODs))
	c.initTile(tiles, nLODs, 0, 0, 0, 0)

	for id := len(tiles) - 1; id >= 0; id-- {
		t := &tiles[id]
		chunk, err := f.chunk(id)
		if err != nil {
			return fmt.Errorf("%s: %w", filePath, err)
		}
		t.chunk = chunk
		t.bbox = c.chunkBox(t)
		if t.lod+1 < nLODs {
			for i := range 4 {
				t.bbox = t.bbox.Union(tiles[qtree.Child(id, i)].bbox)
			}
		}
	}

	c.tiles = tiles
	c.nLODs = nLODs
	c.m.logger.Info("terrain: cell loaded", "row", c.row, "col", c.col, "lods", nLODs, "tiles", len(tiles))
	return nil
}

func (c *Cell) initTile(tiles []Tile, nLODs, id int, row, col uint32, lod int) {
	tiles[id] = Tile{cell: c, id: id, row: row, col: col, lod: lod}
	if lod+1 < nLODs {
		half := c.Width() >> (lod + 1)
		for i := range 4 {
			c.initTile(tiles, nLODs, qtree.Child(id, i),
				row+uint32(i>>1)*half, col+uint32(i&1)*half, lod+1)
		}
	}
}

func (c *Cell) chunkBox(t *Tile) AABB {
	info := c.m.info
	corner := c.m.NWCellCorner(c.row, c.col)
	w := float64(t.Width())
	x0 := corner[0] + float64(t.col)*info.HScale
	z0 := corner[2] + float64(t.row)*info.HScale
	box := AABB{}
	box.Min[0], box.Max[0] = x0, x0+w*info.HScale
	box.Min[2], box.Max[2] = z0, z0+w*info.HScale
	box.Min[1] = info.BaseElevation + float64(t.chunk.MinY)*info.VScale
	box.Max[1] = info.BaseElevation + float64(t.chunk.MaxY)*info.VScale
	return box
}

// OpenTextures opens the color and normal texture quadtrees of the cell when
// the files exist and carry a supported header.
func (c *Cell) OpenTextures() error {
	open := func(name string) (*tqt.Reader, error) {
		filePath := c.Datafile(name)
		if !tqt.IsTQTFile(filePath) {
			return nil, nil
		}
		return tqt.Open(filePath, tqt.WithLogger(c.m.logger))
	}
	var err error
	if c.colorTQT == nil {
		if c.colorTQT, err = open(ColorFile); err != nil {
			return err
		}
	}
	if c.normTQT == nil {
		if c.normTQT, err = open(NormalFile); err != nil {
			return err
		}
	}
	return nil
}

// Unload frees the tiles and closes the texture quadtrees.
func (c *Cell) Unload() error {
	c.tiles = nil
	c.nLODs = 0
	var err error
	for _, r := range []**tqt.Reader{&c.colorTQT, &c.normTQT} {
		if *r != nil {
			if cerr := (*r).Close(); err == nil {
				err = cerr
			}
			*r = nil
		}
	}
	return err
}

// Tile returns the tile with the given id. The cell must be loaded.
func (c *Cell) Tile(id int) *Tile {
	if !c.Loaded() {
		panic(fmt.Sprintf("terrain: cell %d,%d is not loaded", c.row, c.col))
	}
	if id < 0 || id >= len(c.tiles) {
		panic(fmt.Sprintf("terrain: tile id %d out of range [0, %d)", id, len(c.tiles)))
	}
	return &c.tiles[id]
}

// Root returns the coarsest tile.
func (c *Cell) Root() *Tile { return c.Tile(0) }

// NumTiles returns the number of tiles of a loaded cell.
func (c *Cell) NumTiles() int { return len(c.tiles) }

// Tile is a node of a cell's LOD quadtree.
type Tile struct {
	cell     *Cell
	id       int
	row, col uint32
	lod      int
	chunk    Chunk
	bbox     AABB
}

func (t *Tile) Cell() *Cell { return t.cell }
func (t *Tile) ID() int     { return t.id }

// NWRow and NWCol locate the tile's NW vertex within its cell.
func (t *Tile) NWRow() uint32 { return t.row }
func (t *Tile) NWCol() uint32 { return t.col }

// LOD returns the level of detail (0 is coarsest).
func (t *Tile) LOD() int { return t.lod }

// Width returns the width of the tile in hScale units.
func (t *Tile) Width() uint32 { return t.cell.Width() >> t.lod }

func (t *Tile) Chunk() *Chunk { return &t.chunk }

// BBox returns the tile's bounding box in world coordinates.
func (t *Tile) BBox() AABB { return t.bbox }

// NumChildren returns 4 for interior tiles and 0 for leaves.
func (t *Tile) NumChildren() int {
	if t.lod+1 < t.cell.nLODs {
		return 4
	}
	return 0
}

// Child returns the i'th child (0=NW, 1=NE, 2=SW, 3=SE), or nil for a leaf.
func (t *Tile) Child(i int) *Tile {
	if i < 0 || i >= 4 {
		panic(fmt.Sprintf("terrain: child index %d out of range", i))
	}
	if t.lod+1 < t.cell.nLODs {
		return t.cell.Tile(qtree.Child(t.id, i))
	}
	return nil
}

// Parent returns the parent tile, or nil for the root.
func (t *Tile) Parent() *Tile {
	if t.id == 0 {
		return nil
	}
	return t.cell.Tile(qtree.Parent(t.id))
}

// TextureID returns the tile of an image pyramid with levels 0..depth that covers
// this tile. Below the pyramid's finest level the covering ancestor is used.
func (t *Tile) TextureID(depth int) tile.ID {
	level := min(t.lod, depth)
	w := t.Width()
	shift := t.lod - level
	return tile.ID{
		Level: uint32(level),
		Row:   (t.row / w) >> shift,
		Col:   (t.col / w) >> shift,
	}
}
