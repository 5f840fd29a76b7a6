// Package terrain holds the in-memory level-of-detail quadtrees of a heightfield map.
//
// A map is a grid of cells. Each loaded cell owns a flat array of tiles forming a
// complete quadtree in heap order (children of tile n are 4n+1..4n+4), and each
// tile carries the mesh chunk for its level of detail and a world-space bounding box.
package terrain

import (
	"fmt"
	"log/slog"
	"math/bits"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	MinCellSize = 1 << 4
	MaxCellSize = 1 << 14
)

// Info is the parsed description of a map.
type Info struct {
	Name          string  `toml:"name"`
	Path          string  `toml:"path"`
	HScale        float64 `toml:"h_scale"`
	VScale        float64 `toml:"v_scale"`
	BaseElevation float64 `toml:"base_elevation"`
	CellSize      uint32  `toml:"cell_size"`
	NumRows       uint32  `toml:"rows"`
	NumCols       uint32  `toml:"cols"`
}

type Map struct {
	info   Info
	logger *slog.Logger
	grid   []*Cell
}

type Option func(*Map)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Map) { m.logger = logger }
}

// NewMap creates the cells of a map without loading them.
func NewMap(info Info, opts ...Option) (*Map, error) {
	if info.CellSize < MinCellSize || info.CellSize > MaxCellSize || bits.OnesCount32(info.CellSize) != 1 {
		return nil, fmt.Errorf("terrain: cell size %d is not a power of two in [%d, %d]", info.CellSize, MinCellSize, MaxCellSize)
	}
	if info.NumRows == 0 || info.NumCols == 0 {
		return nil, fmt.Errorf("terrain: empty grid %dx%d", info.NumRows, info.NumCols)
	}
	if info.HScale <= 0 || info.VScale <= 0 {
		return nil, fmt.Errorf("terrain: scales must be positive (h=%v, v=%v)", info.HScale, info.VScale)
	}

	m := &Map{
		info:   info,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.grid = make([]*Cell, info.NumRows*info.NumCols)
	for r := range info.NumRows {
		for c := range info.NumCols {
			m.grid[m.cellIdx(r, c)] = &Cell{
				m:   m,
				row: r,
				col: c,
				dir: filepath.Join(info.Path, CellDirName(r, c)),
			}
		}
	}
	return m, nil
}

// CellDirName returns the name of the directory holding the data of cell (row, col).
func CellDirName(row, col uint32) string {
	return fmt.Sprintf("%02d-%02d", row, col)
}

func (m *Map) Info() Info { return m.info }

// Width returns the east/west extent in hScale units.
func (m *Map) Width() uint32 { return m.info.NumCols * m.info.CellSize }

// Height returns the north/south extent in hScale units.
func (m *Map) Height() uint32 { return m.info.NumRows * m.info.CellSize }

func (m *Map) cellIdx(row, col uint32) uint32 { return m.info.NumCols*row + col }

// Cell returns the cell at (row, col), or nil outside the grid.
func (m *Map) Cell(row, col uint32) *Cell {
	if row < m.info.NumRows && col < m.info.NumCols {
		return m.grid[m.cellIdx(row, col)]
	}
	return nil
}

// Cells returns the cells in row-major order.
func (m *Map) Cells() []*Cell { return m.grid }

// CellAt returns the cell containing the world position (x, _, z), or nil.
func (m *Map) CellAt(x, z float64) *Cell {
	w := m.info.HScale * float64(m.info.CellSize)
	row, col := z/w, x/w
	if !(row >= 0 && row < float64(m.info.NumRows) && col >= 0 && col < float64(m.info.NumCols)) {
		return nil
	}
	return m.Cell(uint32(row), uint32(col))
}

// CellSize returns the world size of a cell (Y is 0).
func (m *Map) CellSize() mgl64.Vec3 {
	w := m.info.HScale * float64(m.info.CellSize)
	return mgl64.Vec3{w, 0, w}
}

// NWCellCorner returns the world position of the NW corner of a cell (Y is 0).
func (m *Map) NWCellCorner(row, col uint32) mgl64.Vec3 {
	w := m.info.HScale * float64(m.info.CellSize)
	return mgl64.Vec3{w * float64(col), 0, w * float64(row)}
}

// Bounds returns the north, east, south and west world coordinates of the map.
func (m *Map) Bounds() (north, east, south, west float64) {
	return 0, m.info.HScale * float64(m.Width()), m.info.HScale * float64(m.Height()), 0
}
