package internal

import (
	"math"
	"os"
	"path/filepath"

	"github.com/eak1mov/go-terrain/qtree"
	"github.com/eak1mov/go-terrain/terrain"
	"github.com/eak1mov/go-terrain/tqt"
)

// ChunkGrid is the number of quads along each side of a synthetic chunk.
const ChunkGrid = 4

// Height is the synthetic heightfield in vScale units at cell position (x, z).
func Height(x, z int) int16 {
	return int16(100 + 50*math.Sin(float64(x)/32) + 30*math.Cos(float64(z)/16))
}

// CellChunks builds a complete quadtree of chunks in heap order for a cell of the
// given size. Each chunk samples Height on a ChunkGrid x ChunkGrid grid, and its
// MaxError halves with every level, reaching 0 at the leaves.
func CellChunks(size uint32, nLODs int) []terrain.Chunk {
	chunks := make([]terrain.Chunk, qtree.NumNodes(nLODs))
	var fill func(id int, row, col uint32, lod int)
	fill = func(id int, row, col uint32, lod int) {
		width := size >> lod
		chunks[id] = gridChunk(row, col, width, float32(nLODs-1-lod))
		if lod+1 < nLODs {
			half := width / 2
			for i := range 4 {
				fill(qtree.Child(id, i), row+uint32(i>>1)*half, col+uint32(i&1)*half, lod+1)
			}
		}
	}
	fill(0, 0, 0, 0)
	return chunks
}

func gridChunk(row, col, width uint32, maxError float32) terrain.Chunk {
	c := terrain.Chunk{MaxError: maxError, MinY: math.MaxInt16, MaxY: math.MinInt16}
	step := max(width/ChunkGrid, 1)
	for i := range uint32(ChunkGrid + 1) {
		for j := range uint32(ChunkGrid + 1) {
			x, z := int(col+j*step), int(row+i*step)
			y := Height(x, z)
			c.Vertices = append(c.Vertices, terrain.Vertex{X: int16(x), Y: y, Z: int16(z)})
			c.MinY = min(c.MinY, y)
			c.MaxY = max(c.MaxY, y)
		}
	}
	for i := range uint16(ChunkGrid) {
		for j := range uint16(ChunkGrid) {
			a := i*(ChunkGrid+1) + j
			b := a + ChunkGrid + 1
			c.Indices = append(c.Indices, a, b, a+1, a+1, b, b+1)
		}
	}
	return c
}

// MapInfo describes a synthetic map rooted at dir.
func MapInfo(dir string, rows, cols, cellSize uint32) terrain.Info {
	return terrain.Info{
		Name:          "synthetic",
		Path:          dir,
		HScale:        2,
		VScale:        0.5,
		BaseElevation: -10,
		CellSize:      cellSize,
		NumRows:       rows,
		NumCols:       cols,
	}
}

// WriteMap writes a hf.cell file for every cell of info and, when texDepth >= 0,
// color and normal texture quadtrees of that depth.
func WriteMap(info terrain.Info, nLODs, texDepth int, tileSize int) error {
	chunks := CellChunks(info.CellSize, nLODs)
	for r := range info.NumRows {
		for c := range info.NumCols {
			dir := filepath.Join(info.Path, terrain.CellDirName(r, c))
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			if err := terrain.WriteCellFile(filepath.Join(dir, terrain.HeightfieldFile), info.CellSize, chunks); err != nil {
				return err
			}
			if texDepth < 0 {
				continue
			}
			for _, name := range []string{terrain.ColorFile, terrain.NormalFile} {
				if err := WritePyramid(filepath.Join(dir, name), texDepth, tileSize); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// WritePyramid builds a texture quadtree of synthetic tiles at filePath.
func WritePyramid(filePath string, depth, tileSize int) error {
	return tqt.Build(filePath, Pyramid(depth, tileSize), depth, tileSize)
}
