package terrain

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/eak1mov/go-terrain/qtree"
)

var (
	// ErrInvalidCell is returned for malformed cell files.
	ErrInvalidCell = errors.New("terrain: invalid cell file")
	// ErrDepthRange is returned when a cell's LOD count is outside [MinLODs, MaxLODs].
	ErrDepthRange = errors.New("terrain: cell depth out of range")
)

const (
	CellMagic   uint32 = 0x63656C6C // 'cell'
	CellVersion uint32 = 1

	MinLODs = 1
	MaxLODs = 9
)

type cellHeader struct {
	Magic   uint32
	Version uint32
	Size    uint32
	NumLODs uint32
}

type chunkHeader struct {
	MaxError    float32
	MinY        int16
	MaxY        int16
	NumVertices uint32
	NumIndices  uint32
}

const (
	cellHeaderLength  = 16
	chunkHeaderLength = 16
)

// WriteCellFile writes the chunks of a complete quadtree (heap order) to a cell file.
func WriteCellFile(filePath string, size uint32, chunks []Chunk) (err error) {
	nLODs := qtree.Level(len(chunks))
	if qtree.NumNodes(nLODs) != len(chunks) {
		return fmt.Errorf("%w: %d chunks do not form a complete quadtree", ErrInvalidCell, len(chunks))
	}
	if nLODs < MinLODs || nLODs > MaxLODs {
		return fmt.Errorf("%w: %d", ErrDepthRange, nLODs)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	writer := bufio.NewWriter(file)

	header := cellHeader{Magic: CellMagic, Version: CellVersion, Size: size, NumLODs: uint32(nLODs)}
	if err := binary.Write(writer, binary.LittleEndian, &header); err != nil {
		return err
	}

	offsets := make([]uint64, len(chunks))
	offset := uint64(cellHeaderLength + 8*len(chunks))
	for i := range chunks {
		offsets[i] = offset
		offset += uint64(chunkHeaderLength + chunks[i].ByteSize())
	}
	if err := binary.Write(writer, binary.LittleEndian, offsets); err != nil {
		return err
	}

	for i := range chunks {
		c := &chunks[i]
		ch := chunkHeader{
			MaxError:    c.MaxError,
			MinY:        c.MinY,
			MaxY:        c.MaxY,
			NumVertices: uint32(len(c.Vertices)),
			NumIndices:  uint32(len(c.Indices)),
		}
		if err := binary.Write(writer, binary.LittleEndian, &ch); err != nil {
			return err
		}
		if _, err := writer.Write(c.VertexData()); err != nil {
			return err
		}
		if _, err := writer.Write(c.IndexData()); err != nil {
			return err
		}
	}
	return writer.Flush()
}

type cellFile struct {
	header  cellHeader
	offsets []uint64
	data    []byte
}

func readCellFile(filePath string) (*cellFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	reader := bytes.NewReader(data)

	var header cellHeader
	if err := binary.Read(reader, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCell, err)
	}
	if header.Magic != CellMagic {
		return nil, fmt.Errorf("%w: bad magic %#x", ErrInvalidCell, header.Magic)
	}
	if header.Version != CellVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidCell, header.Version)
	}
	if header.NumLODs < MinLODs || header.NumLODs > MaxLODs {
		return nil, fmt.Errorf("%w: %d LODs", ErrDepthRange, header.NumLODs)
	}

	offsets := make([]uint64, qtree.NumNodes(int(header.NumLODs)))
	if err := binary.Read(reader, binary.LittleEndian, offsets); err != nil {
		return nil, fmt.Errorf("%w: chunk table: %w", ErrInvalidCell, err)
	}
	return &cellFile{header: header, offsets: offsets, data: data}, nil
}

func (f *cellFile) chunk(id int) (Chunk, error) {
	offset := f.offsets[id]
	if offset > uint64(len(f.data)) {
		return Chunk{}, fmt.Errorf("%w: chunk %d offset %d past end of file", ErrInvalidCell, id, offset)
	}
	reader := bytes.NewReader(f.data[offset:])

	var ch chunkHeader
	if err := binary.Read(reader, binary.LittleEndian, &ch); err != nil {
		return Chunk{}, fmt.Errorf("%w: chunk %d: %w", ErrInvalidCell, id, err)
	}
	if ch.NumVertices > 1<<16 {
		return Chunk{}, fmt.Errorf("%w: chunk %d has %d vertices", ErrInvalidCell, id, ch.NumVertices)
	}
	if uint64(ch.NumVertices)*VertexSize+uint64(ch.NumIndices)*2 > uint64(reader.Len()) {
		return Chunk{}, fmt.Errorf("%w: chunk %d is truncated", ErrInvalidCell, id)
	}

	c := Chunk{
		MaxError: ch.MaxError,
		MinY:     ch.MinY,
		MaxY:     ch.MaxY,
		Vertices: make([]Vertex, ch.NumVertices),
		Indices:  make([]uint16, ch.NumIndices),
	}
	if err := binary.Read(reader, binary.LittleEndian, c.Vertices); err != nil {
		return Chunk{}, fmt.Errorf("%w: chunk %d vertices: %w", ErrInvalidCell, id, err)
	}
	if err := binary.Read(reader, binary.LittleEndian, c.Indices); err != nil {
		return Chunk{}, fmt.Errorf("%w: chunk %d indices: %w", ErrInvalidCell, id, err)
	}
	for _, idx := range c.Indices {
		if int(idx) >= len(c.Vertices) {
			return Chunk{}, fmt.Errorf("%w: chunk %d index %d out of range", ErrInvalidCell, id, idx)
		}
	}
	return c, nil
}
