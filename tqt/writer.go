package tqt

import (
	"bufio"
	"crypto/md5"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/eak1mov/go-terrain/tile"
	"github.com/eak1mov/go-terrain/tqt/spec"
)

// Writer creates a TQT file. Tiles may be written in any order; identical
// payloads are stored once.
type Writer struct {
	logger *slog.Logger
	file   *os.File
	header spec.Header

	tileWriter *bufio.Writer
	tileOffset uint64

	entries   []spec.Entry
	locations map[[16]byte]spec.Entry // hash -> stored payload
}

// NewWriter creates a TQT file for a pyramid with levels 0..depth of tileSize x tileSize tiles.
func NewWriter(filePath string, depth, tileSize int, opts ...Option) (w *Writer, err error) {
	config := newConfig(opts)

	if depth < 0 || depth > spec.MaxDepth {
		return nil, fmt.Errorf("%w: depth %d", ErrAddress, depth)
	}
	if tileSize <= 0 {
		return nil, fmt.Errorf("tqt: invalid tile size %d", tileSize)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			file.Close()
		}
	}()

	offset := spec.DataOffset(depth)
	if _, err = file.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, err
	}

	header := spec.Header{
		Magic:    spec.HeaderMagic,
		Version:  spec.HeaderVersion,
		TileType: config.tileType,
		Depth:    uint32(depth),
		TileSize: uint32(tileSize),
	}
	if config.clustered {
		header.Flags |= spec.FlagClustered
	}

	return &Writer{
		logger:     config.logger,
		file:       file,
		header:     header,
		tileWriter: bufio.NewWriter(file),
		tileOffset: offset,
		entries:    make([]spec.Entry, spec.DirectorySize(depth)),
		locations:  make(map[[16]byte]spec.Entry),
	}, nil
}

func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	if w.tileWriter == nil {
		panic("tqt: write after finalize")
	}
	if !tileID.Valid(int(w.header.Depth)) {
		return fmt.Errorf("%w: %v (depth %d)", ErrAddress, tileID, w.header.Depth)
	}
	if len(tileData) == 0 {
		return nil
	}
	if w.header.TileType == spec.TileTypeUnknown {
		w.header.TileType = spec.DetectTileType(tileData)
	}

	id := nodeID(tileID)
	digest := md5.Sum(tileData)
	if entry, exists := w.locations[digest]; exists {
		w.entries[id] = entry
		return nil
	}

	entry := spec.Entry{
		Offset: w.tileOffset,
		Length: uint32(len(tileData)),
	}
	if _, err := w.tileWriter.Write(tileData); err != nil {
		return err
	}
	w.tileOffset += uint64(len(tileData))

	w.locations[digest] = entry
	w.entries[id] = entry
	return nil
}

func (w *Writer) Finalize() error {
	if w.tileWriter == nil {
		panic("tqt: finalize called twice")
	}

	w.logger.Debug("tqt: flush")
	if err := w.tileWriter.Flush(); err != nil {
		return err
	}
	w.tileWriter = nil

	missing := 0
	for _, entry := range w.entries {
		if entry.Length == 0 {
			missing++
		}
	}
	if missing > 0 {
		w.logger.Warn("tqt: pyramid is incomplete", "missing", missing, "total", len(w.entries))
	}

	w.logger.Debug("tqt: write directory")
	if _, err := w.file.WriteAt(spec.SerializeDirectory(w.entries), spec.DirectoryOffset); err != nil {
		return err
	}

	w.logger.Debug("tqt: write header")
	if _, err := w.file.WriteAt(spec.SerializeHeader(&w.header), 0); err != nil {
		return err
	}

	if err := w.file.Close(); err != nil {
		return err
	}
	w.file = nil

	w.logger.Debug("tqt: done!", "payloadBytes", w.tileOffset-spec.DataOffset(int(w.header.Depth)))
	return nil
}

func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}

// Build copies every tile of a pyramid with levels 0..depth from src into a new TQT file.
// Payloads are laid out level by level in Hilbert order.
func Build(filePath string, src tile.Reader, depth, tileSize int, opts ...Option) error {
	w, err := NewWriter(filePath, depth, tileSize, append(opts, WithClustered())...)
	if err != nil {
		return err
	}
	defer w.Close()

	for tileID := range tile.Pyramid(depth) {
		tileData, err := src.ReadTile(tileID)
		if err != nil {
			return fmt.Errorf("tqt: reading %v: %w", tileID, err)
		}
		if err := w.WriteTile(tileID, tileData); err != nil {
			return err
		}
	}
	return w.Finalize()
}
