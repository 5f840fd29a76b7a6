package tqt

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"

	"github.com/eak1mov/go-terrain/tile"
	"github.com/eak1mov/go-terrain/tqt/spec"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Reader gives random access to the tiles of a TQT file.
// The header and directory are read once by Open; the reader keeps no tile cache.
type Reader struct {
	path    string
	file    *os.File
	header  spec.Header
	entries []spec.Entry
	logger  *slog.Logger
}

// Open reads the header and directory of a TQT file.
func Open(filePath string, opts ...Option) (*Reader, error) {
	config := newConfig(opts)

	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	r, err := newReader(file, config)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	r.path = filePath
	config.logger.Info("tqt: opened",
		"path", filePath,
		"depth", r.header.Depth,
		"tileSize", r.header.TileSize,
		"tileType", r.header.TileType)
	return r, nil
}

func newReader(file *os.File, config config) (*Reader, error) {
	headerData := make([]byte, spec.HeaderLength)
	if _, err := file.ReadAt(headerData, 0); err != nil {
		return nil, fmt.Errorf("%w: %w", spec.ErrInvalidHeader, err)
	}
	header, err := spec.DeserializeHeader(headerData)
	if err != nil {
		return nil, err
	}

	depth := int(header.Depth)
	dirData := make([]byte, spec.DirectoryLength(depth))
	if _, err := file.ReadAt(dirData, spec.DirectoryOffset); err != nil {
		return nil, fmt.Errorf("%w: %w", spec.ErrInvalidDirectory, err)
	}
	entries, err := spec.DeserializeDirectory(dirData, depth)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if err := spec.ValidateDirectory(entries, depth, uint64(info.Size())); err != nil {
		return nil, err
	}

	return &Reader{
		file:    file,
		header:  *header,
		entries: entries,
		logger:  config.logger,
	}, nil
}

// IsTQTFile reports whether the file starts with a header of a supported version.
// Only the header is read.
func IsTQTFile(filePath string) bool {
	file, err := os.Open(filePath)
	if err != nil {
		return false
	}
	defer file.Close()

	headerData := make([]byte, spec.HeaderLength)
	if _, err := io.ReadFull(file, headerData); err != nil {
		return false
	}
	_, err = spec.DeserializeHeader(headerData)
	return err == nil
}

// Valid reports whether the reader is open. A nil reader is not valid.
func (r *Reader) Valid() bool {
	return r != nil && r.file != nil
}

func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func (r *Reader) Path() string { return r.path }

// Depth returns the number of levels below the root.
func (r *Reader) Depth() int { return int(r.header.Depth) }

// TileSize returns the edge length of a tile in pixels; tiles are always square.
func (r *Reader) TileSize() int { return int(r.header.TileSize) }

func (r *Reader) TileType() spec.TileType { return r.header.TileType }

func (r *Reader) Header() spec.Header { return r.header }

func (r *Reader) ReadLocation(tileID tile.ID) (tile.Location, error) {
	if !tileID.Valid(r.Depth()) {
		return tile.Location{}, fmt.Errorf("%w: %v (depth %d)", ErrAddress, tileID, r.Depth())
	}
	entry := r.entries[nodeID(tileID)]
	return tile.Location{Offset: entry.Offset, Length: uint64(entry.Length)}, nil
}

// ReadTile returns the raw payload of a tile, or an empty slice if the tile is missing.
func (r *Reader) ReadTile(tileID tile.ID) ([]byte, error) {
	location, err := r.ReadLocation(tileID)
	if err != nil {
		return nil, err
	}
	return r.read(location)
}

func (r *Reader) read(location tile.Location) ([]byte, error) {
	if r.file == nil {
		return nil, os.ErrClosed
	}
	buffer := make([]byte, location.Length)
	if location.Length == 0 {
		return buffer, nil
	}
	if _, err := r.file.ReadAt(buffer, int64(location.Offset)); err != nil {
		return nil, err
	}
	return buffer, nil
}

// FetchTile reads and decodes one tile. When flip is true the rows are reversed so
// that the first row of the result is the southern edge of the tile, matching the
// texture coordinate convention of the renderer.
func (r *Reader) FetchTile(tileID tile.ID, flip bool) (*image.RGBA, error) {
	tileData, err := r.ReadTile(tileID)
	if err != nil {
		return nil, err
	}
	if len(tileData) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrMissingTile, tileID)
	}

	img, format, err := image.Decode(bytes.NewReader(tileData))
	if err != nil {
		return nil, fmt.Errorf("%w %v: %w", ErrDecode, tileID, err)
	}
	size := r.TileSize()
	if b := img.Bounds(); b.Dx() != size || b.Dy() != size {
		return nil, fmt.Errorf("%w %v: %s image is %dx%d, want %dx%d", ErrDecode, tileID, format, b.Dx(), b.Dy(), size, size)
	}
	r.logger.Debug("tqt: fetched tile", "tile", tileID, "format", format, "bytes", len(tileData))

	return toRGBA(img, flip), nil
}

func toRGBA(img image.Image, flip bool) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	if flip {
		flipRows(dst)
	}
	return dst
}

func flipRows(img *image.RGBA) {
	h := img.Rect.Dy()
	rowLen := img.Rect.Dx() * 4
	tmp := make([]byte, rowLen)
	for top, bottom := 0, h-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := img.Pix[top*img.Stride : top*img.Stride+rowLen]
		b := img.Pix[bottom*img.Stride : bottom*img.Stride+rowLen]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}

func (r *Reader) VisitLocations(visitor func(tile.ID, tile.Location) error) error {
	for id, entry := range r.entries {
		if entry.Length == 0 {
			continue
		}
		location := tile.Location{Offset: entry.Offset, Length: uint64(entry.Length)}
		if err := visitor(tileIDOf(id), location); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) VisitTiles(visitor func(tile.ID, []byte) error) error {
	return r.VisitLocations(func(tileID tile.ID, location tile.Location) error {
		tileData, err := r.read(location)
		if err != nil {
			return err
		}
		return visitor(tileID, tileData)
	})
}
