// Package spec defines the on-disk layout of texture quadtree (TQT) files.
//
// A TQT file is a fixed 16 byte header, a directory with one fixed-width entry per
// quadtree node (row-major numbering, see package qtree), and the tile payloads.
// All integers are little-endian.
package spec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

type TileType uint8

const (
	TileTypeUnknown TileType = iota
	TileTypePng
	TileTypeJpeg
	TileTypeWebp
	TileTypeBmp
	TileTypeTiff
)

var tileTypeNames = [...]string{"unknown", "png", "jpeg", "webp", "bmp", "tiff"}

func (t TileType) String() string {
	if int(t) < len(tileTypeNames) {
		return tileTypeNames[t]
	}
	return fmt.Sprintf("TileType(%d)", uint8(t))
}

// DetectTileType sniffs the image format from the leading bytes of a payload.
func DetectTileType(data []byte) TileType {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return TileTypePng
	case bytes.HasPrefix(data, []byte("\xff\xd8\xff")):
		return TileTypeJpeg
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return TileTypeWebp
	case bytes.HasPrefix(data, []byte("BM")):
		return TileTypeBmp
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return TileTypeTiff
	}
	return TileTypeUnknown
}

const (
	// FlagClustered is set when payloads are laid out level by level in Hilbert order.
	FlagClustered uint8 = 1 << 0
)

type Header struct {
	Magic    uint32
	Version  uint16
	TileType TileType
	Flags    uint8
	Depth    uint32
	TileSize uint32
}

const (
	HeaderMagic   uint32 = 0x00747174 // "tqt\0"
	HeaderVersion uint16 = 1

	HeaderLength = 16

	// MaxDepth bounds the directory, which holds every node of the full pyramid.
	MaxDepth = 15
)

var ErrInvalidHeader = errors.New("invalid file header")
var ErrInvalidVersion = errors.New("invalid version")

func SerializeHeader(header *Header) []byte {
	buffer := make([]byte, 0, HeaderLength)
	buffer, _ = binary.Append(buffer, binary.LittleEndian, header)
	return buffer
}

func DeserializeHeader(buffer []byte) (*Header, error) {
	header := Header{}
	reader := bytes.NewReader(buffer)
	err := binary.Read(reader, binary.LittleEndian, &header)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	if header.Magic != HeaderMagic {
		return nil, ErrInvalidHeader
	}
	if header.Version != HeaderVersion {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, header.Version)
	}
	if header.Depth > MaxDepth {
		return nil, fmt.Errorf("%w: depth %d out of range", ErrInvalidHeader, header.Depth)
	}
	if header.TileSize == 0 {
		return nil, fmt.Errorf("%w: zero tile size", ErrInvalidHeader)
	}
	return &header, nil
}
