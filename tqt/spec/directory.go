package spec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/eak1mov/go-terrain/qtree"
)

// Entry locates the payload of one tile. A zero Length marks a missing tile.
type Entry struct {
	Offset   uint64
	Length   uint32
	Reserved uint32
}

const EntryLength = 16

var ErrInvalidDirectory = errors.New("invalid directory")

// DirectoryOffset is where the directory starts in the file.
const DirectoryOffset = HeaderLength

// DirectorySize returns the number of entries for a tree with levels 0..depth.
func DirectorySize(depth int) int {
	return qtree.NumNodes(depth + 1)
}

// DirectoryLength returns the byte length of the directory for a tree with levels 0..depth.
func DirectoryLength(depth int) int {
	return DirectorySize(depth) * EntryLength
}

// DataOffset returns the offset of the first payload byte.
func DataOffset(depth int) uint64 {
	return uint64(DirectoryOffset + DirectoryLength(depth))
}

func SerializeDirectory(entries []Entry) []byte {
	buffer := make([]byte, 0, len(entries)*EntryLength)
	buffer, _ = binary.Append(buffer, binary.LittleEndian, entries)
	return buffer
}

func DeserializeDirectory(data []byte, depth int) ([]Entry, error) {
	if len(data) != DirectoryLength(depth) {
		return nil, fmt.Errorf("%w: length %d, want %d", ErrInvalidDirectory, len(data), DirectoryLength(depth))
	}
	entries := make([]Entry, DirectorySize(depth))
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDirectory, err)
	}
	return entries, nil
}

// ValidateDirectory checks that every payload lies inside the data section.
func ValidateDirectory(entries []Entry, depth int, fileSize uint64) error {
	dataOffset := DataOffset(depth)
	for id, entry := range entries {
		if entry.Length == 0 {
			continue
		}
		if entry.Offset < dataOffset || entry.Offset > fileSize || uint64(entry.Length) > fileSize-entry.Offset {
			return fmt.Errorf("%w: entry %d [%d, +%d) outside data section", ErrInvalidDirectory, id, entry.Offset, entry.Length)
		}
	}
	return nil
}
