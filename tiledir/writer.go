package tiledir

import (
	"os"
	"path/filepath"

	"github.com/eak1mov/go-terrain/tile"
)

// Writer implements tile.Writer for a tile directory.
type Writer struct {
	filePattern string
}

// NewWriter creates a Writer for the given file pattern.
func NewWriter(filePattern string) (*Writer, error) {
	if err := validatePattern(filePattern); err != nil {
		return nil, err
	}
	return &Writer{filePattern}, nil
}

// WriteTile writes one file per tile. Empty tiles are not written.
func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	if len(tileData) == 0 {
		return nil
	}
	filePath := formatPattern(w.filePattern, tileID)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}
	return os.WriteFile(filePath, tileData, 0644)
}

func (w *Writer) Finalize() error {
	return nil
}
