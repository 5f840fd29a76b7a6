package tiledir_test

import (
	"errors"
	"maps"
	"os"
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-terrain/tile"
	"github.com/eak1mov/go-terrain/tiledir"
	"github.com/google/go-cmp/cmp"
)

func TestWriterReader(t *testing.T) {
	rootDir := filepath.Join(t.TempDir(), "tiles.v1+")
	pattern := filepath.Join(rootDir, "{level}", "{row}", "{col}.png")

	tiles := map[tile.ID][]byte{
		{Level: 0, Row: 0, Col: 0}:  []byte("tile000"),
		{Level: 1, Row: 1, Col: 0}:  []byte("tile110"),
		{Level: 6, Row: 0, Col: 63}: []byte("tile6063"),
		{Level: 6, Row: 42, Col: 7}: []byte("tile6427"),
	}

	writer, err := tiledir.NewWriter(pattern)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	for tileID, tileData := range tiles {
		if err := writer.WriteTile(tileID, tileData); err != nil {
			t.Errorf("WriteTile(%v) failed: %v", tileID, err)
		}
	}
	if err := writer.WriteTile(tile.ID{Level: 2}, nil); err != nil {
		t.Errorf("WriteTile(empty) failed: %v", err)
	}
	if err := writer.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	// Stray files are ignored by the reader.
	if err := os.WriteFile(filepath.Join(rootDir, "README"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(rootDir, "1", "1", "0.jpg"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	reader, err := tiledir.NewReader(pattern)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	if got, want := maps.Collect(tile.IterTiles(reader)), tiles; !cmp.Equal(got, want) {
		t.Errorf("VisitTiles mismatch (-want +got):\n%s", cmp.Diff(want, got))
	}

	for tileID, tileData := range tiles {
		data, err := reader.ReadTile(tileID)
		if err != nil {
			t.Errorf("ReadTile(%v) failed: %v", tileID, err)
			continue
		}
		if !cmp.Equal(data, tileData) {
			t.Errorf("ReadTile data mismatch for %v", tileID)
		}
	}

	tileData, err := reader.ReadTile(tile.ID{Level: 2})
	if err != nil {
		t.Errorf("ReadTile(missing tile) failed: %v", err)
	}
	if len(tileData) != 0 {
		t.Errorf("ReadTile(missing tile) expected empty tile, got: %v bytes", len(tileData))
	}
}

func TestInvalidPattern(t *testing.T) {
	for _, pattern := range []string{
		"/tiles/{level}/{row}.png",
		"/tiles/{z}/{x}/{y}.png",
		"/tiles/{level}/{row}/{col}/{col}.png",
	} {
		if _, err := tiledir.NewReader(pattern); !errors.Is(err, tiledir.ErrInvalidPattern) {
			t.Errorf("NewReader(%q) = %v, want ErrInvalidPattern", pattern, err)
		}
		if _, err := tiledir.NewWriter(pattern); !errors.Is(err, tiledir.ErrInvalidPattern) {
			t.Errorf("NewWriter(%q) = %v, want ErrInvalidPattern", pattern, err)
		}
	}
}
