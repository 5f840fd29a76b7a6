package tqt_test

import (
	"errors"
	"maps"
	"os"
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-terrain/internal"
	"github.com/eak1mov/go-terrain/qtree"
	"github.com/eak1mov/go-terrain/tile"
	"github.com/eak1mov/go-terrain/tqt"
	"github.com/eak1mov/go-terrain/tqt/spec"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func buildStore(t *testing.T, depth, size int) (string, internal.MemTiles) {
	t.Helper()
	tiles := internal.Pyramid(depth, size)
	filePath := filepath.Join(t.TempDir(), "color.tqt")
	if err := tqt.Build(filePath, tiles, depth, size); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return filePath, tiles
}

func TestWriterReader(t *testing.T) {
	for _, tc := range []struct {
		name  string
		depth int
		size  int
	}{
		{"root-only", 0, 8},
		{"depth2", 2, 16},
		{"depth4", 4, 4},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			filePath, tiles := buildStore(t, tc.depth, tc.size)
			require.True(t, tqt.IsTQTFile(filePath))

			reader, err := tqt.Open(filePath)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer reader.Close()

			require.True(t, reader.Valid())
			require.Equal(t, tc.depth, reader.Depth())
			require.Equal(t, tc.size, reader.TileSize())
			require.Equal(t, spec.TileTypePng, reader.TileType())
			require.NotZero(t, reader.Header().Flags&spec.FlagClustered)

			if got, want := maps.Collect(tile.IterTiles(reader)), map[tile.ID][]byte(tiles); !cmp.Equal(got, want) {
				t.Errorf("VisitTiles data mismatch")
			}

			for tileID, tileData := range tiles {
				got, err := reader.ReadTile(tileID)
				if err != nil {
					t.Fatalf("ReadTile(%v) failed: %v", tileID, err)
				}
				if !cmp.Equal(got, tileData) {
					t.Fatalf("ReadTile(%v) data mismatch", tileID)
				}
			}
		})
	}
}

func TestFetchTile(t *testing.T) {
	const size = 16
	filePath, _ := buildStore(t, 2, size)
	reader, err := tqt.Open(filePath)
	require.NoError(t, err)
	defer reader.Close()

	for tileID := range tile.Pyramid(2) {
		img, err := reader.FetchTile(tileID, false)
		require.NoError(t, err, "%v", tileID)
		require.Equal(t, size, img.Bounds().Dx())
		require.Equal(t, internal.TileColor(tileID), img.RGBAAt(0, 0))
		require.Equal(t, internal.SouthColor, img.RGBAAt(0, size-1))

		flipped, err := reader.FetchTile(tileID, true)
		require.NoError(t, err)
		require.Equal(t, internal.SouthColor, flipped.RGBAAt(0, 0))
		require.Equal(t, internal.TileColor(tileID), flipped.RGBAAt(size-1, size-1))
	}
}

func TestFetchTileAddress(t *testing.T) {
	filePath, _ := buildStore(t, 2, 8)
	reader, err := tqt.Open(filePath)
	require.NoError(t, err)
	defer reader.Close()

	location, err := reader.ReadLocation(tile.ID{Level: 2, Row: 3, Col: 1})
	require.NoError(t, err)
	require.Equal(t, 18, qtree.NodeID(2, 3, 1))
	require.NotZero(t, location.Length)

	for _, tileID := range []tile.ID{
		{Level: 3, Row: 0, Col: 0},
		{Level: 2, Row: 4, Col: 0},
		{Level: 1, Row: 0, Col: 2},
	} {
		_, err := reader.FetchTile(tileID, true)
		require.ErrorIs(t, err, tqt.ErrAddress, "%v", tileID)
	}
}

func TestSharedPayloads(t *testing.T) {
	const depth, size = 2, 8
	filePath := filepath.Join(t.TempDir(), "flat.tqt")
	same := internal.EncodeTile(tile.ID{}, size)
	w, err := tqt.NewWriter(filePath, depth, size)
	require.NoError(t, err)
	for tileID := range tile.Pyramid(depth) {
		require.NoError(t, w.WriteTile(tileID, same))
	}
	require.NoError(t, w.Finalize())
	require.Panics(t, func() { w.Finalize() })
	require.PanicsWithValue(t, "tqt: write after finalize", func() { w.WriteTile(tile.ID{}, same) })

	info, err := os.Stat(filePath)
	require.NoError(t, err)
	require.Equal(t, int64(spec.DataOffset(depth))+int64(len(same)), info.Size())

	reader, err := tqt.Open(filePath)
	require.NoError(t, err)
	defer reader.Close()
	a, _ := reader.ReadLocation(tile.ID{Level: 0})
	b, _ := reader.ReadLocation(tile.ID{Level: 2, Row: 3, Col: 3})
	require.Equal(t, a, b)
}

func TestMissingAndCorruptTiles(t *testing.T) {
	const depth, size = 1, 8
	filePath := filepath.Join(t.TempDir(), "partial.tqt")
	w, err := tqt.NewWriter(filePath, depth, size, tqt.WithTileType(spec.TileTypePng))
	require.NoError(t, err)
	require.NoError(t, w.WriteTile(tile.ID{}, internal.EncodeTile(tile.ID{}, size)))
	require.NoError(t, w.WriteTile(tile.ID{Level: 1, Row: 0, Col: 1}, []byte("not an image")))
	require.NoError(t, w.WriteTile(tile.ID{Level: 1, Row: 1, Col: 1}, internal.EncodeTile(tile.ID{}, size*2)))
	require.ErrorIs(t, w.WriteTile(tile.ID{Level: 2}, []byte("x")), tqt.ErrAddress)
	require.NoError(t, w.Finalize())

	reader, err := tqt.Open(filePath)
	require.NoError(t, err)
	defer reader.Close()

	_, err = reader.FetchTile(tile.ID{}, true)
	require.NoError(t, err)

	tileData, err := reader.ReadTile(tile.ID{Level: 1})
	require.NoError(t, err)
	require.Empty(t, tileData)
	_, err = reader.FetchTile(tile.ID{Level: 1}, true)
	require.ErrorIs(t, err, tqt.ErrMissingTile)

	_, err = reader.FetchTile(tile.ID{Level: 1, Row: 0, Col: 1}, true)
	require.ErrorIs(t, err, tqt.ErrDecode)

	_, err = reader.FetchTile(tile.ID{Level: 1, Row: 1, Col: 1}, true)
	require.ErrorIs(t, err, tqt.ErrDecode)
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := tqt.Open(filepath.Join(dir, "nope.tqt"))
	require.True(t, errors.Is(err, os.ErrNotExist), "%v", err)
	require.False(t, tqt.IsTQTFile(filepath.Join(dir, "nope.tqt")))

	garbage := filepath.Join(dir, "garbage.tqt")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not a tqt file"), 0644))
	require.False(t, tqt.IsTQTFile(garbage))
	_, err = tqt.Open(garbage)
	require.ErrorIs(t, err, spec.ErrInvalidHeader)

	header := spec.Header{Magic: spec.HeaderMagic, Version: spec.HeaderVersion, Depth: 3, TileSize: 8}
	truncated := filepath.Join(dir, "truncated.tqt")
	require.NoError(t, os.WriteFile(truncated, spec.SerializeHeader(&header), 0644))
	require.True(t, tqt.IsTQTFile(truncated))
	_, err = tqt.Open(truncated)
	require.ErrorIs(t, err, spec.ErrInvalidDirectory)

	var nilReader *tqt.Reader
	require.False(t, nilReader.Valid())
}

func TestClose(t *testing.T) {
	filePath, _ := buildStore(t, 1, 8)
	reader, err := tqt.Open(filePath)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	require.False(t, reader.Valid())
	_, err = reader.ReadTile(tile.ID{})
	require.ErrorIs(t, err, os.ErrClosed)
}
