package index_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-terrain/index"
	"github.com/eak1mov/go-terrain/internal"
	"github.com/eak1mov/go-terrain/tile"
	"github.com/eak1mov/go-terrain/tqt"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestCollectWriteRead(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "color.tqt")
	tiles := internal.Pyramid(2, 4)
	delete(tiles, tile.ID{Level: 2, Row: 3, Col: 3})
	require.NoError(t, tqt.Build(filePath, tiles, 2, 4))

	reader, err := tqt.Open(filePath)
	require.NoError(t, err)
	defer reader.Close()

	items, err := index.Collect(reader)
	require.NoError(t, err)
	require.Len(t, items, len(tiles))
	for i, item := range items {
		if i > 0 {
			require.LessOrEqual(t, items[i-1].Offset, item.Offset)
		}
		location, err := reader.ReadLocation(item.TileID())
		require.NoError(t, err)
		require.Equal(t, location, item.TileLocation())
	}

	var buffer bytes.Buffer
	require.NoError(t, index.WriteAll(items, &buffer))
	require.Equal(t, index.ItemLength*len(items), buffer.Len())

	got, err := index.ReadAll(buffer.Bytes())
	require.NoError(t, err)
	if diff := cmp.Diff(items, got); diff != "" {
		t.Errorf("ReadAll mismatch (-want +got):\n%s", diff)
	}

	_, err = index.ReadAll(buffer.Bytes()[:buffer.Len()-1])
	require.Error(t, err)
}
