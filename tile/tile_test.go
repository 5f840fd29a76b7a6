package tile_test

import (
	"testing"

	"github.com/eak1mov/go-terrain/tile"
	"github.com/stretchr/testify/require"
)

func TestValid(t *testing.T) {
	require.True(t, tile.ID{Level: 2, Row: 3, Col: 1}.Valid(2))
	require.False(t, tile.ID{Level: 3, Row: 0, Col: 0}.Valid(2))
	require.False(t, tile.ID{Level: 1, Row: 2, Col: 0}.Valid(2))
	require.False(t, tile.ID{Level: 1, Row: 0, Col: 2}.Valid(5))
}

func TestHilbertOrderCoversLevel(t *testing.T) {
	for level := range uint32(6) {
		seen := make(map[tile.ID]bool)
		var prev *tile.ID
		for id := range tile.HilbertOrder(level) {
			require.True(t, id.Valid(int(level)), "%v", id)
			require.False(t, seen[id], "duplicate %v", id)
			seen[id] = true
			if prev != nil {
				dr := int(id.Row) - int(prev.Row)
				dc := int(id.Col) - int(prev.Col)
				require.Equal(t, 1, dr*dr+dc*dc, "%v -> %v not adjacent", *prev, id)
			}
			prev = &id
		}
		require.Len(t, seen, 1<<(2*level))
	}
}

func TestPyramid(t *testing.T) {
	count := 0
	lastLevel := uint32(0)
	for id := range tile.Pyramid(3) {
		require.GreaterOrEqual(t, id.Level, lastLevel)
		lastLevel = id.Level
		count++
	}
	require.Equal(t, 85, count)
}
