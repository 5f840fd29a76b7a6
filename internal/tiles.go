// Package internal holds fixtures shared by the package tests and the simulate command.
package internal

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/eak1mov/go-terrain/tile"
)

// TileColor returns a colour unique to the tile for pyramids of depth < 8.
func TileColor(tileID tile.ID) color.RGBA {
	return color.RGBA{
		R: uint8(tileID.Level*16 + 1),
		G: uint8(tileID.Row),
		B: uint8(tileID.Col),
		A: 255,
	}
}

// SouthColor fills the southern half of every synthetic tile.
var SouthColor = color.RGBA{A: 255}

// EncodeTile renders a size x size PNG whose northern half is TileColor(tileID)
// and southern half is SouthColor.
func EncodeTile(tileID tile.ID, size int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	north := TileColor(tileID)
	for y := range size {
		c := north
		if y >= size/2 {
			c = SouthColor
		}
		for x := range size {
			img.SetRGBA(x, y, c)
		}
	}
	var buffer bytes.Buffer
	if err := png.Encode(&buffer, img); err != nil {
		panic(err)
	}
	return buffer.Bytes()
}

// MemTiles is an in-memory tileset.
type MemTiles map[tile.ID][]byte

// Pyramid returns a complete synthetic pyramid with levels 0..depth.
func Pyramid(depth, size int) MemTiles {
	tiles := make(MemTiles)
	for tileID := range tile.Pyramid(depth) {
		tiles[tileID] = EncodeTile(tileID, size)
	}
	return tiles
}

func (m MemTiles) ReadTile(tileID tile.ID) ([]byte, error) {
	if tileData, ok := m[tileID]; ok {
		return tileData, nil
	}
	return make([]byte, 0), nil
}

func (m MemTiles) VisitTiles(visitor func(tile.ID, []byte) error) error {
	for tileID, tileData := range m {
		if err := visitor(tileID, tileData); err != nil {
			return err
		}
	}
	return nil
}

func (m MemTiles) WriteTile(tileID tile.ID, tileData []byte) error {
	m[tileID] = tileData
	return nil
}

func (m MemTiles) Finalize() error {
	return nil
}
