// Package index dumps tile directories as flat records that other tools can
// read without understanding the store's header.
package index

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"fmt"
	"io"
	"slices"

	"github.com/eak1mov/go-terrain/tile"
)

// Item maps a tile address to the location of its payload in the store file.
type Item struct {
	Level  uint32
	Row    uint32
	Col    uint32
	Length uint32
	Offset uint64
}

// ItemLength is the encoded size of an Item.
const ItemLength = 24

func (i Item) TileID() tile.ID {
	return tile.ID{Level: i.Level, Row: i.Row, Col: i.Col}
}

func (i Item) TileLocation() tile.Location {
	return tile.Location{Offset: i.Offset, Length: uint64(i.Length)}
}

// Collect lists the non-empty tiles of a store, ordered by offset then address.
func Collect(v tile.LocationVisitor) ([]Item, error) {
	var items []Item
	err := v.VisitLocations(func(tileID tile.ID, location tile.Location) error {
		if location.Length == 0 {
			return nil
		}
		items = append(items, Item{
			Level:  tileID.Level,
			Row:    tileID.Row,
			Col:    tileID.Col,
			Length: uint32(location.Length),
			Offset: location.Offset,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(items, func(a, b Item) int {
		return cmp.Or(
			cmp.Compare(a.Offset, b.Offset),
			cmp.Compare(a.Level, b.Level),
			cmp.Compare(a.Row, b.Row),
			cmp.Compare(a.Col, b.Col),
		)
	})
	return items, nil
}

func WriteAll(items []Item, writer io.Writer) error {
	return binary.Write(writer, binary.LittleEndian, items)
}

func ReadAll(indexData []byte) ([]Item, error) {
	if len(indexData)%ItemLength != 0 {
		return nil, fmt.Errorf("index: %d bytes is not a whole number of items", len(indexData))
	}
	items := make([]Item, len(indexData)/ItemLength)
	if err := binary.Read(bytes.NewReader(indexData), binary.LittleEndian, items); err != nil {
		return nil, err
	}
	return items, nil
}
