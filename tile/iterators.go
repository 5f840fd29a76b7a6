package tile

import (
	"errors"
	"iter"

	"github.com/google/hilbert"
)

var errVisitCancelled = errors.New("visit cancelled")

// IterTiles returns an iterator over all tiles in the tileset.
// It yields tile IDs and their data. Iteration may panic on unrecoverable errors.
func IterTiles(r Visitor) iter.Seq2[ID, []byte] {
	return func(yield func(ID, []byte) bool) {
		err := r.VisitTiles(func(tileID ID, tileData []byte) error {
			if !yield(tileID, tileData) {
				return errVisitCancelled
			}
			return nil
		})
		if err != nil && err != errVisitCancelled {
			panic(err)
		}
	}
}

func IterLocations(r LocationVisitor) iter.Seq2[ID, Location] {
	return func(yield func(ID, Location) bool) {
		err := r.VisitLocations(func(tileID ID, location Location) error {
			if !yield(tileID, location) {
				return errVisitCancelled
			}
			return nil
		})
		if err != nil && err != errVisitCancelled {
			panic(err)
		}
	}
}

// HilbertOrder yields every tile of a level along the Hilbert curve,
// so consecutive tiles are spatial neighbours.
func HilbertOrder(level uint32) iter.Seq[ID] {
	return func(yield func(ID) bool) {
		if level == 0 {
			yield(ID{})
			return
		}
		n := 1 << level
		h, err := hilbert.NewHilbert(n)
		if err != nil {
			panic(err)
		}
		for t := range n * n {
			x, y, err := h.Map(t)
			if err != nil {
				panic(err)
			}
			if !yield(ID{Level: level, Row: uint32(y), Col: uint32(x)}) {
				return
			}
		}
	}
}

// Pyramid yields every tile of a pyramid with levels 0..depth, coarsest level first,
// each level in Hilbert order.
func Pyramid(depth int) iter.Seq[ID] {
	return func(yield func(ID) bool) {
		for level := range depth + 1 {
			for id := range HilbertOrder(uint32(level)) {
				if !yield(id) {
					return
				}
			}
		}
	}
}
