package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// View holds the camera parameters used for LOD selection.
type View struct {
	Eye            mgl64.Vec3
	FovY           float64 // vertical field of view in radians
	ViewportHeight int     // pixels
	Far            float64 // tiles farther than this are culled; 0 disables culling
}

// ErrorScale returns the factor converting a world-space error at distance 1 to pixels.
func (v View) ErrorScale() float64 {
	return float64(v.ViewportHeight) / (2 * math.Tan(v.FovY/2))
}

// ScreenError returns the projected size in pixels of the tile's maximum
// geometric error. It is infinite when the eye is inside the tile's box.
func ScreenError(t *Tile, v View) float64 {
	d := t.BBox().Distance(v.Eye)
	if d == 0 {
		return math.Inf(1)
	}
	return float64(t.Chunk().MaxError) * v.ErrorScale() / d
}

// Select returns the LOD cut of a loaded cell: walking from the root, a tile is
// chosen when its screen error is within threshold or it is a leaf. Subtrees
// beyond the far plane are skipped.
func Select(c *Cell, v View, threshold float64) []*Tile {
	var cut []*Tile
	var walk func(t *Tile)
	walk = func(t *Tile) {
		if v.Far > 0 && t.BBox().Distance(v.Eye) > v.Far {
			return
		}
		if t.NumChildren() == 0 || ScreenError(t, v) <= threshold {
			cut = append(cut, t)
			return
		}
		for i := range t.NumChildren() {
			walk(t.Child(i))
		}
	}
	walk(c.Root())
	return cut
}
