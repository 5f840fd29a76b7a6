// Package qtree provides index arithmetic for complete quadtrees stored as flat arrays.
//
// Two numberings share the same level layout (level l occupies ids
// [LevelStart(l), LevelStart(l+1))) but differ inside a level:
//
//   - row-major: NodeID(level, row, col) = LevelStart(level) + row*2^level + col.
//     Used by the tiled image store directory.
//   - heap order: the children of node n are 4n+1 .. 4n+4 (NW, NE, SW, SE).
//     Used by the LOD quadtree arena of a map cell.
package qtree

import "math/bits"

// MaxLevels bounds the number of levels so that node ids fit into 64 bits.
const MaxLevels = 31

// NumNodes returns the number of nodes in a complete quadtree with the given number of levels.
func NumNodes(levels int) int {
	return (1<<(2*levels) - 1) / 3
}

// LevelStart returns the id of the first node at the given level.
func LevelStart(level int) int {
	return NumNodes(level)
}

// Level returns the level of the node with the given id.
func Level(id int) int {
	return (bits.Len64(3*uint64(id)+1) - 1) / 2
}

// NodeID returns the row-major id of the node at (level, row, col).
func NodeID(level, row, col int) int {
	return LevelStart(level) + row<<level + col
}

// Locate is the inverse of NodeID.
func Locate(id int) (level, row, col int) {
	level = Level(id)
	offset := id - LevelStart(level)
	return level, offset >> level, offset & (1<<level - 1)
}

// InRange reports whether (level, row, col) addresses a node of a tree with levels 0..depth.
func InRange(depth, level, row, col int) bool {
	if level < 0 || level > depth {
		return false
	}
	n := 1 << level
	return 0 <= row && row < n && 0 <= col && col < n
}

// FirstChild returns the heap-order id of the first (NW) child of node id.
func FirstChild(id int) int {
	return 4*id + 1
}

// Child returns the heap-order id of the i'th child of node id (0=NW, 1=NE, 2=SW, 3=SE).
func Child(id, i int) int {
	return 4*id + 1 + i
}

// Parent returns the heap-order id of the parent of node id, or -1 for the root.
func Parent(id int) int {
	if id == 0 {
		return -1
	}
	return (id - 1) / 4
}
