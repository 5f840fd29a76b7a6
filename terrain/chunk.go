package terrain

import "encoding/binary"

// Vertex is a packed heightfield vertex. X and Z are relative to the cell's NW
// corner in hScale units, Y is relative to the base elevation in vScale units,
// and MorphDelta is the offset of the morph target from Y.
type Vertex struct {
	X          int16
	Y          int16
	Z          int16
	MorphDelta int16
}

const VertexSize = 8

// Chunk is the mesh of one LOD tile.
type Chunk struct {
	MaxError float32 // maximum geometric error in meters
	MinY     int16
	MaxY     int16
	Vertices []Vertex
	Indices  []uint16
}

func (c *Chunk) NumVertices() int { return len(c.Vertices) }
func (c *Chunk) NumIndices() int  { return len(c.Indices) }

// VertexData returns the vertices in the little-endian layout the vertex shader expects.
func (c *Chunk) VertexData() []byte {
	buffer := make([]byte, 0, len(c.Vertices)*VertexSize)
	buffer, _ = binary.Append(buffer, binary.LittleEndian, c.Vertices)
	return buffer
}

func (c *Chunk) IndexData() []byte {
	buffer := make([]byte, 0, len(c.Indices)*2)
	buffer, _ = binary.Append(buffer, binary.LittleEndian, c.Indices)
	return buffer
}

// ByteSize returns the size of the vertex and index data.
func (c *Chunk) ByteSize() int {
	return len(c.Vertices)*VertexSize + len(c.Indices)*2
}
