// Package gpu is the seam between the streaming caches and a graphics backend.
//
// The caches only need three synchronous operations: create a texture from a
// decoded image, create a buffer, and destroy either. Descriptors use the
// WebGPU vocabulary from gputypes so a wgpu-backed Device is a thin adapter.
package gpu

import (
	"errors"
	"image"

	"github.com/gogpu/gputypes"
)

// ErrResourceCreation is returned (wrapped) when the device cannot allocate or upload a resource.
var ErrResourceCreation = errors.New("gpu: resource creation failed")

// CopyAlignment is the required alignment of buffer sizes and write lengths.
const CopyAlignment = 4

type SamplerDescriptor struct {
	MagFilter    gputypes.FilterMode
	MinFilter    gputypes.FilterMode
	AddressModeU gputypes.AddressMode
	AddressModeV gputypes.AddressMode
}

type TextureDescriptor struct {
	Label         string
	Size          gputypes.Extent3D
	Dimension     gputypes.TextureDimension
	Format        gputypes.TextureFormat
	Usage         gputypes.TextureUsage
	MipLevelCount uint32
	Sampler       SamplerDescriptor
}

// ByteSize estimates the device memory of an RGBA8 texture including its mip chain.
func (d *TextureDescriptor) ByteSize() uint64 {
	base := uint64(d.Size.Width) * uint64(d.Size.Height) * uint64(max(d.Size.DepthOrArrayLayers, 1)) * 4
	if d.MipLevelCount > 1 {
		return base * 4 / 3
	}
	return base
}

type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage gputypes.BufferUsage
}

type Texture interface {
	// Size returns the device memory held by the texture in bytes.
	Size() uint64
	Destroy()
}

type Buffer interface {
	Size() uint64
	// Write copies data into the buffer at offset; both must respect CopyAlignment.
	Write(offset uint64, data []byte) error
	Destroy()
}

type Device interface {
	CreateTexture(desc *TextureDescriptor, img *image.RGBA) (Texture, error)
	CreateBuffer(desc *BufferDescriptor) (Buffer, error)
}

// AlignSize rounds n up to CopyAlignment.
func AlignSize(n uint64) uint64 {
	return (n + CopyAlignment - 1) &^ (CopyAlignment - 1)
}

// TileTextureDescriptor describes a mipmapped, linearly filtered, edge-clamped tile texture.
func TileTextureDescriptor(label string, img *image.RGBA) *TextureDescriptor {
	b := img.Bounds()
	return &TextureDescriptor{
		Label: label,
		Size: gputypes.Extent3D{
			Width:              uint32(b.Dx()),
			Height:             uint32(b.Dy()),
			DepthOrArrayLayers: 1,
		},
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
		MipLevelCount: mipLevels(b.Dx(), b.Dy()),
		Sampler: SamplerDescriptor{
			MagFilter:    gputypes.FilterModeLinear,
			MinFilter:    gputypes.FilterModeLinear,
			AddressModeU: gputypes.AddressModeClampToEdge,
			AddressModeV: gputypes.AddressModeClampToEdge,
		},
	}
}

func mipLevels(w, h int) uint32 {
	levels := uint32(1)
	for n := max(w, h); n > 1; n >>= 1 {
		levels++
	}
	return levels
}

// VertexBufferUsage and IndexBufferUsage are the usages of mesh buffers rewritten in place.
var (
	VertexBufferUsage = gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst
	IndexBufferUsage  = gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst
)

// MeshIndexFormat is the index format of terrain chunks.
var MeshIndexFormat = gputypes.IndexFormatUint16
