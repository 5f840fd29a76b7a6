package gpu_test

import (
	"image"
	"testing"

	"github.com/eak1mov/go-terrain/gpu"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/require"
)

func TestTileTextureDescriptor(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 256, 256))
	desc := gpu.TileTextureDescriptor("tile", img)
	require.Equal(t, uint32(256), desc.Size.Width)
	require.Equal(t, uint32(9), desc.MipLevelCount)
	require.Equal(t, gputypes.TextureFormatRGBA8Unorm, desc.Format)
	require.Equal(t, gputypes.AddressModeClampToEdge, desc.Sampler.AddressModeU)
	require.Equal(t, uint64(256*256*4*4/3), desc.ByteSize())
}

func TestAlignSize(t *testing.T) {
	for n, want := range map[uint64]uint64{0: 0, 1: 4, 4: 4, 6: 8, 9: 12} {
		require.Equal(t, want, gpu.AlignSize(n), "n=%d", n)
	}
}

func TestMemDevice(t *testing.T) {
	d := gpu.NewMemDevice()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	tex, err := d.CreateTexture(gpu.TileTextureDescriptor("a", img), img)
	require.NoError(t, err)

	buf, err := d.CreateBuffer(&gpu.BufferDescriptor{Label: "v", Size: 8, Usage: gpu.VertexBufferUsage})
	require.NoError(t, err)
	require.NoError(t, buf.Write(0, []byte{1, 2, 3, 4, 5, 6, 7, 8}))
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, gpu.Contents(buf))
	require.Error(t, buf.Write(4, make([]byte, 8)))
	require.Error(t, buf.Write(2, make([]byte, 4)))

	stats := d.Stats()
	require.Equal(t, 1, stats.TexturesCreated)
	require.Equal(t, 1, stats.BuffersCreated)
	require.Equal(t, tex.Size()+8, stats.LiveBytes)

	tex.Destroy()
	buf.Destroy()
	require.Panics(t, tex.Destroy)
	require.Panics(t, buf.Destroy)
	require.Zero(t, d.Stats().LiveBytes)

	d.FailTextures = 1
	_, err = d.CreateTexture(gpu.TileTextureDescriptor("b", img), img)
	require.ErrorIs(t, err, gpu.ErrResourceCreation)
	_, err = d.CreateTexture(gpu.TileTextureDescriptor("b", img), img)
	require.NoError(t, err)

	d.FailBuffers = 1
	_, err = d.CreateBuffer(&gpu.BufferDescriptor{Size: 4})
	require.ErrorIs(t, err, gpu.ErrResourceCreation)
	_, err = d.CreateBuffer(&gpu.BufferDescriptor{Size: 6})
	require.ErrorIs(t, err, gpu.ErrResourceCreation)
}
