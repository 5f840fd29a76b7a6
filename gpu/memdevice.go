package gpu

import (
	"fmt"
	"image"
)

// MemDevice is a Device backed by host memory. It keeps allocation statistics and
// can be told to fail, which makes it the device of choice for tests and dry runs.
type MemDevice struct {
	stats MemStats

	// FailTextures and FailBuffers make the next creations of that kind fail.
	FailTextures int
	FailBuffers  int
}

type MemStats struct {
	TexturesCreated   int
	TexturesDestroyed int
	BuffersCreated    int
	BuffersDestroyed  int
	LiveBytes         uint64
}

func NewMemDevice() *MemDevice {
	return &MemDevice{}
}

func (d *MemDevice) Stats() MemStats {
	return d.stats
}

func (d *MemDevice) CreateTexture(desc *TextureDescriptor, img *image.RGBA) (Texture, error) {
	if d.FailTextures > 0 {
		d.FailTextures--
		return nil, fmt.Errorf("%w: texture %q", ErrResourceCreation, desc.Label)
	}
	b := img.Bounds()
	if uint32(b.Dx()) != desc.Size.Width || uint32(b.Dy()) != desc.Size.Height {
		return nil, fmt.Errorf("%w: texture %q: image is %dx%d, descriptor %dx%d",
			ErrResourceCreation, desc.Label, b.Dx(), b.Dy(), desc.Size.Width, desc.Size.Height)
	}
	t := &memTexture{
		device: d,
		label:  desc.Label,
		size:   desc.ByteSize(),
		pix:    append([]byte(nil), img.Pix...),
	}
	d.stats.TexturesCreated++
	d.stats.LiveBytes += t.size
	return t, nil
}

func (d *MemDevice) CreateBuffer(desc *BufferDescriptor) (Buffer, error) {
	if d.FailBuffers > 0 {
		d.FailBuffers--
		return nil, fmt.Errorf("%w: buffer %q", ErrResourceCreation, desc.Label)
	}
	if desc.Size%CopyAlignment != 0 {
		return nil, fmt.Errorf("%w: buffer %q: size %d is not %d-byte aligned", ErrResourceCreation, desc.Label, desc.Size, CopyAlignment)
	}
	b := &memBuffer{
		device: d,
		label:  desc.Label,
		data:   make([]byte, desc.Size),
	}
	d.stats.BuffersCreated++
	d.stats.LiveBytes += desc.Size
	return b, nil
}

type memTexture struct {
	device    *MemDevice
	label     string
	size      uint64
	pix       []byte
	destroyed bool
}

func (t *memTexture) Size() uint64 { return t.size }

func (t *memTexture) Destroy() {
	if t.destroyed {
		panic("gpu: texture " + t.label + " destroyed twice")
	}
	t.destroyed = true
	t.pix = nil
	t.device.stats.TexturesDestroyed++
	t.device.stats.LiveBytes -= t.size
}

type memBuffer struct {
	device    *MemDevice
	label     string
	data      []byte
	destroyed bool
}

func (b *memBuffer) Size() uint64 { return uint64(len(b.data)) }

func (b *memBuffer) Write(offset uint64, data []byte) error {
	if b.destroyed {
		return fmt.Errorf("gpu: write to destroyed buffer %q", b.label)
	}
	if offset%CopyAlignment != 0 || uint64(len(data))%CopyAlignment != 0 {
		return fmt.Errorf("gpu: unaligned write to buffer %q", b.label)
	}
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return fmt.Errorf("gpu: write of %d bytes at %d overflows buffer %q (%d bytes)", len(data), offset, b.label, len(b.data))
	}
	copy(b.data[offset:], data)
	return nil
}

func (b *memBuffer) Destroy() {
	if b.destroyed {
		panic("gpu: buffer " + b.label + " destroyed twice")
	}
	b.destroyed = true
	b.device.stats.BuffersDestroyed++
	b.device.stats.LiveBytes -= uint64(len(b.data))
	b.data = nil
}

// Contents returns the bytes held by a buffer created by a MemDevice.
func Contents(buffer Buffer) []byte {
	if b, ok := buffer.(*memBuffer); ok {
		return b.data
	}
	return nil
}
