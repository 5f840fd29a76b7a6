// Package bufcache recycles paired vertex/index buffers ("slots") between mesh chunks.
//
// A slot does not remember which chunk it holds: callers Load a chunk into every
// slot they acquire. The pool is not safe for concurrent use.
package bufcache

import (
	"fmt"
	"log/slog"

	"github.com/eak1mov/go-terrain/gpu"
	"github.com/gogpu/gputypes"
)

// Mesh is the geometry a slot can hold.
type Mesh interface {
	VertexData() []byte
	IndexData() []byte
	NumIndices() int
}

// Slot is one vertex buffer plus one index buffer.
type Slot struct {
	id       int
	vBuf     gpu.Buffer
	iBuf     gpu.Buffer
	nIndices int
	inUse    bool
}

func (s *Slot) ID() int { return s.id }

// InUse reports whether the slot is currently acquired.
func (s *Slot) InUse() bool { return s.inUse }

// NumIndices returns the index count of the loaded mesh, or 0 for a free slot.
func (s *Slot) NumIndices() int {
	if !s.inUse {
		return 0
	}
	return s.nIndices
}

func (s *Slot) VertexBuffer() gpu.Buffer { return s.vBuf }
func (s *Slot) IndexBuffer() gpu.Buffer  { return s.iBuf }

type Stats struct {
	Created int
	InUse   int
	Free    int
	Resizes int
}

type config struct {
	logger   *slog.Logger
	capacity int
}

type Option func(*config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithCapacity preallocates room for n free slots.
func WithCapacity(n int) Option {
	return func(c *config) { c.capacity = n }
}

type Pool struct {
	device   gpu.Device
	logger   *slog.Logger
	slots    []*Slot
	freeList []*Slot
	inUse    int
	resizes  int
	closed   bool
}

func New(device gpu.Device, opts ...Option) *Pool {
	config := config{
		logger:   slog.New(slog.DiscardHandler),
		capacity: 256,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Pool{
		device:   device,
		logger:   config.logger,
		freeList: make([]*Slot, 0, config.capacity),
	}
}

// Acquire returns a free slot, creating one if none is free.
// The slot's buffers keep whatever they held before; Load before drawing.
func (p *Pool) Acquire() *Slot {
	p.checkOpen()

	var slot *Slot
	if n := len(p.freeList); n == 0 {
		slot = &Slot{id: len(p.slots)}
		p.slots = append(p.slots, slot)
		instrumentSlotCreated()
		p.logger.Debug("bufcache: new slot", "slot", slot.id)
	} else {
		slot = p.freeList[n-1]
		p.freeList[n-1] = nil
		p.freeList = p.freeList[:n-1]
	}
	if slot.inUse {
		panic(fmt.Sprintf("bufcache: slot %d on free list is in use", slot.id))
	}
	slot.inUse = true
	p.inUse++
	instrumentSlotsInUse(1)
	return slot
}

// Release returns an acquired slot to the pool. Releasing a free slot panics.
func (p *Pool) Release(slot *Slot) {
	p.checkOpen()
	if !slot.inUse {
		panic(fmt.Sprintf("bufcache: release of slot %d that is not in use", slot.id))
	}
	slot.inUse = false
	p.inUse--
	p.freeList = append(p.freeList, slot)
	instrumentSlotsInUse(-1)
}

// Load copies the mesh into the slot, reallocating a buffer when its aligned size
// differs from the mesh data size.
func (p *Pool) Load(slot *Slot, mesh Mesh) error {
	p.checkOpen()
	if !slot.inUse {
		panic(fmt.Sprintf("bufcache: load into slot %d that is not in use", slot.id))
	}

	vBuf, err := p.fill(slot.vBuf, mesh.VertexData(), gpu.VertexBufferUsage, slot.id, "vertices")
	slot.vBuf = vBuf
	if err != nil {
		return err
	}
	iBuf, err := p.fill(slot.iBuf, mesh.IndexData(), gpu.IndexBufferUsage, slot.id, "indices")
	slot.iBuf = iBuf
	if err != nil {
		return err
	}
	slot.nIndices = mesh.NumIndices()
	return nil
}

func (p *Pool) fill(buf gpu.Buffer, data []byte, usage gputypes.BufferUsage, id int, kind string) (gpu.Buffer, error) {
	size := gpu.AlignSize(uint64(len(data)))
	if buf == nil || buf.Size() != size {
		if buf != nil {
			buf.Destroy()
			p.resizes++
			instrumentResize()
		}
		var err error
		buf, err = p.device.CreateBuffer(&gpu.BufferDescriptor{
			Label: fmt.Sprintf("slot-%d-%s", id, kind),
			Size:  size,
			Usage: usage,
		})
		if err != nil {
			return nil, fmt.Errorf("bufcache: slot %d %s (%d bytes): %w", id, kind, size, err)
		}
		p.logger.Debug("bufcache: allocated buffer", "slot", id, "kind", kind, "bytes", size)
	}
	if uint64(len(data)) != size {
		padded := make([]byte, size)
		copy(padded, data)
		data = padded
	}
	if len(data) == 0 {
		return buf, nil
	}
	if err := buf.Write(0, data); err != nil {
		return buf, fmt.Errorf("bufcache: slot %d %s: %w", id, kind, err)
	}
	return buf, nil
}

func (p *Pool) Stats() Stats {
	return Stats{
		Created: len(p.slots),
		InUse:   p.inUse,
		Free:    len(p.freeList),
		Resizes: p.resizes,
	}
}

// Close destroys the buffers of every slot. Slots still in use become unusable.
func (p *Pool) Close() {
	if p.closed {
		return
	}
	if p.inUse > 0 {
		p.logger.Warn("bufcache: closing pool with slots in use", "inUse", p.inUse)
	}
	for _, slot := range p.slots {
		if slot.vBuf != nil {
			slot.vBuf.Destroy()
			slot.vBuf = nil
		}
		if slot.iBuf != nil {
			slot.iBuf.Destroy()
			slot.iBuf = nil
		}
		if slot.inUse {
			instrumentSlotsInUse(-1)
		}
		slot.inUse = false
	}
	p.slots = nil
	p.freeList = nil
	p.inUse = 0
	p.closed = true
}

func (p *Pool) checkOpen() {
	if p.closed {
		panic("bufcache: pool is closed")
	}
}
