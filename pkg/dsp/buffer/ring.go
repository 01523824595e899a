// Package buffer provides lock-free buffers for moving data off the audio thread.
package buffer

import (
	"sync/atomic"
)

// Ring is a single-producer/single-consumer circular buffer. The producer
// (the audio thread) never blocks: when the ring is full, excess items are
// dropped and counted as overruns.
type Ring[T any] struct {
	data     []T
	mask     uint64
	readPos  atomic.Uint64
	writePos atomic.Uint64

	overruns atomic.Uint64
}

// RingStats provides health monitoring information
type RingStats struct {
	Overruns       uint64
	Buffered       int
	FillPercentage float32
}

// NewRing creates a ring holding at least capacity items, rounded up to a power of two.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 2 {
		capacity = 2
	}
	size := nextPowerOf2(uint64(capacity))
	return &Ring[T]{
		data: make([]T, size),
		mask: size - 1,
	}
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int {
	return len(r.data)
}

// Len returns the number of buffered items.
func (r *Ring[T]) Len() int {
	return int(r.writePos.Load() - r.readPos.Load())
}

// Push appends one item. Producer side only.
func (r *Ring[T]) Push(v T) bool {
	w := r.writePos.Load()
	if w-r.readPos.Load() >= uint64(len(r.data)) {
		r.overruns.Add(1)
		return false
	}
	r.data[w&r.mask] = v
	r.writePos.Store(w + 1)
	return true
}

// Write appends as many items as fit and returns how many were written.
// Producer side only.
func (r *Ring[T]) Write(items []T) int {
	w := r.writePos.Load()
	free := uint64(len(r.data)) - (w - r.readPos.Load())
	n := uint64(len(items))
	if n > free {
		r.overruns.Add(1)
		n = free
	}
	for i := uint64(0); i < n; i++ {
		r.data[(w+i)&r.mask] = items[i]
	}
	r.writePos.Store(w + n)
	return int(n)
}

// Pop removes the oldest item. Consumer side only.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	rd := r.readPos.Load()
	if rd == r.writePos.Load() {
		return zero, false
	}
	v := r.data[rd&r.mask]
	r.readPos.Store(rd + 1)
	return v, true
}

// Read moves up to len(dst) of the oldest items into dst. Consumer side only.
func (r *Ring[T]) Read(dst []T) int {
	rd := r.readPos.Load()
	n := r.writePos.Load() - rd
	if n > uint64(len(dst)) {
		n = uint64(len(dst))
	}
	for i := uint64(0); i < n; i++ {
		dst[i] = r.data[(rd+i)&r.mask]
	}
	r.readPos.Store(rd + n)
	return int(n)
}

// Latest copies the newest len(dst) items into dst without consuming
// anything older, then discards everything up to the write position.
// Consumer side only. Returns the number of items copied.
func (r *Ring[T]) Latest(dst []T) int {
	w := r.writePos.Load()
	rd := r.readPos.Load()
	n := w - rd
	if n > uint64(len(dst)) {
		rd = w - uint64(len(dst))
		n = uint64(len(dst))
	}
	for i := uint64(0); i < n; i++ {
		dst[i] = r.data[(rd+i)&r.mask]
	}
	r.readPos.Store(w)
	return int(n)
}

// Stats returns current ring statistics.
func (r *Ring[T]) Stats() RingStats {
	n := r.Len()
	return RingStats{
		Overruns:       r.overruns.Load(),
		Buffered:       n,
		FillPercentage: float32(n) / float32(len(r.data)) * 100,
	}
}

// Reset empties the ring. Call only while neither side is running.
func (r *Ring[T]) Reset() {
	r.readPos.Store(0)
	r.writePos.Store(0)
	r.overruns.Store(0)
}

func nextPowerOf2(n uint64) uint64 {
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}
