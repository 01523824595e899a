package buffer

import "sync/atomic"

const tripleDirty = 4

// TripleBuffer hands the newest value from one producer to one consumer.
// Publishing never blocks and always replaces an unread value, so the
// consumer sees the latest state however far it falls behind.
type TripleBuffer[T any] struct {
	slots  [3]T
	back   uint32 // producer-owned
	front  uint32 // consumer-owned
	shared atomic.Uint32

	overwrites atomic.Uint64
}

// NewTripleBuffer creates an empty triple buffer.
func NewTripleBuffer[T any]() *TripleBuffer[T] {
	b := &TripleBuffer[T]{}
	b.Reset()
	return b
}

// Publish stores v as the newest value. Producer side only.
func (b *TripleBuffer[T]) Publish(v T) {
	b.slots[b.back] = v
	old := b.shared.Swap(b.back | tripleDirty)
	if old&tripleDirty != 0 {
		b.overwrites.Add(1)
	}
	b.back = old &^ tripleDirty
}

// Take returns the newest value. ok is false when nothing was published
// since the last Take. Consumer side only.
func (b *TripleBuffer[T]) Take() (v T, ok bool) {
	if b.shared.Load()&tripleDirty == 0 {
		return v, false
	}
	b.front = b.shared.Swap(b.front) &^ tripleDirty
	return b.slots[b.front], true
}

// Overwrites returns how many published values were replaced unread.
func (b *TripleBuffer[T]) Overwrites() uint64 {
	return b.overwrites.Load()
}

// Reset empties the buffer. Call only while neither side is running.
func (b *TripleBuffer[T]) Reset() {
	var zero T
	b.slots = [3]T{zero, zero, zero}
	b.back, b.front = 0, 1
	b.shared.Store(2)
	b.overwrites.Store(0)
}
