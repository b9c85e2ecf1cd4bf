// Package ring implements the planner's fixed-capacity lookahead buffer
// (spec.md §4.1). It replaces the teacher/BeagleG write_pos/read_pos mod-4
// pattern with a checked deque: capacity is a compile-time constant and
// every index access is bounds-checked.
package ring

import "fmt"

// Capacity is the lookahead ring's fixed size. Emission needs one
// established position, one to emit, and one lookahead successor, plus
// headroom for the record currently being written.
const Capacity = 4

// Ring is a fixed-capacity ordered buffer of T. The zero value is not
// usable; construct with New.
type Ring[T any] struct {
	buf  [Capacity]T
	size int
}

// New returns an empty ring.
func New[T any]() *Ring[T] {
	return &Ring[T]{}
}

// Size returns the number of records currently buffered, 0..Capacity.
func (r *Ring[T]) Size() int { return r.size }

// Append grows the ring by one slot and returns a pointer to it for the
// caller to populate; the slot's prior contents (if any) are not cleared,
// so callers must assign every field before reading it back. Panics if
// the ring is already at Capacity — callers must pop_front before
// appending when full.
func (r *Ring[T]) Append() *T {
	if r.size >= Capacity {
		panic(fmt.Sprintf("ring: append on full ring (capacity %d)", Capacity))
	}
	r.size++
	return &r.buf[r.size-1]
}

// Back returns the most recently appended record. Panics if the ring is
// empty.
func (r *Ring[T]) Back() *T {
	if r.size == 0 {
		panic("ring: back on empty ring")
	}
	return &r.buf[r.size-1]
}

// At returns the i-th oldest record, 0 <= i < Size(). Panics out of range.
func (r *Ring[T]) At(i int) *T {
	if i < 0 || i >= r.size {
		panic(fmt.Sprintf("ring: index %d out of range (size %d)", i, r.size))
	}
	return &r.buf[i]
}

// PopFront discards the oldest record. Panics if the ring is empty.
func (r *Ring[T]) PopFront() {
	if r.size == 0 {
		panic("ring: pop_front on empty ring")
	}
	copy(r.buf[:r.size-1], r.buf[1:r.size])
	r.size--
}
