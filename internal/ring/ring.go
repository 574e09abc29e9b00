// Package ring provides a fixed-capacity history buffer.
package ring

// Buffer keeps the most recent Cap() values. Pushing onto a full buffer evicts the oldest.
// It is not safe for concurrent use.
type Buffer[T any] struct {
	items []T
	head  int // next write position
	size  int
}

// New returns an empty buffer. Capacity below 1 is raised to 1.
func New[T any](capacity int) *Buffer[T] {
	return &Buffer[T]{items: make([]T, max(capacity, 1))}
}

// Push appends a value.
func (b *Buffer[T]) Push(v T) {
	b.items[b.head] = v
	b.head = (b.head + 1) % len(b.items)

	if b.size < len(b.items) {
		b.size++
	}
}

// Len returns the number of stored values.
func (b *Buffer[T]) Len() int {
	return b.size
}

// Cap returns the capacity.
func (b *Buffer[T]) Cap() int {
	return len(b.items)
}

// Last returns the most recent value.
func (b *Buffer[T]) Last() (T, bool) {
	var zero T
	if b.size == 0 {
		return zero, false
	}

	return b.items[(b.head-1+len(b.items))%len(b.items)], true
}

// Values returns a copy of the stored values, oldest first.
func (b *Buffer[T]) Values() []T {
	out := make([]T, b.size)
	start := (b.head - b.size + len(b.items)) % len(b.items)

	for i := range b.size {
		out[i] = b.items[(start+i)%len(b.items)]
	}

	return out
}

// Reset empties the buffer.
func (b *Buffer[T]) Reset() {
	clear(b.items)
	b.head = 0
	b.size = 0
}
