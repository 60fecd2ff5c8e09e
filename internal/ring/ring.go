// Package ring provides a fixed-capacity ring buffer that evicts the
// oldest element on overflow. It is the storage primitive behind the
// per-subsystem latency sample histories.
package ring

// Buffer is a fixed-capacity FIFO ring. The zero value is not usable;
// construct with New. Not safe for concurrent use; callers hold their
// own lock.
type Buffer[T any] struct {
	buf  []T
	head int // index of the oldest element
	n    int
}

// New creates a Buffer holding at most capacity elements.
// Capacity must be positive.
func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		panic("ring: capacity must be positive")
	}
	return &Buffer[T]{buf: make([]T, capacity)}
}

// Push appends v, evicting the oldest element if the buffer is full.
func (b *Buffer[T]) Push(v T) {
	if b.n < len(b.buf) {
		b.buf[(b.head+b.n)%len(b.buf)] = v
		b.n++
		return
	}
	b.buf[b.head] = v
	b.head = (b.head + 1) % len(b.buf)
}

// Len returns the number of stored elements.
func (b *Buffer[T]) Len() int { return b.n }

// Cap returns the fixed capacity.
func (b *Buffer[T]) Cap() int { return len(b.buf) }

// At returns the i-th element, oldest first. i must be in [0, Len).
func (b *Buffer[T]) At(i int) T {
	if i < 0 || i >= b.n {
		panic("ring: index out of range")
	}
	return b.buf[(b.head+i)%len(b.buf)]
}

// Last returns the most recently pushed element, or false if empty.
func (b *Buffer[T]) Last() (T, bool) {
	var zero T
	if b.n == 0 {
		return zero, false
	}
	return b.buf[(b.head+b.n-1)%len(b.buf)], true
}

// Tail copies the trailing n elements, oldest first. If fewer than n are
// stored, all of them are returned.
func (b *Buffer[T]) Tail(n int) []T {
	if n > b.n {
		n = b.n
	}
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = b.At(b.n - n + i)
	}
	return out
}

// Snapshot copies the full contents, oldest first.
func (b *Buffer[T]) Snapshot() []T {
	return b.Tail(b.n)
}
