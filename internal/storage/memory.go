// internal/storage/memory.go
package storage

// Window keeps the most recent items in arrival order. When full, the oldest
// item is evicted before the new one is appended.
type Window[T any] struct {
	buffer   []T
	capacity int
}

func NewWindow[T any](capacity int) *Window[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Window[T]{
		buffer:   make([]T, 0, capacity),
		capacity: capacity,
	}
}

func (w *Window[T]) Add(item T) {
	if len(w.buffer) >= w.capacity {
		// shift in place; the backing array stays at capacity
		copy(w.buffer, w.buffer[1:])
		w.buffer = w.buffer[:len(w.buffer)-1]
	}
	w.buffer = append(w.buffer, item)
}

func (w *Window[T]) GetAll() []T {
	result := make([]T, len(w.buffer))
	copy(result, w.buffer)
	return result
}

func (w *Window[T]) Capacity() int { return w.capacity }

// Feed keeps the most recent items newest first. Items pushed past capacity
// fall off the tail.
type Feed[T any] struct {
	buffer   []T
	capacity int
}

func NewFeed[T any](capacity int) *Feed[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Feed[T]{
		buffer:   make([]T, 0, capacity),
		capacity: capacity,
	}
}

func (f *Feed[T]) Prepend(item T) {
	if len(f.buffer) < f.capacity {
		var zero T
		f.buffer = append(f.buffer, zero)
	}
	copy(f.buffer[1:], f.buffer[:len(f.buffer)-1])
	f.buffer[0] = item
}

func (f *Feed[T]) GetAll() []T {
	result := make([]T, len(f.buffer))
	copy(result, f.buffer)
	return result
}

func (f *Feed[T]) Capacity() int { return f.capacity }
