package security

import "sync"

const defaultCapacity = 10000

// ring is a bounded FIFO shared by Emit and the flush loop. Pushing into a
// full ring overwrites the oldest entry.
type ring[T any] struct {
	mu      sync.Mutex
	items   []T
	start   int
	size    int
	dropped uint64
}

func newRing[T any](capacity int) *ring[T] {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &ring[T]{items: make([]T, capacity)}
}

// push appends v and reports whether an older entry was evicted for it.
func (r *ring[T]) push(v T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := r.size == len(r.items)
	if evicted {
		r.start = (r.start + 1) % len(r.items)
		r.size--
		r.dropped++
	}
	r.items[(r.start+r.size)%len(r.items)] = v
	r.size++
	return evicted
}

// pop removes up to n entries, oldest first. It returns nil when empty.
func (r *ring[T]) pop(n int) []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	n = min(n, r.size)
	if n <= 0 {
		return nil
	}
	var zero T
	out := make([]T, n)
	for i := range out {
		out[i] = r.items[r.start]
		r.items[r.start] = zero
		r.start = (r.start + 1) % len(r.items)
	}
	r.size -= n
	return out
}

func (r *ring[T]) pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

func (r *ring[T]) droppedTotal() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}
