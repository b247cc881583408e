package pipeline

import (
	"sync"
	"time"
)

// queue is an unbounded thread-safe deque used between pipeline stages.
// Push appends, PushFront inserts ahead of waiting work, Poll blocks up to a
// timeout so stage loops stay responsive to shutdown.
type queue[T any] struct {
	mu     sync.Mutex
	items  []T
	notify chan struct{}
}

func newQueue[T any]() *queue[T] {
	return &queue[T]{notify: make(chan struct{}, 1)}
}

// Push appends an item to the back of the queue.
func (q *queue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.signal()
}

// PushFront inserts an item ahead of all queued work.
func (q *queue[T]) PushFront(item T) {
	q.mu.Lock()
	q.items = append([]T{item}, q.items...)
	q.mu.Unlock()
	q.signal()
}

// Poll removes and returns the head of the queue, waiting up to timeout for
// an item to arrive. The second return reports whether an item was taken.
func (q *queue[T]) Poll(timeout time.Duration) (T, bool) {
	if item, ok := q.take(); ok {
		return item, true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-q.notify:
		return q.take()
	case <-timer.C:
		var zero T
		return zero, false
	}
}

// Len reports the number of queued items.
func (q *queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *queue[T]) take() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		var zero T
		return zero, false
	}

	item := q.items[0]
	q.items = q.items[1:]

	if len(q.items) > 0 {
		q.signalLocked()
	}

	return item, true
}

func (q *queue[T]) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// signalLocked re-arms the wake signal; the channel is buffered so this never
// blocks even while holding the lock.
func (q *queue[T]) signalLocked() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
