package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueueFIFO(t *testing.T) {
	q := newQueue[int]()
	q.Push(1)
	q.Push(2)
	q.Push(3)

	for want := 1; want <= 3; want++ {
		got, ok := q.Poll(time.Millisecond)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestQueuePushFrontJumpsAhead(t *testing.T) {
	q := newQueue[string]()
	q.Push("scheduled-1")
	q.Push("scheduled-2")
	q.PushFront("user-command")

	got, ok := q.Poll(time.Millisecond)
	assert.True(t, ok)
	assert.Equal(t, "user-command", got)

	got, ok = q.Poll(time.Millisecond)
	assert.True(t, ok)
	assert.Equal(t, "scheduled-1", got)
}

func TestQueuePollTimesOutEmpty(t *testing.T) {
	q := newQueue[int]()

	start := time.Now()
	_, ok := q.Poll(50 * time.Millisecond)
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestQueuePollWakesOnPush(t *testing.T) {
	q := newQueue[int]()

	done := make(chan int, 1)
	go func() {
		if v, ok := q.Poll(2 * time.Second); ok {
			done <- v
		}
	}()

	time.Sleep(20 * time.Millisecond)
	q.Push(42)

	select {
	case v := <-done:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("poll did not wake on push")
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := newQueue[int]()

	const producers = 8
	const perProducer = 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(i)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, q.Len())

	taken := 0
	for {
		if _, ok := q.Poll(time.Millisecond); !ok {
			break
		}
		taken++
	}
	assert.Equal(t, producers*perProducer, taken)
}
