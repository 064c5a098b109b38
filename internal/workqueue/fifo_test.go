package workqueue

import (
	"sync"
	"testing"
	"time"

	"github.com/metanorma/fractor/pkg/fractor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// FIFO ordering
// ============================================================================

func TestWorkQueueFIFOOrder(t *testing.T) {
	q := New()
	require.True(t, q.Enqueue(fractor.NewWork("a", 1)))
	require.True(t, q.Enqueue(fractor.NewWork("b", 2)))
	require.True(t, q.Enqueue(fractor.NewWork("c", 3)))

	w1, ok := q.PopNonBlocking()
	require.True(t, ok)
	assert.Equal(t, "a", w1.ID())

	w2, ok := q.PopNonBlocking()
	require.True(t, ok)
	assert.Equal(t, "b", w2.ID())
}

func TestWorkQueueEmptyPopNonBlocking(t *testing.T) {
	q := New()
	_, ok := q.PopNonBlocking()
	assert.False(t, ok)
}

func TestWorkQueueDequeueBatch(t *testing.T) {
	q := New()
	for i := 0; i < 5; i++ {
		q.Enqueue(fractor.NewWork(string(rune('a'+i)), i))
	}
	batch := q.DequeueBatch(3)
	assert.Len(t, batch, 3)
	assert.Equal(t, 2, q.Size())

	rest := q.DequeueBatch(10)
	assert.Len(t, rest, 2)
	assert.True(t, q.Empty())
}

func TestWorkQueueBlockingPop(t *testing.T) {
	q := New()
	var wg sync.WaitGroup
	wg.Add(1)

	var got fractor.Work
	var ok bool
	go func() {
		defer wg.Done()
		got, ok = q.Pop()
	}()

	time.Sleep(20 * time.Millisecond)
	q.Enqueue(fractor.NewWork("late", nil))
	wg.Wait()

	require.True(t, ok)
	assert.Equal(t, "late", got.ID())
}

func TestWorkQueueCloseWakesBlockedPop(t *testing.T) {
	q := New()
	var wg sync.WaitGroup
	wg.Add(1)

	var ok bool
	go func() {
		defer wg.Done()
		_, ok = q.Pop()
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()
	wg.Wait()

	assert.False(t, ok)
}

func TestWorkQueueEnqueueAfterCloseFails(t *testing.T) {
	q := New()
	q.Close()
	assert.False(t, q.Enqueue(fractor.NewWork("x", nil)))
}

func TestWorkQueueClear(t *testing.T) {
	q := New()
	q.Enqueue(fractor.NewWork("a", nil))
	q.Enqueue(fractor.NewWork("b", nil))
	assert.Equal(t, 2, q.Clear())
	assert.True(t, q.Empty())
}

func TestWorkQueueStats(t *testing.T) {
	q := New()
	q.Enqueue(fractor.NewWork("a", nil))
	q.Enqueue(fractor.NewWork("b", nil))
	q.PopNonBlocking()

	stats := q.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, int64(2), stats.Enqueued)
	assert.Equal(t, int64(1), stats.Dequeued)
	assert.False(t, stats.Closed)
}

func TestWorkQueuePeekAllDoesNotRemove(t *testing.T) {
	q := New()
	q.Enqueue(fractor.NewWork("a", nil))
	q.Enqueue(fractor.NewWork("b", nil))

	peeked := q.PeekAll()
	assert.Len(t, peeked, 2)
	assert.Equal(t, 2, q.Size())
}
