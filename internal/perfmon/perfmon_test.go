package perfmon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordLatencyPercentiles(t *testing.T) {
	m := New(func() int { return 0 }, time.Hour)
	for i := 1; i <= 100; i++ {
		m.RecordLatency(time.Duration(i) * time.Millisecond)
	}

	p50, p95, p99 := m.Percentiles()
	assert.InDelta(t, 50, p50.Milliseconds(), 2)
	assert.InDelta(t, 95, p95.Milliseconds(), 2)
	assert.InDelta(t, 99, p99.Milliseconds(), 2)
}

func TestPercentilesEmptyIsZero(t *testing.T) {
	m := New(func() int { return 0 }, time.Hour)
	p50, p95, p99 := m.Percentiles()
	assert.Zero(t, p50)
	assert.Zero(t, p95)
	assert.Zero(t, p99)
}

func TestQueueDepthSampling(t *testing.T) {
	depths := []int{1, 5, 3}
	idx := 0
	m := New(func() int {
		d := depths[idx%len(depths)]
		idx++
		return d
	}, 5*time.Millisecond)

	m.Start()
	time.Sleep(40 * time.Millisecond)
	m.Stop()

	avg, max := m.QueueDepthStats()
	assert.Greater(t, avg, 0.0)
	assert.Equal(t, 5, max)
}

func TestThroughputCountsResults(t *testing.T) {
	m := New(func() int { return 0 }, time.Hour)
	m.Start()
	defer m.Stop()

	for i := 0; i < 10; i++ {
		m.RecordResult()
	}
	time.Sleep(10 * time.Millisecond)

	assert.Greater(t, m.Throughput(), 0.0)
}

func TestWaitPercentiles(t *testing.T) {
	m := New(func() int { return 0 }, time.Hour)
	for i := 1; i <= 100; i++ {
		m.RecordWaitTime(time.Duration(i) * time.Millisecond)
	}

	p50, p95, p99 := m.WaitPercentiles()
	assert.InDelta(t, 50, p50.Milliseconds(), 2)
	assert.InDelta(t, 95, p95.Milliseconds(), 2)
	assert.InDelta(t, 99, p99.Milliseconds(), 2)
}

func TestEnqueueDequeueCounts(t *testing.T) {
	m := New(func() int { return 0 }, time.Hour)
	m.RecordEnqueue()
	m.RecordEnqueue()
	m.RecordDequeue()

	enq, deq := m.EnqueueDequeueCounts()
	assert.EqualValues(t, 2, enq)
	assert.EqualValues(t, 1, deq)
}

func TestStopIsIdempotent(t *testing.T) {
	m := New(func() int { return 0 }, time.Hour)
	m.Start()
	assert.NotPanics(t, func() {
		m.Stop()
		m.Stop()
	})
}
