package aggregator

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/metanorma/fractor/pkg/fractor"
	"github.com/stretchr/testify/assert"
)

func TestRecordSplitsSuccessAndFailure(t *testing.T) {
	a := New()
	w1 := fractor.NewWork("ok", nil)
	w2 := fractor.NewWork("bad", nil)

	a.Record(fractor.NewSuccess(w1, "done"))
	a.Record(fractor.NewFailure(w2, errors.New("boom"), fractor.CategoryBusiness, fractor.SeverityError))

	successes, failures := a.Counts()
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, failures)
	assert.Equal(t, "ok", a.Successes()[0].Work().ID())
	assert.Equal(t, "bad", a.Failures()[0].Work().ID())
}

func TestRecordPreservesArrivalOrder(t *testing.T) {
	a := New()
	for _, id := range []string{"a", "b", "c"} {
		a.Record(fractor.NewSuccess(fractor.NewWork(id, nil), nil))
	}
	got := a.Successes()
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].Work().ID(), got[1].Work().ID(), got[2].Work().ID()})
}

func TestListenersNotifiedSynchronously(t *testing.T) {
	a := New()
	var calls int32
	a.RegisterListener(func(wr fractor.WorkResult) { atomic.AddInt32(&calls, 1) })
	a.RegisterListener(func(wr fractor.WorkResult) { atomic.AddInt32(&calls, 1) })

	a.Record(fractor.NewSuccess(fractor.NewWork("x", nil), nil))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestListenerPanicDoesNotStopOthers(t *testing.T) {
	a := New()
	var secondCalled bool
	a.RegisterListener(func(wr fractor.WorkResult) { panic("listener exploded") })
	a.RegisterListener(func(wr fractor.WorkResult) { secondCalled = true })

	assert.NotPanics(t, func() {
		a.Record(fractor.NewSuccess(fractor.NewWork("x", nil), nil))
	})
	assert.True(t, secondCalled, "a panicking listener must not prevent later listeners from running")
}

func TestClearDropsResultsKeepsListeners(t *testing.T) {
	a := New()
	var calls int32
	a.RegisterListener(func(wr fractor.WorkResult) { atomic.AddInt32(&calls, 1) })
	a.Record(fractor.NewSuccess(fractor.NewWork("x", nil), nil))
	a.Clear()

	successes, failures := a.Counts()
	assert.Equal(t, 0, successes)
	assert.Equal(t, 0, failures)

	a.Record(fractor.NewSuccess(fractor.NewWork("y", nil), nil))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "listener registration should survive Clear")
}
