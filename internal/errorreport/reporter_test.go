package errorreport

import (
	"errors"
	"testing"
	"time"

	"github.com/metanorma/fractor/pkg/fractor"
	"github.com/stretchr/testify/assert"
)

func TestRecordResultIgnoresSuccessesForRates(t *testing.T) {
	r := New()
	r.RecordResult(fractor.NewSuccess(fractor.NewWork("a", nil), nil))
	r.RecordResult(fractor.NewSuccess(fractor.NewWork("b", nil), nil))

	assert.Equal(t, float64(0), r.OverallErrorRate())
}

func TestOverallErrorRate(t *testing.T) {
	r := New()
	r.RecordResult(fractor.NewSuccess(fractor.NewWork("a", nil), nil))
	r.RecordResult(fractor.NewFailure(fractor.NewWork("b", nil), errors.New("x"), fractor.CategoryBusiness, fractor.SeverityError))
	r.RecordResult(fractor.NewFailure(fractor.NewWork("c", nil), errors.New("x"), fractor.CategoryBusiness, fractor.SeverityError))

	assert.InDelta(t, 2.0/3.0, r.OverallErrorRate(), 0.0001)
}

func TestTopCategories(t *testing.T) {
	r := New()
	for i := 0; i < 3; i++ {
		r.RecordResult(fractor.NewFailure(fractor.NewWork("a", nil), errors.New("net"), fractor.CategoryNetwork, fractor.SeverityError))
	}
	r.RecordResult(fractor.NewFailure(fractor.NewWork("b", nil), errors.New("val"), fractor.CategoryValidation, fractor.SeverityWarning))

	top := r.TopCategories(1)
	assert.Len(t, top, 1)
	assert.Equal(t, fractor.CategoryNetwork, top[0].Category)
	assert.Equal(t, int64(3), top[0].Count)
}

func TestTopJobs(t *testing.T) {
	r := New()
	r.RecordResult(fractor.NewFailure(fractor.NewWork("flaky", nil), errors.New("x"), fractor.CategoryNetwork, fractor.SeverityError))
	r.RecordResult(fractor.NewFailure(fractor.NewWork("flaky", nil), errors.New("x"), fractor.CategoryNetwork, fractor.SeverityError))
	r.RecordResult(fractor.NewFailure(fractor.NewWork("once", nil), errors.New("x"), fractor.CategoryNetwork, fractor.SeverityError))

	top := r.TopJobs(10)
	assert.Equal(t, "flaky", top[0].WorkID)
	assert.Equal(t, int64(2), top[0].Count)
}

func TestCriticalErrorsFiltersBySeverity(t *testing.T) {
	r := New()
	r.RecordResult(fractor.NewFailure(fractor.NewWork("a", nil), errors.New("oom"), fractor.CategoryResource, fractor.SeverityCritical))
	r.RecordResult(fractor.NewFailure(fractor.NewWork("b", nil), errors.New("bad input"), fractor.CategoryValidation, fractor.SeverityWarning))

	crit := r.CriticalErrors()
	assert.Len(t, crit, 1)
	assert.Equal(t, "a", crit[0].WorkID)
}

func TestTrendingErrorsRespectsWindow(t *testing.T) {
	r := New()
	r.RecordResult(fractor.NewFailure(fractor.NewWork("a", nil), errors.New("x"), fractor.CategoryNetwork, fractor.SeverityError))

	trending := r.TrendingErrors(time.Hour)
	assert.Len(t, trending, 1)

	trending = r.TrendingErrors(0)
	assert.Empty(t, trending, "a zero window should exclude even just-recorded occurrences")
}

func TestRecentRingBufferIsCapped(t *testing.T) {
	r := New()
	for i := 0; i < recentCap+10; i++ {
		r.RecordResult(fractor.NewFailure(fractor.NewWork("a", nil), errors.New("x"), fractor.CategoryNetwork, fractor.SeverityError))
	}
	assert.Len(t, r.Recent(), recentCap)
}

func TestStatsSnapshot(t *testing.T) {
	r := New()
	r.RecordResult(fractor.NewSuccess(fractor.NewWork("a", nil), nil))
	r.RecordResult(fractor.NewFailure(fractor.NewWork("b", nil), errors.New("x"), fractor.CategoryNetwork, fractor.SeverityError))

	snap := r.Stats()
	assert.Equal(t, int64(2), snap.TotalResults)
	assert.Equal(t, int64(1), snap.TotalErrors)
	assert.InDelta(t, 0.5, snap.ErrorRate, 0.0001)
}
