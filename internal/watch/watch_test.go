package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jwulff/dosecalc-go/internal/bloodsugar"
	"github.com/jwulff/dosecalc-go/internal/cgm"
	"github.com/jwulff/dosecalc-go/internal/dosing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	current cgm.Current
	err     error
}

func (f fakeSource) Current(ctx context.Context) (cgm.Current, error) {
	return f.current, f.err
}

func TestCheck(t *testing.T) {
	source := fakeSource{current: cgm.Current{
		Reading: bloodsugar.Reading{Glucose: 300, Trend: dosing.RisingFast, Timestamp: time.Now()},
	}}

	rec, err := Check(context.Background(), source)
	require.NoError(t, err)

	assert.Equal(t, 20, rec.Result.RecommendedDose)
	assert.Equal(t, 5, rec.Result.BaseDelta)
	assert.Equal(t, 3, rec.Result.TrendDelta)
	assert.False(t, rec.At.IsZero())
}

func TestCheckPropagatesError(t *testing.T) {
	_, err := Check(context.Background(), fakeSource{err: cgm.ErrStaleReading})
	assert.True(t, errors.Is(err, cgm.ErrStaleReading))
}

func TestRunNowReports(t *testing.T) {
	source := fakeSource{current: cgm.Current{
		Reading: bloodsugar.Reading{Glucose: 65, Trend: dosing.RisingFast, Timestamp: time.Now()},
		Cached:  true,
	}}

	var got []Recommendation
	w := NewWatcher(context.Background(), source, func(rec Recommendation) {
		got = append(got, rec)
	})
	w.RunNow()

	require.Len(t, got, 1)
	assert.Equal(t, 6, got[0].Result.RecommendedDose)
	assert.True(t, got[0].Current.Cached)
}

func TestRunNowSkipsReportOnError(t *testing.T) {
	called := false
	w := NewWatcher(context.Background(), fakeSource{err: errors.New("offline")}, func(Recommendation) {
		called = true
	})
	w.RunNow()

	assert.False(t, called)
}

func TestRegisterRejectsBadSpec(t *testing.T) {
	w := NewWatcher(context.Background(), fakeSource{}, nil)
	assert.Error(t, w.Register("not a cron spec"))
	assert.NoError(t, w.Register("0 */5 * * * *"))
}

func TestScheduledPollReports(t *testing.T) {
	source := fakeSource{current: cgm.Current{
		Reading: bloodsugar.Reading{Glucose: 150, Trend: dosing.FallingFast, Timestamp: time.Now()},
	}}

	var once sync.Once
	done := make(chan Recommendation, 1)
	w := NewWatcher(context.Background(), source, func(rec Recommendation) {
		once.Do(func() { done <- rec })
	})
	require.NoError(t, w.Register("@every 1s"))
	w.Start()
	defer w.Stop()

	select {
	case rec := <-done:
		assert.Equal(t, 10, rec.Result.RecommendedDose)
	case <-time.After(5 * time.Second):
		t.Fatal("no recommendation reported")
	}
}

func TestLogReport(t *testing.T) {
	assert.NotPanics(t, func() {
		LogReport(Recommendation{
			Current: cgm.Current{Reading: bloodsugar.Reading{Glucose: 110, Timestamp: time.Now()}},
			Result:  dosing.Compute(110, dosing.Stable),
		})
	})
}
