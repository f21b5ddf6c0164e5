// Package watch polls the CGM on a cron schedule and reports a dose
// recommendation for every fresh reading.
package watch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jwulff/dosecalc-go/internal/cgm"
	"github.com/jwulff/dosecalc-go/internal/dosing"
	"github.com/robfig/cron/v3"
)

// DefaultTimeout bounds a single poll.
const DefaultTimeout = 20 * time.Second

// ReadingSource yields the reading a recommendation is based on.
type ReadingSource interface {
	Current(ctx context.Context) (cgm.Current, error)
}

// Recommendation is the outcome of one poll.
type Recommendation struct {
	Current cgm.Current
	Result  dosing.Result
	At      time.Time
}

// Reporter receives every recommendation.
type Reporter func(Recommendation)

// Watcher manages the polling schedule.
type Watcher struct {
	Cron    *cron.Cron
	Source  ReadingSource
	Report  Reporter
	Timeout time.Duration
	Ctx     context.Context
}

// NewWatcher creates a Watcher. Overlapping polls are skipped.
func NewWatcher(ctx context.Context, source ReadingSource, report Reporter) *Watcher {
	return &Watcher{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
		Source:  source,
		Report:  report,
		Timeout: DefaultTimeout,
		Ctx:     ctx,
	}
}

// Register schedules the poll with a six-field cron spec.
func (w *Watcher) Register(spec string) error {
	if _, err := w.Cron.AddFunc(spec, w.poll); err != nil {
		return fmt.Errorf("register poll task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (w *Watcher) Start() {
	w.Cron.Start()
	log.Println("[INFO] watch started")
}

// Stop stops the scheduler and waits for a running poll to finish.
func (w *Watcher) Stop() {
	<-w.Cron.Stop().Done()
	log.Println("[INFO] watch stopped")
}

// RunNow performs one poll immediately.
func (w *Watcher) RunNow() {
	w.poll()
}

func (w *Watcher) poll() {
	ctx, cancel := context.WithTimeout(w.Ctx, w.Timeout)
	defer cancel()

	rec, err := Check(ctx, w.Source)
	if err != nil {
		log.Printf("[ERROR] poll: %v", err)
		return
	}
	if w.Report != nil {
		w.Report(rec)
	}
}

// Check fetches the current reading and computes the recommendation.
func Check(ctx context.Context, source ReadingSource) (Recommendation, error) {
	current, err := source.Current(ctx)
	if err != nil {
		return Recommendation{}, err
	}
	return Recommendation{
		Current: current,
		Result:  dosing.Compute(float64(current.Reading.Glucose), current.Reading.Trend),
		At:      time.Now(),
	}, nil
}

// LogReport writes a recommendation to the standard logger.
func LogReport(rec Recommendation) {
	source := "sensor"
	if rec.Current.Cached {
		source = "cache"
	}
	r := rec.Current.Reading
	log.Printf("[INFO] %d mg/dL %s (%s, %s) → %d UI (base %+d, trend %+d)",
		r.Glucose, r.Trend.Symbol(), r.Timestamp.Format("15:04"), source,
		rec.Result.RecommendedDose, rec.Result.BaseDelta, rec.Result.TrendDelta)
}
