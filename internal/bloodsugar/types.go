// Package bloodsugar models CGM readings and maps sensor trend arrows onto
// dosing trends.
package bloodsugar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jwulff/dosecalc-go/internal/dosing"
)

// RangeStatus represents the glucose range classification.
type RangeStatus string

const (
	RangeUrgentLow RangeStatus = "urgentLow"
	RangeLow       RangeStatus = "low"
	RangeNormal    RangeStatus = "normal"
	RangeHigh      RangeStatus = "high"
	RangeVeryHigh  RangeStatus = "veryHigh"
)

// Glucose thresholds in mg/dL.
const (
	ThresholdUrgentLow = 55
	ThresholdLow       = 70
	ThresholdHigh      = 180
	ThresholdVeryHigh  = 250
)

// StaleThreshold is how old a reading can be before it's considered stale.
const StaleThreshold = 10 * time.Minute

// ErrTrendNotComputable is returned when the sensor reports no usable arrow.
var ErrTrendNotComputable = errors.New("trend not computable")

// Reading is a single CGM sample ready to feed the dose calculator.
type Reading struct {
	Glucose   int          `json:"glucose"` // mg/dL
	Trend     dosing.Trend `json:"trend"`
	RawTrend  string       `json:"rawTrend"` // As reported by the sensor (e.g. "FortyFiveUp")
	Timestamp time.Time    `json:"timestamp"`
}

// IsStale reports whether the reading is older than StaleThreshold at now.
func (r Reading) IsStale(now time.Time) bool {
	return now.Sub(r.Timestamp) >= StaleThreshold
}

// Age returns how long ago the reading was taken.
func (r Reading) Age(now time.Time) time.Duration {
	return now.Sub(r.Timestamp)
}

// dexcomTrends maps Dexcom Share trend names to the five-arrow scale. Dexcom
// distinguishes single and double arrows, both of which count as fast.
var dexcomTrends = map[string]dosing.Trend{
	"doubleup":      dosing.RisingFast,
	"singleup":      dosing.RisingFast,
	"fortyfiveup":   dosing.Rising,
	"flat":          dosing.Stable,
	"fortyfivedown": dosing.Falling,
	"singledown":    dosing.FallingFast,
	"doubledown":    dosing.FallingFast,
}

// TrendFromDexcom converts a Dexcom trend name to a dosing trend. "None",
// "NotComputable" and "RateOutOfRange" yield ErrTrendNotComputable.
func TrendFromDexcom(trend string) (dosing.Trend, error) {
	if t, ok := dexcomTrends[strings.ToLower(strings.TrimSpace(trend))]; ok {
		return t, nil
	}
	return dosing.Stable, fmt.Errorf("%w: %q", ErrTrendNotComputable, trend)
}

// ClassifyRange determines the range status for a glucose value.
func ClassifyRange(mgdl int) RangeStatus {
	switch {
	case mgdl < ThresholdUrgentLow:
		return RangeUrgentLow
	case mgdl <= ThresholdLow:
		return RangeLow
	case mgdl <= ThresholdHigh:
		return RangeNormal
	case mgdl <= ThresholdVeryHigh:
		return RangeHigh
	default:
		return RangeVeryHigh
	}
}

// MgdlToMmol converts mg/dL to mmol/L, rounded to one decimal.
func MgdlToMmol(mgdl int) float64 {
	return float64(int(float64(mgdl)/18.0182*10+0.5)) / 10.0
}
