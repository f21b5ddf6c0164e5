package dosing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Input limits and defaults for front ends collecting a reading by hand.
const (
	MinGlucose     = 0
	MaxGlucose     = 1000
	DefaultGlucose = 110
	GlucoseStep    = 10
	DefaultTrend   = Stable
)

var (
	ErrInvalidGlucose = errors.New("invalid glucose value")
	ErrUnknownTrend   = errors.New("unknown trend")
)

var trendAliases = map[string]Trend{
	"risingfast":  RisingFast,
	"rising":      Rising,
	"stable":      Stable,
	"falling":     Falling,
	"fallingfast": FallingFast,
}

// ParseTrend parses a trend name ("rising-fast", "RisingFast", "rising_fast")
// or its arrow ("↑", "↗", "→", "↘", "↓").
func ParseTrend(s string) (Trend, error) {
	s = strings.TrimSpace(s)
	for t, symbol := range trendSymbols {
		if s == symbol {
			return t, nil
		}
	}

	key := strings.ToLower(s)
	key = strings.NewReplacer("-", "", "_", "", " ", "").Replace(key)
	if t, ok := trendAliases[key]; ok {
		return t, nil
	}
	return Stable, fmt.Errorf("%w: %q", ErrUnknownTrend, s)
}

// ValidateGlucose checks that a reading is finite and within
// [MinGlucose, MaxGlucose].
func ValidateGlucose(glucose float64) error {
	if math.IsNaN(glucose) || math.IsInf(glucose, 0) {
		return fmt.Errorf("%w: not a finite number", ErrInvalidGlucose)
	}
	if glucose < MinGlucose || glucose > MaxGlucose {
		return fmt.Errorf("%w: %g mg/dL outside %d–%d", ErrInvalidGlucose, glucose, MinGlucose, MaxGlucose)
	}
	return nil
}

// ParseGlucose parses and validates a reading in mg/dL.
func ParseGlucose(s string) (float64, error) {
	glucose, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidGlucose, s)
	}
	if err := ValidateGlucose(glucose); err != nil {
		return 0, err
	}
	return glucose, nil
}
