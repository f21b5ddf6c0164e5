package dosing

import (
	"fmt"
	"math"
)

// Glucose thresholds in mg/dL.
const (
	ThresholdHypo      = 70
	ThresholdTrendHigh = 180
	ThresholdVeryHigh  = 250

	// Above ThresholdVeryHigh one extra unit is added per full step.
	VeryHighStep = 30
)

// baseBucket is one row of the base correction table. A reading belongs to the
// first bucket whose upper bound it does not exceed.
type baseBucket struct {
	upper     float64
	rangeText string
	delta     int
	note      string
}

var baseBuckets = []baseBucket{
	{upper: ThresholdHypo, rangeText: "≤ 70", delta: -6, note: "hypo, treat first"},
	{upper: 80, rangeText: "71–80", delta: -2},
	{upper: 130, rangeText: "81–130", delta: 0, note: "maintain base"},
	{upper: 160, rangeText: "131–160", delta: 1},
	{upper: 190, rangeText: "161–190", delta: 2},
	{upper: 220, rangeText: "191–220", delta: 3},
	{upper: ThresholdVeryHigh, rangeText: "221–250", delta: 4},
}

const (
	veryHighRange = "> 250"
	veryHighDelta = 4
	veryHighNote  = "+1 UI per 30 mg/dL above 250"
)

func (b baseBucket) label() string {
	return rangeLabel(b.rangeText, b.delta, b.note)
}

func rangeLabel(rangeText string, delta int, note string) string {
	label := fmt.Sprintf("%s mg/dL → %s", rangeText, formatUnits(delta))
	if note != "" {
		label += " (" + note + ")"
	}
	return label
}

// BaseCorrection maps a glucose reading to its dose correction, ignoring trend.
// Readings above 250 mg/dL get no upper cap on the extra correction.
func BaseCorrection(glucose float64) Adjustment {
	for _, b := range baseBuckets {
		if glucose <= b.upper {
			return Adjustment{Delta: b.delta, Label: b.label()}
		}
	}

	return Adjustment{
		Delta: veryHighDelta + veryHighExtra(glucose),
		Label: rangeLabel(veryHighRange, veryHighDelta, veryHighNote),
	}
}

// maxVeryHighExtra bounds the above-250 correction so any dose fits a 32-bit int.
const maxVeryHighExtra = 1 << 30

// veryHighExtra is the +1 UI per full VeryHighStep above ThresholdVeryHigh,
// saturating at maxVeryHighExtra.
func veryHighExtra(glucose float64) int {
	steps := math.Floor((glucose - ThresholdVeryHigh) / VeryHighStep)
	switch {
	case math.IsNaN(steps) || steps < 0:
		return 0
	case steps > maxVeryHighExtra:
		return maxVeryHighExtra
	}
	return int(steps)
}

// trendBand is the coarse glucose classification used by the trend matrix. It
// deliberately does not share boundaries with baseBuckets.
type trendBand int

const (
	bandInRange trendBand = iota // (70, 180]
	bandHigh                     // (180, 250]
	bandVeryHigh                 // (250, ∞)
	bandCount
)

var bandLabels = [bandCount]string{"71–180", "181–250", ">250"}

func classifyTrendBand(glucose float64) trendBand {
	if glucose <= ThresholdTrendHigh {
		return bandInRange
	}
	if glucose <= ThresholdVeryHigh {
		return bandHigh
	}
	return bandVeryHigh
}

// trendMatrix holds the trend correction per band. Every declared Trend must
// have a row.
var trendMatrix = map[Trend][bandCount]int{
	Stable:      {0, 0, 0},
	Rising:      {1, 1, 2},
	RisingFast:  {2, 2, 3},
	Falling:     {-2, -1, -1},
	FallingFast: {-3, -2, -2},
}

const hypoTrendLabel = "≤ 70 mg/dL → no trend adjustment (treat hypo)"

// TrendCorrection returns the additional correction for the trend arrow. At or
// below 70 mg/dL the trend is ignored: hypoglycemia is treated first.
//
// Passing a value that is not a declared Trend is a programming error and
// panics.
func TrendCorrection(glucose float64, trend Trend) Adjustment {
	row, ok := trendMatrix[trend]
	if !ok {
		panic(fmt.Sprintf("dosing: invalid trend %d", int(trend)))
	}

	if glucose <= ThresholdHypo {
		return Adjustment{Delta: 0, Label: hypoTrendLabel}
	}

	band := classifyTrendBand(glucose)
	delta := row[band]
	if trend == Stable {
		return Adjustment{
			Delta: delta,
			Label: fmt.Sprintf("%s mg/dL and stable → %s", bandLabels[band], formatUnits(delta)),
		}
	}
	return Adjustment{
		Delta: delta,
		Label: fmt.Sprintf("%s (%s, %s mg/dL)", formatUnits(delta), trend.Symbol(), bandLabels[band]),
	}
}

// Compute returns the recommended dose for a glucose reading in mg/dL and a
// trend arrow.
func Compute(glucose float64, trend Trend) Result {
	return combine(BaseCorrection(glucose), TrendCorrection(glucose, trend))
}

func combine(base, trend Adjustment) Result {
	total := base.Delta + trend.Delta
	dose := BaseDose + total
	if dose < 0 {
		dose = 0
	}
	return Result{
		RecommendedDose: dose,
		TotalDelta:      total,
		BaseDelta:       base.Delta,
		TrendDelta:      trend.Delta,
		BaseRangeLabel:  base.Label,
		TrendRangeLabel: trend.Label,
	}
}

// formatUnits renders a delta as "+2 UI", "-3 UI" or "0 UI".
func formatUnits(delta int) string {
	if delta == 0 {
		return "0 UI"
	}
	return fmt.Sprintf("%+d UI", delta)
}
