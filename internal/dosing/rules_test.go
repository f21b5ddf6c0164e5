package dosing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseCorrectionBoundaries(t *testing.T) {
	tests := []struct {
		glucose  float64
		expected int
	}{
		{0, -6},
		{40, -6},
		{70, -6},
		{70.5, -2},
		{71, -2},
		{80, -2},
		{81, 0},
		{110, 0},
		{130, 0},
		{131, 1},
		{160, 1},
		{161, 2},
		{190, 2},
		{191, 3},
		{220, 3},
		{221, 4},
		{250, 4},
		{251, 4},
		{279, 4},
		{280, 5},
		{300, 5},
		{310, 6},
		{400, 9},
		{1000, 29},
	}

	for _, tt := range tests {
		result := BaseCorrection(tt.glucose)
		if result.Delta != tt.expected {
			t.Errorf("BaseCorrection(%g).Delta = %d, want %d", tt.glucose, result.Delta, tt.expected)
		}
	}
}

func TestBaseCorrectionLabels(t *testing.T) {
	assert.Equal(t, "≤ 70 mg/dL → -6 UI (hypo, treat first)", BaseCorrection(65).Label)
	assert.Equal(t, "71–80 mg/dL → -2 UI", BaseCorrection(75).Label)
	assert.Equal(t, "81–130 mg/dL → 0 UI (maintain base)", BaseCorrection(110).Label)
	assert.Equal(t, "131–160 mg/dL → +1 UI", BaseCorrection(150).Label)
	assert.Equal(t, "> 250 mg/dL → +4 UI (+1 UI per 30 mg/dL above 250)", BaseCorrection(300).Label)
}

func TestBaseCorrectionMonotonic(t *testing.T) {
	prev := BaseCorrection(0).Delta
	for x := 0.0; x <= MaxGlucose; x += 0.5 {
		delta := BaseCorrection(x).Delta
		if delta < prev {
			t.Fatalf("BaseCorrection(%g).Delta = %d, dropped below %d", x, delta, prev)
		}
		prev = delta
	}
}

func TestBaseCorrectionMonotonicForHugeReadings(t *testing.T) {
	readings := []float64{1e6, 1e12, 1e18, 1e20, 1e21, 1e30, math.MaxFloat64, math.Inf(1)}

	prev := BaseCorrection(MaxGlucose).Delta
	for _, x := range readings {
		delta := BaseCorrection(x).Delta
		assert.GreaterOrEqual(t, delta, prev, "glucose %g", x)
		prev = delta
	}

	assert.GreaterOrEqual(t, BaseCorrection(1e30).Delta, BaseCorrection(1e20).Delta)
	assert.Equal(t, veryHighDelta+maxVeryHighExtra, BaseCorrection(math.Inf(1)).Delta)
	assert.Equal(t, BaseDose+veryHighDelta+maxVeryHighExtra, Compute(1e30, Stable).RecommendedDose)
	assert.Positive(t, Compute(1e30, RisingFast).RecommendedDose)
}

func TestTrendCorrectionMatrix(t *testing.T) {
	tests := []struct {
		glucose  float64
		trend    Trend
		expected int
	}{
		{71, RisingFast, 2},
		{180, RisingFast, 2},
		{181, RisingFast, 2},
		{250, RisingFast, 2},
		{251, RisingFast, 3},
		{71, Rising, 1},
		{200, Rising, 1},
		{300, Rising, 2},
		{150, Stable, 0},
		{200, Stable, 0},
		{300, Stable, 0},
		{150, Falling, -2},
		{180.5, Falling, -1},
		{250, Falling, -1},
		{251, Falling, -1},
		{70.5, FallingFast, -3},
		{180, FallingFast, -3},
		{181, FallingFast, -2},
		{600, FallingFast, -2},
	}

	for _, tt := range tests {
		result := TrendCorrection(tt.glucose, tt.trend)
		if result.Delta != tt.expected {
			t.Errorf("TrendCorrection(%g, %s).Delta = %d, want %d", tt.glucose, tt.trend, result.Delta, tt.expected)
		}
	}
}

func TestTrendCorrectionLabels(t *testing.T) {
	assert.Equal(t, "+3 UI (↑, >250 mg/dL)", TrendCorrection(300, RisingFast).Label)
	assert.Equal(t, "-3 UI (↓, 71–180 mg/dL)", TrendCorrection(150, FallingFast).Label)
	assert.Equal(t, "181–250 mg/dL and stable → 0 UI", TrendCorrection(200, Stable).Label)
	assert.Equal(t, hypoTrendLabel, TrendCorrection(70, Rising).Label)
}

func TestTrendSuppressedDuringHypo(t *testing.T) {
	for _, trend := range AllTrends() {
		for _, x := range []float64{0, 35, 65, 69.9, 70} {
			assert.Zero(t, TrendCorrection(x, trend).Delta, "glucose %g trend %s", x, trend)
		}
	}
}

func TestStableNeverAdjusts(t *testing.T) {
	for x := 0.0; x <= MaxGlucose; x += 5 {
		assert.Zero(t, TrendCorrection(x, Stable).Delta, "glucose %g", x)
	}
}

func TestTrendMatrixCoversEveryTrend(t *testing.T) {
	assert.Len(t, trendMatrix, len(AllTrends()))
	for _, trend := range AllTrends() {
		_, ok := trendMatrix[trend]
		assert.True(t, ok, "no matrix row for %s", trend)
	}
}

func TestTrendCorrectionPanicsOnInvalidTrend(t *testing.T) {
	assert.Panics(t, func() { TrendCorrection(150, Trend(42)) })
	assert.Panics(t, func() { Compute(60, Trend(-1)) })
}

func TestComputeScenarios(t *testing.T) {
	tests := []struct {
		name    string
		glucose float64
		trend   Trend
		want    Result
	}{
		{
			name:    "very high and rising fast",
			glucose: 300,
			trend:   RisingFast,
			want: Result{
				RecommendedDose: 20,
				TotalDelta:      8,
				BaseDelta:       5,
				TrendDelta:      3,
				BaseRangeLabel:  "> 250 mg/dL → +4 UI (+1 UI per 30 mg/dL above 250)",
				TrendRangeLabel: "+3 UI (↑, >250 mg/dL)",
			},
		},
		{
			name:    "hypo suppresses trend",
			glucose: 65,
			trend:   RisingFast,
			want: Result{
				RecommendedDose: 6,
				TotalDelta:      -6,
				BaseDelta:       -6,
				TrendDelta:      0,
				BaseRangeLabel:  "≤ 70 mg/dL → -6 UI (hypo, treat first)",
				TrendRangeLabel: hypoTrendLabel,
			},
		},
		{
			name:    "moderate and falling fast",
			glucose: 150,
			trend:   FallingFast,
			want: Result{
				RecommendedDose: 10,
				TotalDelta:      -2,
				BaseDelta:       1,
				TrendDelta:      -3,
				BaseRangeLabel:  "131–160 mg/dL → +1 UI",
				TrendRangeLabel: "-3 UI (↓, 71–180 mg/dL)",
			},
		},
		{
			name:    "in range and stable",
			glucose: DefaultGlucose,
			trend:   DefaultTrend,
			want: Result{
				RecommendedDose: BaseDose,
				TotalDelta:      0,
				BaseDelta:       0,
				TrendDelta:      0,
				BaseRangeLabel:  "81–130 mg/dL → 0 UI (maintain base)",
				TrendRangeLabel: "71–180 mg/dL and stable → 0 UI",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compute(tt.glucose, tt.trend))
		})
	}
}

func TestComputeInvariants(t *testing.T) {
	for _, trend := range AllTrends() {
		for x := 0.0; x <= MaxGlucose; x += 2.5 {
			r := Compute(x, trend)
			require.Equal(t, r.BaseDelta+r.TrendDelta, r.TotalDelta, "glucose %g trend %s", x, trend)

			want := BaseDose + r.TotalDelta
			if want < 0 {
				want = 0
			}
			require.Equal(t, want, r.RecommendedDose, "glucose %g trend %s", x, trend)
		}
	}
}

func TestCombineClampsAtZero(t *testing.T) {
	r := combine(
		Adjustment{Delta: -6, Label: "base"},
		Adjustment{Delta: -20, Label: "trend"},
	)

	assert.Equal(t, 0, r.RecommendedDose)
	assert.Equal(t, -26, r.TotalDelta)
	assert.Equal(t, "base", r.BaseRangeLabel)
	assert.Equal(t, "trend", r.TrendRangeLabel)
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "0 UI", formatUnits(0))
	assert.Equal(t, "+4 UI", formatUnits(4))
	assert.Equal(t, "-6 UI", formatUnits(-6))
}
