// Package dosing computes insulin dose recommendations from a glucose reading
// and a CGM trend arrow.
//
// The calculation is a pure function of its two inputs: a fixed base dose is
// corrected by a glucose range table, then by a trend adjustment matrix. Every
// call is independent and safe for concurrent use.
package dosing

// BaseDose is the fixed starting dose in insulin units before any correction.
const BaseDose = 12

// Trend is the direction and rate of glucose change reported by a CGM.
type Trend int

const (
	Stable Trend = iota
	Rising
	RisingFast
	Falling
	FallingFast
)

// AllTrends returns every trend in display order, fastest rise first.
func AllTrends() []Trend {
	return []Trend{RisingFast, Rising, Stable, Falling, FallingFast}
}

var trendNames = map[Trend]string{
	RisingFast:  "RisingFast",
	Rising:      "Rising",
	Stable:      "Stable",
	Falling:     "Falling",
	FallingFast: "FallingFast",
}

var trendSymbols = map[Trend]string{
	RisingFast:  "↑",
	Rising:      "↗",
	Stable:      "→",
	Falling:     "↘",
	FallingFast: "↓",
}

var trendDescriptions = map[Trend]string{
	RisingFast:  "Rising fast",
	Rising:      "Rising",
	Stable:      "Stable",
	Falling:     "Falling",
	FallingFast: "Falling fast",
}

// Valid reports whether t is one of the declared trends.
func (t Trend) Valid() bool {
	_, ok := trendNames[t]
	return ok
}

func (t Trend) String() string {
	if name, ok := trendNames[t]; ok {
		return name
	}
	return "Trend(invalid)"
}

// Symbol returns the arrow shown by the sensor reader.
func (t Trend) Symbol() string {
	if s, ok := trendSymbols[t]; ok {
		return s
	}
	return "?"
}

// Description returns a human readable label such as "Falling fast".
func (t Trend) Description() string {
	if d, ok := trendDescriptions[t]; ok {
		return d
	}
	return "Unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (t Trend) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, ErrUnknownTrend
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler and accepts anything
// ParseTrend does.
func (t *Trend) UnmarshalText(text []byte) error {
	parsed, err := ParseTrend(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Adjustment is the dose delta produced by a single rule, with the label of
// the bucket that fired.
type Adjustment struct {
	Delta int
	Label string
}

// Result is the outcome of a dose calculation.
type Result struct {
	RecommendedDose int    `json:"recommendedDose"`
	TotalDelta      int    `json:"totalDelta"`
	BaseDelta       int    `json:"baseDelta"`
	TrendDelta      int    `json:"trendDelta"`
	BaseRangeLabel  string `json:"baseRangeLabel"`
	TrendRangeLabel string `json:"trendRangeLabel"`
}
