package dosing

// BaseRow is one line of the base correction reference table.
type BaseRow struct {
	Range string `json:"range"`
	Delta string `json:"delta"`
	Note  string `json:"note,omitempty"`
}

// TrendRow is one line of the trend adjustment reference table.
type TrendRow struct {
	Trend    Trend  `json:"trend"`
	Symbol   string `json:"symbol"`
	InRange  int    `json:"inRange"`
	High     int    `json:"high"`
	VeryHigh int    `json:"veryHigh"`
}

// ReferenceTable describes the rules Compute applies, for display to users.
type ReferenceTable struct {
	BaseDose   int        `json:"baseDose"`
	BaseRows   []BaseRow  `json:"baseRows"`
	TrendBands []string   `json:"trendBands"`
	TrendRows  []TrendRow `json:"trendRows"`
}

// Reference builds the reference table from the same data the rules use.
func Reference() ReferenceTable {
	ref := ReferenceTable{
		BaseDose:   BaseDose,
		TrendBands: append([]string(nil), bandLabels[:]...),
	}

	for _, b := range baseBuckets {
		ref.BaseRows = append(ref.BaseRows, BaseRow{
			Range: b.rangeText,
			Delta: formatUnits(b.delta),
			Note:  b.note,
		})
	}
	ref.BaseRows = append(ref.BaseRows, BaseRow{
		Range: veryHighRange,
		Delta: formatUnits(veryHighDelta),
		Note:  veryHighNote,
	})

	for _, t := range AllTrends() {
		row := trendMatrix[t]
		ref.TrendRows = append(ref.TrendRows, TrendRow{
			Trend:    t,
			Symbol:   t.Symbol(),
			InRange:  row[bandInRange],
			High:     row[bandHigh],
			VeryHigh: row[bandVeryHigh],
		})
	}

	return ref
}
