package boc

import (
	"encoding/json"
	"strconv"
	"time"
)

// --- Valet observations ---
//
// Valet returns observations as objects keyed by series name:
//
//	{"observations":[{"d":"2024-01-02","BD.CDN.10YR.DQ.YLD":{"v":"3.20"}}]}

type valetObservationsResponse struct {
	Observations []valetObservation `json:"observations"`
}

type valetObservation struct {
	Date   string
	Values map[string]string // series name → value
}

// UnmarshalJSON splits the "d" date key from the per-series value
// objects.
func (o *valetObservation) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	o.Values = make(map[string]string)
	for k, v := range raw {
		if k == "d" {
			if err := json.Unmarshal(v, &o.Date); err != nil {
				return err
			}
			continue
		}
		var cell struct {
			V string `json:"v"`
		}
		if err := json.Unmarshal(v, &cell); err != nil {
			continue // Non-value keys (quarter markers etc.) are skipped.
		}
		o.Values[k] = cell.V
	}
	return nil
}

// Value returns the parsed float for a series, or false when the cell
// is absent or empty.
func (o *valetObservation) Value(series string) (float64, bool) {
	s, ok := o.Values[series]
	if !ok || s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// --- Valet series lists ---

type valetListResponse struct {
	Series map[string]valetSeriesDetail `json:"series"`
}

type valetSeriesDetail struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

// benchmarkSeries maps tenor labels to the GoC benchmark yield series.
// The 3M point is the treasury bill rate; "LONG" is the long-term
// benchmark, used here as the 30Y point.
var benchmarkSeries = []struct {
	tenor    string
	seriesID string
}{
	{"3M", "TB.CDN.90D.DQ.YLD"},
	{"2Y", "BD.CDN.2YR.DQ.YLD"},
	{"5Y", "BD.CDN.5YR.DQ.YLD"},
	{"10Y", "BD.CDN.10YR.DQ.YLD"},
	{"30Y", "BD.CDN.LONG.DQ.YLD"},
}

func parseValetDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
