package fred

import "time"

// --- FRED Observations ---

type fredObservationsResponse struct {
	RealtimeStart    string            `json:"realtime_start"`
	RealtimeEnd      string            `json:"realtime_end"`
	ObservationStart string            `json:"observation_start"`
	ObservationEnd   string            `json:"observation_end"`
	Units            string            `json:"units"`
	Count            int               `json:"count"`
	Offset           int               `json:"offset"`
	Limit            int               `json:"limit"`
	Observations     []fredObservation `json:"observations"`
}

type fredObservation struct {
	RealtimeStart string `json:"realtime_start"`
	RealtimeEnd   string `json:"realtime_end"`
	Date          string `json:"date"`
	Value         string `json:"value"`
}

// --- FRED Series Search ---

type fredSearchResponse struct {
	Count   int          `json:"count"`
	Offset  int          `json:"offset"`
	Limit   int          `json:"limit"`
	Seriess []fredSeries `json:"seriess"`
}

type fredSeries struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	ObservationStart string `json:"observation_start"`
	ObservationEnd   string `json:"observation_end"`
	Frequency        string `json:"frequency"`
	FrequencyShort   string `json:"frequency_short"`
	Units            string `json:"units"`
	UnitsShort       string `json:"units_short"`
	LastUpdated      string `json:"last_updated"`
	Popularity       int    `json:"popularity"`
	Notes            string `json:"notes"`
}

// treasurySeries maps tenor labels to the constant maturity series IDs
// used for the US curve.
var treasurySeries = []struct {
	tenor    string
	seriesID string
}{
	{"3M", "DGS3MO"},
	{"2Y", "DGS2"},
	{"5Y", "DGS5"},
	{"10Y", "DGS10"},
	{"30Y", "DGS30"},
}

// parseFredDate parses common FRED date formats.
func parseFredDate(s string) time.Time {
	for _, layout := range []string{
		"2006-01-02",
		"2006-01-02T15:04:05",
		time.RFC3339,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
