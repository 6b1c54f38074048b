// Package models defines the shared data structures exchanged between
// providers, the dataset pipeline, and the HTTP API.
package models

import "time"

// Observation is a single dated value from a time series. Yields are in
// percent, FX rates in units of quote currency per base.
type Observation struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// CurvePoint is one tenor on a yield curve for a given country and date.
// Tenor is the short label ("3M", "2Y", "10Y") that upstream sources and
// the API share.
type CurvePoint struct {
	Date    time.Time `json:"date"`
	Country string    `json:"country"` // "US" or "CA"
	Tenor   string    `json:"tenor"`   // e.g., "3M", "10Y"
	Yield   float64   `json:"yield"`   // percent
}

// FXObservation is a dated foreign-exchange rate.
type FXObservation struct {
	Date time.Time `json:"date"`
	Pair string    `json:"pair"` // e.g., "USD/CAD"
	Rate float64   `json:"rate"`
}

// SeriesInfo describes a discoverable upstream series.
type SeriesInfo struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Tenor       string `json:"tenor,omitempty"` // matched tenor bucket, e.g., "10y"
}

// ReleaseItem is a data-release announcement from an upstream feed.
type ReleaseItem struct {
	Source    string    `json:"source"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Summary   string    `json:"summary,omitempty"`
	Published time.Time `json:"published"`
}
