// Package dataset holds the aligned daily yield table and the derived
// analytics computed from it: curve slopes, tenor changes, rolling
// volatility and the cross-country spread. All series share one sorted
// date axis; missing values are NaN.
package dataset

import (
	"math"
	"sort"
	"time"

	"github.com/curvewatch/curvewatch/pkg/models"
	"github.com/curvewatch/curvewatch/pkg/utils"
)

// Frame is a wide daily table: one row per date, one column per series.
// Dates are unique, ascending, truncated to UTC midnight.
type Frame struct {
	Dates   []time.Time
	Columns []string // insertion order
	data    map[string][]float64
}

// NewFrame creates an empty frame.
func NewFrame() *Frame {
	return &Frame{data: make(map[string][]float64)}
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Dates) }

// HasColumn reports whether the column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.data[name]
	return ok
}

// Column returns the column values aligned to Dates, or nil if absent.
func (f *Frame) Column(name string) []float64 {
	return f.data[name]
}

// AddColumn appends a column of values aligned to Dates. A short slice
// is padded with NaN; an existing column is replaced in place.
func (f *Frame) AddColumn(name string, values []float64) {
	col := make([]float64, len(f.Dates))
	for i := range col {
		if i < len(values) {
			col[i] = values[i]
		} else {
			col[i] = math.NaN()
		}
	}
	if !f.HasColumn(name) {
		f.Columns = append(f.Columns, name)
	}
	f.data[name] = col
}

// Value returns the cell at (row, column), NaN when out of range.
func (f *Frame) Value(row int, name string) float64 {
	col, ok := f.data[name]
	if !ok || row < 0 || row >= len(col) {
		return math.NaN()
	}
	return col[row]
}

// RowIndex returns the index of the given date, or -1.
func (f *Frame) RowIndex(date time.Time) int {
	d := utils.Midnight(date)
	i := sort.Search(len(f.Dates), func(i int) bool { return !f.Dates[i].Before(d) })
	if i < len(f.Dates) && f.Dates[i].Equal(d) {
		return i
	}
	return -1
}

// RowOnOrBefore returns the index of the latest row at or before the
// given date. Dates before the first row clamp to row 0; -1 only for an
// empty frame.
func (f *Frame) RowOnOrBefore(date time.Time) int {
	if len(f.Dates) == 0 {
		return -1
	}
	return utils.NearestOnOrBefore(f.Dates, utils.Midnight(date))
}

// LastDate returns the final row's date, or the zero time for an empty
// frame.
func (f *Frame) LastDate() time.Time {
	if len(f.Dates) == 0 {
		return time.Time{}
	}
	return f.Dates[len(f.Dates)-1]
}

// Merge outer-joins named observation series into one frame. Column
// order follows the order slice; duplicate dates within a series keep
// the last value seen.
func Merge(series map[string][]models.Observation, order []string) *Frame {
	dateSet := make(map[time.Time]struct{})
	for _, obs := range series {
		for _, o := range obs {
			dateSet[utils.Midnight(o.Date)] = struct{}{}
		}
	}

	f := NewFrame()
	f.Dates = make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		f.Dates = append(f.Dates, d)
	}
	sort.Slice(f.Dates, func(i, j int) bool { return f.Dates[i].Before(f.Dates[j]) })

	rowOf := make(map[time.Time]int, len(f.Dates))
	for i, d := range f.Dates {
		rowOf[d] = i
	}

	for _, name := range order {
		obs, ok := series[name]
		if !ok {
			continue
		}
		col := make([]float64, len(f.Dates))
		for i := range col {
			col[i] = math.NaN()
		}
		for _, o := range obs {
			if row, ok := rowOf[utils.Midnight(o.Date)]; ok {
				col[row] = o.Value // keep last
			}
		}
		f.AddColumn(name, col)
	}
	return f
}
