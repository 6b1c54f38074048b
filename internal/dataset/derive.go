package dataset

import (
	"fmt"
	"math"
)

// TenorMapping maps a country code to tenor-year → column name, e.g.
// {"US": {2: "US_2Y", 10: "US_10Y"}}.
type TenorMapping map[string]map[int]string

// ChangeBuckets are the lookback windows for tenor changes, in trading
// rows: 1w/1m/3m = 5/21/63 trading days.
var ChangeBuckets = []struct {
	Label string
	Lag   int
}{
	{"1d", 1},
	{"1w", 5},
	{"1m", 21},
	{"3m", 63},
}

// SpreadColumn is the cross-country 10Y spread column, in basis points.
const SpreadColumn = "UST10_minus_GoC10_bp"

// ForwardFill carries the last observed value forward through NaN gaps
// in the given columns. Leading NaNs stay NaN.
func (f *Frame) ForwardFill(cols []string) {
	for _, name := range cols {
		col := f.data[name]
		if col == nil {
			continue
		}
		last := math.NaN()
		for i, v := range col {
			if math.IsNaN(v) {
				col[i] = last
			} else {
				last = v
			}
		}
	}
}

// ComputeSlopes adds 2s10s and 5s30s slope columns per country where
// both legs exist. Slopes stay in percent, matching the yield columns.
func (f *Frame) ComputeSlopes(mapping TenorMapping) {
	for country, tenors := range mapping {
		if f.HasColumn(tenors[2]) && f.HasColumn(tenors[10]) {
			f.AddColumn(country+"_2s10s", subtract(f.data[tenors[10]], f.data[tenors[2]]))
		}
		if f.HasColumn(tenors[5]) && f.HasColumn(tenors[30]) {
			f.AddColumn(country+"_5s30s", subtract(f.data[tenors[30]], f.data[tenors[5]]))
		}
	}
}

// ComputeSpread adds the US minus Canada 10Y spread in basis points.
// No-op unless both columns exist.
func (f *Frame) ComputeSpread(us10, ca10 string) {
	if !f.HasColumn(us10) || !f.HasColumn(ca10) {
		return
	}
	diff := subtract(f.data[us10], f.data[ca10])
	for i, v := range diff {
		diff[i] = v * 100
	}
	f.AddColumn(SpreadColumn, diff)
}

// ChangesBP builds a frame of basis-point changes for each column over
// each bucket. Output columns are named "<col>_chg_<bucket>". Rows
// without enough history are NaN.
func ChangesBP(f *Frame, cols []string) *Frame {
	out := NewFrame()
	out.Dates = f.Dates
	for _, name := range cols {
		col := f.data[name]
		if col == nil {
			continue
		}
		for _, b := range ChangeBuckets {
			out.AddColumn(fmt.Sprintf("%s_chg_%s", name, b.Label), lagDiffBP(col, b.Lag))
		}
	}
	return out
}

// LatestChanges returns the final row of ChangesBP grouped as
// bucket → column → change in bp. NaN entries are omitted.
func LatestChanges(f *Frame, cols []string) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(ChangeBuckets))
	last := f.Len() - 1
	if last < 0 {
		return out
	}
	for _, b := range ChangeBuckets {
		bucket := make(map[string]float64)
		for _, name := range cols {
			col := f.data[name]
			if col == nil || last < b.Lag {
				continue
			}
			prev, cur := col[last-b.Lag], col[last]
			if math.IsNaN(prev) || math.IsNaN(cur) {
				continue
			}
			bucket[name] = (cur - prev) * 100
		}
		out[b.Label] = bucket
	}
	return out
}

// RollingVolBP builds a frame of rolling standard deviations of daily
// basis-point changes. Shorter history still produces a value once
// max(5, window/4) changes are available.
func RollingVolBP(f *Frame, cols []string, window int) *Frame {
	minPeriods := window / 4
	if minPeriods < 5 {
		minPeriods = 5
	}

	out := NewFrame()
	out.Dates = f.Dates
	for _, name := range cols {
		col := f.data[name]
		if col == nil {
			continue
		}
		changes := lagDiffBP(col, 1)
		out.AddColumn(name, rollingStd(changes, window, minPeriods))
	}
	return out
}

// subtract returns a-b elementwise; NaN propagates.
func subtract(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

// lagDiffBP returns (x[i] - x[i-lag]) * 100 with NaN for the first lag
// rows.
func lagDiffBP(col []float64, lag int) []float64 {
	out := make([]float64, len(col))
	for i := range col {
		if i < lag {
			out[i] = math.NaN()
			continue
		}
		out[i] = (col[i] - col[i-lag]) * 100
	}
	return out
}

// rollingStd computes the trailing sample standard deviation over the
// window, requiring at least minPeriods non-NaN values.
func rollingStd(x []float64, window, minPeriods int) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		var (
			n    int
			sum  float64
			sum2 float64
		)
		for j := lo; j <= i; j++ {
			if math.IsNaN(x[j]) {
				continue
			}
			n++
			sum += x[j]
			sum2 += x[j] * x[j]
		}
		if n < minPeriods || n < 2 {
			out[i] = math.NaN()
			continue
		}
		mean := sum / float64(n)
		variance := (sum2 - float64(n)*mean*mean) / float64(n-1)
		if variance < 0 {
			variance = 0
		}
		out[i] = math.Sqrt(variance)
	}
	return out
}
