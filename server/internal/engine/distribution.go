package engine

import (
	"fmt"

	"github.com/reviewpulse/reviewpulse/pkg/types"
	"github.com/reviewpulse/reviewpulse/server/internal/table"
)

// Range is a closed [Lo, Hi] histogram range.
type Range struct {
	Lo, Hi float64
}

// Ranges maps metrics to histogram ranges. Metrics without an entry use
// Default.
type Ranges struct {
	Default  Range
	ByMetric map[string]Range
}

// DefaultRanges bins ratings over [0, 5] and the normalized issue fractions
// over [0, 0.5].
func DefaultRanges() Ranges {
	return Ranges{
		Default:  Range{0, 0.5},
		ByMetric: map[string]Range{"rating": {0, 5}},
	}
}

// For returns the range of metric.
func (r Ranges) For(metric string) Range {
	if rg, ok := r.ByMetric[metric]; ok {
		return rg
	}
	return r.Default
}

// Histogram compares the company against every other company at one period.
type Histogram struct {
	XRange    []float64    `json:"x_range"`
	Company   []int        `json:"company"`
	Benchmark []int        `json:"benchmark"`
	Metric    string       `json:"metric"`
	Period    types.Period `json:"date"`
}

// Distribution bins the metric values of the company's rows and of all other
// rows at period into equal-width buckets. period may be types.Latest.
// Null values are skipped and values outside the range are not counted. An
// explicit period absent from the table is an invalid parameter.
func Distribution(t *table.MetricTable, metric, companyID, period string, bins int, ranges Ranges) (Histogram, error) {
	return guard("distribution", func() (Histogram, error) {
		if bins <= 0 {
			return Histogram{}, fmt.Errorf("%w: bins must be positive, got %d", ErrInvalidParameter, bins)
		}
		if !t.HasColumn(metric) {
			return Histogram{}, invalidMetric(metric)
		}
		if !t.HasCompany(companyID) {
			return Histogram{}, invalidCompany(companyID)
		}

		var p types.Period
		if period == types.Latest {
			p, _ = t.Latest()
		} else {
			p = types.ParsePeriod(period)
			if !t.HasPeriod(p) {
				return Histogram{}, fmt.Errorf("%w: no rows for period %q", ErrInvalidParameter, period)
			}
		}

		rg := ranges.For(metric)
		if !(rg.Hi > rg.Lo) {
			return Histogram{}, fmt.Errorf("%w: empty range [%v, %v] for %q", ErrInvalidParameter, rg.Lo, rg.Hi, metric)
		}
		edges := linspace(rg.Lo, rg.Hi, bins)

		h := Histogram{
			XRange:    make([]float64, len(edges)),
			Company:   make([]int, bins),
			Benchmark: make([]int, bins),
			Metric:    metric,
			Period:    p,
		}
		for i, e := range edges {
			h.XRange[i] = types.Round2(e)
		}
		for i := 0; i < t.Len(); i++ {
			r := t.Row(i)
			if r.Period != p {
				continue
			}
			v, ok := t.Value(i, metric).Unpack()
			if !ok {
				continue
			}
			b, ok := bucket(v, edges)
			if !ok {
				continue
			}
			if r.Company == companyID {
				h.Company[b]++
			} else {
				h.Benchmark[b]++
			}
		}
		return h, nil
	})
}

// linspace returns bins+1 evenly spaced edges with the last pinned to hi.
func linspace(lo, hi float64, bins int) []float64 {
	step := (hi - lo) / float64(bins)
	out := make([]float64, bins+1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[bins] = hi
	return out
}

// bucket finds v's bin. Bins are half-open except the last, which includes
// its right edge.
func bucket(v float64, edges []float64) (int, bool) {
	n := len(edges) - 1
	lo, hi := edges[0], edges[n]
	if v < lo || v > hi {
		return 0, false
	}
	i := int((v - lo) / (hi - lo) * float64(n))
	if i >= n {
		i = n - 1
	}
	// Correct float error in the computed index against the real edges.
	if v < edges[i] {
		i--
	} else if i < n-1 && v >= edges[i+1] {
		i++
	}
	return i, true
}
