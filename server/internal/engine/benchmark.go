package engine

import (
	"slices"

	"github.com/reviewpulse/reviewpulse/pkg/types"
	"github.com/reviewpulse/reviewpulse/server/internal/table"
)

// ComparisonPoint pairs a subject value with its reference at one period.
type ComparisonPoint struct {
	Period    types.Period `json:"period"`
	Metric    *float64     `json:"metric"`
	Benchmark *float64     `json:"benchmark"`
}

// StoreVsBenchmark joins the store's metric series with the benchmark series
// of the store's type. Only periods present on both sides are returned.
func StoreVsBenchmark(t *table.MetricTable, bench *table.BenchmarkTable, storeID, metric string) ([]ComparisonPoint, error) {
	return guard("store_vs_benchmark", func() ([]ComparisonPoint, error) {
		if !t.HasColumn(metric) || !bench.HasColumn(metric) {
			return nil, invalidMetric(metric)
		}
		rows := t.StoreRows(storeID)
		if len(rows) == 0 {
			return nil, invalidStore(storeID)
		}
		storeType := t.Row(rows[len(rows)-1]).StoreType

		own := make([]table.Point, len(rows))
		for i, r := range rows {
			own[i] = table.Point{Period: t.Row(r).Period, Value: t.Value(r, metric)}
		}
		return innerJoin(own, bench.Series(storeType, metric)), nil
	})
}

// CompanyVsRest averages the metric per period over the company's rows and
// over every other company's rows, then joins the two series on period.
func CompanyVsRest(t *table.MetricTable, companyID, metric string) ([]ComparisonPoint, error) {
	return guard("company_vs_rest", func() ([]ComparisonPoint, error) {
		if !t.HasColumn(metric) {
			return nil, invalidMetric(metric)
		}
		if !t.HasCompany(companyID) {
			return nil, invalidCompany(companyID)
		}
		company := make(map[types.Period]*meanAcc)
		rest := make(map[types.Period]*meanAcc)
		for i := 0; i < t.Len(); i++ {
			r := t.Row(i)
			groups := rest
			if r.Company == companyID {
				groups = company
			}
			acc, ok := groups[r.Period]
			if !ok {
				acc = &meanAcc{}
				groups[r.Period] = acc
			}
			acc.add(t.Value(i, metric))
		}
		return innerJoin(collapse(company), collapse(rest)), nil
	})
}

func collapse(groups map[types.Period]*meanAcc) []table.Point {
	out := make([]table.Point, 0, len(groups))
	for p, acc := range groups {
		out = append(out, table.Point{Period: p, Value: acc.value()})
	}
	slices.SortFunc(out, func(a, b table.Point) int {
		switch {
		case a.Period < b.Period:
			return -1
		case a.Period > b.Period:
			return 1
		}
		return 0
	})
	return out
}

// innerJoin merges two chronological series on period.
func innerJoin(a, b []table.Point) []ComparisonPoint {
	out := []ComparisonPoint{}
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Period < b[j].Period:
			i++
		case a[i].Period > b[j].Period:
			j++
		default:
			out = append(out, ComparisonPoint{
				Period:    a[i].Period,
				Metric:    ptr(a[i].Value),
				Benchmark: ptr(b[j].Value),
			})
			i++
			j++
		}
	}
	return out
}

