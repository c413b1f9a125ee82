package engine

import (
	"strings"

	"github.com/majewsky/gg/option"

	"github.com/reviewpulse/reviewpulse/server/internal/table"
)

// TrendLabel names the direction of an issue metric between recent periods.
// Issue metrics measure complaints, so a falling value is an improvement.
type TrendLabel string

const (
	ConsistentlyImproving TrendLabel = "Consistently Improving"
	Improving             TrendLabel = "Improving"
	Worsening             TrendLabel = "Worsening"
	ConsistentlyWorsening TrendLabel = "Consistently Worsening"
)

// Trend is one classified issue metric.
type Trend struct {
	Metric      string     `json:"metric"`
	Performance TrendLabel `json:"performance"`
}

// PerformanceReport splits a store's classified issue metrics by direction.
type PerformanceReport struct {
	Positive []Trend `json:"positive"`
	Negative []Trend `json:"negative"`
}

// ClassifyPerformance labels each issue metric of the store from the first
// differences of its chronological series. The two most recent diffs decide:
// both negative is Consistently Improving, the last negative is Improving,
// both positive is Consistently Worsening, the last positive alone is
// Worsening. Metrics with flat, mixed or missing diffs are left out. With
// excludeMacro the macro roll-up issues are skipped.
func ClassifyPerformance(t *table.MetricTable, storeID string, excludeMacro bool) (PerformanceReport, error) {
	return guard("classify_performance", func() (PerformanceReport, error) {
		report := PerformanceReport{Positive: []Trend{}, Negative: []Trend{}}
		if !t.HasStore(storeID) {
			return report, invalidStore(storeID)
		}
		rows := t.StoreRows(storeID)

		for _, metric := range t.IssueMetrics() {
			if excludeMacro && isMacro(t, metric) {
				continue
			}
			series := make([]option.Option[float64], len(rows))
			for i, r := range rows {
				series[i] = t.Value(r, metric)
			}
			label, ok := classify(diffs(series))
			if !ok {
				continue
			}
			tr := Trend{Metric: FormatIssueName(metric), Performance: label}
			switch label {
			case ConsistentlyImproving, Improving:
				report.Positive = append(report.Positive, tr)
			default:
				report.Negative = append(report.Negative, tr)
			}
		}
		return report, nil
	})
}

// diffs returns v[i]-v[i-1]; a null on either side gives a null diff.
func diffs(series []option.Option[float64]) []option.Option[float64] {
	if len(series) < 2 {
		return nil
	}
	out := make([]option.Option[float64], len(series)-1)
	for i := 1; i < len(series); i++ {
		a, okA := series[i-1].Unpack()
		b, okB := series[i].Unpack()
		if okA && okB {
			out[i-1] = option.Some(b - a)
		} else {
			out[i-1] = option.None[float64]()
		}
	}
	return out
}

func classify(d []option.Option[float64]) (TrendLabel, bool) {
	if len(d) == 0 {
		return "", false
	}
	sign := func(k int) int {
		if k < 0 {
			return 0
		}
		v, ok := d[k].Unpack()
		switch {
		case !ok || v == 0:
			return 0
		case v < 0:
			return -1
		}
		return 1
	}
	last, prev := sign(len(d)-1), sign(len(d)-2)
	switch {
	case last < 0 && prev < 0:
		return ConsistentlyImproving, true
	case last < 0:
		return Improving, true
	case last > 0 && prev <= 0:
		return Worsening, true
	case last > 0 && prev > 0:
		return ConsistentlyWorsening, true
	}
	return "", false
}

// FormatIssueName lowercases a metric name and joins its words with "_".
func FormatIssueName(metric string) string {
	return strings.ToLower(strings.Join(strings.Fields(metric), "_"))
}
