package engine

import (
	"bytes"
	"cmp"
	"slices"

	"github.com/goccy/go-json"

	"github.com/reviewpulse/reviewpulse/server/internal/table"
)

// CompanyRank is one company's aggregate rank.
type CompanyRank struct {
	Company string
	Rank    float64
}

// OrderedRanks is a rank-ordered company list. It encodes as a JSON object
// whose key order is the list order.
type OrderedRanks []CompanyRank

// MarshalJSON writes the ranks as an ordered object.
func (o OrderedRanks) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cr := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(cr.Company)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(cr.Rank)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func sortRanks(o OrderedRanks) {
	slices.SortFunc(o, func(a, b CompanyRank) int {
		if c := cmp.Compare(a.Rank, b.Rank); c != 0 {
			return c
		}
		return cmp.Compare(a.Company, b.Company)
	})
}

// RankCompanies averages the metric's rank column over every row of each
// company and orders the companies lowest first. Companies whose ranks are
// all null are left out.
func RankCompanies(t *table.MetricTable, metric string) (OrderedRanks, error) {
	return guard("rank_companies", func() (OrderedRanks, error) {
		col := table.RankColumn(metric)
		if !t.HasColumn(col) {
			return nil, invalidMetric(metric)
		}
		out := OrderedRanks{}
		for _, c := range t.Companies() {
			var acc meanAcc
			for _, i := range t.CompanyRows(c) {
				acc.add(t.Value(i, col))
			}
			if m, ok := acc.value().Unpack(); ok {
				out = append(out, CompanyRank{Company: c, Rank: m})
			}
		}
		sortRanks(out)
		return out, nil
	})
}

// AverageRank scores each company at the latest period by the mean of its
// per-metric issue means, then re-ranks the scores across companies as
// percentiles in (0, 1], ties sharing their average rank. Lowest first.
func AverageRank(t *table.MetricTable) (OrderedRanks, error) {
	return guard("average_rank", func() (OrderedRanks, error) {
		out := OrderedRanks{}
		latest, ok := t.Latest()
		issues := t.IssueMetrics()
		if !ok || len(issues) == 0 {
			return out, nil
		}

		var scores []float64
		for _, c := range t.Companies() {
			accs := make([]meanAcc, len(issues))
			for _, i := range t.CompanyRows(c) {
				if t.Row(i).Period != latest {
					continue
				}
				for k, m := range issues {
					accs[k].add(t.Value(i, m))
				}
			}
			var overall meanAcc
			for _, a := range accs {
				overall.add(a.value())
			}
			if s, ok := overall.value().Unpack(); ok {
				out = append(out, CompanyRank{Company: c})
				scores = append(scores, s)
			}
		}
		for i, r := range pctRank(scores) {
			out[i].Rank = r
		}
		sortRanks(out)
		return out, nil
	})
}
