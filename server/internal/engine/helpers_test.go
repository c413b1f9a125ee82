package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/majewsky/gg/option"

	"github.com/reviewpulse/reviewpulse/server/internal/table"
)

// row is one fixture row; metrics missing from vals are null.
type row struct {
	store, company, storeType, period string
	vals                              map[string]float64
}

func buildTable(t *testing.T, cols []string, rows []row) *table.MetricTable {
	t.Helper()
	return buildTableWith(t, cols, rows, table.DefaultSchema())
}

func buildTableWith(t *testing.T, cols []string, rows []row, schema table.Schema) *table.MetricTable {
	t.Helper()
	ids := make([][]string, 4)
	num := make([][]option.Option[float64], len(cols))
	for _, r := range rows {
		ids[0] = append(ids[0], r.store)
		ids[1] = append(ids[1], r.company)
		ids[2] = append(ids[2], r.storeType)
		ids[3] = append(ids[3], r.period)
		for j, c := range cols {
			if v, ok := r.vals[c]; ok {
				num[j] = append(num[j], option.Some(v))
			} else {
				num[j] = append(num[j], option.None[float64]())
			}
		}
	}
	frameCols := []table.Column{
		table.TextColumn(table.ColStoreID, ids[0]...),
		table.TextColumn(table.ColCompany, ids[1]...),
		table.TextColumn(table.ColStoreType, ids[2]...),
		table.TextColumn(table.ColPeriod, ids[3]...),
	}
	for j, c := range cols {
		frameCols = append(frameCols, table.NumberColumn(c, num[j]...))
	}
	f, err := table.NewFrame(frameCols...)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	tbl, err := table.BuildMetricTable(f, schema)
	if err != nil {
		t.Fatalf("BuildMetricTable: %v", err)
	}
	return tbl
}

func some(v float64) option.Option[float64] { return option.Some(v) }

func none() option.Option[float64] { return option.None[float64]() }

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func wantErr(t *testing.T, what string, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("%s: got err %v, want %v", what, err, target)
	}
}

type optFloat = option.Option[float64]
