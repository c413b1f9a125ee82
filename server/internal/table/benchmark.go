package table

import (
	"fmt"
	"slices"

	"github.com/majewsky/gg/option"

	"github.com/reviewpulse/reviewpulse/pkg/types"
)

// Point is one (period, value) sample of a series.
type Point struct {
	Period types.Period
	Value  option.Option[float64]
}

type benchRow struct {
	period types.Period
	cells  []option.Option[float64]
}

// BenchmarkTable holds reference series aggregated per store type.
type BenchmarkTable struct {
	colIdx map[string]int
	byType map[string][]benchRow // chronological
}

// BuildBenchmarkTable indexes f by (store_type, date_comment). Duplicate keys
// are rejected.
func BuildBenchmarkTable(f *Frame) (*BenchmarkTable, error) {
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("benchmark table: %w", err)
	}
	ids, err := f.require(ColStoreType, ColPeriod)
	if err != nil {
		return nil, fmt.Errorf("benchmark table: %w", err)
	}

	b := &BenchmarkTable{
		colIdx: make(map[string]int),
		byType: make(map[string][]benchRow),
	}
	var numeric []*Column
	for i := range f.Columns {
		c := &f.Columns[i]
		if c.Name == ColStoreType || c.Name == ColPeriod || !c.IsNumeric() {
			continue
		}
		b.colIdx[c.Name] = len(numeric)
		numeric = append(numeric, c)
	}

	seen := make(map[string]map[types.Period]bool)
	for i := 0; i < f.Len(); i++ {
		st := ids[0].TextAt(i)
		p := types.ParsePeriod(ids[1].TextAt(i))
		if seen[st] == nil {
			seen[st] = make(map[types.Period]bool)
		}
		if seen[st][p] {
			return nil, fmt.Errorf("benchmark table: duplicate row for store_type %q period %q", st, p)
		}
		seen[st][p] = true

		cells := make([]option.Option[float64], len(numeric))
		for j, c := range numeric {
			cells[j] = c.NumAt(i)
		}
		b.byType[st] = append(b.byType[st], benchRow{period: p, cells: cells})
	}
	for st, rows := range b.byType {
		slices.SortFunc(rows, func(x, y benchRow) int {
			switch {
			case x.period < y.period:
				return -1
			case x.period > y.period:
				return 1
			}
			return 0
		})
		b.byType[st] = rows
	}
	return b, nil
}

// HasColumn reports whether col is a numeric column of the benchmark.
func (b *BenchmarkTable) HasColumn(col string) bool {
	_, ok := b.colIdx[col]
	return ok
}

// StoreTypes returns the store types covered, sorted.
func (b *BenchmarkTable) StoreTypes() []string {
	out := make([]string, 0, len(b.byType))
	for st := range b.byType {
		out = append(out, st)
	}
	slices.Sort(out)
	return out
}

// Series returns the chronological series of col for storeType. Unknown
// store types or columns yield nil.
func (b *BenchmarkTable) Series(storeType, col string) []Point {
	j, ok := b.colIdx[col]
	if !ok {
		return nil
	}
	rows := b.byType[storeType]
	out := make([]Point, len(rows))
	for i, r := range rows {
		out[i] = Point{Period: r.period, Value: r.cells[j]}
	}
	return out
}
