package table

import (
	"fmt"
	"slices"
	"sort"

	"github.com/majewsky/gg/option"

	"github.com/reviewpulse/reviewpulse/pkg/types"
)

// Row is the identity part of one MetricTable row.
type Row struct {
	StoreID   string
	Company   string
	StoreType string
	Period    types.Period
	Latitude  option.Option[float64]
	Longitude option.Option[float64]
}

// MetricTable is an immutable snapshot of per-store, per-period metrics and
// their precomputed ranks.
type MetricTable struct {
	rows  []Row
	cells [][]option.Option[float64] // [row][numeric column]

	colIdx  map[string]int
	metrics []string // value columns, source order
	ranks   []string // rank columns, source order

	issues []string
	macros map[string]bool

	periods   []types.Period
	stores    map[string][]int // deduplicated, chronological
	companies map[string][]int // every row of the company, source order
	storeIDs  []string
	companyID []string
	location  bool
}

// BuildMetricTable validates f against s and indexes it.
func BuildMetricTable(f *Frame, s Schema) (*MetricTable, error) {
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("table: %w", err)
	}
	ids, err := f.require(ColStoreID, ColCompany, ColStoreType, ColPeriod)
	if err != nil {
		return nil, fmt.Errorf("table: %w", err)
	}
	lat, hasLat := f.Column(ColLatitude)
	lon, hasLon := f.Column(ColLongitude)

	t := &MetricTable{
		colIdx:    make(map[string]int),
		stores:    make(map[string][]int),
		companies: make(map[string][]int),
		location:  hasLat && hasLon,
	}

	var numeric []*Column
	for i := range f.Columns {
		c := &f.Columns[i]
		switch c.Name {
		case ColStoreID, ColCompany, ColStoreType, ColPeriod, ColLatitude, ColLongitude:
			continue
		}
		if !c.IsNumeric() {
			continue
		}
		t.colIdx[c.Name] = len(numeric)
		numeric = append(numeric, c)
		if IsRankColumn(c.Name) {
			t.ranks = append(t.ranks, c.Name)
		} else {
			t.metrics = append(t.metrics, c.Name)
		}
	}

	if t.issues, t.macros, err = s.resolve(t.metrics, t.ranks); err != nil {
		return nil, fmt.Errorf("table: schema: %w", err)
	}

	n := f.Len()
	t.rows = make([]Row, n)
	t.cells = make([][]option.Option[float64], n)
	periods := make(map[types.Period]bool)
	latestRow := make(map[string]map[types.Period]int)

	for i := 0; i < n; i++ {
		r := Row{
			StoreID:   ids[0].TextAt(i),
			Company:   ids[1].TextAt(i),
			StoreType: ids[2].TextAt(i),
			Period:    types.ParsePeriod(ids[3].TextAt(i)),
		}
		if r.StoreID == "" {
			return nil, fmt.Errorf("table: row %d has an empty store_id", i)
		}
		if r.Period == "" {
			return nil, fmt.Errorf("table: row %d has an empty date_comment", i)
		}
		if t.location {
			r.Latitude, r.Longitude = lat.NumAt(i), lon.NumAt(i)
		}
		t.rows[i] = r

		cells := make([]option.Option[float64], len(numeric))
		for j, c := range numeric {
			cells[j] = c.NumAt(i)
		}
		t.cells[i] = cells

		periods[r.Period] = true
		t.companies[r.Company] = append(t.companies[r.Company], i)
		if latestRow[r.StoreID] == nil {
			latestRow[r.StoreID] = make(map[types.Period]int)
		}
		latestRow[r.StoreID][r.Period] = i // last wins
	}

	for p := range periods {
		t.periods = append(t.periods, p)
	}
	slices.Sort(t.periods)

	for store, byPeriod := range latestRow {
		idx := make([]int, 0, len(byPeriod))
		for _, i := range byPeriod {
			idx = append(idx, i)
		}
		sort.Slice(idx, func(a, b int) bool { return t.rows[idx[a]].Period < t.rows[idx[b]].Period })
		t.stores[store] = idx
		t.storeIDs = append(t.storeIDs, store)
	}
	slices.Sort(t.storeIDs)
	for c := range t.companies {
		t.companyID = append(t.companyID, c)
	}
	slices.Sort(t.companyID)

	return t, nil
}

// Len returns the number of rows.
func (t *MetricTable) Len() int { return len(t.rows) }

// Row returns the identity columns of row i.
func (t *MetricTable) Row(i int) Row { return t.rows[i] }

// Value returns cell (i, col). Unknown columns read as null.
func (t *MetricTable) Value(i int, col string) option.Option[float64] {
	j, ok := t.colIdx[col]
	if !ok {
		return option.None[float64]()
	}
	return t.cells[i][j]
}

// HasColumn reports whether col is a numeric column of the table.
func (t *MetricTable) HasColumn(col string) bool {
	_, ok := t.colIdx[col]
	return ok
}

// HasMetric reports whether metric has both a value and a rank column. A
// rank column name is never a metric.
func (t *MetricTable) HasMetric(metric string) bool {
	return !IsRankColumn(metric) && t.HasColumn(metric) && t.HasColumn(RankColumn(metric))
}

// Metrics returns the value columns in source order.
func (t *MetricTable) Metrics() []string { return slices.Clone(t.metrics) }

// RankColumns returns the rank columns in source order.
func (t *MetricTable) RankColumns() []string { return slices.Clone(t.ranks) }

// IssueMetrics returns the declared issue metrics.
func (t *MetricTable) IssueMetrics() []string { return slices.Clone(t.issues) }

// IsMacro reports whether metric is a macro roll-up issue.
func (t *MetricTable) IsMacro(metric string) bool { return t.macros[metric] }

// Periods returns every period present, ascending.
func (t *MetricTable) Periods() []types.Period { return slices.Clone(t.periods) }

// Latest returns the most recent period, or false for an empty table.
func (t *MetricTable) Latest() (types.Period, bool) {
	if len(t.periods) == 0 {
		return "", false
	}
	return t.periods[len(t.periods)-1], true
}

// HasPeriod reports whether any row belongs to p.
func (t *MetricTable) HasPeriod(p types.Period) bool {
	_, ok := slices.BinarySearch(t.periods, p)
	return ok
}

// Stores returns every store id, sorted.
func (t *MetricTable) Stores() []string { return slices.Clone(t.storeIDs) }

// StoreTypes returns every distinct store type, sorted.
func (t *MetricTable) StoreTypes() []string {
	var out []string
	for _, r := range t.rows {
		out = append(out, r.StoreType)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Companies returns every company id, sorted.
func (t *MetricTable) Companies() []string { return slices.Clone(t.companyID) }

// HasStore reports whether the store appears in the table.
func (t *MetricTable) HasStore(id string) bool {
	_, ok := t.stores[id]
	return ok
}

// HasCompany reports whether the company appears in the table.
func (t *MetricTable) HasCompany(id string) bool {
	_, ok := t.companies[id]
	return ok
}

// StoreRows returns the store's rows in chronological order, one per period.
// When the source held several rows for one period, the last one is kept.
func (t *MetricTable) StoreRows(id string) []int { return t.stores[id] }

// StoreRowAt returns the store's row for period p.
func (t *MetricTable) StoreRowAt(id string, p types.Period) (int, bool) {
	rows := t.stores[id]
	k, ok := sort.Find(len(rows), func(k int) int {
		switch q := t.rows[rows[k]].Period; {
		case p < q:
			return -1
		case p > q:
			return 1
		}
		return 0
	})
	if !ok {
		return 0, false
	}
	return rows[k], true
}

// CompanyRows returns every row of the company in source order.
func (t *MetricTable) CompanyRows(id string) []int { return t.companies[id] }

// HasLocation reports whether latitude and longitude columns are present.
func (t *MetricTable) HasLocation() bool { return t.location }
