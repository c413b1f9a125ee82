package engine

import (
	"testing"

	"github.com/reviewpulse/reviewpulse/server/internal/table"
)

func benchTable(t *testing.T) *table.BenchmarkTable {
	t.Helper()
	f, err := table.NewFrame(
		table.TextColumn(table.ColStoreType, "t1", "t1", "t1", "t2"),
		table.TextColumn(table.ColPeriod, "2021Q2", "2021Q3", "2021Q4", "2021Q1"),
		table.NumberColumn("rating", some(4.0), none(), some(4.2), some(3.0)),
	)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	b, err := table.BuildBenchmarkTable(f)
	if err != nil {
		t.Fatalf("BuildBenchmarkTable: %v", err)
	}
	return b
}

func comparisonRows() []row {
	return []row{
		{"s1", "c1", "t1", "2021Q1", map[string]float64{"rating": 3.0}},
		{"s1", "c1", "t1", "2021Q2", map[string]float64{"rating": 3.5}},
		{"s1", "c1", "t1", "2021Q3", map[string]float64{"rating": 4.5}},
		{"s3", "c1", "t1", "2021Q2", map[string]float64{"rating": 4.5}},
		{"s2", "c2", "t1", "2021Q2", map[string]float64{"rating": 2.0}},
		{"s2", "c2", "t1", "2021Q4", map[string]float64{"rating": 1.0}},
		{"s4", "c3", "t1", "2021Q2", map[string]float64{}},
	}
}

func TestStoreVsBenchmark(t *testing.T) {
	tbl := buildTable(t, []string{"rating", "rating_rank"}, comparisonRows())
	got, err := StoreVsBenchmark(tbl, benchTable(t), "s1", "rating")
	if err != nil {
		t.Fatalf("StoreVsBenchmark: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d points, want 2: %+v", len(got), got)
	}
	if got[0].Period != "2021Q2" || got[1].Period != "2021Q3" {
		t.Errorf("periods: got %q %q, want 2021Q2 2021Q3", got[0].Period, got[1].Period)
	}
	if got[0].Metric == nil || *got[0].Metric != 3.5 || got[0].Benchmark == nil || *got[0].Benchmark != 4.0 {
		t.Errorf("Q2: got %+v", got[0])
	}
	if got[1].Benchmark != nil {
		t.Errorf("Q3 benchmark: got %v, want null", *got[1].Benchmark)
	}
}

func TestStoreVsBenchmark_Errors(t *testing.T) {
	tbl := buildTable(t, []string{"rating", "rating_rank"}, comparisonRows())
	b := benchTable(t)
	_, err := StoreVsBenchmark(tbl, b, "s1", "price_issues")
	wantErr(t, "unknown metric", err, ErrInvalidMetric)
	_, err = StoreVsBenchmark(tbl, b, "s1", "rating_rank")
	wantErr(t, "metric missing from benchmark", err, ErrInvalidMetric)
	_, err = StoreVsBenchmark(tbl, b, "nope", "rating")
	wantErr(t, "unknown store", err, ErrInvalidEntity)
}

func TestCompanyVsRest(t *testing.T) {
	tbl := buildTable(t, []string{"rating"}, comparisonRows())
	got, err := CompanyVsRest(tbl, "c1", "rating")
	if err != nil {
		t.Fatalf("CompanyVsRest: %v", err)
	}
	// c1 has Q1..Q3, the rest has Q2 and Q4.
	if len(got) != 1 || got[0].Period != "2021Q2" {
		t.Fatalf("got %+v, want only 2021Q2", got)
	}
	if got[0].Metric == nil || !near(*got[0].Metric, 4.0) {
		t.Errorf("company mean: got %v, want 4.0", got[0].Metric)
	}
	// s4's null is skipped.
	if got[0].Benchmark == nil || !near(*got[0].Benchmark, 2.0) {
		t.Errorf("rest mean: got %v, want 2.0", got[0].Benchmark)
	}
}

func TestCompanyVsRest_InnerJoinBound(t *testing.T) {
	tbl := buildTable(t, []string{"rating"}, comparisonRows())
	for _, c := range tbl.Companies() {
		got, err := CompanyVsRest(tbl, c, "rating")
		if err != nil {
			t.Fatalf("%s: %v", c, err)
		}
		if len(got) > len(tbl.Periods()) {
			t.Errorf("%s: %d points exceed %d periods", c, len(got), len(tbl.Periods()))
		}
		for i := 1; i < len(got); i++ {
			if got[i-1].Period >= got[i].Period {
				t.Errorf("%s: periods not ascending: %v", c, got)
			}
		}
	}
}

func TestCompanyVsRest_Errors(t *testing.T) {
	tbl := buildTable(t, []string{"rating"}, comparisonRows())
	_, err := CompanyVsRest(tbl, "c1", "nope")
	wantErr(t, "unknown metric", err, ErrInvalidMetric)
	_, err = CompanyVsRest(tbl, "c9", "rating")
	wantErr(t, "unknown company", err, ErrInvalidEntity)
}
