package api

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/reviewpulse/reviewpulse/server/internal/store"
	"github.com/reviewpulse/reviewpulse/server/internal/table"
)

// DiagnosticHint is one human-readable observation about the served dataset.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier.
	Key string `json:"key"`
	// Level is "info" | "warning" | "critical".
	Level  string `json:"level"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// computeDiagnostics lists what is missing or degraded in snap, critical
// first. An empty slice means every feature has data.
func computeDiagnostics(snap *store.Snapshot, stale bool) []DiagnosticHint {
	hints := []DiagnosticHint{}
	ds := snap.Dataset
	t := ds.Type

	if _, ok := t.Latest(); !ok {
		hints = append(hints, DiagnosticHint{
			Key:    "no_periods",
			Level:  "critical",
			Title:  "No review periods",
			Detail: "The type table has no rows. Rankings answer Not Enough Data and every list is empty.",
		})
	}
	if stale {
		hints = append(hints, DiagnosticHint{
			Key:   "stale",
			Level: "warning",
			Title: "Dataset is stale",
			Detail: fmt.Sprintf("The dataset was loaded at %s and has not been refreshed since. "+
				"Check the loader logs for failed reloads.", snap.LoadedAt.UTC().Format(time.RFC3339)),
		})
	}
	if ds.Company == nil {
		hints = append(hints, DiagnosticHint{
			Key:    "no_company_table",
			Level:  "warning",
			Title:  "Company ranks missing",
			Detail: "No company table was loaded, so within-company rankings evaluate to Not Available.",
		})
	}
	if ds.Performance == nil {
		hints = append(hints, DiagnosticHint{
			Key:    "no_performance_view",
			Level:  "info",
			Title:  "Performance view missing",
			Detail: "No stores performance table was loaded, so company performance lists are empty.",
		})
	}
	if missing := benchmarkGaps(ds); len(missing) > 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "benchmark_gaps",
			Level: "warning",
			Title: "Store types without a benchmark",
			Detail: fmt.Sprintf("No benchmark series for store types %s; store benchmark comparisons for them are empty.",
				strings.Join(missing, ", ")),
		})
	}
	if len(t.IssueMetrics()) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:    "no_issue_metrics",
			Level:  "warning",
			Title:  "No issue metrics",
			Detail: "No column name contains \"issues\", so best/worst store and average rank have nothing to average.",
		})
	}
	if !t.HasLocation() {
		hints = append(hints, DiagnosticHint{
			Key:    "no_location",
			Level:  "info",
			Title:  "No store coordinates",
			Detail: "The type table has no latitude/longitude columns; store locations are null.",
		})
	}
	return hints
}

// benchmarkGaps lists the store types of the type table that the benchmark
// table does not cover.
func benchmarkGaps(ds *table.Dataset) []string {
	var covered []string
	if ds.Benchmark != nil {
		covered = ds.Benchmark.StoreTypes()
	}
	var out []string
	for _, st := range ds.Type.StoreTypes() {
		if !slices.Contains(covered, st) {
			out = append(out, st)
		}
	}
	return out
}
