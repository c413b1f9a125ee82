package table

import (
	"fmt"
	"slices"
	"strings"
)

// Identity and location column names.
const (
	ColStoreID   = "store_id"
	ColCompany   = "company"
	ColStoreType = "store_type"
	ColPeriod    = "date_comment"
	ColLatitude  = "latitude"
	ColLongitude = "longitude"

	RankSuffix = "_rank"
)

// DefaultMacroIssues are the roll-up issue metrics kept out of per-issue
// breakdowns.
var DefaultMacroIssues = []string{"product_issues", "business_issues"}

// Schema declares the issue metrics of a table. When IssueMetrics is empty
// they are derived once at build time from value columns named "*issues*".
type Schema struct {
	IssueMetrics []string
	MacroIssues  []string
}

// DefaultSchema derives issue metrics and uses DefaultMacroIssues.
func DefaultSchema() Schema {
	return Schema{MacroIssues: slices.Clone(DefaultMacroIssues)}
}

// RankColumn returns the rank column name of metric.
func RankColumn(metric string) string { return metric + RankSuffix }

// IsRankColumn reports whether col follows the rank naming convention.
func IsRankColumn(col string) bool { return strings.HasSuffix(col, RankSuffix) }

// MetricOf strips the rank suffix from a rank column name.
func MetricOf(rankCol string) string { return strings.TrimSuffix(rankCol, RankSuffix) }

// resolve returns the issue metrics and the macro set for the given value
// and rank columns. Derived issue metrics keep source order, value columns
// first, then metrics only present as ranks.
func (s Schema) resolve(values, ranks []string) ([]string, map[string]bool, error) {
	present := make(map[string]bool, len(values)+len(ranks))
	var names []string
	for _, v := range values {
		present[v] = true
		names = append(names, v)
	}
	for _, r := range ranks {
		if m := MetricOf(r); !present[m] {
			present[m] = true
			names = append(names, m)
		}
	}

	var issues []string
	if len(s.IssueMetrics) == 0 {
		for _, m := range names {
			if strings.Contains(m, "issues") {
				issues = append(issues, m)
			}
		}
	} else {
		for _, m := range s.IssueMetrics {
			if IsRankColumn(m) {
				return nil, nil, fmt.Errorf("issue metric %q must name a metric, not a rank column", m)
			}
			if !present[m] {
				return nil, nil, fmt.Errorf("issue metric %q has no value or rank column in the table", m)
			}
			issues = append(issues, m)
		}
	}

	macros := make(map[string]bool, len(s.MacroIssues))
	for _, m := range s.MacroIssues {
		macros[m] = true
	}
	return issues, macros, nil
}
