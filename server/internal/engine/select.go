package engine

import (
	"fmt"
	"slices"
	"sort"

	"github.com/goccy/go-json"

	"github.com/reviewpulse/reviewpulse/pkg/types"
	"github.com/reviewpulse/reviewpulse/server/internal/table"
)

// Direction picks the end of the ranking SelectRanks reads from.
type Direction int

const (
	Worst Direction = iota
	Best
)

// ParseDirection accepts "best" or "worst".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "best":
		return Best, nil
	case "worst":
		return Worst, nil
	}
	return Worst, fmt.Errorf("%w: direction %q, want best|worst", ErrInvalidParameter, s)
}

func (d Direction) String() string {
	if d == Best {
		return "best"
	}
	return "worst"
}

// SelectPolicy configures SelectRanks.
type SelectPolicy struct {
	// Labels bands the selected ranks; kept apart from the evaluation bands.
	Labels Thresholds
	// BestCutoff drops best entries whose rank is not above it.
	BestCutoff float64
	// WorstCutoff drops worst entries whose rank is not below it.
	WorstCutoff float64
}

// DefaultSelectPolicy returns the stock selection bands and cutoffs.
func DefaultSelectPolicy() SelectPolicy {
	return SelectPolicy{Labels: DefaultSelection, BestCutoff: 0.4, WorstCutoff: 0.7}
}

// RankedMetric is one entry of a best/worst list. NoData marks the single
// placeholder returned when the store has no row at the latest period.
type RankedMetric struct {
	Metric      string
	Rank        float64
	Performance types.Label
	NoData      bool
}

// MarshalJSON renders the placeholder with null fields.
func (m RankedMetric) MarshalJSON() ([]byte, error) {
	type entry struct {
		Metric      *string      `json:"metric"`
		Rank        *float64     `json:"rank_val"`
		Performance *types.Label `json:"performance"`
	}
	if m.NoData {
		return json.Marshal(entry{})
	}
	return json.Marshal(entry{&m.Metric, &m.Rank, &m.Performance})
}

func noData() []RankedMetric { return []RankedMetric{{NoData: true}} }

// SelectRanks returns up to n of the store's rank columns at the table's
// latest period, best first for Best and worst first for Worst. Macro issue
// ranks are never listed, nulls are dropped, and entries on the wrong side of
// the direction's cutoff are removed.
func SelectRanks(t *table.MetricTable, storeID string, n int, dir Direction, p SelectPolicy) ([]RankedMetric, error) {
	return guard("select_ranks", func() ([]RankedMetric, error) {
		if n < 0 {
			return nil, fmt.Errorf("%w: n must not be negative, got %d", ErrInvalidParameter, n)
		}
		keep := func(r float64) bool { return r < p.WorstCutoff }
		if dir == Best {
			keep = func(r float64) bool { return r > p.BestCutoff }
		}
		return selectRanks(t, storeID, n, dir == Best, keep, p.Labels)
	})
}

// Highlights returns the store's n lowest ranks with no cutoff applied.
func Highlights(t *table.MetricTable, storeID string, n int, labels Thresholds) ([]RankedMetric, error) {
	return guard("highlights", func() ([]RankedMetric, error) {
		if n < 0 {
			return nil, fmt.Errorf("%w: n must not be negative, got %d", ErrInvalidParameter, n)
		}
		return selectRanks(t, storeID, n, false, func(float64) bool { return true }, labels)
	})
}

func selectRanks(t *table.MetricTable, storeID string, n int, descending bool, keep func(float64) bool, labels Thresholds) ([]RankedMetric, error) {
	if !t.HasStore(storeID) {
		return nil, invalidStore(storeID)
	}
	latest, ok := t.Latest()
	if !ok {
		return noData(), nil
	}
	row, ok := t.StoreRowAt(storeID, latest)
	if !ok {
		return noData(), nil
	}

	var cands []RankedMetric
	for _, col := range t.RankColumns() {
		metric := table.MetricOf(col)
		if isMacro(t, metric) {
			continue
		}
		if r, ok := t.Value(row, col).Unpack(); ok {
			cands = append(cands, RankedMetric{Metric: metric, Rank: r})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if descending {
			return cands[i].Rank > cands[j].Rank
		}
		return cands[i].Rank < cands[j].Rank
	})
	if len(cands) > n {
		cands = cands[:n]
	}

	out := make([]RankedMetric, 0, len(cands))
	for _, c := range cands {
		if !keep(c.Rank) {
			continue
		}
		c.Performance = labels.Label(c.Rank)
		out = append(out, c)
	}
	return out, nil
}

// isMacro reports whether metric is a macro roll-up, either declared by the
// table's schema or one of table.DefaultMacroIssues.
func isMacro(t *table.MetricTable, metric string) bool {
	return t.IsMacro(metric) || slices.Contains(table.DefaultMacroIssues, metric)
}
