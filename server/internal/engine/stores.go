package engine

import (
	"fmt"
	"sort"

	"github.com/majewsky/gg/option"

	"github.com/reviewpulse/reviewpulse/pkg/types"
	"github.com/reviewpulse/reviewpulse/server/internal/table"
)

// Location is a store's coordinates; fields are nil when unknown.
type Location struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// StoreStanding is one store's mean issue rank at the latest period.
type StoreStanding struct {
	StoreID string  `json:"store_id"`
	AvgRank float64 `json:"avg_rank"`
	Location
}

// BestWorst holds a company's extreme stores. Both are nil when no store of
// the company has issue ranks at the latest period.
type BestWorst struct {
	Best  *StoreStanding `json:"best_store"`
	Worst *StoreStanding `json:"worst_store"`
}

// Standing pairs a store's rank evaluation within its type and within its
// company.
type Standing struct {
	TypeRanking    types.RankEvaluation `json:"type_ranking"`
	CompanyRanking types.RankEvaluation `json:"company_ranking"`
}

// StorePerformance mirrors a PerformanceView row.
type StorePerformance struct {
	StoreID   string   `json:"store_id"`
	Company   string   `json:"company"`
	Improving *float64 `json:"improving"`
	Worsening *float64 `json:"worsening"`
}

// CompanyPerformance lists a company's most improving and worsening stores.
type CompanyPerformance struct {
	Worsening []StorePerformance `json:"worsening"`
	Improving []StorePerformance `json:"improving"`
}

// NumberOfStores counts the distinct stores of a company.
func NumberOfStores(t *table.MetricTable, companyID string) (int, error) {
	return guard("number_of_stores", func() (int, error) {
		if !t.HasCompany(companyID) {
			return 0, invalidCompany(companyID)
		}
		return len(companyStores(t, companyID)), nil
	})
}

// StoreLocation returns the coordinates of the store's earliest row.
func StoreLocation(t *table.MetricTable, storeID string) (Location, error) {
	return guard("store_location", func() (Location, error) {
		rows := t.StoreRows(storeID)
		if len(rows) == 0 {
			return Location{}, invalidStore(storeID)
		}
		return locationOf(t, rows[0]), nil
	})
}

func locationOf(t *table.MetricTable, row int) Location {
	r := t.Row(row)
	return Location{Latitude: ptr(r.Latitude), Longitude: ptr(r.Longitude)}
}

// companyStores lists the company's stores in order of first appearance.
func companyStores(t *table.MetricTable, companyID string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, i := range t.CompanyRows(companyID) {
		id := t.Row(i).StoreID
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// BestWorstStore ranks the company's stores at the latest period by the mean
// of their issue rank columns and returns the highest and lowest.
func BestWorstStore(t *table.MetricTable, companyID string) (BestWorst, error) {
	return guard("best_worst_store", func() (BestWorst, error) {
		if !t.HasCompany(companyID) {
			return BestWorst{}, invalidCompany(companyID)
		}
		latest, ok := t.Latest()
		if !ok {
			return BestWorst{}, nil
		}
		var cols []string
		for _, m := range t.IssueMetrics() {
			if c := table.RankColumn(m); t.HasColumn(c) {
				cols = append(cols, c)
			}
		}

		var standings []StoreStanding
		for _, id := range companyStores(t, companyID) {
			row, ok := t.StoreRowAt(id, latest)
			if !ok || t.Row(row).Company != companyID {
				continue
			}
			var acc meanAcc
			for _, c := range cols {
				acc.add(t.Value(row, c))
			}
			if m, ok := acc.value().Unpack(); ok {
				standings = append(standings, StoreStanding{StoreID: id, AvgRank: m})
			}
		}
		if len(standings) == 0 {
			return BestWorst{}, nil
		}
		sort.SliceStable(standings, func(i, j int) bool { return standings[i].AvgRank > standings[j].AvgRank })

		best, worst := standings[0], standings[len(standings)-1]
		best.Location, _ = StoreLocation(t, best.StoreID)
		worst.Location, _ = StoreLocation(t, worst.StoreID)
		return BestWorst{Best: &best, Worst: &worst}, nil
	})
}

// CompanyGeneralPerformance returns, for worsening and improving scores, the
// company's topK highest scoring stores in ascending order, keeping only
// scores above zero. Null scores sort below every real score's top slice.
func CompanyGeneralPerformance(v *table.PerformanceView, companyID string, topK int) (CompanyPerformance, error) {
	return guard("company_general_performance", func() (CompanyPerformance, error) {
		out := CompanyPerformance{Worsening: []StorePerformance{}, Improving: []StorePerformance{}}
		if topK < 0 {
			return out, fmt.Errorf("%w: top must not be negative, got %d", ErrInvalidParameter, topK)
		}
		scores := v.Company(companyID)
		out.Worsening = topScores(scores, table.ColWorsening, topK)
		out.Improving = topScores(scores, table.ColImproving, topK)
		return out, nil
	})
}

func topScores(scores []table.StoreScore, by string, k int) []StorePerformance {
	sorted := append([]table.StoreScore(nil), scores...)
	// ascending with nulls last
	sort.SliceStable(sorted, func(i, j int) bool {
		a, okA := sorted[i].Score(by).Unpack()
		b, okB := sorted[j].Score(by).Unpack()
		if okA != okB {
			return okA
		}
		return okA && a < b
	})
	if len(sorted) > k {
		sorted = sorted[len(sorted)-k:]
	}
	out := []StorePerformance{}
	for _, s := range sorted {
		if x, ok := s.Score(by).Unpack(); !ok || x <= 0 {
			continue
		}
		out = append(out, StorePerformance{
			StoreID:   s.StoreID,
			Company:   s.Company,
			Improving: ptr(s.Improving),
			Worsening: ptr(s.Worsening),
		})
	}
	return out
}

// StoreMainRankings evaluates the store's rating rank at the latest period of
// the type table, within its type and within its company.
func StoreMainRankings(ds *table.Dataset, storeID string, th Thresholds) (Standing, error) {
	return guard("store_main_rankings", func() (Standing, error) {
		if !ds.Type.HasStore(storeID) {
			return Standing{}, invalidStore(storeID)
		}
		latest, _ := ds.Type.Latest()
		rank := func(t *table.MetricTable) types.RankEvaluation {
			if t == nil {
				return types.Unavailable()
			}
			row, ok := t.StoreRowAt(storeID, latest)
			if !ok {
				return types.Unavailable()
			}
			return Evaluate(t.Value(row, table.RankColumn("rating")), th)
		}
		return Standing{TypeRanking: rank(ds.Type), CompanyRanking: rank(ds.Company)}, nil
	})
}

// StoreGeneralRankings evaluates the mean of every rank column of the store's
// latest row, within its type and within its company. A table without
// periods yields Not Enough Data.
func StoreGeneralRankings(ds *table.Dataset, storeID string, th Thresholds) (Standing, error) {
	return guard("store_general_rankings", func() (Standing, error) {
		latest, ok := ds.Type.Latest()
		if !ok {
			nd := types.RankEvaluation{Result: types.NotEnoughData}
			return Standing{TypeRanking: nd, CompanyRanking: nd}, nil
		}
		if !ds.Type.HasStore(storeID) {
			return Standing{}, invalidStore(storeID)
		}
		return Standing{
			TypeRanking:    Evaluate(GeneralRank(ds.Type, storeID, latest), th),
			CompanyRanking: Evaluate(GeneralRank(ds.Company, storeID, latest), th),
		}, nil
	})
}

// GeneralRank is the mean of every rank column of the store's row at period
// p, or None when the table, the row or every rank is missing.
func GeneralRank(t *table.MetricTable, storeID string, p types.Period) option.Option[float64] {
	if t == nil {
		return option.None[float64]()
	}
	row, ok := t.StoreRowAt(storeID, p)
	if !ok {
		return option.None[float64]()
	}
	var acc meanAcc
	for _, c := range t.RankColumns() {
		acc.add(t.Value(row, c))
	}
	return acc.value()
}
