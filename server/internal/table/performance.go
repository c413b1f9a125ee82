package table

import (
	"fmt"

	"github.com/majewsky/gg/option"
)

// Performance view column names.
const (
	ColImproving = "improving"
	ColWorsening = "worsening"
)

// StoreScore is one store's precomputed trend scores.
type StoreScore struct {
	StoreID   string
	Company   string
	Improving option.Option[float64]
	Worsening option.Option[float64]
}

// Score returns the named score. Unknown names read as null.
func (s StoreScore) Score(name string) option.Option[float64] {
	switch name {
	case ColImproving:
		return s.Improving
	case ColWorsening:
		return s.Worsening
	}
	return option.None[float64]()
}

// PerformanceView is the per-store improving/worsening aggregate. A nil view
// behaves as empty.
type PerformanceView struct {
	byCompany map[string][]StoreScore
}

// BuildPerformanceView indexes f by company.
func BuildPerformanceView(f *Frame) (*PerformanceView, error) {
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("performance view: %w", err)
	}
	cols, err := f.require(ColStoreID, ColCompany, ColImproving, ColWorsening)
	if err != nil {
		return nil, fmt.Errorf("performance view: %w", err)
	}
	v := &PerformanceView{byCompany: make(map[string][]StoreScore)}
	for i := 0; i < f.Len(); i++ {
		s := StoreScore{
			StoreID:   cols[0].TextAt(i),
			Company:   cols[1].TextAt(i),
			Improving: cols[2].NumAt(i),
			Worsening: cols[3].NumAt(i),
		}
		v.byCompany[s.Company] = append(v.byCompany[s.Company], s)
	}
	return v, nil
}

// Company returns the scores of every store of the company, in source order.
func (v *PerformanceView) Company(id string) []StoreScore {
	if v == nil {
		return nil
	}
	return v.byCompany[id]
}
