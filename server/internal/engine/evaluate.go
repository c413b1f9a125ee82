package engine

import (
	"fmt"
	"math"

	"github.com/majewsky/gg/option"

	"github.com/reviewpulse/reviewpulse/pkg/types"
)

// Thresholds are ordered rank bands: rank >= Great is Great, rank >= Good is
// Good, rank <= Poor is Poor, anything between is Average.
type Thresholds struct {
	Great float64
	Good  float64
	Poor  float64
}

// Default band sets. Evaluation labels general rankings; selection labels
// the entries of best/worst metric lists.
var (
	DefaultEvaluation = Thresholds{Great: 0.95, Good: 0.7, Poor: 0.3}
	DefaultSelection  = Thresholds{Great: 0.95, Good: 0.8, Poor: 0.2}
)

// Validate checks 0 <= Poor < Good <= Great <= 1.
func (th Thresholds) Validate() error {
	if th.Poor < 0 || th.Great > 1 {
		return fmt.Errorf("thresholds must lie in [0, 1], got poor=%v great=%v", th.Poor, th.Great)
	}
	if !(th.Poor < th.Good && th.Good <= th.Great) {
		return fmt.Errorf("thresholds must satisfy poor < good <= great, got %v/%v/%v", th.Poor, th.Good, th.Great)
	}
	return nil
}

// Label maps a rank to its band. First match wins.
func (th Thresholds) Label(rank float64) types.Label {
	switch {
	case rank >= th.Great:
		return types.Great
	case rank >= th.Good:
		return types.Good
	case rank <= th.Poor:
		return types.Poor
	default:
		return types.Average
	}
}

// Evaluate labels a rank and reports it as a percentage with two decimals.
// Null and non-finite ranks evaluate to Not Available.
func Evaluate(rank option.Option[float64], th Thresholds) types.RankEvaluation {
	r, ok := rank.Unpack()
	if !ok || math.IsNaN(r) || math.IsInf(r, 0) {
		return types.Unavailable()
	}
	return types.RankEvaluation{Result: th.Label(r), Rank: types.Round2(r * 100)}
}
