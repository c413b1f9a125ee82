package api

import (
	"github.com/reviewpulse/reviewpulse/server/internal/config"
	"github.com/reviewpulse/reviewpulse/server/internal/engine"
)

// Policy is the hot-reloadable part of the configuration the API reads on
// every request.
type Policy struct {
	Evaluation engine.Thresholds
	Selection  engine.SelectPolicy
	Highlights int
	DefaultTop int
	Bins       int
	Ranges     engine.Ranges
}

// DefaultPolicy mirrors the configuration defaults.
func DefaultPolicy() Policy {
	return Policy{
		Evaluation: engine.DefaultEvaluation,
		Selection:  engine.DefaultSelectPolicy(),
		Highlights: config.DefaultHighlights,
		DefaultTop: config.DefaultTop,
		Bins:       config.DefaultBins,
		Ranges:     engine.DefaultRanges(),
	}
}

// PolicyFromConfig builds a Policy from a validated server configuration.
func PolicyFromConfig(s config.ServerConfig) Policy {
	th := s.Thresholds
	p := Policy{
		Evaluation: bands(th.Evaluation),
		Selection: engine.SelectPolicy{
			Labels:      bands(th.Selection),
			BestCutoff:  th.BestCutoff,
			WorstCutoff: th.WorstCutoff,
		},
		Highlights: th.Highlights,
		DefaultTop: th.DefaultTop,
		Bins:       s.Distribution.DefaultBins,
		Ranges: engine.Ranges{
			Default:  toRange(s.Distribution.DefaultRange),
			ByMetric: make(map[string]engine.Range, len(s.Distribution.Ranges)),
		},
	}
	for metric, r := range s.Distribution.Ranges {
		p.Ranges.ByMetric[metric] = toRange(r)
	}
	return p
}

func bands(b config.Bands) engine.Thresholds {
	return engine.Thresholds{Great: b.Great, Good: b.Good, Poor: b.Poor}
}

// toRange expects a validated two-element slice.
func toRange(r []float64) engine.Range {
	return engine.Range{Lo: r[0], Hi: r[1]}
}
