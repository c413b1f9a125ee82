package engine

import (
	"cmp"
	"slices"

	"github.com/majewsky/gg/option"
)

// meanAcc accumulates a mean that skips nulls.
type meanAcc struct {
	sum float64
	n   int
}

func (a *meanAcc) add(v option.Option[float64]) {
	if x, ok := v.Unpack(); ok {
		a.sum += x
		a.n++
	}
}

// value is null when every input was null.
func (a meanAcc) value() option.Option[float64] {
	if a.n == 0 {
		return option.None[float64]()
	}
	return option.Some(a.sum / float64(a.n))
}

func mean(vs []option.Option[float64]) option.Option[float64] {
	var a meanAcc
	for _, v := range vs {
		a.add(v)
	}
	return a.value()
}

// pctRank ranks values in (0, 1] with ties sharing their average position.
func pctRank(vs []float64) []float64 {
	n := len(vs)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(vs[a], vs[b]) })

	out := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && vs[order[j+1]] == vs[order[i]] {
			j++
		}
		// positions i..j (0-based) share rank mean(i+1..j+1)
		avg := float64(i+j+2) / 2
		for k := i; k <= j; k++ {
			out[order[k]] = avg / float64(n)
		}
		i = j + 1
	}
	return out
}

func ptr(v option.Option[float64]) *float64 {
	if x, ok := v.Unpack(); ok {
		return &x
	}
	return nil
}
