package services

import (
	"fmt"
	"slices"
	"sort"
)

const quintiles = 5

// quantileEdges returns the q+1 bin edges at probabilities 0, 1/q, ..., 1,
// interpolating linearly between order statistics.
func quantileEdges(values []float64, q int) []float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	n := len(sorted)
	edges := make([]float64, q+1)
	for i := 0; i <= q; i++ {
		pos := float64(n-1) * float64(i) / float64(q)
		lo := int(pos)
		hi := min(lo+1, n-1)
		frac := pos - float64(lo)
		edges[i] = sorted[lo] + frac*(sorted[hi]-sorted[lo])
	}
	return edges
}

// qcut assigns each value a zero-based bin among q equal-population
// bins. Bins are right-closed and the lowest edge belongs to the first
// bin. It fails when two edges coincide.
func qcut(values []float64, q int) ([]int, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("no values to bin")
	}

	edges := quantileEdges(values, q)
	for i := 1; i < len(edges); i++ {
		if edges[i] == edges[i-1] {
			return nil, fmt.Errorf("bin edges must be unique: %v", edges)
		}
	}

	bins := make([]int, len(values))
	upper := edges[1:]
	for i, v := range values {
		bins[i] = sort.SearchFloat64s(upper, v)
	}
	return bins, nil
}

// rankFirst ranks values 1..n ascending, breaking ties by position.
func rankFirst(values []float64) []float64 {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case values[a] < values[b]:
			return -1
		case values[a] > values[b]:
			return 1
		default:
			return 0
		}
	})

	ranks := make([]float64, len(values))
	for rank, idx := range order {
		ranks[idx] = float64(rank + 1)
	}
	return ranks
}
