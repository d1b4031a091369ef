package clip

import (
	"context"
	"fmt"
	"slices"
)

// DotScorer ranks vectors by dot product with the query. For unit vectors
// this is cosine similarity.
type DotScorer struct{}

func (DotScorer) Similarity(_ context.Context, vectors [][]float32, query []float32, topK int) ([]int, []float64, error) {
	if len(vectors) == 0 || topK <= 0 {
		return []int{}, []float64{}, nil
	}
	scores := make([]float64, len(vectors))
	for i, v := range vectors {
		if len(v) != len(query) {
			return nil, nil, fmt.Errorf("vector %d has dimension %d, query has %d", i, len(v), len(query))
		}
		var s float64
		for j := range v {
			s += float64(v[j]) * float64(query[j])
		}
		scores[i] = s
	}

	order := make([]int, len(vectors))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case scores[a] > scores[b]:
			return -1
		case scores[a] < scores[b]:
			return 1
		default:
			return 0
		}
	})
	if len(order) > topK {
		order = order[:topK]
	}
	out := make([]float64, len(order))
	for i, idx := range order {
		out[i] = scores[idx]
	}
	return order, out, nil
}
