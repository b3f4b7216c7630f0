package metric

import (
	"math"
	"sort"

	"github.com/MishaelXV/Diplom-project/internal/thermal"
)

// BoundaryScore compares detected boundaries with the true ones after the
// interval counts have been matched.
type BoundaryScore struct {
	Total       float64   `json:"total"`
	MAE         float64   `json:"mae"`
	MSE         float64   `json:"mse"`
	RMSE        float64   `json:"rmse"`
	RelativeMAE float64   `json:"relative_mae"` // Total as a percentage of the true open length
	LeftErrors  []float64 `json:"left_errors"`
	RightErrors []float64 `json:"right_errors"`
}

// MatchCount trims or pads found so that it has want segments. Surplus
// segments are dropped shortest first, keeping depth order; missing ones are
// added as zero-length segments at depth 0 in front.
func MatchCount(found thermal.Boundaries, want int) thermal.Boundaries {
	k := found.Len()
	switch {
	case k == want:
		return found.Clone()
	case k > want:
		idx := make([]int, k)
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			la := found.Right[idx[a]] - found.Left[idx[a]]
			lb := found.Right[idx[b]] - found.Left[idx[b]]
			return la > lb
		})
		keep := idx[:want]
		sort.Ints(keep)

		out := thermal.Boundaries{Left: make([]float64, want), Right: make([]float64, want)}
		for i, j := range keep {
			out.Left[i] = found.Left[j]
			out.Right[i] = found.Right[j]
		}
		return out
	default:
		pad := want - k
		out := thermal.Boundaries{Left: make([]float64, pad, want), Right: make([]float64, pad, want)}
		out.Left = append(out.Left, found.Left...)
		out.Right = append(out.Right, found.Right...)
		return out
	}
}

// BoundaryErrors scores found against truth. It returns the zero score when
// truth has no segments.
func BoundaryErrors(truth, found thermal.Boundaries) BoundaryScore {
	k := truth.Len()
	if k == 0 {
		return BoundaryScore{}
	}
	adj := MatchCount(found, k)

	s := BoundaryScore{
		LeftErrors:  make([]float64, k),
		RightErrors: make([]float64, k),
	}
	var sq, length float64
	for i := 0; i < k; i++ {
		l := math.Abs(truth.Left[i] - adj.Left[i])
		r := math.Abs(truth.Right[i] - adj.Right[i])
		s.LeftErrors[i], s.RightErrors[i] = l, r
		s.Total += l + r
		sq += l*l + r*r
		length += truth.Right[i] - truth.Left[i]
	}

	n := float64(2 * k)
	s.MAE = s.Total / n
	s.MSE = sq / n
	s.RMSE = math.Sqrt(s.MSE)
	if length > 0 {
		s.RelativeMAE = s.Total / length * 100
	}
	return s
}
