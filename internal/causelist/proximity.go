package causelist

// DefaultMaxDistance is the remark/heading association cutoff in pixels at BaseDPI.
const (
	DefaultMaxDistance = 60
	BaseDPI            = 400
)

// Candidate is a value found at a vertical position on the page.
type Candidate[T any] struct {
	Pos   int
	Value T
}

// ScaleDistance converts a cutoff measured at BaseDPI to the given rendering DPI.
func ScaleDistance(px, dpi int) int {
	if dpi <= 0 {
		return px
	}
	return px * dpi / BaseDPI
}

// AssignByProximity maps each candidate to the target with the smallest absolute vertical
// distance. Candidates farther than maxDistance from every target are dropped; when several
// candidates pick the same target the closest one wins (the earlier one on ties).
// The result is keyed by target index.
func AssignByProximity[T any](candidates []Candidate[T], targets []int, maxDistance int) map[int]T {
	out := make(map[int]T)
	if len(targets) == 0 {
		return out
	}
	best := make(map[int]int)
	for _, c := range candidates {
		idx, dist := -1, 0
		for i, pos := range targets {
			d := abs(c.Pos - pos)
			if idx < 0 || d < dist {
				idx, dist = i, d
			}
		}
		if dist > maxDistance {
			continue
		}
		if prev, ok := best[idx]; ok && prev <= dist {
			continue
		}
		best[idx] = dist
		out[idx] = c.Value
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
