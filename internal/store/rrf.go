package store

// rrfK is the reciprocal-rank-fusion damping constant. k=60 is the value
// most hybrid-search implementations in the ecosystem converge on; it
// keeps a rank-1 item from dominating a fused score by an overwhelming
// margin.
const rrfK = 60

// rankedList is one source's ranked candidate ids, best first.
type rankedList []string

// rrfFuse combines any number of ranked lists into a single fused score
// per candidate: fused(c) = Σ over lists L where c has rank r ≥ 0 of
// 1/(k + r + 1). A candidate absent from a list contributes nothing for
// that list. The result is not sorted; callers sort by descending score
// with a stable tiebreaker of their choosing.
func rrfFuse(lists ...rankedList) map[string]float64 {
	fused := make(map[string]float64)
	for _, list := range lists {
		for rank, id := range list {
			fused[id] += 1.0 / float64(rrfK+rank+1)
		}
	}
	return fused
}

// matchType records which source(s) produced a given fused result.
type matchType string

const (
	matchTypeFTS    matchType = "fts"
	matchTypeVector matchType = "vector"
	matchTypeHybrid matchType = "hybrid"
)

func matchTypeFor(inFTS, inVector bool) matchType {
	switch {
	case inFTS && inVector:
		return matchTypeHybrid
	case inVector:
		return matchTypeVector
	default:
		return matchTypeFTS
	}
}
