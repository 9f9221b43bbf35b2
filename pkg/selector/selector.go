// Package selector applies a path-selection strategy to candidate paths
// returned by the upstream graph service.
//
// Selection is a stable filter over upstream order: the upstream ranking is
// authoritative for a given metric and is never re-sorted locally, including
// among paths with equal hop count.
package selector

import (
	"fmt"

	"github.com/jalapeno-sdn/srctl/pkg/jalapeno"
	"github.com/jalapeno-sdn/srctl/pkg/util"
)

// StrategyType names a selection strategy.
type StrategyType string

const (
	// BestPaths takes the first Limit candidates in upstream rank order.
	BestPaths StrategyType = "best-paths"
	// NextBestPath takes the best path, then up to SameHopLimit equal-hop
	// alternates, then up to PlusOneLimit alternates one hop longer.
	NextBestPath StrategyType = "next-best-path"
	// ShortestPath is best-paths(1). This is what graph RouteSpecs use.
	ShortestPath StrategyType = "shortest_path"
)

// Strategy is a selection strategy with its parameters.
type Strategy struct {
	Type         StrategyType
	Limit        int // best-paths: must be > 0
	SameHopLimit int // next-best-path: extra equal-hop paths (default 0)
	PlusOneLimit int // next-best-path: extra best+1-hop paths (default 0)
}

// Criterion records why a path was selected.
type Criterion string

const (
	CriterionBest    Criterion = "best"
	CriterionRanked  Criterion = "ranked"
	CriterionSameHop Criterion = "same-hopcount"
	CriterionPlusOne Criterion = "plus-one-hopcount"
)

// SelectedPath is one chosen candidate, tagged with its selection rank and
// the criterion that admitted it.
type SelectedPath struct {
	Path      jalapeno.CandidatePath
	Rank      int
	Criterion Criterion
}

// Result is the ordered set of chosen paths.
type Result []SelectedPath

// Select applies a strategy to candidates. Zero candidates yields an empty
// result, not an error — callers decide whether that blocks installation.
func Select(s Strategy, candidates []jalapeno.CandidatePath) (Result, error) {
	switch s.Type {
	case BestPaths:
		return selectBestPaths(s.Limit, candidates)
	case ShortestPath:
		return selectBestPaths(1, candidates)
	case NextBestPath:
		if s.SameHopLimit < 0 || s.PlusOneLimit < 0 {
			return nil, fmt.Errorf("%w: next-best-path limits must be >= 0", util.ErrInvalidParameter)
		}
		return selectNextBest(s.SameHopLimit, s.PlusOneLimit, candidates), nil
	default:
		return nil, fmt.Errorf("%w: unknown strategy '%s'", util.ErrInvalidParameter, s.Type)
	}
}

func selectBestPaths(limit int, candidates []jalapeno.CandidatePath) (Result, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: best-paths limit must be > 0", util.ErrInvalidParameter)
	}
	if limit > len(candidates) {
		limit = len(candidates)
	}
	result := make(Result, 0, limit)
	for i := 0; i < limit; i++ {
		crit := CriterionRanked
		if i == 0 {
			crit = CriterionBest
		}
		result = append(result, SelectedPath{Path: candidates[i], Rank: i, Criterion: crit})
	}
	return result, nil
}

// selectNextBest models "the optimal path plus a bounded number of equal-cost
// and near-optimal alternates" for multipath/backup installation. Candidates
// whose hop count is neither best nor best+1 are excluded.
func selectNextBest(sameHopLimit, plusOneLimit int, candidates []jalapeno.CandidatePath) Result {
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	result := Result{{Path: best, Rank: 0, Criterion: CriterionBest}}

	sameHop, plusOne := 0, 0
	for _, c := range candidates[1:] {
		switch c.HopCount {
		case best.HopCount:
			if sameHop < sameHopLimit {
				result = append(result, SelectedPath{Path: c, Rank: len(result), Criterion: CriterionSameHop})
				sameHop++
			}
		case best.HopCount + 1:
			if plusOne < plusOneLimit {
				result = append(result, SelectedPath{Path: c, Rank: len(result), Criterion: CriterionPlusOne})
				plusOne++
			}
		}
	}
	return result
}
