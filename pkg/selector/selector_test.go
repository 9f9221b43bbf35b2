package selector

import (
	"errors"
	"testing"

	"github.com/jalapeno-sdn/srctl/pkg/jalapeno"
	"github.com/jalapeno-sdn/srctl/pkg/util"
)

// candidates builds paths with the given hop counts, in upstream rank order.
// Each path gets a distinguishable uSID so order can be asserted.
func candidates(hops ...int) []jalapeno.CandidatePath {
	out := make([]jalapeno.CandidatePath, len(hops))
	for i, h := range hops {
		out[i] = jalapeno.CandidatePath{
			HopCount: h,
			SRv6:     jalapeno.SRv6Data{USID: usidFor(i)},
		}
	}
	return out
}

func usidFor(i int) string {
	return "fc00:0:0:" + string(rune('a'+i))
}

func usids(r Result) []string {
	out := make([]string, len(r))
	for i, p := range r {
		out[i] = p.Path.SRv6.USID
	}
	return out
}

func TestSelectBestPaths(t *testing.T) {
	t.Run("takes first N in upstream order", func(t *testing.T) {
		got, err := Select(Strategy{Type: BestPaths, Limit: 2}, candidates(3, 3, 4, 5))
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("selected %d paths, want 2", len(got))
		}
		if got[0].Criterion != CriterionBest || got[1].Criterion != CriterionRanked {
			t.Errorf("criteria = %v, %v", got[0].Criterion, got[1].Criterion)
		}
		if got[0].Rank != 0 || got[1].Rank != 1 {
			t.Errorf("ranks = %d, %d", got[0].Rank, got[1].Rank)
		}
	})

	t.Run("limit above candidate count", func(t *testing.T) {
		got, err := Select(Strategy{Type: BestPaths, Limit: 10}, candidates(3, 4))
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("selected %d paths, want 2", len(got))
		}
	})

	t.Run("zero limit is invalid", func(t *testing.T) {
		_, err := Select(Strategy{Type: BestPaths}, candidates(3))
		if !errors.Is(err, util.ErrInvalidParameter) {
			t.Errorf("want ErrInvalidParameter, got %v", err)
		}
	})

	t.Run("zero candidates is not an error", func(t *testing.T) {
		got, err := Select(Strategy{Type: BestPaths, Limit: 4}, nil)
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("selected %d paths, want 0", len(got))
		}
	})
}

func TestSelectShortestPath(t *testing.T) {
	got, err := Select(Strategy{Type: ShortestPath}, candidates(3, 3, 4))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("selected %d paths, want 1", len(got))
	}
	if got[0].Criterion != CriterionBest {
		t.Errorf("criterion = %v", got[0].Criterion)
	}
}

func TestSelectNextBestPath(t *testing.T) {
	t.Run("best plus bounded alternates", func(t *testing.T) {
		// hop counts: best=3, two same-hop, two plus-one, one too long
		cands := candidates(3, 3, 3, 4, 4, 6)
		got, err := Select(Strategy{Type: NextBestPath, SameHopLimit: 1, PlusOneLimit: 1}, cands)
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		want := []string{usidFor(0), usidFor(1), usidFor(3)}
		gotIDs := usids(got)
		if len(gotIDs) != len(want) {
			t.Fatalf("selected %v, want %v", gotIDs, want)
		}
		for i := range want {
			if gotIDs[i] != want[i] {
				t.Errorf("position %d: got %s, want %s", i, gotIDs[i], want[i])
			}
		}
		if got[1].Criterion != CriterionSameHop || got[2].Criterion != CriterionPlusOne {
			t.Errorf("criteria = %v, %v", got[1].Criterion, got[2].Criterion)
		}
	})

	t.Run("upstream order preserved among equal hop counts", func(t *testing.T) {
		got, err := Select(Strategy{Type: NextBestPath, SameHopLimit: 3}, candidates(3, 3, 3, 3))
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		want := []string{usidFor(0), usidFor(1), usidFor(2), usidFor(3)}
		gotIDs := usids(got)
		for i := range want {
			if gotIDs[i] != want[i] {
				t.Errorf("position %d: got %s, want %s", i, gotIDs[i], want[i])
			}
		}
	})

	t.Run("longer paths excluded", func(t *testing.T) {
		got, err := Select(Strategy{Type: NextBestPath, SameHopLimit: 5, PlusOneLimit: 5}, candidates(3, 5, 6))
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("selected %d paths, want only the best", len(got))
		}
	})

	t.Run("zero limits select only the best", func(t *testing.T) {
		got, err := Select(Strategy{Type: NextBestPath}, candidates(3, 3, 4))
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if len(got) != 1 || got[0].Criterion != CriterionBest {
			t.Errorf("got %v", got)
		}
	})

	t.Run("negative limits rejected", func(t *testing.T) {
		_, err := Select(Strategy{Type: NextBestPath, SameHopLimit: -1}, candidates(3))
		if !errors.Is(err, util.ErrInvalidParameter) {
			t.Errorf("want ErrInvalidParameter, got %v", err)
		}
	})

	t.Run("zero candidates", func(t *testing.T) {
		got, err := Select(Strategy{Type: NextBestPath, SameHopLimit: 2}, nil)
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("selected %d paths, want 0", len(got))
		}
	})
}

func TestSelectUnknownStrategy(t *testing.T) {
	_, err := Select(Strategy{Type: "widest-path"}, candidates(3))
	if !errors.Is(err, util.ErrInvalidParameter) {
		t.Errorf("want ErrInvalidParameter, got %v", err)
	}
}
