package engine

import (
	"fmt"
	"testing"

	fuzz "github.com/google/gofuzz"

	"github.com/trustmesh/rpn/errors"
	"github.com/trustmesh/rpn/types"
)

func mustScore(t *testing.T, s string) types.Score {
	t.Helper()
	score, err := types.ParseScore(s)
	if err != nil {
		t.Fatalf("ParseScore(%q): %v", s, err)
	}
	return score
}

func chainSnapshot(t *testing.T) *types.GraphSnapshot {
	// A(seed) -> B -> C, both with weight 0.5
	half := mustScore(t, "0.5")
	return types.NewGraphSnapshot(1, 10, []types.TrustEdge{
		{From: "A", To: "B", Weight: half},
		{From: "B", To: "C", Weight: half},
	}, []string{"A"})
}

func TestVisitOrderChain(t *testing.T) {
	order := VisitOrder(chainSnapshot(t))
	if len(order) != 2 || order[0] != "B" || order[1] != "C" {
		t.Fatalf("order = %v, want [B C]", order)
	}
}

func TestVisitOrderLevelTies(t *testing.T) {
	one := types.Score(types.ScoreScale)
	snap := types.NewGraphSnapshot(0, 0, []types.TrustEdge{
		{From: "seed", To: "zebra", Weight: one},
		{From: "seed", To: "ant", Weight: one},
		{From: "zebra", To: "mid", Weight: one},
	}, []string{"seed"})
	order := VisitOrder(snap)
	want := []string{"ant", "zebra", "mid"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestVisitOrderExcludesSeedsAndUnreachable(t *testing.T) {
	one := types.Score(types.ScoreScale)
	snap := types.NewGraphSnapshot(0, 0, []types.TrustEdge{
		{From: "seed", To: "b", Weight: one},
		{From: "island", To: "islander", Weight: one},
		{From: "b", To: "seed", Weight: one}, // edge back into the seed
	}, []string{"seed"})
	order := VisitOrder(snap)
	if len(order) != 1 || order[0] != "b" {
		t.Fatalf("order = %v, want [b]", order)
	}
}

func TestPropagateChain(t *testing.T) {
	snap := chainSnapshot(t)
	res, err := Propagate(snap, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Converged {
		t.Error("expected convergence")
	}
	if res.Passes != 2 {
		t.Errorf("passes = %d, want 2", res.Passes)
	}
	if len(res.Steps) != 4 {
		t.Errorf("steps = %d, want 4", len(res.Steps))
	}
	if got := res.Scores["A"]; got != mustScore(t, "1") {
		t.Errorf("A = %s, want 1", got)
	}
	if got := res.Scores["B"]; got != mustScore(t, "0.5") {
		t.Errorf("B = %s, want 0.5", got)
	}
	if got := res.Scores["C"]; got != mustScore(t, "0.25") {
		t.Errorf("C = %s, want 0.25", got)
	}
}

func TestPropagateDecay(t *testing.T) {
	snap := chainSnapshot(t)
	params := DefaultParams()
	params.Decay = mustScore(t, "0.8")
	res, err := Propagate(snap, params)
	if err != nil {
		t.Fatal(err)
	}
	// B = 0.8 * (0.5 * 1) = 0.4, C = 0.8 * (0.5 * 0.4) = 0.16
	if got := res.Scores["B"]; got != mustScore(t, "0.4") {
		t.Errorf("B = %s, want 0.4", got)
	}
	if got := res.Scores["C"]; got != mustScore(t, "0.16") {
		t.Errorf("C = %s, want 0.16", got)
	}
}

func TestPropagateCapsAtMaxScore(t *testing.T) {
	one := types.Score(types.ScoreScale)
	snap := types.NewGraphSnapshot(0, 0, []types.TrustEdge{
		{From: "s1", To: "hub", Weight: one},
		{From: "s2", To: "hub", Weight: one},
	}, []string{"s1", "s2"})
	res, err := Propagate(snap, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Scores["hub"]; got != one {
		t.Errorf("hub = %s, want capped at 1", got)
	}
}

func TestPropagateCycleTerminates(t *testing.T) {
	half := types.Score(types.ScoreScale / 2)
	snap := types.NewGraphSnapshot(0, 0, []types.TrustEdge{
		{From: "seed", To: "x", Weight: half},
		{From: "x", To: "y", Weight: half},
		{From: "y", To: "x", Weight: half},
	}, []string{"seed"})
	params := DefaultParams()
	res, err := Propagate(snap, params)
	if err != nil {
		t.Fatal(err)
	}
	if res.Passes > params.MaxPasses {
		t.Errorf("passes = %d exceeds bound %d", res.Passes, params.MaxPasses)
	}
	if uint64(len(res.Steps)) != uint64(res.Passes)*2 {
		t.Errorf("steps = %d not a whole multiple of the order length", len(res.Steps))
	}
}

func TestPropagateEmptySeedSet(t *testing.T) {
	snap := types.NewGraphSnapshot(0, 0, []types.TrustEdge{
		{From: "a", To: "b", Weight: types.Score(types.ScoreScale)},
	}, nil)
	_, err := Propagate(snap, DefaultParams())
	if err == nil {
		t.Fatal("expected error for empty seed set")
	}
	if !errors.IsCode(err, errors.ErrCodeEmptySeedSet) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPropagateAccountLimit(t *testing.T) {
	params := DefaultParams()
	params.MaxAccounts = 2
	_, err := Propagate(chainSnapshot(t), params)
	if err == nil {
		t.Fatal("expected quantity limit error")
	}
	if !errors.IsCode(err, errors.ErrCodeQuantityLimit) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPropagateDeterministic(t *testing.T) {
	snap := chainSnapshot(t)
	params := DefaultParams()
	a, err := Propagate(snap, params)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Propagate(snap, params)
	if err != nil {
		t.Fatal(err)
	}
	if a.FinalDigest != b.FinalDigest || a.InitialDigest != b.InitialDigest {
		t.Fatal("digests differ across runs")
	}
	if len(a.Steps) != len(b.Steps) {
		t.Fatal("step counts differ across runs")
	}
	for i := range a.Steps {
		if string(a.Steps[i].Encode()) != string(b.Steps[i].Encode()) {
			t.Fatalf("step %d differs across runs", i)
		}
	}
}

func TestPropagateDeterministicFuzz(t *testing.T) {
	f := fuzz.New().NilChance(0)
	for trial := 0; trial < 25; trial++ {
		var edgeCount, accountCount uint8
		f.Fuzz(&edgeCount)
		f.Fuzz(&accountCount)
		n := int(accountCount%10) + 2
		var edges []types.TrustEdge
		for i := 0; i < int(edgeCount%20); i++ {
			var from, to, w uint16
			f.Fuzz(&from)
			f.Fuzz(&to)
			f.Fuzz(&w)
			a := fmt.Sprintf("acct-%d", int(from)%n)
			b := fmt.Sprintf("acct-%d", int(to)%n)
			if a == b {
				continue
			}
			weight := types.Score(uint64(w%1000)*types.ScoreScale/1000 + 1)
			edges = append(edges, types.TrustEdge{From: a, To: b, Weight: weight})
		}
		snap := types.NewGraphSnapshot(uint64(trial), 0, edges, []string{"acct-0"})
		params := DefaultParams()
		r1, err := Propagate(snap, params)
		if err != nil {
			t.Fatal(err)
		}
		r2, err := Propagate(snap, params)
		if err != nil {
			t.Fatal(err)
		}
		if r1.FinalDigest != r2.FinalDigest {
			t.Fatalf("trial %d: nondeterministic final digest", trial)
		}
	}
}

func TestValidStepCount(t *testing.T) {
	snap := chainSnapshot(t)
	params := DefaultParams() // order length 2, max 8 passes
	cases := []struct {
		count uint64
		want  bool
	}{
		{0, false},
		{1, false},
		{2, true},
		{3, false},
		{4, true},
		{16, true},
		{18, false},
	}
	for _, c := range cases {
		if got := ValidStepCount(snap, params, c.count); got != c.want {
			t.Errorf("ValidStepCount(%d) = %v, want %v", c.count, got, c.want)
		}
	}
}

func TestStepAccount(t *testing.T) {
	snap := chainSnapshot(t)
	params := DefaultParams()
	acct, pass, err := StepAccount(snap, params, 0)
	if err != nil || acct != "B" || pass != 0 {
		t.Errorf("step 0 = %s pass %d, err %v", acct, pass, err)
	}
	acct, pass, err = StepAccount(snap, params, 3)
	if err != nil || acct != "C" || pass != 1 {
		t.Errorf("step 3 = %s pass %d, err %v", acct, pass, err)
	}
	if _, _, err := StepAccount(snap, params, 16); err == nil {
		t.Error("expected error beyond the pass bound")
	}
}
