package commitment

import (
	"fmt"
	"testing"

	"github.com/trustmesh/rpn/types"
)

func makeLeaves(n int) [][32]byte {
	leaves := make([][32]byte, n)
	for i := range leaves {
		leaves[i] = HashLeaf([]byte(fmt.Sprintf("leaf-%d", i)))
	}
	return leaves
}

func TestProveVerifyAllIndices(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 7, 8, 9, 16, 31} {
		leaves := makeLeaves(n)
		root := ComputeRoot(leaves)
		for i := 0; i < n; i++ {
			proof, err := Prove(leaves, uint64(i))
			if err != nil {
				t.Fatalf("n=%d Prove(%d): %v", n, i, err)
			}
			if !Verify(root, leaves[i], proof, uint64(n)) {
				t.Errorf("n=%d proof for leaf %d does not verify", n, i)
			}
		}
	}
}

func TestVerifyRejectsTamperedLeaf(t *testing.T) {
	leaves := makeLeaves(8)
	root := ComputeRoot(leaves)
	proof, err := Prove(leaves, 3)
	if err != nil {
		t.Fatal(err)
	}
	bad := HashLeaf([]byte("forged"))
	if Verify(root, bad, proof, 8) {
		t.Error("forged leaf verified")
	}
}

func TestVerifyRejectsWrongIndex(t *testing.T) {
	leaves := makeLeaves(8)
	root := ComputeRoot(leaves)
	proof, err := Prove(leaves, 3)
	if err != nil {
		t.Fatal(err)
	}
	proof.Index = 4
	if Verify(root, leaves[3], proof, 8) {
		t.Error("proof verified under the wrong index")
	}
}

func TestProveOutOfRange(t *testing.T) {
	leaves := makeLeaves(4)
	if _, err := Prove(leaves, 4); err == nil {
		t.Error("expected out-of-range error")
	}
}

func TestSingleLeafTree(t *testing.T) {
	leaves := makeLeaves(1)
	root := ComputeRoot(leaves)
	if root != leaves[0] {
		t.Error("single-leaf root should be the leaf itself")
	}
	proof, err := Prove(leaves, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(proof.Siblings) != 0 {
		t.Errorf("single-leaf proof has %d siblings", len(proof.Siblings))
	}
	if !Verify(root, leaves[0], proof, 1) {
		t.Error("single-leaf proof does not verify")
	}
}

func TestEmptyTree(t *testing.T) {
	if ComputeRoot(nil) != ([32]byte{}) {
		t.Error("empty tree should commit to the zero digest")
	}
}

func TestRootDependsOnOrder(t *testing.T) {
	leaves := makeLeaves(4)
	root := ComputeRoot(leaves)
	leaves[0], leaves[1] = leaves[1], leaves[0]
	if ComputeRoot(leaves) == root {
		t.Error("root ignores leaf order")
	}
}

func TestStepCommitRoundTrip(t *testing.T) {
	steps := make([]types.StepRecord, 5)
	for i := range steps {
		steps[i] = types.StepRecord{
			Index:     uint64(i),
			Pass:      uint32(i / 2),
			Account:   fmt.Sprintf("acct-%d", i),
			PrevScore: types.Score(i * 100),
			NewScore:  types.Score(i*100 + 7),
		}
	}
	root := CommitSteps(steps)
	for i := range steps {
		proof, err := ProveStep(steps, uint64(i))
		if err != nil {
			t.Fatal(err)
		}
		if !VerifyStep(root, &steps[i], proof, uint64(len(steps))) {
			t.Errorf("step %d inclusion does not verify", i)
		}
	}

	// a mutated record must not verify against the committed root
	proof, _ := ProveStep(steps, 2)
	forged := steps[2]
	forged.NewScore++
	if VerifyStep(root, &forged, proof, uint64(len(steps))) {
		t.Error("mutated step verified")
	}
}

func TestStateRootSensitivity(t *testing.T) {
	accounts := []string{"alice", "bob", "carol"}
	scores := map[string]types.Score{"alice": 100, "bob": 200, "carol": 300}
	at := func(a string) types.Score { return scores[a] }
	root := StateRoot(accounts, at)

	scores["bob"]++
	if StateRoot(accounts, at) == root {
		t.Error("state root ignores a score change")
	}
	scores["bob"]--
	if StateRoot(accounts, at) != root {
		t.Error("state root is not deterministic")
	}
}
