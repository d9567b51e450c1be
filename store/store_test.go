package store

import (
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"

	"github.com/trustmesh/rpn/types"
)

func newTestStores(t *testing.T, storeType StoreType) *Stores {
	t.Helper()
	stores, err := CreateStores(&StoreConfig{
		Type:      storeType,
		Directory: filepath.Join(t.TempDir(), string(storeType)),
	})
	if err != nil {
		t.Fatalf("CreateStores(%s): %v", storeType, err)
	}
	t.Cleanup(stores.MustClose)
	return stores
}

func forEachBackend(t *testing.T, fn func(t *testing.T, stores *Stores)) {
	for _, st := range []StoreType{LevelDBStoreType, BoltStoreType} {
		t.Run(string(st), func(t *testing.T) {
			fn(t, newTestStores(t, st))
		})
	}
}

func TestStoreConfigValidate(t *testing.T) {
	if err := (&StoreConfig{Type: "", Directory: "x"}).Validate(); err == nil {
		t.Error("empty type should fail")
	}
	if err := (&StoreConfig{Type: "redis", Directory: "x"}).Validate(); err == nil {
		t.Error("unsupported type should fail")
	}
	if err := (&StoreConfig{Type: LevelDBStoreType, Directory: ""}).Validate(); err == nil {
		t.Error("empty directory should fail")
	}
	if err := (&StoreConfig{Type: BoltStoreType, Directory: "x"}).Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestGraphStoreRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, stores *Stores) {
		edge := &types.TrustEdge{From: "alice", To: "bob", Weight: types.Score(500_000_000)}
		if err := stores.Graph.StoreEdge(edge); err != nil {
			t.Fatal(err)
		}

		got, err := stores.Graph.GetEdge("alice", "bob")
		if err != nil {
			t.Fatal(err)
		}
		if got == nil || got.Weight != edge.Weight {
			t.Fatalf("got %+v", got)
		}

		missing, err := stores.Graph.GetEdge("alice", "carol")
		if err != nil {
			t.Fatal(err)
		}
		if missing != nil {
			t.Errorf("expected nil for missing edge, got %+v", missing)
		}

		if err := stores.Graph.StoreEdge(&types.TrustEdge{From: "bob", To: "carol", Weight: 1}); err != nil {
			t.Fatal(err)
		}
		all, err := stores.Graph.GetAllEdges()
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 2 {
			t.Errorf("GetAllEdges returned %d edges", len(all))
		}

		if err := stores.Graph.RemoveEdge("alice", "bob"); err != nil {
			t.Fatal(err)
		}
		got, err = stores.Graph.GetEdge("alice", "bob")
		if err != nil {
			t.Fatal(err)
		}
		if got != nil {
			t.Error("edge survived removal")
		}
	})
}

func TestGraphStoreSeeds(t *testing.T) {
	forEachBackend(t, func(t *testing.T, stores *Stores) {
		seeds, err := stores.Graph.GetSeeds()
		if err != nil {
			t.Fatal(err)
		}
		if seeds != nil {
			t.Errorf("fresh store has seeds %v", seeds)
		}
		if err := stores.Graph.StoreSeeds([]string{"alice", "bob"}); err != nil {
			t.Fatal(err)
		}
		seeds, err = stores.Graph.GetSeeds()
		if err != nil {
			t.Fatal(err)
		}
		if len(seeds) != 2 || seeds[0] != "alice" {
			t.Errorf("seeds = %v", seeds)
		}
	})
}

func TestSnapshotStoreWriteOnce(t *testing.T) {
	forEachBackend(t, func(t *testing.T, stores *Stores) {
		snap := types.NewGraphSnapshot(5, 100, []types.TrustEdge{
			{From: "a", To: "b", Weight: 7},
		}, []string{"a"})

		if err := stores.Snapshots.Store(snap); err != nil {
			t.Fatal(err)
		}
		if err := stores.Snapshots.Store(snap); err == nil {
			t.Error("snapshot overwrite should fail")
		}

		got, err := stores.Snapshots.GetByEpoch(5)
		if err != nil {
			t.Fatal(err)
		}
		if got == nil || got.Digest() != snap.Digest() {
			t.Error("snapshot digest changed across persistence")
		}
		// derived indexes must be rebuilt on load
		if len(got.Inbound("b")) != 1 || !got.IsSeed("a") {
			t.Error("snapshot indexes not rebuilt on load")
		}

		absent, err := stores.Snapshots.GetByEpoch(6)
		if err != nil {
			t.Fatal(err)
		}
		if absent != nil {
			t.Error("expected nil for missing epoch")
		}
	})
}

func TestSubmissionStoreRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, stores *Stores) {
		id := SubmissionID(3, "node1")
		if id != "3:node1" {
			t.Fatalf("SubmissionID = %q", id)
		}
		sub := &types.Submission{
			ID:        id,
			Epoch:     3,
			Submitter: "node1",
			StepCount: 12,
			Stake:     uint256.NewInt(1000),
			Status:    types.SubmissionOpen,
		}
		if err := stores.Submissions.Store(sub); err != nil {
			t.Fatal(err)
		}
		got, err := stores.Submissions.GetByID(id)
		if err != nil {
			t.Fatal(err)
		}
		if got == nil || got.StepCount != 12 || got.Stake.Uint64() != 1000 {
			t.Fatalf("got %+v", got)
		}

		all, err := stores.Submissions.GetAll()
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 1 {
			t.Errorf("GetAll returned %d submissions", len(all))
		}
	})
}

func TestChallengeStoreKeyedBySubmission(t *testing.T) {
	forEachBackend(t, func(t *testing.T, stores *Stores) {
		game := &types.ChallengeGame{
			ID:           "3:node1",
			SubmissionID: "3:node1",
			Challenger:   "watcher",
			Stake:        uint256.NewInt(500),
			Lo:           0,
			Hi:           11,
			Status:       types.GameBisecting,
		}
		if err := stores.Challenges.Store(game); err != nil {
			t.Fatal(err)
		}
		got, err := stores.Challenges.GetBySubmissionID("3:node1")
		if err != nil {
			t.Fatal(err)
		}
		if got == nil || got.Hi != 11 || got.Challenger != "watcher" {
			t.Fatalf("got %+v", got)
		}

		if err := stores.Challenges.Delete("3:node1"); err != nil {
			t.Fatal(err)
		}
		got, err = stores.Challenges.GetBySubmissionID("3:node1")
		if err != nil {
			t.Fatal(err)
		}
		if got != nil {
			t.Error("game survived deletion")
		}
	})
}

func TestScoreStoreEpochScores(t *testing.T) {
	forEachBackend(t, func(t *testing.T, stores *Stores) {
		if _, ok, err := stores.Scores.LatestEpoch(); err != nil || ok {
			t.Fatalf("fresh store: epoch ok=%v err=%v", ok, err)
		}
		// unknown accounts default to zero
		score, err := stores.Scores.GetByAccount("nobody")
		if err != nil {
			t.Fatal(err)
		}
		if score != 0 {
			t.Errorf("unknown account score = %d", score)
		}

		err = stores.Scores.StoreEpochScores(4, map[string]types.Score{
			"alice": 1_000_000_000,
			"bob":   250_000_000,
		})
		if err != nil {
			t.Fatal(err)
		}

		epoch, ok, err := stores.Scores.LatestEpoch()
		if err != nil || !ok || epoch != 4 {
			t.Fatalf("latest epoch = %d ok=%v err=%v", epoch, ok, err)
		}
		score, err = stores.Scores.GetByAccount("bob")
		if err != nil {
			t.Fatal(err)
		}
		if score != 250_000_000 {
			t.Errorf("bob = %d", score)
		}
	})
}
