package graph

import (
	"path/filepath"
	"testing"

	"github.com/trustmesh/rpn/errors"
	"github.com/trustmesh/rpn/store"
	"github.com/trustmesh/rpn/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	stores, err := store.CreateStores(&store.StoreConfig{
		Type:      store.LevelDBStoreType,
		Directory: filepath.Join(t.TempDir(), "graph"),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(stores.MustClose)

	s := NewStore(stores.Graph, nil)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	return s
}

func half() types.Score { return types.Score(types.ScoreScale / 2) }

func TestUpsertEdgeValidation(t *testing.T) {
	s := newTestStore(t)

	if err := s.UpsertEdge("alice", "alice", half()); !errors.IsCode(err, errors.ErrCodeInvalidEdge) {
		t.Errorf("self trust: %v", err)
	}
	if err := s.UpsertEdge("alice", "bob", 0); !errors.IsCode(err, errors.ErrCodeInvalidEdge) {
		t.Errorf("zero weight: %v", err)
	}
	if err := s.UpsertEdge("alice", "bob", half()); err != nil {
		t.Fatal(err)
	}
	if w, ok := s.GetEdge("alice", "bob"); !ok || w != half() {
		t.Errorf("GetEdge = %v, %v", w, ok)
	}
}

func TestUpsertEdgeOverwrites(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpsertEdge("alice", "bob", half()); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertEdge("alice", "bob", types.Score(types.ScoreScale)); err != nil {
		t.Fatal(err)
	}
	if s.EdgeCount() != 1 {
		t.Errorf("edge count = %d after overwrite", s.EdgeCount())
	}
	if w, _ := s.GetEdge("alice", "bob"); w != types.Score(types.ScoreScale) {
		t.Errorf("weight = %v after overwrite", w)
	}
}

func TestRemoveEdgeIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpsertEdge("alice", "bob", half()); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveEdge("alice", "bob"); err != nil {
		t.Fatal(err)
	}
	// removing again is a no-op
	if err := s.RemoveEdge("alice", "bob"); err != nil {
		t.Errorf("second removal: %v", err)
	}
	if s.EdgeCount() != 0 {
		t.Errorf("edge count = %d", s.EdgeCount())
	}
}

func TestSnapshotRequiresSeeds(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpsertEdge("alice", "bob", half()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Snapshot(1, 10); !errors.IsCode(err, errors.ErrCodeEmptySeedSet) {
		t.Errorf("expected empty seed set error, got %v", err)
	}

	if err := s.SetSeeds([]string{"alice"}); err != nil {
		t.Fatal(err)
	}
	snap, err := s.Snapshot(1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Epoch != 1 || snap.CreatedAt != 10 {
		t.Errorf("snapshot meta = %d/%d", snap.Epoch, snap.CreatedAt)
	}
	if len(snap.Edges) != 1 || !snap.IsSeed("alice") {
		t.Error("snapshot content wrong")
	}
}

func TestSnapshotIsFrozen(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpsertEdge("alice", "bob", half()); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSeeds([]string{"alice"}); err != nil {
		t.Fatal(err)
	}
	snap, err := s.Snapshot(1, 10)
	if err != nil {
		t.Fatal(err)
	}
	digest := snap.Digest()

	// later graph mutations must not affect the frozen snapshot
	if err := s.UpsertEdge("bob", "carol", half()); err != nil {
		t.Fatal(err)
	}
	if snap.Digest() != digest {
		t.Error("snapshot changed after a live-graph mutation")
	}
	if len(snap.Edges) != 1 {
		t.Error("snapshot gained an edge")
	}
}

func TestLoadRestoresPersistedGraph(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "persist")
	stores, err := store.CreateStores(&store.StoreConfig{Type: store.LevelDBStoreType, Directory: dir})
	if err != nil {
		t.Fatal(err)
	}

	s := NewStore(stores.Graph, nil)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertEdge("alice", "bob", half()); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSeeds([]string{"alice"}); err != nil {
		t.Fatal(err)
	}
	stores.MustClose()

	stores2, err := store.CreateStores(&store.StoreConfig{Type: store.LevelDBStoreType, Directory: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer stores2.MustClose()

	restored := NewStore(stores2.Graph, nil)
	if err := restored.Load(); err != nil {
		t.Fatal(err)
	}
	if restored.EdgeCount() != 1 {
		t.Errorf("restored edge count = %d", restored.EdgeCount())
	}
	if seeds := restored.Seeds(); len(seeds) != 1 || seeds[0] != "alice" {
		t.Errorf("restored seeds = %v", seeds)
	}
}
