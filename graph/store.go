package graph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/trustmesh/rpn/errors"
	"github.com/trustmesh/rpn/events"
	"github.com/trustmesh/rpn/logx"
	"github.com/trustmesh/rpn/monitoring"
	"github.com/trustmesh/rpn/store"
	"github.com/trustmesh/rpn/types"
)

// Store holds the live, externally-mutated trust graph: directed weighted
// edges plus the privileged seed set. Snapshot is the sole read/copy boundary
// between this mutable state and the frozen inputs the propagation engine and
// commitment layer operate on.
type Store struct {
	mu      sync.RWMutex
	edges   map[string]map[string]types.Score // from -> to -> weight
	seeds   map[string]struct{}
	persist store.GraphStore // nil for purely in-memory use
	router  *events.EventRouter
}

// NewStore creates a graph store. persist and router may be nil.
func NewStore(persist store.GraphStore, router *events.EventRouter) *Store {
	return &Store{
		edges:   make(map[string]map[string]types.Score),
		seeds:   make(map[string]struct{}),
		persist: persist,
		router:  router,
	}
}

// Load rebuilds the in-memory mirror from the persisted store.
func (s *Store) Load() error {
	if s.persist == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	edges, err := s.persist.GetAllEdges()
	if err != nil {
		return fmt.Errorf("failed to load edges: %w", err)
	}
	s.edges = make(map[string]map[string]types.Score)
	for _, e := range edges {
		if s.edges[e.From] == nil {
			s.edges[e.From] = make(map[string]types.Score)
		}
		s.edges[e.From][e.To] = e.Weight
	}

	seeds, err := s.persist.GetSeeds()
	if err != nil {
		return fmt.Errorf("failed to load seed set: %w", err)
	}
	s.seeds = make(map[string]struct{}, len(seeds))
	for _, seed := range seeds {
		s.seeds[seed] = struct{}{}
	}

	logx.Info("GRAPH", fmt.Sprintf("Loaded trust graph | edges=%d seeds=%d", len(edges), len(seeds)))
	monitoring.SetTrustEdgeCount(len(edges))
	return nil
}

// UpsertEdge replaces any existing edge between the pair. Self-trust and
// zero-weight edges are rejected; zero-weight edges must be removed instead.
func (s *Store) UpsertEdge(from, to string, weight types.Score) error {
	if from == "" || to == "" {
		return errors.NewError(errors.ErrCodeInvalidEdge, errors.ErrMsgInvalidRequest)
	}
	if from == to {
		return errors.NewError(errors.ErrCodeInvalidEdge, errors.ErrMsgSelfTrust)
	}
	if weight == 0 {
		return errors.NewError(errors.ErrCodeInvalidEdge, errors.ErrMsgZeroWeight)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.StoreEdge(&types.TrustEdge{From: from, To: to, Weight: weight}); err != nil {
			return err
		}
	}
	if s.edges[from] == nil {
		s.edges[from] = make(map[string]types.Score)
	}
	s.edges[from][to] = weight

	monitoring.SetTrustEdgeCount(s.edgeCountLocked())
	s.router.Publish(events.NewEdgeUpdated(from, to, weight, false))
	return nil
}

// RemoveEdge deletes the edge; removing an absent edge is a no-op.
func (s *Store) RemoveEdge(from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.RemoveEdge(from, to); err != nil {
			return err
		}
	}
	if m, ok := s.edges[from]; ok {
		delete(m, to)
		if len(m) == 0 {
			delete(s.edges, from)
		}
	}

	monitoring.SetTrustEdgeCount(s.edgeCountLocked())
	s.router.Publish(events.NewEdgeUpdated(from, to, 0, true))
	return nil
}

// SetSeeds replaces the seed set. Governed externally; an empty set is allowed
// here but Snapshot fails closed on it.
func (s *Store) SetSeeds(seeds []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.StoreSeeds(seeds); err != nil {
			return err
		}
	}
	s.seeds = make(map[string]struct{}, len(seeds))
	for _, seed := range seeds {
		s.seeds[seed] = struct{}{}
	}
	return nil
}

// Seeds returns the current seed set sorted ascending.
func (s *Store) Seeds() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.seedsLocked()
}

func (s *Store) seedsLocked() []string {
	seeds := make([]string, 0, len(s.seeds))
	for seed := range s.seeds {
		seeds = append(seeds, seed)
	}
	sort.Strings(seeds)
	return seeds
}

// EdgeCount returns the number of live edges.
func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.edgeCountLocked()
}

func (s *Store) edgeCountLocked() int {
	count := 0
	for _, m := range s.edges {
		count += len(m)
	}
	return count
}

// GetEdge returns the weight of an edge and whether it exists.
func (s *Store) GetEdge(from, to string) (types.Score, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.edges[from][to]
	return w, ok
}

// Snapshot captures the current edge and seed sets by value into an immutable
// versioned view. Later mutations cannot retroactively change a taken
// snapshot. Fails closed when the seed set is empty: propagation would be
// ill-defined.
func (s *Store) Snapshot(epoch uint64, height uint64) (*types.GraphSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.seeds) == 0 {
		return nil, errors.NewError(errors.ErrCodeEmptySeedSet, errors.ErrMsgEmptySeedSet)
	}

	var edges []types.TrustEdge
	for from, m := range s.edges {
		for to, weight := range m {
			edges = append(edges, types.TrustEdge{From: from, To: to, Weight: weight})
		}
	}
	return types.NewGraphSnapshot(epoch, height, edges, s.seedsLocked()), nil
}
