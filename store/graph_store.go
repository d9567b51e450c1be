package store

import (
	"fmt"
	"strings"
	"sync"

	"github.com/trustmesh/rpn/db"
	"github.com/trustmesh/rpn/jsonx"
	"github.com/trustmesh/rpn/logx"
	"github.com/trustmesh/rpn/types"
)

// GraphStore persists trust edges keyed by (from, to) and the seed set.
type GraphStore interface {
	StoreEdge(edge *types.TrustEdge) error
	RemoveEdge(from, to string) error
	GetEdge(from, to string) (*types.TrustEdge, error)
	GetAllEdges() ([]types.TrustEdge, error)
	StoreSeeds(seeds []string) error
	GetSeeds() ([]string, error)
	MustClose()
}

type GenericGraphStore struct {
	mu         sync.RWMutex
	dbProvider db.IterableProvider
}

func NewGenericGraphStore(dbProvider db.IterableProvider) (*GenericGraphStore, error) {
	if dbProvider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	return &GenericGraphStore{dbProvider: dbProvider}, nil
}

func (gs *GenericGraphStore) StoreEdge(edge *types.TrustEdge) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	data, err := jsonx.Marshal(edge)
	if err != nil {
		return fmt.Errorf("failed to marshal edge: %w", err)
	}
	if err := gs.dbProvider.Put(gs.edgeKey(edge.From, edge.To), data); err != nil {
		return fmt.Errorf("failed to write edge to db: %w", err)
	}
	return nil
}

func (gs *GenericGraphStore) RemoveEdge(from, to string) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if err := gs.dbProvider.Delete(gs.edgeKey(from, to)); err != nil {
		return fmt.Errorf("failed to delete edge from db: %w", err)
	}
	return nil
}

// GetEdge returns the edge or nil if absent.
func (gs *GenericGraphStore) GetEdge(from, to string) (*types.TrustEdge, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	data, err := gs.dbProvider.Get(gs.edgeKey(from, to))
	if err != nil {
		return nil, fmt.Errorf("could not get edge %s->%s from db: %w", from, to, err)
	}
	if data == nil {
		return nil, nil
	}
	var edge types.TrustEdge
	if err := jsonx.Unmarshal(data, &edge); err != nil {
		return nil, fmt.Errorf("failed to unmarshal edge %s->%s: %w", from, to, err)
	}
	return &edge, nil
}

func (gs *GenericGraphStore) GetAllEdges() ([]types.TrustEdge, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	var edges []types.TrustEdge
	var iterErr error
	err := gs.dbProvider.IteratePrefix([]byte(PrefixEdge), func(key, value []byte) bool {
		var edge types.TrustEdge
		if err := jsonx.Unmarshal(value, &edge); err != nil {
			iterErr = fmt.Errorf("failed to unmarshal edge at %s: %w", string(key), err)
			return false
		}
		edges = append(edges, edge)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate edges: %w", err)
	}
	if iterErr != nil {
		return nil, iterErr
	}
	return edges, nil
}

func (gs *GenericGraphStore) StoreSeeds(seeds []string) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	data, err := jsonx.Marshal(seeds)
	if err != nil {
		return fmt.Errorf("failed to marshal seed set: %w", err)
	}
	if err := gs.dbProvider.Put([]byte(KeySeedSet), data); err != nil {
		return fmt.Errorf("failed to write seed set to db: %w", err)
	}
	return nil
}

func (gs *GenericGraphStore) GetSeeds() ([]string, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	data, err := gs.dbProvider.Get([]byte(KeySeedSet))
	if err != nil {
		return nil, fmt.Errorf("could not get seed set from db: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	var seeds []string
	if err := jsonx.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal seed set: %w", err)
	}
	return seeds, nil
}

func (gs *GenericGraphStore) MustClose() {
	if err := gs.dbProvider.Close(); err != nil {
		logx.Error("GRAPH_STORE", "Failed to close db provider:", err.Error())
	}
}

func (gs *GenericGraphStore) edgeKey(from, to string) []byte {
	return []byte(PrefixEdge + from + edgeKeySeparator + to)
}

// SplitEdgeKey recovers (from, to) from an edge db key.
func SplitEdgeKey(key []byte) (string, string, bool) {
	rest, ok := strings.CutPrefix(string(key), PrefixEdge)
	if !ok {
		return "", "", false
	}
	from, to, ok := strings.Cut(rest, edgeKeySeparator)
	return from, to, ok
}
