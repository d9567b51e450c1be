package store

import (
	"fmt"
	"sync"

	"github.com/trustmesh/rpn/db"
	"github.com/trustmesh/rpn/jsonx"
	"github.com/trustmesh/rpn/logx"
	"github.com/trustmesh/rpn/types"
)

// SnapshotStore persists frozen graph snapshots keyed by epoch. Snapshots are
// write-once: the challenge game replays against them long after the live
// graph has moved on.
type SnapshotStore interface {
	Store(snap *types.GraphSnapshot) error
	GetByEpoch(epoch uint64) (*types.GraphSnapshot, error)
	ExistsByEpoch(epoch uint64) (bool, error)
	Delete(epoch uint64) error
	MustClose()
}

type GenericSnapshotStore struct {
	mu         sync.RWMutex
	dbProvider db.DatabaseProvider
}

func NewGenericSnapshotStore(dbProvider db.DatabaseProvider) (*GenericSnapshotStore, error) {
	if dbProvider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	return &GenericSnapshotStore{dbProvider: dbProvider}, nil
}

func (ss *GenericSnapshotStore) Store(snap *types.GraphSnapshot) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	key := ss.getDbKey(snap.Epoch)
	exists, err := ss.dbProvider.Has(key)
	if err != nil {
		return fmt.Errorf("failed to check snapshot existence: %w", err)
	}
	if exists {
		return fmt.Errorf("snapshot for epoch %d already exists", snap.Epoch)
	}

	data, err := jsonx.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := ss.dbProvider.Put(key, data); err != nil {
		return fmt.Errorf("failed to write snapshot to db: %w", err)
	}
	return nil
}

// GetByEpoch returns the snapshot or nil if absent. Derived indexes are
// rebuilt before returning.
func (ss *GenericSnapshotStore) GetByEpoch(epoch uint64) (*types.GraphSnapshot, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	data, err := ss.dbProvider.Get(ss.getDbKey(epoch))
	if err != nil {
		return nil, fmt.Errorf("could not get snapshot for epoch %d: %w", epoch, err)
	}
	if data == nil {
		return nil, nil
	}
	var snap types.GraphSnapshot
	if err := jsonx.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot for epoch %d: %w", epoch, err)
	}
	snap.Reindex()
	return &snap, nil
}

func (ss *GenericSnapshotStore) ExistsByEpoch(epoch uint64) (bool, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	return ss.dbProvider.Has(ss.getDbKey(epoch))
}

func (ss *GenericSnapshotStore) Delete(epoch uint64) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	return ss.dbProvider.Delete(ss.getDbKey(epoch))
}

func (ss *GenericSnapshotStore) MustClose() {
	if err := ss.dbProvider.Close(); err != nil {
		logx.Error("SNAPSHOT_STORE", "Failed to close db provider:", err.Error())
	}
}

func (ss *GenericSnapshotStore) getDbKey(epoch uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", PrefixSnapshot, epoch))
}
