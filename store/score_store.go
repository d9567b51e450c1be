package store

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/trustmesh/rpn/db"
	"github.com/trustmesh/rpn/logx"
	"github.com/trustmesh/rpn/types"
)

// ScoreStore persists the canonical reputation scores keyed by account.
// Scores only become canonical once the submission that produced them
// resolves in the submitter's favor.
type ScoreStore interface {
	StoreEpochScores(epoch uint64, scores map[string]types.Score) error
	GetByAccount(account string) (types.Score, error)
	LatestEpoch() (uint64, bool, error)
	MustClose()
}

type GenericScoreStore struct {
	mu         sync.RWMutex
	dbProvider db.DatabaseProvider
}

func NewGenericScoreStore(dbProvider db.DatabaseProvider) (*GenericScoreStore, error) {
	if dbProvider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	return &GenericScoreStore{dbProvider: dbProvider}, nil
}

// StoreEpochScores atomically replaces the canonical score set and records
// the epoch it came from. Scores are encoded as 8-byte big-endian values.
func (ss *GenericScoreStore) StoreEpochScores(epoch uint64, scores map[string]types.Score) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	batch := ss.dbProvider.Batch()
	buf := make([]byte, 8)
	for account, score := range scores {
		binary.BigEndian.PutUint64(buf, uint64(score))
		batch.Put(ss.getDbKey(account), append([]byte(nil), buf...))
	}
	binary.BigEndian.PutUint64(buf, epoch)
	batch.Put([]byte(KeyScoreLatestEpoch), append([]byte(nil), buf...))

	if err := batch.Write(); err != nil {
		return fmt.Errorf("failed to write epoch %d scores: %w", epoch, err)
	}
	return nil
}

// GetByAccount returns the canonical score, zero for unknown accounts.
func (ss *GenericScoreStore) GetByAccount(account string) (types.Score, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	data, err := ss.dbProvider.Get(ss.getDbKey(account))
	if err != nil {
		return 0, fmt.Errorf("could not get score for %s: %w", account, err)
	}
	if len(data) != 8 {
		return 0, nil
	}
	return types.Score(binary.BigEndian.Uint64(data)), nil
}

// LatestEpoch returns the epoch whose scores are canonical, false when no
// refresh has ever resolved.
func (ss *GenericScoreStore) LatestEpoch() (uint64, bool, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	data, err := ss.dbProvider.Get([]byte(KeyScoreLatestEpoch))
	if err != nil {
		return 0, false, fmt.Errorf("could not get latest score epoch: %w", err)
	}
	if len(data) != 8 {
		return 0, false, nil
	}
	return binary.BigEndian.Uint64(data), true, nil
}

func (ss *GenericScoreStore) MustClose() {
	if err := ss.dbProvider.Close(); err != nil {
		logx.Error("SCORE_STORE", "Failed to close db provider:", err.Error())
	}
}

func (ss *GenericScoreStore) getDbKey(account string) []byte {
	return []byte(PrefixScore + account)
}
