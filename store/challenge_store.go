package store

import (
	"fmt"
	"sync"

	"github.com/trustmesh/rpn/db"
	"github.com/trustmesh/rpn/jsonx"
	"github.com/trustmesh/rpn/logx"
	"github.com/trustmesh/rpn/types"
)

// ChallengeStore persists challenge games keyed by submission id. The key
// choice enforces the one-game-per-submission invariant at the storage layer.
type ChallengeStore interface {
	Store(game *types.ChallengeGame) error
	GetBySubmissionID(submissionID string) (*types.ChallengeGame, error)
	GetAll() ([]*types.ChallengeGame, error)
	Delete(submissionID string) error
	MustClose()
}

type GenericChallengeStore struct {
	mu         sync.RWMutex
	dbProvider db.IterableProvider
}

func NewGenericChallengeStore(dbProvider db.IterableProvider) (*GenericChallengeStore, error) {
	if dbProvider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	return &GenericChallengeStore{dbProvider: dbProvider}, nil
}

func (cs *GenericChallengeStore) Store(game *types.ChallengeGame) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	data, err := jsonx.Marshal(game)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge game: %w", err)
	}
	if err := cs.dbProvider.Put(cs.getDbKey(game.SubmissionID), data); err != nil {
		return fmt.Errorf("failed to write challenge game to db: %w", err)
	}
	return nil
}

func (cs *GenericChallengeStore) GetBySubmissionID(submissionID string) (*types.ChallengeGame, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	data, err := cs.dbProvider.Get(cs.getDbKey(submissionID))
	if err != nil {
		return nil, fmt.Errorf("could not get challenge for submission %s: %w", submissionID, err)
	}
	if data == nil {
		return nil, nil
	}
	var game types.ChallengeGame
	if err := jsonx.Unmarshal(data, &game); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge for submission %s: %w", submissionID, err)
	}
	return &game, nil
}

func (cs *GenericChallengeStore) GetAll() ([]*types.ChallengeGame, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	var games []*types.ChallengeGame
	var iterErr error
	err := cs.dbProvider.IteratePrefix([]byte(PrefixChallenge), func(key, value []byte) bool {
		var game types.ChallengeGame
		if err := jsonx.Unmarshal(value, &game); err != nil {
			iterErr = fmt.Errorf("failed to unmarshal challenge at %s: %w", string(key), err)
			return false
		}
		games = append(games, &game)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate challenges: %w", err)
	}
	if iterErr != nil {
		return nil, iterErr
	}
	return games, nil
}

func (cs *GenericChallengeStore) Delete(submissionID string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	return cs.dbProvider.Delete(cs.getDbKey(submissionID))
}

func (cs *GenericChallengeStore) MustClose() {
	if err := cs.dbProvider.Close(); err != nil {
		logx.Error("CHALLENGE_STORE", "Failed to close db provider:", err.Error())
	}
}

func (cs *GenericChallengeStore) getDbKey(submissionID string) []byte {
	return []byte(PrefixChallenge + submissionID)
}
