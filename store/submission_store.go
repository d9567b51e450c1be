package store

import (
	"fmt"
	"sync"

	"github.com/trustmesh/rpn/db"
	"github.com/trustmesh/rpn/jsonx"
	"github.com/trustmesh/rpn/logx"
	"github.com/trustmesh/rpn/types"
)

// SubmissionStore persists refresh submissions keyed by (epoch, submitter).
type SubmissionStore interface {
	Store(sub *types.Submission) error
	GetByID(id string) (*types.Submission, error)
	GetAll() ([]*types.Submission, error)
	Delete(id string) error
	MustClose()
}

type GenericSubmissionStore struct {
	mu         sync.RWMutex
	dbProvider db.IterableProvider
}

func NewGenericSubmissionStore(dbProvider db.IterableProvider) (*GenericSubmissionStore, error) {
	if dbProvider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	return &GenericSubmissionStore{dbProvider: dbProvider}, nil
}

// SubmissionID builds the canonical id for an (epoch, submitter) pair.
func SubmissionID(epoch uint64, submitter string) string {
	return fmt.Sprintf("%d:%s", epoch, submitter)
}

func (ss *GenericSubmissionStore) Store(sub *types.Submission) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	data, err := jsonx.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to marshal submission: %w", err)
	}
	if err := ss.dbProvider.Put(ss.getDbKey(sub.ID), data); err != nil {
		return fmt.Errorf("failed to write submission to db: %w", err)
	}
	return nil
}

func (ss *GenericSubmissionStore) GetByID(id string) (*types.Submission, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	data, err := ss.dbProvider.Get(ss.getDbKey(id))
	if err != nil {
		return nil, fmt.Errorf("could not get submission %s: %w", id, err)
	}
	if data == nil {
		return nil, nil
	}
	var sub types.Submission
	if err := jsonx.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("failed to unmarshal submission %s: %w", id, err)
	}
	return &sub, nil
}

func (ss *GenericSubmissionStore) GetAll() ([]*types.Submission, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	var subs []*types.Submission
	var iterErr error
	err := ss.dbProvider.IteratePrefix([]byte(PrefixSubmission), func(key, value []byte) bool {
		var sub types.Submission
		if err := jsonx.Unmarshal(value, &sub); err != nil {
			iterErr = fmt.Errorf("failed to unmarshal submission at %s: %w", string(key), err)
			return false
		}
		subs = append(subs, &sub)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}
	if iterErr != nil {
		return nil, iterErr
	}
	return subs, nil
}

func (ss *GenericSubmissionStore) Delete(id string) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	return ss.dbProvider.Delete(ss.getDbKey(id))
}

func (ss *GenericSubmissionStore) MustClose() {
	if err := ss.dbProvider.Close(); err != nil {
		logx.Error("SUBMISSION_STORE", "Failed to close db provider:", err.Error())
	}
}

func (ss *GenericSubmissionStore) getDbKey(id string) []byte {
	return []byte(PrefixSubmission + id)
}
