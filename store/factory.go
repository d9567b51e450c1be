package store

import (
	"fmt"

	"github.com/trustmesh/rpn/db"
)

// StoreType represents the type of store implementation
type StoreType string

const (
	// LevelDBStoreType uses the LevelDB implementation
	LevelDBStoreType StoreType = "leveldb"

	// BoltStoreType uses the single-file bbolt implementation
	BoltStoreType StoreType = "bolt"
)

// StoreConfig holds configuration for creating store instances
type StoreConfig struct {
	// Type specifies which store implementation to use
	Type StoreType `json:"type" yaml:"type"`

	// Directory is the database directory path (or file path for bolt)
	Directory string `json:"directory" yaml:"directory"`
}

// Validate validates the store configuration
func (sc *StoreConfig) Validate() error {
	if sc.Type == "" {
		return fmt.Errorf("store type cannot be empty")
	}
	if sc.Directory == "" {
		return fmt.Errorf("directory cannot be empty")
	}
	switch sc.Type {
	case LevelDBStoreType, BoltStoreType:
		return nil
	default:
		return fmt.Errorf("unsupported store type: %s", sc.Type)
	}
}

// Stores bundles every persisted store over one shared provider.
type Stores struct {
	Graph       GraphStore
	Snapshots   SnapshotStore
	Submissions SubmissionStore
	Challenges  ChallengeStore
	Scores      ScoreStore

	provider db.DatabaseProvider
}

// MustClose closes the shared provider exactly once.
func (s *Stores) MustClose() {
	s.Graph.MustClose()
}

// StoreFactory take responsibility to create store instances
type StoreFactory struct{}

// NewStoreFactory creates a new store factory
func NewStoreFactory() *StoreFactory {
	return &StoreFactory{}
}

// CreateStoresWithProvider creates all store instances over one provider.
func (sf *StoreFactory) CreateStoresWithProvider(config *StoreConfig) (*Stores, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	provider, err := sf.CreateProvider(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	graphStore, err := NewGenericGraphStore(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph store: %w", err)
	}
	snapshotStore, err := NewGenericSnapshotStore(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot store: %w", err)
	}
	submissionStore, err := NewGenericSubmissionStore(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create submission store: %w", err)
	}
	challengeStore, err := NewGenericChallengeStore(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create challenge store: %w", err)
	}
	scoreStore, err := NewGenericScoreStore(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create score store: %w", err)
	}

	return &Stores{
		Graph:       graphStore,
		Snapshots:   snapshotStore,
		Submissions: submissionStore,
		Challenges:  challengeStore,
		Scores:      scoreStore,
		provider:    provider,
	}, nil
}

// CreateProvider creates a database provider based on the configuration
func (sf *StoreFactory) CreateProvider(config *StoreConfig) (db.IterableProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch config.Type {
	case LevelDBStoreType:
		return db.NewLevelDBProvider(config.Directory)

	case BoltStoreType:
		return db.NewBoltProvider(config.Directory)

	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

// Global factory instance
var globalFactory = NewStoreFactory()

// CreateStores creates new store instances using the global factory
func CreateStores(config *StoreConfig) (*Stores, error) {
	return globalFactory.CreateStoresWithProvider(config)
}
