package refresh

import (
	"fmt"
	"sync"
	"time"

	"github.com/trustmesh/rpn/challenge"
	"github.com/trustmesh/rpn/commitment"
	"github.com/trustmesh/rpn/engine"
	"github.com/trustmesh/rpn/events"
	"github.com/trustmesh/rpn/exception"
	"github.com/trustmesh/rpn/graph"
	"github.com/trustmesh/rpn/interfaces"
	"github.com/trustmesh/rpn/logx"
	"github.com/trustmesh/rpn/monitoring"
	"github.com/trustmesh/rpn/store"
	"github.com/trustmesh/rpn/types"
	"github.com/trustmesh/rpn/utils"
)

// Manager drives the epoch lifecycle: it freezes a graph snapshot at every
// epoch boundary, optionally runs the local submitter worker against it, and
// sweeps expired challenge windows and overdue bisection rounds.
type Manager struct {
	cfg        Config
	params     engine.Params
	clock      interfaces.Clock
	graph      *graph.Store
	snapshots  store.SnapshotStore
	challenges *challenge.Manager
	router     *events.EventRouter

	mu        sync.Mutex
	lastEpoch uint64
	started   bool

	quit chan struct{}
	wg   sync.WaitGroup
}

func NewManager(
	cfg Config,
	params engine.Params,
	clock interfaces.Clock,
	graphStore *graph.Store,
	snapshots store.SnapshotStore,
	challenges *challenge.Manager,
	router *events.EventRouter,
) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid refresh config: %w", err)
	}
	return &Manager{
		cfg:        cfg,
		params:     params,
		clock:      clock,
		graph:      graphStore,
		snapshots:  snapshots,
		challenges: challenges,
		router:     router,
	}, nil
}

// Start launches the scheduler and sweep loops. The current epoch is treated
// as already processed so a restarted node does not re-snapshot mid-epoch.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.quit = make(chan struct{})
	m.lastEpoch = utils.EpochForHeight(m.clock.CurrentHeight(), m.cfg.EpochLength)
	epoch := m.lastEpoch
	quit := m.quit
	m.mu.Unlock()

	monitoring.SetCurrentEpoch(epoch)
	logx.Info("REFRESH", "Scheduler started at epoch", epoch)

	m.wg.Add(2)
	exception.SafeGo("refresh-scheduler", func() {
		defer m.wg.Done()
		m.schedulerLoop(quit)
	})
	exception.SafeGo("refresh-sweeper", func() {
		defer m.wg.Done()
		m.sweepLoop(quit)
	})
}

// Stop blocks until both loops have exited. A stopped manager may be started
// again.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	quit := m.quit
	m.mu.Unlock()
	close(quit)
	m.wg.Wait()
}

func (m *Manager) schedulerLoop(quit <-chan struct{}) {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

func (m *Manager) sweepLoop(quit <-chan struct{}) {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			if err := m.challenges.FinalizeExpired(); err != nil {
				logx.Error("REFRESH", "Finalize sweep failed:", err)
			}
		}
	}
}

// tick advances at most one epoch per poll so a node that slept through
// several epochs catches up one snapshot at a time.
func (m *Manager) tick() {
	height := m.clock.CurrentHeight()
	epoch := utils.EpochForHeight(height, m.cfg.EpochLength)

	m.mu.Lock()
	if epoch <= m.lastEpoch {
		m.mu.Unlock()
		return
	}
	next := m.lastEpoch + 1
	m.lastEpoch = next
	m.mu.Unlock()

	if err := m.advanceEpoch(next, height); err != nil {
		logx.Error("REFRESH", "Epoch advance failed:", next, err)
	}
}

// AdvanceEpoch freezes the live graph into the snapshot for the given epoch
// and, when the submitter worker is enabled, posts a refresh for it.
func (m *Manager) advanceEpoch(epoch uint64, height uint64) error {
	snap, err := m.graph.Snapshot(epoch, height)
	if err != nil {
		return err
	}
	if err := m.snapshots.Store(snap); err != nil {
		return err
	}

	monitoring.SetCurrentEpoch(epoch)
	m.router.Publish(events.NewEpochAdvanced(epoch, snap.Digest()))
	logx.Info("REFRESH", "Epoch", epoch, "frozen:", len(snap.Accounts), "accounts,", len(snap.Edges), "edges")

	if m.cfg.Submitter {
		if err := m.submitRefresh(epoch, snap); err != nil {
			return fmt.Errorf("submit refresh for epoch %d: %w", epoch, err)
		}
	}
	return nil
}

// submitRefresh runs deterministic propagation over the frozen snapshot,
// commits the step sequence, and posts the result with the configured bond.
func (m *Manager) submitRefresh(epoch uint64, snap *types.GraphSnapshot) error {
	start := time.Now()
	res, err := engine.Propagate(snap, m.params)
	if err != nil {
		return err
	}
	monitoring.RecordPropagationRun(res.Passes, len(res.Steps), time.Since(start).Seconds())

	root := commitment.CommitSteps(res.Steps)
	digest := challenge.ScoresDigest(snap, res.Scores)
	var lastStep *types.StepRecord
	var lastProof types.MerkleProof
	if n := uint64(len(res.Steps)); n > 0 {
		proof, err := commitment.ProveStep(res.Steps, n-1)
		if err != nil {
			return err
		}
		lastStep = &res.Steps[n-1]
		lastProof = proof
	}
	sub, err := m.challenges.Submit(
		epoch,
		m.cfg.SubmitterAddress,
		root,
		digest,
		uint64(len(res.Steps)),
		res.Scores,
		lastStep,
		lastProof,
		m.cfg.SubmitterStake,
	)
	if err != nil {
		return err
	}
	logx.Info("REFRESH", "Posted refresh", sub.ID, "steps:", sub.StepCount,
		"root:", utils.ShortenLog(fmt.Sprintf("%x", root)))
	return nil
}

// ProveStep rebuilds the step sequence for a submission's epoch and returns
// the record, inclusion proof, and replay witness for one step index. Honest
// submitters answer the final stage of a bisection with it.
func (m *Manager) ProveStep(epoch uint64, index uint64) (*types.StepRecord, types.MerkleProof, *types.StepWitness, error) {
	snap, err := m.snapshots.GetByEpoch(epoch)
	if err != nil {
		return nil, types.MerkleProof{}, nil, err
	}
	if snap == nil {
		return nil, types.MerkleProof{}, nil, fmt.Errorf("no snapshot for epoch %d", epoch)
	}
	res, err := engine.Propagate(snap, m.params)
	if err != nil {
		return nil, types.MerkleProof{}, nil, err
	}
	if index >= uint64(len(res.Steps)) {
		return nil, types.MerkleProof{}, nil, fmt.Errorf("step index %d out of range (%d steps)", index, len(res.Steps))
	}
	inclusion, err := commitment.ProveStep(res.Steps, index)
	if err != nil {
		return nil, types.MerkleProof{}, nil, err
	}
	witness, err := engine.BuildWitness(snap, m.params, index)
	if err != nil {
		return nil, types.MerkleProof{}, nil, err
	}
	step := res.Steps[index]
	return &step, inclusion, witness, nil
}
