package engine

import (
	"sort"

	"github.com/trustmesh/rpn/commitment"
	"github.com/trustmesh/rpn/errors"
	"github.com/trustmesh/rpn/types"
)

// Result is the output of one propagation run over a frozen snapshot.
type Result struct {
	Snapshot      *types.GraphSnapshot
	Steps         []types.StepRecord
	Scores        map[string]types.Score
	Passes        uint32
	Converged     bool
	InitialDigest [32]byte
	FinalDigest   [32]byte
}

// VisitOrder computes the deterministic step order for a snapshot: non-seed
// accounts reachable from the seed set, in breadth-first distance order, ties
// broken by ascending account id. Seeds are pinned at the maximum score and
// never visited; unreachable accounts keep score zero and never appear.
func VisitOrder(snap *types.GraphSnapshot) []string {
	visited := make(map[string]bool, len(snap.Accounts))
	frontier := append([]string(nil), snap.Seeds...)
	for _, seed := range frontier {
		visited[seed] = true
	}

	var order []string
	for len(frontier) > 0 {
		nextSet := make(map[string]struct{})
		for _, acct := range frontier {
			for _, to := range snap.Outbound(acct) {
				if !visited[to] {
					nextSet[to] = struct{}{}
				}
			}
		}
		next := make([]string, 0, len(nextSet))
		for acct := range nextSet {
			next = append(next, acct)
		}
		sort.Strings(next)
		for _, acct := range next {
			visited[acct] = true
		}
		order = append(order, next...)
		frontier = next
	}
	return order
}

// runState is the mutable score state threaded through a run. Leaves mirror
// scores so the state digest can be refreshed after every step.
type runState struct {
	snap   *types.GraphSnapshot
	params Params
	scores map[string]types.Score
	leaves [][32]byte
	root   [32]byte
}

func newRunState(snap *types.GraphSnapshot, params Params) (*runState, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(snap.Seeds) == 0 {
		return nil, errors.NewError(errors.ErrCodeEmptySeedSet, errors.ErrMsgEmptySeedSet)
	}
	if len(snap.Accounts) > params.MaxAccounts {
		return nil, errors.NewError(errors.ErrCodeQuantityLimit, errors.ErrMsgQuantityLimit)
	}

	st := &runState{
		snap:   snap,
		params: params,
		scores: make(map[string]types.Score, len(snap.Accounts)),
	}
	for _, seed := range snap.Seeds {
		st.scores[seed] = params.MaxScore
	}
	st.leaves = commitment.StateLeaves(snap.Accounts, st.scoreAt)
	st.root = commitment.ComputeRoot(st.leaves)
	return st, nil
}

func (st *runState) scoreAt(acct string) types.Score {
	return st.scores[acct]
}

// applyStep recomputes one account's score from its trusters' current scores
// and refreshes the state digest.
func (st *runState) applyStep(account string) (prev, next types.Score) {
	prev = st.scores[account]
	next = computeScore(st.snap, st.params, account, st.scoreAt)
	st.scores[account] = next

	idx, _ := st.snap.AccountIndex(account)
	st.leaves[idx] = commitment.ScoreLeafHash(account, next)
	st.root = commitment.ComputeRoot(st.leaves)
	return prev, next
}

// computeScore is the single-step update rule shared by full propagation and
// on-chain replay: the decayed sum of inbound weight x truster score, capped
// at the maximum. Inbound edges are iterated in sorted truster order.
func computeScore(snap *types.GraphSnapshot, params Params, account string, scoreAt func(string) types.Score) types.Score {
	var sum types.Score
	for _, e := range snap.Inbound(account) {
		sum = types.AddScoreSat(sum, types.MulScore(e.Weight, scoreAt(e.From)))
	}
	return types.MinScore(types.MulScore(params.Decay, sum), params.MaxScore)
}

// InitialStateDigest returns the state commitment before step 0: seeds at the
// maximum score, every other account at zero.
func InitialStateDigest(snap *types.GraphSnapshot, params Params) ([32]byte, error) {
	st, err := newRunState(snap, params)
	if err != nil {
		return [32]byte{}, err
	}
	return st.root, nil
}

// Propagate runs the full bounded-pass computation over a frozen snapshot.
// Given the same snapshot and params it produces byte-identical step records
// and final scores on every invocation and on every machine; the challenge
// game depends on this to adjudicate truth.
func Propagate(snap *types.GraphSnapshot, params Params) (*Result, error) {
	st, err := newRunState(snap, params)
	if err != nil {
		return nil, err
	}
	order := VisitOrder(snap)

	res := &Result{
		Snapshot:      snap,
		Scores:        st.scores,
		InitialDigest: st.root,
	}
	if len(order) == 0 {
		res.Converged = true
		res.FinalDigest = st.root
		return res, nil
	}

	index := uint64(0)
	for pass := uint32(0); pass < params.MaxPasses; pass++ {
		var maxDelta types.Score
		for _, account := range order {
			input := st.root
			prev, next := st.applyStep(account)
			res.Steps = append(res.Steps, types.StepRecord{
				Index:             index,
				Pass:              pass,
				Account:           account,
				PrevScore:         prev,
				NewScore:          next,
				InputStateDigest:  input,
				OutputStateDigest: st.root,
			})
			index++
			if d := next.AbsDiff(prev); d > maxDelta {
				maxDelta = d
			}
		}
		res.Passes = pass + 1
		if maxDelta < params.Epsilon {
			res.Converged = true
			break
		}
	}
	// Exhausting MaxPasses without convergence is not an error: the engine
	// stops and reports the last values.
	res.FinalDigest = st.root
	return res, nil
}

// StepAccount maps a global step index to the account and pass it updates.
// The mapping depends only on the snapshot, so the chain can derive it without
// running the full computation.
func StepAccount(snap *types.GraphSnapshot, params Params, index uint64) (string, uint32, error) {
	order := VisitOrder(snap)
	if len(order) == 0 {
		return "", 0, errors.NewError(errors.ErrCodeInvalidRequest, "snapshot has no propagation steps")
	}
	pass := index / uint64(len(order))
	if pass > uint64(params.MaxPasses-1) {
		return "", 0, errors.NewError(errors.ErrCodeInvalidRequest, "step index beyond maximum pass bound")
	}
	return order[index%uint64(len(order))], uint32(pass), nil
}

// ValidStepCount reports whether a claimed step count is structurally possible
// for the snapshot: a whole number of passes, at least one, at most MaxPasses.
func ValidStepCount(snap *types.GraphSnapshot, params Params, stepCount uint64) bool {
	order := VisitOrder(snap)
	if len(order) == 0 {
		return stepCount == 0
	}
	n := uint64(len(order))
	if stepCount == 0 || stepCount%n != 0 {
		return false
	}
	return stepCount/n <= uint64(params.MaxPasses)
}
