package commitment

import (
	"github.com/trustmesh/rpn/types"
)

// StepLeafHash hashes one step record into its commitment leaf.
func StepLeafHash(step *types.StepRecord) [32]byte {
	return HashLeaf(step.Encode())
}

func stepLeaves(steps []types.StepRecord) [][32]byte {
	leaves := make([][32]byte, len(steps))
	for i := range steps {
		leaves[i] = StepLeafHash(&steps[i])
	}
	return leaves
}

// CommitSteps builds the Merkle root over an ordered step sequence. This is
// the digest a submitter posts on-chain; the chain never stores the sequence
// itself.
func CommitSteps(steps []types.StepRecord) [32]byte {
	return ComputeRoot(stepLeaves(steps))
}

// ProveStep returns the inclusion proof for the step at index.
func ProveStep(steps []types.StepRecord, index uint64) (types.MerkleProof, error) {
	return Prove(stepLeaves(steps), index)
}

// VerifyStep checks a single disclosed step against a committed root.
func VerifyStep(root [32]byte, step *types.StepRecord, proof types.MerkleProof, stepCount uint64) bool {
	return Verify(root, StepLeafHash(step), proof, stepCount)
}
