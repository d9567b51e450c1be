package commitment

import (
	"encoding/binary"

	"github.com/trustmesh/rpn/types"
)

// ScoreLeafHash hashes one (account, score) pair into a state leaf.
// Encoding mirrors the step record fields: len(account)(8B BE)|account|score(8B BE).
func ScoreLeafHash(account string, score types.Score) [32]byte {
	buf := make([]byte, 0, 8+len(account)+8)
	var u64 [8]byte
	binary.BigEndian.PutUint64(u64[:], uint64(len(account)))
	buf = append(buf, u64[:]...)
	buf = append(buf, account...)
	binary.BigEndian.PutUint64(u64[:], uint64(score))
	buf = append(buf, u64[:]...)
	return HashLeaf(buf)
}

// StateLeaves builds the ordered leaf digests for a full score state. The
// account order is the snapshot's sorted account list, so leaf indices are
// deterministic and known to every party.
func StateLeaves(accounts []string, scoreAt func(string) types.Score) [][32]byte {
	leaves := make([][32]byte, len(accounts))
	for i, acct := range accounts {
		leaves[i] = ScoreLeafHash(acct, scoreAt(acct))
	}
	return leaves
}

// StateRoot commits to a full score state.
func StateRoot(accounts []string, scoreAt func(string) types.Score) [32]byte {
	return ComputeRoot(StateLeaves(accounts, scoreAt))
}
