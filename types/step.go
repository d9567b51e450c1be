package types

import (
	"encoding/binary"
)

// MerkleProof is a sibling-digest path proving one leaf against a binary
// Merkle root. Index is the leaf position in the committed sequence.
type MerkleProof struct {
	Index    uint64     `json:"index"`
	Siblings [][32]byte `json:"siblings"`
}

// StepRecord is the atomic unit of commitment and of dispute: one per-account
// score update in the deterministic propagation sequence.
type StepRecord struct {
	Index             uint64   `json:"index"`
	Pass              uint32   `json:"pass"`
	Account           string   `json:"account"`
	PrevScore         Score    `json:"prev_score"`
	NewScore          Score    `json:"new_score"`
	InputStateDigest  [32]byte `json:"input_state_digest"`
	OutputStateDigest [32]byte `json:"output_state_digest"`
}

// Encode serializes the record deterministically:
// index(8B BE)|pass(4B BE)|len(account)(8B BE)|account|prev(8B BE)|new(8B BE)|in(32B)|out(32B)
func (s *StepRecord) Encode() []byte {
	buf := make([]byte, 0, 8+4+8+len(s.Account)+8+8+32+32)
	var u64 [8]byte
	var u32 [4]byte

	binary.BigEndian.PutUint64(u64[:], s.Index)
	buf = append(buf, u64[:]...)
	binary.BigEndian.PutUint32(u32[:], s.Pass)
	buf = append(buf, u32[:]...)
	binary.BigEndian.PutUint64(u64[:], uint64(len(s.Account)))
	buf = append(buf, u64[:]...)
	buf = append(buf, s.Account...)
	binary.BigEndian.PutUint64(u64[:], uint64(s.PrevScore))
	buf = append(buf, u64[:]...)
	binary.BigEndian.PutUint64(u64[:], uint64(s.NewScore))
	buf = append(buf, u64[:]...)
	buf = append(buf, s.InputStateDigest[:]...)
	buf = append(buf, s.OutputStateDigest[:]...)
	return buf
}

// TrusterWitness carries one inbound truster's score together with its
// membership proof against the step's input state digest.
type TrusterWitness struct {
	Account string      `json:"account"`
	Score   Score       `json:"score"`
	Proof   MerkleProof `json:"proof"`
}

// StepWitness is everything the chain needs, beyond the snapshot it already
// holds, to re-execute a single disputed step: the updated account's leaf path
// and the witnessed scores of its trusters.
type StepWitness struct {
	LeafProof MerkleProof      `json:"leaf_proof"`
	Trusters  []TrusterWitness `json:"trusters"`
}
