package commitment

import (
	"crypto/sha256"
	"fmt"

	"github.com/trustmesh/rpn/types"
)

// Leaf and interior nodes are hashed under distinct domain prefixes so that a
// proof for an interior node can never be replayed as a leaf.
const (
	leafPrefix = byte(0x00)
	nodePrefix = byte(0x01)
)

// HashLeaf hashes raw leaf bytes into a leaf digest.
func HashLeaf(data []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte{leafPrefix})
	h.Write(data)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func hashNode(left, right [32]byte) [32]byte {
	h := sha256.New()
	h.Write([]byte{nodePrefix})
	h.Write(left[:])
	h.Write(right[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// ComputeRoot builds a binary Merkle root over ordered leaf digests. An odd
// node at the end of a level is promoted unchanged to the next level. An empty
// sequence commits to the zero digest.
func ComputeRoot(leaves [][32]byte) [32]byte {
	if len(leaves) == 0 {
		return [32]byte{}
	}
	level := append([][32]byte(nil), leaves...)
	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, hashNode(level[i], level[i+1]))
			} else {
				next = append(next, level[i])
			}
		}
		level = next
	}
	return level[0]
}

// Prove returns the sibling path for the leaf at index.
func Prove(leaves [][32]byte, index uint64) (types.MerkleProof, error) {
	if index >= uint64(len(leaves)) {
		return types.MerkleProof{}, fmt.Errorf("proof index %d out of range (%d leaves)", index, len(leaves))
	}
	proof := types.MerkleProof{Index: index}
	level := append([][32]byte(nil), leaves...)
	pos := index
	for len(level) > 1 {
		if pos%2 == 0 {
			if pos+1 < uint64(len(level)) {
				proof.Siblings = append(proof.Siblings, level[pos+1])
			}
			// else: odd node, promoted without a sibling
		} else {
			proof.Siblings = append(proof.Siblings, level[pos-1])
		}
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, hashNode(level[i], level[i+1]))
			} else {
				next = append(next, level[i])
			}
		}
		level = next
		pos /= 2
	}
	return proof, nil
}

// RootFromProof folds a leaf digest up the sibling path. The total leaf count
// determines the tree shape (which levels promote an unpaired node), so the
// verifier must supply it.
func RootFromProof(leaf [32]byte, proof types.MerkleProof, leafCount uint64) ([32]byte, error) {
	if leafCount == 0 || proof.Index >= leafCount {
		return [32]byte{}, fmt.Errorf("proof index %d out of range (%d leaves)", proof.Index, leafCount)
	}
	current := leaf
	pos := proof.Index
	width := leafCount
	next := 0
	for width > 1 {
		if pos%2 == 0 {
			if pos+1 < width {
				if next >= len(proof.Siblings) {
					return [32]byte{}, fmt.Errorf("proof path too short")
				}
				current = hashNode(current, proof.Siblings[next])
				next++
			}
			// unpaired node promotes unchanged
		} else {
			if next >= len(proof.Siblings) {
				return [32]byte{}, fmt.Errorf("proof path too short")
			}
			current = hashNode(proof.Siblings[next], current)
			next++
		}
		pos /= 2
		width = (width + 1) / 2
	}
	if next != len(proof.Siblings) {
		return [32]byte{}, fmt.Errorf("proof path too long")
	}
	return current, nil
}

// Verify checks that the leaf at proof.Index reduces to the claimed root.
func Verify(root [32]byte, leaf [32]byte, proof types.MerkleProof, leafCount uint64) bool {
	computed, err := RootFromProof(leaf, proof, leafCount)
	if err != nil {
		return false
	}
	return computed == root
}
