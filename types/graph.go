package types

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"
)

// TrustEdge is a directed vouch from one account to another. At most one edge
// may exist per (From, To) pair; re-issuing overwrites the weight.
type TrustEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Weight Score  `json:"weight"`
}

// GraphSnapshot is an immutable, versioned view of the trust graph taken at an
// epoch boundary. Snapshots are never mutated after creation; the propagation
// engine and commitment layer only ever operate on snapshot values.
type GraphSnapshot struct {
	Epoch     uint64      `json:"epoch"`
	CreatedAt uint64      `json:"created_at"` // block height
	Edges     []TrustEdge `json:"edges"`      // sorted by (From, To)
	Seeds     []string    `json:"seeds"`      // sorted ascending

	// Derived, rebuilt by Reindex after unmarshalling.
	Accounts []string `json:"-"` // every endpoint and seed, sorted ascending
	inbound  map[string][]TrustEdge
	seedSet  map[string]struct{}
}

// NewGraphSnapshot copies the given edge and seed sets into a frozen snapshot.
func NewGraphSnapshot(epoch uint64, height uint64, edges []TrustEdge, seeds []string) *GraphSnapshot {
	snap := &GraphSnapshot{
		Epoch:     epoch,
		CreatedAt: height,
		Edges:     append([]TrustEdge(nil), edges...),
		Seeds:     append([]string(nil), seeds...),
	}
	sort.Slice(snap.Edges, func(i, j int) bool {
		if snap.Edges[i].From != snap.Edges[j].From {
			return snap.Edges[i].From < snap.Edges[j].From
		}
		return snap.Edges[i].To < snap.Edges[j].To
	})
	sort.Strings(snap.Seeds)
	snap.Reindex()
	return snap
}

// Reindex rebuilds the derived account list and lookup maps from Edges and
// Seeds. Must be called after deserializing a snapshot.
func (s *GraphSnapshot) Reindex() {
	accountSet := make(map[string]struct{})
	s.inbound = make(map[string][]TrustEdge)
	for _, e := range s.Edges {
		accountSet[e.From] = struct{}{}
		accountSet[e.To] = struct{}{}
		s.inbound[e.To] = append(s.inbound[e.To], e)
	}
	s.seedSet = make(map[string]struct{}, len(s.Seeds))
	for _, seed := range s.Seeds {
		accountSet[seed] = struct{}{}
		s.seedSet[seed] = struct{}{}
	}
	s.Accounts = make([]string, 0, len(accountSet))
	for acct := range accountSet {
		s.Accounts = append(s.Accounts, acct)
	}
	sort.Strings(s.Accounts)
}

// Inbound returns the edges pointing at the given account, ordered by truster.
func (s *GraphSnapshot) Inbound(to string) []TrustEdge {
	return s.inbound[to]
}

// Outbound returns the accounts the given account vouches for.
func (s *GraphSnapshot) Outbound(from string) []string {
	var out []string
	for _, e := range s.Edges {
		if e.From == from {
			out = append(out, e.To)
		}
	}
	return out
}

// IsSeed reports whether the account is a propagation root.
func (s *GraphSnapshot) IsSeed(acct string) bool {
	_, ok := s.seedSet[acct]
	return ok
}

// AccountIndex returns the position of acct in the sorted account list.
func (s *GraphSnapshot) AccountIndex(acct string) (int, bool) {
	i := sort.SearchStrings(s.Accounts, acct)
	if i < len(s.Accounts) && s.Accounts[i] == acct {
		return i, true
	}
	return 0, false
}

// Digest computes a deterministic identifier for the snapshot.
// Each edge is encoded as len(from)|from|len(to)|to|weight(8B BE), seeds as
// len(seed)|seed, with the epoch prepended.
func (s *GraphSnapshot) Digest() [32]byte {
	h := sha256.New()
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, s.Epoch)
	h.Write(buf)
	for _, e := range s.Edges {
		binary.BigEndian.PutUint64(buf, uint64(len(e.From)))
		h.Write(buf)
		h.Write([]byte(e.From))
		binary.BigEndian.PutUint64(buf, uint64(len(e.To)))
		h.Write(buf)
		h.Write([]byte(e.To))
		binary.BigEndian.PutUint64(buf, uint64(e.Weight))
		h.Write(buf)
	}
	for _, seed := range s.Seeds {
		binary.BigEndian.PutUint64(buf, uint64(len(seed)))
		h.Write(buf)
		h.Write([]byte(seed))
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
