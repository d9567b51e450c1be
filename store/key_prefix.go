package store

// Declare database key prefix for objects
const (
	PrefixEdge = "edge:"
	KeySeedSet = "seedset"

	PrefixSnapshot = "snapshot:"

	PrefixSubmission = "submission:"
	PrefixChallenge  = "challenge:"

	PrefixScore         = "score:"
	KeyScoreLatestEpoch = "score_meta:latest_epoch"
)

// edgeKeySeparator joins the from/to pair in an edge key. Account ids never
// contain it (they are hex-encoded public keys).
const edgeKeySeparator = "|"
