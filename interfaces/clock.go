package interfaces

import "time"

// Clock is the block-timing collaborator: a monotonic height and wall-clock
// source provided by the chain's timestamp/block layer. Deadlines in this core
// are expressed as height thresholds checked against it.
type Clock interface {
	CurrentHeight() uint64
	CurrentTime() time.Time
}
