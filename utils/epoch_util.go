package utils

// EpochForHeight maps a chain height onto its epoch number.
func EpochForHeight(height, epochLength uint64) uint64 {
	if epochLength == 0 {
		return 0
	}
	return height / epochLength
}

func FirstHeightInEpoch(epoch, epochLength uint64) uint64 {
	return epoch * epochLength
}

func IsEpochBoundary(height, epochLength uint64) bool {
	if epochLength == 0 {
		return false
	}
	return height%epochLength == 0
}
