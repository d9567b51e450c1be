package config

const (
	DefaultEpochLength     = 100
	DefaultBlockIntervalMs = 400
	DefaultSweepIntervalMs = 2000
)
