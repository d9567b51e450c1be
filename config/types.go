package config

// NodeConfig identifies this node and the addresses it serves on.
type NodeConfig struct {
	Address    string `yaml:"address"`
	ListenAddr string `yaml:"listen_addr"`
}

// ProtocolParams are the consensus-critical propagation parameters. Scores
// are decimal strings ("0.85") so every node parses them to the same
// fixed-point value.
type ProtocolParams struct {
	Decay       string `yaml:"decay"`
	MaxScore    string `yaml:"max_score"`
	Epsilon     string `yaml:"epsilon"`
	MaxPasses   uint32 `yaml:"max_passes"`
	MaxAccounts int    `yaml:"max_accounts"`
	EpochLength uint64 `yaml:"epoch_length"`
}

// ChallengeParams govern the commit-and-challenge game.
type ChallengeParams struct {
	ChallengeWindow uint64 `yaml:"challenge_window"`
	RoundDeadline   uint64 `yaml:"round_deadline"`
	MinStake        string `yaml:"min_stake"`
	StakeRatioBps   uint32 `yaml:"stake_ratio_bps"`
	ProtocolFeeBps  uint32 `yaml:"protocol_fee_bps"`
	RetentionWindow uint64 `yaml:"retention_window"`
}

// GenesisBalance seeds the stake ledger with an initial available balance.
type GenesisBalance struct {
	Address string `yaml:"address"`
	Amount  string `yaml:"amount"`
}

// GenesisEdge pre-populates the trust graph.
type GenesisEdge struct {
	From   string `yaml:"from"`
	To     string `yaml:"to"`
	Weight string `yaml:"weight"`
}

// GenesisConfig holds the configuration from genesis.yml.
type GenesisConfig struct {
	SelfNode  NodeConfig       `yaml:"self_node"`
	Protocol  ProtocolParams   `yaml:"protocol"`
	Challenge ChallengeParams  `yaml:"challenge"`
	Seeds     []string         `yaml:"seeds"`
	Edges     []GenesisEdge    `yaml:"edges"`
	Balances  []GenesisBalance `yaml:"balances"`
}

// ConfigFile is the top-level structure for genesis.yml.
type ConfigFile struct {
	Config GenesisConfig `yaml:"config"`
}
