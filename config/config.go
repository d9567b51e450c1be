package config

import (
	"fmt"
	"os"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"github.com/trustmesh/rpn/challenge"
	"github.com/trustmesh/rpn/engine"
	"github.com/trustmesh/rpn/logx"
	"github.com/trustmesh/rpn/types"
	"github.com/trustmesh/rpn/utils"
)

// LoadGenesisConfig reads and parses the genesis.yml file.
func LoadGenesisConfig(path string) (*GenesisConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var cfgFile ConfigFile
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfgFile); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	logx.Info("CONFIG", "Loaded genesis:", "self="+cfgFile.Config.SelfNode.Address,
		"seeds:", len(cfgFile.Config.Seeds), "edges:", len(cfgFile.Config.Edges))
	return &cfgFile.Config, nil
}

// EngineParams converts the genesis protocol section into engine parameters,
// parsing the decimal score strings.
func (g *GenesisConfig) EngineParams() (engine.Params, error) {
	params := engine.DefaultParams()
	var err error
	if g.Protocol.Decay != "" {
		if params.Decay, err = types.ParseScore(g.Protocol.Decay); err != nil {
			return params, fmt.Errorf("protocol.decay: %w", err)
		}
	}
	if g.Protocol.MaxScore != "" {
		if params.MaxScore, err = types.ParseScore(g.Protocol.MaxScore); err != nil {
			return params, fmt.Errorf("protocol.max_score: %w", err)
		}
	}
	if g.Protocol.Epsilon != "" {
		if params.Epsilon, err = types.ParseScore(g.Protocol.Epsilon); err != nil {
			return params, fmt.Errorf("protocol.epsilon: %w", err)
		}
	}
	if g.Protocol.MaxPasses != 0 {
		params.MaxPasses = g.Protocol.MaxPasses
	}
	if g.Protocol.MaxAccounts != 0 {
		params.MaxAccounts = g.Protocol.MaxAccounts
	}
	if err := params.Validate(); err != nil {
		return params, err
	}
	return params, nil
}

// ChallengeConfig converts the genesis challenge section into the manager's
// configuration.
func (g *GenesisConfig) ChallengeConfig() (challenge.Config, error) {
	cfg := challenge.DefaultConfig()
	if g.Challenge.ChallengeWindow != 0 {
		cfg.ChallengeWindow = g.Challenge.ChallengeWindow
	}
	if g.Challenge.RoundDeadline != 0 {
		cfg.RoundDeadline = g.Challenge.RoundDeadline
	}
	if g.Challenge.MinStake != "" {
		minStake, err := utils.Uint256FromString(g.Challenge.MinStake)
		if err != nil {
			return cfg, fmt.Errorf("challenge.min_stake: %w", err)
		}
		cfg.MinStake = minStake
	}
	if g.Challenge.StakeRatioBps != 0 {
		cfg.StakeRatioBps = g.Challenge.StakeRatioBps
	}
	if g.Challenge.ProtocolFeeBps != 0 {
		cfg.ProtocolFeeBps = g.Challenge.ProtocolFeeBps
	}
	if g.Challenge.RetentionWindow != 0 {
		cfg.RetentionWindow = g.Challenge.RetentionWindow
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// EpochLength returns the configured epoch length, falling back to the
// default when genesis leaves it unset.
func (g *GenesisConfig) EpochLength() uint64 {
	if g.Protocol.EpochLength == 0 {
		return DefaultEpochLength
	}
	return g.Protocol.EpochLength
}

type StoreNodeConfig struct {
	Backend   string `ini:"backend"`
	Directory string `ini:"directory"`
}

type ClockNodeConfig struct {
	BlockIntervalMs int `ini:"block_interval_ms"`
}

type RefreshNodeConfig struct {
	Submitter     bool   `ini:"submitter"`
	Stake         string `ini:"stake"`
	SweepInterval int    `ini:"sweep_interval_ms"`
}

// LoadStoreConfig reads the [store] section from a .ini file.
func LoadStoreConfig(path string) (*StoreNodeConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	storeCfg := &StoreNodeConfig{Backend: "leveldb", Directory: "data/rpn"}
	if err := cfg.Section("store").MapTo(storeCfg); err != nil {
		return nil, err
	}
	return storeCfg, nil
}

// LoadClockConfig reads the [clock] section from a .ini file.
func LoadClockConfig(path string) (*ClockNodeConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	clockCfg := &ClockNodeConfig{BlockIntervalMs: DefaultBlockIntervalMs}
	if err := cfg.Section("clock").MapTo(clockCfg); err != nil {
		return nil, err
	}
	return clockCfg, nil
}

// LoadRefreshConfig reads the [refresh] section from a .ini file.
func LoadRefreshConfig(path string) (*RefreshNodeConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	refreshCfg := &RefreshNodeConfig{SweepInterval: DefaultSweepIntervalMs}
	if err := cfg.Section("refresh").MapTo(refreshCfg); err != nil {
		return nil, err
	}
	return refreshCfg, nil
}
