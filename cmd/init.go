package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	initDataDir string
	initForce   bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize node configuration",
	Long: `Initialize a new reputation node by:
- Creating the config directory with a default genesis.yml
- Writing a default config.ini with node-local settings
- Setting up the data directory structure`,
	Run: func(cmd *cobra.Command, args []string) {
		initializeNode()
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initDataDir, "data-dir", ".", "Directory to save node data")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing configuration files")
}

const defaultGenesisYml = `config:
  self_node:
    address: "node1"
    listen_addr: "0.0.0.0:8545"
  protocol:
    decay: "0.85"
    max_score: "1.0"
    epsilon: "0.000001"
    max_passes: 8
    max_accounts: 100000
    epoch_length: 100
  challenge:
    challenge_window: 600
    round_deadline: 100
    min_stake: "1000000"
    stake_ratio_bps: 10000
    protocol_fee_bps: 500
    retention_window: 10000
  seeds: []
  edges: []
  balances: []
`

const defaultConfigIni = `[store]
backend = leveldb
directory = data/rpn

[clock]
block_interval_ms = 400

[refresh]
submitter = false
stake = 1000000
sweep_interval_ms = 2000
`

func initializeNode() {
	configDir := filepath.Join(initDataDir, "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		log.Fatalf("Failed to create config directory: %v", err)
	}
	dataDir := filepath.Join(initDataDir, "data", "rpn")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	writeConfigFile(filepath.Join(configDir, "genesis.yml"), defaultGenesisYml)
	writeConfigFile(filepath.Join(configDir, "config.ini"), defaultConfigIni)
	fmt.Println("Node initialized in", initDataDir)
}

func writeConfigFile(path, content string) {
	if _, err := os.Stat(path); err == nil && !initForce {
		fmt.Println("Keeping existing", path, "(use --force to overwrite)")
		return
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		log.Fatalf("Failed to write %s: %v", path, err)
	}
	fmt.Println("Wrote", path)
}
