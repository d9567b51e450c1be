package cmd

import (
	"encoding/hex"
	"fmt"
	"log"
	"sort"

	"github.com/spf13/cobra"

	"github.com/trustmesh/rpn/commitment"
	"github.com/trustmesh/rpn/config"
	"github.com/trustmesh/rpn/engine"
	"github.com/trustmesh/rpn/types"
)

var propagateGenesisPath string

var propagateCmd = &cobra.Command{
	Use:   "propagate",
	Short: "Run one offline propagation over the genesis graph",
	Long: `Run deterministic reputation propagation over the trust graph defined in
genesis.yml and print the resulting scores, step count, and the Merkle root a
submitter would post. Useful for verifying a submission before staking on it.`,
	Run: func(cmd *cobra.Command, args []string) {
		runPropagate()
	},
}

func init() {
	rootCmd.AddCommand(propagateCmd)
	propagateCmd.Flags().StringVar(&propagateGenesisPath, "genesis", "config/genesis.yml", "Path to genesis configuration file")
}

func runPropagate() {
	genesis, err := config.LoadGenesisConfig(propagateGenesisPath)
	if err != nil {
		log.Fatalf("Failed to load genesis: %v", err)
	}
	params, err := genesis.EngineParams()
	if err != nil {
		log.Fatalf("Invalid protocol params: %v", err)
	}

	edges := make([]types.TrustEdge, 0, len(genesis.Edges))
	for _, edge := range genesis.Edges {
		weight, err := types.ParseScore(edge.Weight)
		if err != nil {
			log.Fatalf("Invalid weight on %s->%s: %v", edge.From, edge.To, err)
		}
		edges = append(edges, types.TrustEdge{From: edge.From, To: edge.To, Weight: weight})
	}
	snap := types.NewGraphSnapshot(0, 0, edges, genesis.Seeds)

	res, err := engine.Propagate(snap, params)
	if err != nil {
		log.Fatalf("Propagation failed: %v", err)
	}
	root := commitment.CommitSteps(res.Steps)

	fmt.Printf("passes:      %d (converged=%v)\n", res.Passes, res.Converged)
	fmt.Printf("steps:       %d\n", len(res.Steps))
	fmt.Printf("merkle root: %s\n", hex.EncodeToString(root[:]))
	fmt.Printf("final state: %s\n", hex.EncodeToString(res.FinalDigest[:]))

	accounts := make([]string, 0, len(res.Scores))
	for acct := range res.Scores {
		accounts = append(accounts, acct)
	}
	sort.Strings(accounts)
	for _, acct := range accounts {
		fmt.Printf("  %-24s %s\n", acct, res.Scores[acct].String())
	}
}
