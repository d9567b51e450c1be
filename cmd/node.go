package cmd

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/trustmesh/rpn/chain"
	"github.com/trustmesh/rpn/challenge"
	"github.com/trustmesh/rpn/config"
	"github.com/trustmesh/rpn/events"
	"github.com/trustmesh/rpn/graph"
	"github.com/trustmesh/rpn/jsonrpc"
	"github.com/trustmesh/rpn/logx"
	"github.com/trustmesh/rpn/monitoring"
	"github.com/trustmesh/rpn/refresh"
	"github.com/trustmesh/rpn/stakeledger"
	"github.com/trustmesh/rpn/store"
	"github.com/trustmesh/rpn/types"
	"github.com/trustmesh/rpn/utils"
)

var (
	nodeGenesisPath string
	nodeConfigPath  string
	nodeDataDir     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the reputation node",
	Run: func(cmd *cobra.Command, args []string) {
		runNode()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&nodeGenesisPath, "genesis", "config/genesis.yml", "Path to genesis configuration file")
	runCmd.Flags().StringVar(&nodeConfigPath, "config", "config/config.ini", "Path to node configuration file")
	runCmd.Flags().StringVar(&nodeDataDir, "data-dir", "", "Override store directory from config")
}

func runNode() {
	monitoring.InitMetrics()
	monitoring.RegisterMetrics(http.DefaultServeMux)

	genesis, err := config.LoadGenesisConfig(nodeGenesisPath)
	if err != nil {
		log.Fatalf("Failed to load genesis: %v", err)
	}
	params, err := genesis.EngineParams()
	if err != nil {
		log.Fatalf("Invalid protocol params: %v", err)
	}
	challengeCfg, err := genesis.ChallengeConfig()
	if err != nil {
		log.Fatalf("Invalid challenge params: %v", err)
	}

	storeCfg, err := config.LoadStoreConfig(nodeConfigPath)
	if err != nil {
		log.Fatalf("Failed to load store config: %v", err)
	}
	if nodeDataDir != "" {
		storeCfg.Directory = nodeDataDir
	}
	clockCfg, err := config.LoadClockConfig(nodeConfigPath)
	if err != nil {
		log.Fatalf("Failed to load clock config: %v", err)
	}
	refreshCfg, err := config.LoadRefreshConfig(nodeConfigPath)
	if err != nil {
		log.Fatalf("Failed to load refresh config: %v", err)
	}

	stores, err := store.CreateStores(&store.StoreConfig{
		Type:      store.StoreType(storeCfg.Backend),
		Directory: storeCfg.Directory,
	})
	if err != nil {
		log.Fatalf("Failed to create stores: %v", err)
	}
	defer stores.MustClose()

	eventBus := events.NewEventBus()
	router := events.NewEventRouter(eventBus)

	graphStore := graph.NewStore(stores.Graph, router)
	if err := graphStore.Load(); err != nil {
		log.Fatalf("Failed to load trust graph: %v", err)
	}
	if err := applyGenesisGraph(graphStore, genesis); err != nil {
		log.Fatalf("Failed to apply genesis graph: %v", err)
	}

	ledger := stakeledger.NewLedger()
	for _, bal := range genesis.Balances {
		amount, err := utils.Uint256FromString(bal.Amount)
		if err != nil {
			log.Fatalf("Invalid genesis balance for %s: %v", bal.Address, err)
		}
		ledger.Credit(bal.Address, amount)
	}

	clock := chain.NewLocalClock(0, time.Duration(clockCfg.BlockIntervalMs)*time.Millisecond)
	go clock.Run()
	defer clock.Stop()

	challenges, err := challenge.NewManager(challengeCfg, params, clock, ledger, stores, router)
	if err != nil {
		log.Fatalf("Failed to create challenge manager: %v", err)
	}

	refreshConf := refresh.DefaultConfig()
	refreshConf.EpochLength = genesis.EpochLength()
	refreshConf.SweepInterval = time.Duration(refreshCfg.SweepInterval) * time.Millisecond
	if refreshCfg.Submitter {
		stake, err := utils.Uint256FromString(refreshCfg.Stake)
		if err != nil {
			log.Fatalf("Invalid submitter stake: %v", err)
		}
		refreshConf.Submitter = true
		refreshConf.SubmitterAddress = genesis.SelfNode.Address
		refreshConf.SubmitterStake = stake
	}
	refresher, err := refresh.NewManager(refreshConf, params, clock, graphStore, stores.Snapshots, challenges, router)
	if err != nil {
		log.Fatalf("Failed to create refresh manager: %v", err)
	}
	refresher.Start()
	defer refresher.Stop()

	rpcServer := jsonrpc.NewServer(genesis.SelfNode.ListenAddr, graphStore, challenges, refresher, ledger)
	if corsCfg, ok := jsonrpc.CORSFromEnv(); ok {
		rpcServer.SetCORSConfig(corsCfg)
	}
	rpcServer.Start()

	logx.Info("NODE", "Node", genesis.SelfNode.Address, "running on", genesis.SelfNode.ListenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logx.Info("NODE", "Shutting down")
}

// applyGenesisGraph seeds an empty store with the genesis edges and seed set.
// A node restarting over existing data keeps its persisted graph.
func applyGenesisGraph(graphStore *graph.Store, genesis *config.GenesisConfig) error {
	if graphStore.EdgeCount() > 0 || len(graphStore.Seeds()) > 0 {
		return nil
	}
	for _, edge := range genesis.Edges {
		weight, err := types.ParseScore(edge.Weight)
		if err != nil {
			return err
		}
		if err := graphStore.UpsertEdge(edge.From, edge.To, weight); err != nil {
			return err
		}
	}
	if len(genesis.Seeds) > 0 {
		if err := graphStore.SetSeeds(genesis.Seeds); err != nil {
			return err
		}
	}
	return nil
}
