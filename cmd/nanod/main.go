// Command nanod runs a single Nano-family consensus node: the ledger
// store, the block processor, Active Elections, the priority scheduler,
// and the confirming set, wired together and supervised the way
// cmd/node.go's FlowNodeImp drives a ComponentManager-based node, with a
// cobra+viper configuration front end grounded on cmd/bootstrap/cmd's
// root command.
package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dgraph-io/badger/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nanolabs/nanod/chain"
	"github.com/nanolabs/nanod/config"
	"github.com/nanolabs/nanod/consensus/activeelections"
	"github.com/nanolabs/nanod/consensus/election"
	"github.com/nanolabs/nanod/consensus/quorum"
	"github.com/nanolabs/nanod/consensus/scheduler"
	"github.com/nanolabs/nanod/engine/blockprocessor"
	"github.com/nanolabs/nanod/engine/confirming"
	"github.com/nanolabs/nanod/module"
	"github.com/nanolabs/nanod/module/irrecoverable"
	"github.com/nanolabs/nanod/module/metrics"
	"github.com/nanolabs/nanod/module/util"
	"github.com/nanolabs/nanod/storage/badger/nanoledger"
)

var rootCmd = &cobra.Command{
	Use:   "nanod",
	Short: "Run a Nano-family consensus node",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper(), cmd.Flags())
		if err != nil {
			return err
		}
		return run(cfg)
	},
}

func init() {
	cobra.OnInitialize(func() { viper.AutomaticEnv() })
	config.InitializeFlags(rootCmd.Flags(), defaultConfigForFlags())
	if err := viper.BindPFlags(rootCmd.Flags()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultConfigForFlags() *config.Config {
	c := config.DefaultConfig()
	return &c
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Node.LogLevel))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Node.LogLevel, err)
	}
	zerolog.SetGlobalLevel(level)
	log := zerolog.New(os.Stderr).With().Timestamp().Str("node_role", "nano").Logger()

	db, err := badger.Open(badger.DefaultOptions(cfg.Node.DataDir).WithLogger(nil))
	if err != nil {
		return fmt.Errorf("could not open ledger database: %w", err)
	}
	defer db.Close()

	registerer := prometheus.NewRegistry()
	blockProcessorMetrics := metrics.NewBlockProcessorCollector(registerer)
	activeElectionsMetrics := metrics.NewActiveElectionsCollector(registerer)
	confirmingSetMetrics := metrics.NewConfirmingSetCollector(registerer)
	metricsServer := metrics.NewServer(log, cfg.Node.MetricsPort, false)

	ledger := nanoledger.New(db, nanoledger.WithWorkValidator(nanoledger.NewBlake2bWorkValidator(cfg.Node.WorkThreshold)))

	weightFunc := ledgerWeightFunc(log, ledger)
	quorumFunc := quorum.New(cfg.Quorum, nil)

	activeElections := activeelections.New(
		cfg.ActiveElections,
		ledger,
		module.NoopVoteSink{},
		nil, // Activator: wired below once the scheduler exists
		nil, // ConfirmingSet: wired below once the confirming set exists
		nil, // PrincipalsFunc: representative discovery is out of scope
		weightFunc,
		quorumFunc,
		log,
	)

	priorityScheduler := scheduler.New(cfg.Scheduler, ledger, activeElections, log)
	activeElections.SetActivator(priorityScheduler)

	confirmingSet := confirming.New(log, cfg.Confirming, ledger, activeElections, confirmingSetMetrics)
	activeElections.SetConfirmingSet(confirmingSet)

	blockProcessor := blockprocessor.New(
		log,
		cfg.BlockProcessor,
		ledger,
		blockProcessorMetrics,
		activeElections,
		activeElections,
		nil, // VoteHistoryPurger: the vote generator's local cache is out of scope
	)
	blockProcessor.OnBlockProcessed(func(block chain.Block, source blockprocessor.Source, status chain.BlockStatus) {
		if status == chain.StatusProgress {
			activeElections.Publish(block)
		}
	})

	activeElections.OnStarted(func(e *election.Election) {
		activeElectionsMetrics.ElectionStarted(e.Behavior().String())
	})
	activeElections.OnStopped(func(e *election.Election) {
		activeElectionsMetrics.ElectionStopped(e.Behavior().String(), e.State().String(), e.Status().Duration)
	})

	components := []module.Startable{activeElections, priorityScheduler, confirmingSet, blockProcessor}
	readyAware := []module.ReadyDoneAware{activeElections, priorityScheduler, confirmingSet, blockProcessor}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errChan := make(chan error, 1)
	signaler := irrecoverable.NewSignaler(errChan)
	signalerCtx := irrecoverable.WithSignaler(ctx, signaler)

	for _, c := range components {
		go c.Start(signalerCtx)
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-util.AllClosed(util.AllReady(readyAware...), metricsServer.Ready()):
		log.Info().Msg("nano node startup complete")
	case err := <-errChan:
		log.Error().Err(err).Msg("unhandled irrecoverable error during startup")
		cancel()
		return err
	case sig := <-signalChan:
		log.Info().Str("signal", sig.String()).Msg("nano node shutting down before startup completed")
		cancel()
		<-util.AllDone(readyAware...)
		<-metricsServer.Done()
		return nil
	}

	select {
	case sig := <-signalChan:
		log.Info().Str("signal", sig.String()).Msg("nano node shutting down")
	case err := <-errChan:
		log.Error().Err(err).Msg("unhandled irrecoverable error")
		cancel()
		<-util.AllDone(readyAware...)
		<-metricsServer.Done()
		return err
	}

	cancel()
	<-util.AllDone(readyAware...)
	<-metricsServer.Done()
	log.Info().Msg("nano node shutdown complete")
	return nil
}

// ledgerWeightFunc resolves a representative's current delegated voting
// weight by opening a fresh read snapshot per call. Elections call this
// rarely enough (on vote receipt) that a short-lived read transaction is
// simpler than threading a long-lived one through to the election layer.
func ledgerWeightFunc(log zerolog.Logger, ledger chain.Ledger) election.WeightFunc {
	return func(representative chain.Hash) *big.Int {
		rtx, err := ledger.BeginRead(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("could not open read snapshot for weight lookup")
			return big.NewInt(0)
		}
		defer rtx.Discard()
		weight, err := ledger.Weight(rtx, representative)
		if err != nil {
			return big.NewInt(0)
		}
		return weight
	}
}
