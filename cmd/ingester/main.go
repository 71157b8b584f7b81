// Command ingester runs the chain ingestion pipeline: a live tailer and a
// two-sweep backfiller sharing one Postgres-compatible store and one
// object-store bucket.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"flowscan-clone/internal/blobstore"
	"flowscan-clone/internal/chain"
	"flowscan-clone/internal/config"
	"flowscan-clone/internal/debugserver"
	"flowscan-clone/internal/ingester"
	"flowscan-clone/internal/metrics"
	"flowscan-clone/internal/repository"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "ingester",
		Short: "Ingest a chain's blocks and transactions into the relational store",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")

	root.AddCommand(runCmd(), createTablesCmd(), dropTablesCmd(), resetCheckpointCmd())

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnvOverrides()
	return cfg, nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the live tailer and backfiller until signalled to stop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
}

func createTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-tables",
		Short: "Create the schema and tables this chain's dataset lives in",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			repo, err := repository.NewRepository(cmd.Context(), cfg.DBURL, cfg.SchemaName, cfg.DBPoolSize)
			if err != nil {
				return err
			}
			defer repo.Close()
			return repo.CreateTables(cmd.Context())
		},
	}
}

func dropTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop-tables",
		Short: "Drop the schema and every table in it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			repo, err := repository.NewRepository(cmd.Context(), cfg.DBURL, cfg.SchemaName, cfg.DBPoolSize)
			if err != nil {
				return err
			}
			defer repo.Close()
			return repo.DropTables(cmd.Context())
		},
	}
}

// resetCheckpointCmd clears the live tailer's implicit checkpoint by
// deleting every raw row above the given height, so the next run's live
// tailer resumes from the lowered max height and re-fetches that range
// instead of trusting a stale max height.
func resetCheckpointCmd() *cobra.Command {
	var aboveHeight int64

	cmd := &cobra.Command{
		Use:   "reset-checkpoint",
		Short: "Forget persisted heights above a given height",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			repo, err := repository.NewRepository(cmd.Context(), cfg.DBURL, cfg.SchemaName, cfg.DBPoolSize)
			if err != nil {
				return err
			}
			defer repo.Close()
			return repo.ResetCheckpoint(cmd.Context(), cfg.ChainID, aboveHeight)
		},
	}
	cmd.Flags().Int64Var(&aboveHeight, "above-height", 0, "delete raw rows with height greater than this value")
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	sink := metrics.New(reg)

	repo, err := repository.NewRepository(ctx, cfg.DBURL, cfg.SchemaName, cfg.DBPoolSize)
	if err != nil {
		return err
	}
	defer repo.Close()
	repo.WithMetrics(sink)

	blob, err := blobstore.NewS3Sink(ctx, cfg.BucketName, cfg.ObjectStoreCredentialsPath, cfg.ObjectStoreStageToDisk)
	if err != nil {
		return err
	}
	blob.WithMetrics(sink)

	descriptor := cfg.Descriptor()
	client := chain.NewClient(descriptor.APIEndpoints, 0)
	persister := ingester.NewPersister(repo, blob, descriptor.RegistryName)

	tailer := ingester.NewLiveTailer(client, repo, persister, descriptor.ChainID, descriptor.BlockInterval)
	backfiller := ingester.NewBackfiller(client, repo, persister, descriptor.ChainID, descriptor.BatchSize, descriptor.StepSize, descriptor.BlockInterval)

	debug := debugserver.New(cfg.DebugAddr, reg, repo, descriptor.ChainID)
	go func() {
		if err := debug.Start(); err != nil {
			log.Printf("[debugserver] %v", err)
		}
	}()

	done := make(chan struct{}, 3)
	go func() { tailer.Run(ctx); done <- struct{}{} }()
	go func() { backfiller.RunHistorical(ctx); done <- struct{}{} }()
	go func() { backfiller.RunRepair(ctx); done <- struct{}{} }()

	<-ctx.Done()
	<-done
	<-done
	<-done

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return debug.Shutdown(shutdownCtx)
}
