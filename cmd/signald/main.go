package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"dexsignal/internal/config"
	"dexsignal/internal/feed"
	"dexsignal/internal/graph"
	"dexsignal/internal/history"
	"dexsignal/internal/logging"
	"dexsignal/internal/pipeline"
	"dexsignal/internal/pools"
	"dexsignal/internal/storage"
	chstore "dexsignal/internal/storage/clickhouse"
	filestore "dexsignal/internal/storage/file"
	"dexsignal/internal/storage/memory"
	"dexsignal/internal/storage/migrations"
	pgstore "dexsignal/internal/storage/postgres"
	"dexsignal/internal/watcher"
)

func main() {
	// .env is optional, real env always wins.
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "Path to YAML configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "signald: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Pretty)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	// Snapshot store per configured backend.
	var snaps storage.SnapshotStore
	switch cfg.Storage.Backend {
	case "memory":
		snaps = memory.NewSnapshotStore()
	case "file":
		fs, err := filestore.NewSnapshotStore(cfg.Storage.FileRoot)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open file snapshot store")
		}
		snaps = fs
	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("postgres migrations failed")
		}
		snaps = pgstore.NewSnapshotStore(pool)
	}

	// Long-term swap archive, optional.
	var archive storage.SwapArchive
	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to clickhouse")
		}
		defer conn.Close()
		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			log.Fatal().Err(err).Msg("clickhouse migrations failed")
		}
		archive = chstore.NewSwapArchive(conn)
	}

	if cfg.Feed.Endpoint == "" {
		log.Fatal().Msg("feed.endpoint is required to run the ingestion service")
	}

	var graphOpts []graph.ClientOption
	if cfg.Graph.Timeout > 0 {
		graphOpts = append(graphOpts, graph.WithTimeout(cfg.Graph.Timeout.Std()))
	}
	if cfg.Graph.MaxRetries > 0 {
		graphOpts = append(graphOpts, graph.WithMaxRetries(cfg.Graph.MaxRetries))
	}
	gql := graph.NewClient(cfg.Graph.Endpoint, graphOpts...)

	wsConfig := feed.DefaultWSConfig()
	if cfg.Feed.PingInterval > 0 {
		wsConfig.PingInterval = cfg.Feed.PingInterval.Std()
	}
	feedClient, err := feed.NewWSClient(ctx, cfg.Feed.Endpoint, &wsConfig, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to swap feed")
	}
	defer feedClient.Close()

	dir := pools.NewDirectory(gql, snaps, pools.Config{
		MinVolumeUSD: cfg.Pools.MinVolumeUSD,
		PageSize:     cfg.Pools.PageSize,
		MaxPages:     cfg.Pools.MaxPages,
	}, log)

	hist := history.NewStore(history.Config{
		RetentionRaw:    cfg.History.RetentionRaw.Std(),
		RetentionRecent: cfg.History.RetentionRecent.Std(),
		ActivityWindow:  cfg.History.ActivityWindow.Std(),
		GoodTraders:     cfg.History.GoodTraders,
	})

	w := watcher.New(feedClient, dir, hist, log)

	runner := pipeline.New(pipeline.Config{
		RefreshInterval: cfg.Pipeline.RefreshInterval.Std(),
		SummaryInterval: cfg.Pipeline.SummaryInterval.Std(),
		ArchiveInterval: cfg.Pipeline.ArchiveInterval.Std(),
	}, pipeline.Deps{
		Snapshots: snaps,
		Archive:   archive,
		Swaps:     gql,
		Directory: dir,
		History:   hist,
		Watcher:   w,
	}, log)

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("pipeline terminated")
	}
}
