package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"dexsignal/internal/config"
	"dexsignal/internal/domain"
	"dexsignal/internal/graph"
	"dexsignal/internal/history"
	"dexsignal/internal/logging"
	"dexsignal/internal/marketdepth"
	"dexsignal/internal/scoring"
	"dexsignal/internal/storage"
	filestore "dexsignal/internal/storage/file"
	"dexsignal/internal/storage/memory"
	"dexsignal/internal/storage/migrations"
	pgstore "dexsignal/internal/storage/postgres"
	"dexsignal/internal/universe"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "Path to YAML configuration")
	enhanced := flag.Bool("enhanced", false, "Include market-depth adjusted scoring")
	outputJSON := flag.Bool("json", false, "Output as JSON")
	top := flag.Int("top", 0, "Limit output to the top N tokens (0 = all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rank: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Pretty)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

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

	var graphOpts []graph.ClientOption
	if cfg.Graph.Timeout > 0 {
		graphOpts = append(graphOpts, graph.WithTimeout(cfg.Graph.Timeout.Std()))
	}
	if cfg.Graph.MaxRetries > 0 {
		graphOpts = append(graphOpts, graph.WithMaxRetries(cfg.Graph.MaxRetries))
	}
	gql := graph.NewClient(cfg.Graph.Endpoint, graphOpts...)

	fetcher := universe.NewFetcher(gql, snaps, universe.Config{
		MinVolumeUSD: cfg.Universe.MinVolumeUSD,
		PageSize:     cfg.Universe.PageSize,
		MaxPages:     cfg.Universe.MaxPages,
	}, log)

	tokens, err := fetcher.FetchCurrentUniverse(ctx)
	if err != nil {
		if errors.Is(err, universe.ErrNoData) {
			log.Fatal().Msg("no universe data for the current or previous hour")
		}
		log.Fatal().Err(err).Msg("universe fetch failed")
	}

	hist := history.NewStore(history.Config{
		RetentionRaw:    cfg.History.RetentionRaw.Std(),
		RetentionRecent: cfg.History.RetentionRecent.Std(),
		ActivityWindow:  cfg.History.ActivityWindow.Std(),
		GoodTraders:     cfg.History.GoodTraders,
	})
	if err := hist.Restore(ctx, snaps); err != nil {
		log.Warn().Err(err).Msg("history restore failed, scoring without swap activity")
	}

	now := time.Now()
	view := hist.Snapshot(now)
	ranges := scoring.BuildRanges(tokens, view.Infos, view.Activity, now)

	if *enhanced {
		if !cfg.MarketDepth.Enabled {
			log.Fatal().Msg("enhanced scoring requires market_depth to be enabled")
		}
		md := marketdepth.NewClient(cfg.MarketDepth.BaseURL, log)
		addrs := make([]string, len(tokens))
		for i, t := range tokens {
			addrs[i] = t.Address
		}
		pairs := md.FetchMany(ctx, addrs)

		results := make([]domain.EnhancedScoreDetails, 0, len(tokens))
		for _, t := range tokens {
			results = append(results, scoring.ScoreEnhanced(
				t, view.Infos, view.Activity, ranges, pairs[t.Address], cfg.Scoring.Weights, now))
		}
		sort.Slice(results, func(i, j int) bool { return results[i].Final > results[j].Final })
		results = limit(results, *top)

		if *outputJSON {
			printJSON(results)
			return
		}
		for i, r := range results {
			fmt.Printf("%3d. %-10s %-44s score=%3d final=%6.2f\n",
				i+1, r.Symbol, r.Address, r.Total, r.Final)
		}
		return
	}

	results := make([]domain.ScoreDetails, 0, len(tokens))
	for _, t := range tokens {
		results = append(results, scoring.Score(t, view.Infos, view.Activity, ranges, cfg.Scoring.Weights, now))
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Total > results[j].Total })
	results = limit(results, *top)

	if *outputJSON {
		printJSON(results)
		return
	}
	for i, r := range results {
		fmt.Printf("%3d. %-10s %-44s score=%3d\n", i+1, r.Symbol, r.Address, r.Total)
	}
}

func limit[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "rank: encode output: %v\n", err)
		os.Exit(1)
	}
}
