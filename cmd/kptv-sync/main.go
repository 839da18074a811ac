package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/kevp/kptv-sync/internal/cache"
	"github.com/kevp/kptv-sync/internal/config"
	"github.com/kevp/kptv-sync/internal/fetcher"
	"github.com/kevp/kptv-sync/internal/store"
	"github.com/kevp/kptv-sync/internal/syncer"
)

func main() {
	configPath := flag.String("config", "", "Optional config file path (YAML); else use env DATABASE_URL")
	action := flag.String("a", "sync", "Action: sync | test | remediate | fixup")
	providerID := flag.Int64("provider", 0, "Sync only this provider id (0 = all)")
	live := flag.Bool("live", false, "Fetch only the live group (combinable with -series/-vod)")
	series := flag.Bool("series", false, "Fetch only the series group (combinable with -live/-vod)")
	vod := flag.Bool("vod", false, "Fetch the vod group (excluded by default)")
	workers := flag.Int("workers", 0, "Override sync worker count (1-16; 0 = auto)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)
	if *debug {
		log.SetLevel(logrus.DebugLevel)
	}

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *workers != 0 {
		cfg.Workers = *workers
	}

	ctx := context.Background()

	// Run migrations.
	absMigrations, err := filepath.Abs("migrations")
	if err != nil {
		absMigrations = "migrations"
	}
	if _, err := os.Stat(absMigrations); err != nil {
		if exe, e := os.Executable(); e == nil {
			absMigrations = filepath.Join(filepath.Dir(exe), "migrations")
		}
	}
	if err := store.RunMigrations(cfg.DatabaseURL, "file://"+absMigrations); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
	if err := store.EnsureProcedures(cfg.DatabaseURL); err != nil {
		fmt.Fprintf(os.Stderr, "schema: %v\n", err)
		os.Exit(1)
	}

	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	// Connect to Redis if REDIS_URL is configured.
	var appStore store.Store = pg
	if cfg.RedisURL != "" {
		rds, err := cache.New(cfg.RedisURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "redis: %v\n", err)
			os.Exit(1)
		}
		defer rds.Close()

		if err := rds.Ping(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "redis ping: %v\n", err)
			os.Exit(1)
		}

		appStore = store.NewCachedStore(pg, rds, log)
		log.Info("redis connected (caching enabled)")
	} else {
		log.Info("redis disabled (REDIS_URL not set)")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := syncer.New(cfg, appStore, log)

	switch *action {
	case "sync":
		err = s.Sync(ctx, syncer.Options{
			ProviderID: *providerID,
			Only:       fetcher.TypeSelection{Live: *live, Series: *series, Vod: *vod},
		})
	case "test":
		err = s.TestActiveStreams(ctx)
	case "remediate":
		err = s.RemediateFromLog(ctx)
	case "fixup":
		err = s.Fixup(ctx)
	default:
		fmt.Fprintf(os.Stderr, "unknown action %q (want sync, test, remediate, or fixup)\n", *action)
		os.Exit(2)
	}
	if err != nil {
		log.Errorf("%s: %v", *action, err)
		os.Exit(1)
	}
}
