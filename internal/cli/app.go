// Package cli builds the urfave/cli/v2 application exposed as the Operator
// Surface (spec.md §4.7): start, stats, and errors commands plumbed onto the
// worker, kvstate, and config packages.
package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/ordinals-plus/indexer/config"
	"github.com/ordinals-plus/indexer/internal/cache"
	"github.com/ordinals-plus/indexer/internal/kvstate"
	"github.com/ordinals-plus/indexer/internal/log"
	"github.com/ordinals-plus/indexer/internal/provider"
	"github.com/ordinals-plus/indexer/internal/worker"
)

// Version is overridden at build time via -ldflags.
var Version = "dev"

// NewApp builds the indexer's command tree. start is the default action, so
// a bare invocation of the binary behaves exactly like "indexer start".
func NewApp() *cli.App {
	app := &cli.App{
		Name:    "indexer",
		Usage:   "horizontally-scalable Bitcoin Ordinals resource indexer",
		Version: Version,
		Commands: []*cli.Command{
			startCommand,
			statsCommand,
			errorsCommand,
		},
		Action: func(c *cli.Context) error {
			if c.Args().Present() {
				return fmt.Errorf("unknown CLI command: %q", c.Args().First())
			}
			return startCommand.Action(c)
		},
	}
	return app
}

var startCommand = &cli.Command{
	Name:  "start",
	Usage: "run the ingestion worker loop until interrupted",
	Action: func(c *cli.Context) error {
		cfg, err := config.FromEnv()
		if err != nil {
			return fmt.Errorf("start: %w", err)
		}
		if cfg.WorkerID == "" {
			cfg.WorkerID = generateWorkerID()
		}

		logger := log.New("workerId", cfg.WorkerID)
		logger.Info("resolved configuration",
			"indexerUrl", cfg.IndexerURL, "providerType", cfg.ProviderType,
			"network", cfg.Network, "batchSize", cfg.BatchSize,
			"concurrentProcessing", cfg.ConcurrentProcessing, "pollInterval", cfg.PollInterval,
			"highFailureThreshold", cfg.HighFailureThreshold)

		p, err := provider.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("start: build provider: %w", err)
		}

		st, err := kvstate.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("start: connect redis: %w", err)
		}
		defer st.Close()

		w := worker.New(cfg.WorkerID, cfg, p, cache.New(cfg.CacheTTL), st, logger)

		ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer cancel()

		return w.Run(ctx)
	},
}

var statsCommand = &cli.Command{
	Name:  "stats",
	Usage: "print indexing progress and counters",
	Action: func(c *cli.Context) error {
		cfg, err := config.FromEnv()
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		logger := log.New()

		st, err := kvstate.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("stats: connect redis: %w", err)
		}
		defer st.Close()

		s, err := st.Stats(c.Context, cfg.StartInscription)
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}

		fmt.Printf("cursor:              %d\n", s.Cursor)
		fmt.Printf("active workers:      %d\n", s.ActiveWorkers)
		fmt.Printf("identity resources:  %d (did-document: %d, verifiable-credential: %d)\n",
			s.OrdinalsTotal, s.DIDDocumentTotal, s.VerifiableCredential)
		fmt.Printf("non-identity total:  %d\n", s.NonOrdinalsTotal)
		for contentType, count := range s.NonOrdinalsByType {
			fmt.Printf("  %-20s %d\n", contentType, count)
		}
		fmt.Printf("errors:              %d\n", s.ErrorCount)
		return nil
	},
}

var errorsCommand = &cli.Command{
	Name:      "errors",
	Usage:     "print the N most recent per-item errors",
	ArgsUsage: "[N]",
	Action: func(c *cli.Context) error {
		cfg, err := config.FromEnv()
		if err != nil {
			return fmt.Errorf("errors: %w", err)
		}
		logger := log.New()

		n := int64(10)
		if c.Args().Present() {
			v, err := parseCount(c.Args().First())
			if err != nil {
				return fmt.Errorf("errors: invalid count %q: %w", c.Args().First(), err)
			}
			n = v
		}

		st, err := kvstate.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("errors: connect redis: %w", err)
		}
		defer st.Close()

		records, err := st.RecentErrors(c.Context, n)
		if err != nil {
			return fmt.Errorf("errors: %w", err)
		}
		for _, r := range records {
			fmt.Printf("[%s] #%d %s: %s (worker %s)\n",
				time.UnixMilli(r.TimestampMillis).Format(time.RFC3339),
				r.InscriptionNumber, r.InscriptionID, r.Error, r.WorkerID)
		}
		return nil
	},
}

func parseCount(s string) (int64, error) {
	var n int64
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}

// generateWorkerID builds a worker-<pid>-<millis>-<rand> identity per
// spec.md §4.7, reading the pid and start time once rather than per claim.
func generateWorkerID() string {
	return fmt.Sprintf("worker-%d-%d-%s", os.Getpid(), time.Now().UnixMilli(), uuid.NewString()[:8])
}
