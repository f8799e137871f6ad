package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-harvest/internal/enrich"
	"github.com/sells-group/lead-harvest/internal/monitoring"
	"github.com/sells-group/lead-harvest/internal/schema"
	"github.com/sells-group/lead-harvest/internal/store"
)

var enrichSkipEnriched bool

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Phase 2: visit candidate websites and record contact details",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("enrich"); err != nil {
			return err
		}
		log := phaseLogger("enrichment")

		harvestDB, err := store.OpenReadOnly(ctx, cfg.Store.HarvestPath, log)
		if err != nil {
			return err
		}
		defer harvestDB.Close() //nolint:errcheck

		candidates, err := harvestDB.ListCandidatesWithWebsite(ctx)
		if err != nil {
			return err
		}

		enrichDB, err := store.Open(ctx, cfg.Store.EnrichmentPath, log)
		if err != nil {
			return err
		}
		defer enrichDB.Close() //nolint:errcheck
		if err := enrichDB.EnsureTable(ctx, schema.Enrichment); err != nil {
			return err
		}

		fetcher := enrich.NewHTTPFetcher(
			enrich.WithUserAgent(cfg.Enrich.UserAgent),
			enrich.WithMaxBodyBytes(cfg.Enrich.MaxBodyBytes),
		)
		e := enrich.New(fetcher, enrichDB, enrich.Options{
			Timeout:      time.Duration(cfg.Enrich.TimeoutSecs) * time.Second,
			SkipEnriched: cfg.Enrich.SkipEnriched || enrichSkipEnriched,
		}, log)

		metrics := monitoring.NewPhaseMetrics("enrichment")
		start := time.Now()
		res, err := e.Enrich(ctx, candidates)
		if res != nil {
			metrics.Add("attempted", res.Attempted)
			metrics.Add("failed", res.Failed)
			metrics.Add("failed_transient", res.Transient)
			metrics.Add("with_signal", res.WithSignal)
			metrics.Add("skipped", res.Skipped)
		}
		flushMetrics(log, metrics, start, err == nil)
		if err != nil {
			return err
		}

		log.Info("enrichment complete",
			zap.Int("candidates", len(candidates)),
			zap.Int("attempted", res.Attempted),
			zap.Int("failed", res.Failed),
			zap.Int("failed_transient", res.Transient),
			zap.Int("with_signal", res.WithSignal),
			zap.Duration("elapsed", time.Since(start)),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "enriched %d of %d candidates: %d with contacts, %d failed visits\n",
			res.Attempted, len(candidates), res.WithSignal, res.Failed)
		return nil
	},
}

func init() {
	enrichCmd.Flags().BoolVar(&enrichSkipEnriched, "skip-enriched", false, "skip candidates that already have an enrichment row")
	rootCmd.AddCommand(enrichCmd)
}
