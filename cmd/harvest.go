package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-harvest/internal/harvest"
	"github.com/sells-group/lead-harvest/internal/monitoring"
	"github.com/sells-group/lead-harvest/internal/schema"
	"github.com/sells-group/lead-harvest/internal/store"
	"github.com/sells-group/lead-harvest/pkg/google"
)

var (
	harvestManifest string
	harvestMaxLeads int
)

var harvestCmd = &cobra.Command{
	Use:   "harvest [query]",
	Short: "Phase 1: harvest business listings into the raw lead store",
	Long:  "Runs a single search query, or every niche/location pair of a search manifest, against Google Places and stores each listing once.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("harvest"); err != nil {
			return err
		}
		log := phaseLogger("harvest")

		maxLeads := cfg.Harvest.MaxLeads
		var queries []string
		if len(args) == 1 {
			queries = []string{args[0]}
		} else {
			path := harvestManifest
			if path == "" {
				path = cfg.Harvest.ManifestPath
			}
			m, err := harvest.LoadManifest(path)
			if err != nil {
				return err
			}
			queries = m.Queries()
			if m.Settings.MaxResults > 0 {
				maxLeads = m.Settings.MaxResults
			}
		}
		if harvestMaxLeads > 0 {
			maxLeads = harvestMaxLeads
		}

		db, err := store.Open(ctx, cfg.Store.HarvestPath, log)
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck
		if err := db.EnsureTable(ctx, schema.Harvest); err != nil {
			return err
		}

		client := google.NewClient(cfg.Google.Key, google.WithBaseURL(cfg.Google.BaseURL))
		h := harvest.New(harvest.NewPlacesSource(client, cfg.Google.RateLimit), db, harvest.Options{
			MaxAttempts: cfg.Harvest.MaxAttempts,
			BackoffBase: time.Duration(cfg.Harvest.BackoffBaseMs) * time.Millisecond,
		}, log)

		metrics := monitoring.NewPhaseMetrics("harvest")
		start := time.Now()

		var results []*harvest.Result
		if len(queries) == 1 {
			var res *harvest.Result
			if res, err = h.Harvest(ctx, queries[0], maxLeads); res != nil {
				results = append(results, res)
			}
		} else {
			limit := rate.Inf
			if cfg.Harvest.QueryRateLimit > 0 {
				limit = rate.Limit(cfg.Harvest.QueryRateLimit)
			}
			limiter := rate.NewLimiter(limit, 1)
			results, err = h.HarvestAll(ctx, queries, maxLeads, limiter)
		}

		var inserted, duplicates, exhausted int
		for _, r := range results {
			metrics.Add("extracted", r.Extracted)
			metrics.Add("skipped", r.Skipped)
			metrics.Add("inserted", r.Inserted)
			metrics.Add("duplicate", r.Duplicates)
			inserted += r.Inserted
			duplicates += r.Duplicates
			if r.Exhausted {
				exhausted++
				metrics.Add("exhausted_query", 1)
			}
		}
		flushMetrics(log, metrics, start, err == nil)
		if err != nil {
			return eris.Wrap(err, "harvest")
		}

		log.Info("harvest complete",
			zap.Int("queries", len(queries)),
			zap.Int("inserted", inserted),
			zap.Int("duplicates", duplicates),
			zap.Int("exhausted_queries", exhausted),
			zap.Duration("elapsed", time.Since(start)),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "harvested %d queries: %d new leads, %d duplicates, %d with no leads\n",
			len(queries), inserted, duplicates, exhausted)
		return nil
	},
}

func init() {
	harvestCmd.Flags().StringVar(&harvestManifest, "manifest", "", "search manifest path (default from config)")
	harvestCmd.Flags().IntVar(&harvestMaxLeads, "max-leads", 0, "max leads per query (default from manifest or config)")
	rootCmd.AddCommand(harvestCmd)
}
