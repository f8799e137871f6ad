package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/lead-harvest/internal/aggregate"
	"github.com/sells-group/lead-harvest/internal/monitoring"
)

var aggregateIdentity string

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Phase 3: merge candidates and their latest enrichment into the master store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if aggregateIdentity != "" {
			cfg.Aggregate.Identity = aggregateIdentity
		}
		if err := cfg.Validate("aggregate"); err != nil {
			return err
		}
		log := phaseLogger("master")

		resolver, err := aggregate.ResolverByName(cfg.Aggregate.Identity)
		if err != nil {
			return err
		}
		a := aggregate.New(aggregate.Paths{
			Harvest:    cfg.Store.HarvestPath,
			Enrichment: cfg.Store.EnrichmentPath,
			Master:     cfg.Store.MasterPath,
		}, resolver, log)

		metrics := monitoring.NewPhaseMetrics("master")
		start := time.Now()
		sum, err := a.Aggregate(ctx)
		metrics.Add("read", sum.Read)
		metrics.Add("inserted", sum.Inserted)
		metrics.Add("updated", sum.Updated)
		metrics.Add("skipped", sum.Skipped)
		flushMetrics(log, metrics, start, err == nil)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "merged %d candidates: %d inserted, %d updated, %d skipped\n",
			sum.Read, sum.Inserted, sum.Updated, sum.Skipped)
		return nil
	},
}

func init() {
	aggregateCmd.Flags().StringVar(&aggregateIdentity, "identity", "", "identity resolver: exact or normalized (default from config)")
	rootCmd.AddCommand(aggregateCmd)
}
