package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/lead-harvest/internal/monitoring"
	"github.com/sells-group/lead-harvest/internal/validate"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show row counts and last validation status for each phase store",
	RunE: func(cmd *cobra.Command, args []string) error {
		collector := monitoring.NewCollector(
			monitoring.Targets(cfg.Store.HarvestPath, cfg.Store.EnrichmentPath, cfg.Store.MasterPath),
			logger,
		)
		snap, err := collector.Collect(cmd.Context())
		if err != nil {
			return err
		}
		return printStatus(cmd.OutOrStdout(), snap, cfg.Store.ReportsDir)
	},
}

// printStatus renders one row per store. Targets are in phase order, so the
// i-th store pairs with the i-th phase's report.
func printStatus(out io.Writer, snap *monitoring.Snapshot, reportsDir string) error {
	phases := validate.Phases()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PHASE\tSTORE\tROWS\tPOPULATED\tLAST REPORT")
	for i, st := range snap.Stores {
		rows, populated := "-", "-"
		if st.Exists {
			rows = fmt.Sprintf("%d", st.Rows)
			populated = fmt.Sprintf("%d", st.Populated)
		}
		last := "none"
		if i < len(phases) {
			if r, err := validate.ReadReport(reportsDir, phases[i]); err == nil {
				last = fmt.Sprintf("%s (%s)", r.Status, r.GeneratedAt.Format("2006-01-02 15:04"))
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", st.Phase, st.Path, rows, populated, last)
	}
	return w.Flush()
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
