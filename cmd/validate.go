package main

import (
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-harvest/internal/validate"
)

var errValidationFailed = eris.New("validation failed")

var validateCmd = &cobra.Command{
	Use:   "validate <phase|all>",
	Short: "Audit a phase store and write its report",
	Long:  "Checks a phase store's table, columns and population, writes reports/phase_<n>_report.yaml, and exits non-zero when the phase fails. Phase is 1|harvest, 2|enrichment, 3|aggregate or all.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("validate"); err != nil {
			return err
		}

		v := validate.New(validate.Paths{
			Harvest:    cfg.Store.HarvestPath,
			Enrichment: cfg.Store.EnrichmentPath,
			Master:     cfg.Store.MasterPath,
		}, logger)

		var reports []*validate.Report
		if strings.EqualFold(strings.TrimSpace(args[0]), "all") {
			reports = v.ValidateAll(ctx)
		} else {
			phase, err := validate.ParsePhase(args[0])
			if err != nil {
				return err
			}
			reports = []*validate.Report{v.Validate(ctx, phase)}
		}

		failed := false
		for _, r := range reports {
			path, err := validate.WriteReport(cfg.Store.ReportsDir, r)
			if err != nil {
				return err
			}
			logger.Info("report written",
				zap.String("phase", r.Name),
				zap.String("status", string(r.Status)),
				zap.String("path", path),
			)
			printReport(cmd.OutOrStdout(), r)
			if !r.Passed() {
				failed = true
			}
		}
		if failed {
			cmd.SilenceUsage = true
			return errValidationFailed
		}
		return nil
	},
}

func printReport(w io.Writer, r *validate.Report) {
	fmt.Fprintf(w, "phase %d %s: %s (%d rows)\n", int(r.Phase), r.Name, strings.ToUpper(string(r.Status)), r.RowCount)
	if r.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", r.Error)
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
