package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-harvest/internal/export"
	"github.com/sells-group/lead-harvest/internal/model"
	"github.com/sells-group/lead-harvest/internal/store"
)

var exportXLSXOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export master leads to downstream systems",
}

var exportXLSXCmd = &cobra.Command{
	Use:   "xlsx",
	Short: "Write master leads to a spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportXLSXOut != "" {
			cfg.Export.XLSXPath = exportXLSXOut
		}
		if err := cfg.Validate("export-xlsx"); err != nil {
			return err
		}

		records, err := loadMaster(cmd.Context())
		if err != nil {
			return err
		}
		if err := export.WriteXLSX(cfg.Export.XLSXPath, records); err != nil {
			return err
		}

		logger.Info("xlsx export complete", zap.String("path", cfg.Export.XLSXPath), zap.Int("records", len(records)))
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d leads to %s\n", len(records), cfg.Export.XLSXPath)
		return nil
	},
}

var exportPostgresCmd = &cobra.Command{
	Use:   "postgres",
	Short: "Upsert master leads into a Postgres table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("export-postgres"); err != nil {
			return err
		}

		records, err := loadMaster(ctx)
		if err != nil {
			return err
		}

		pool, err := pgxpool.New(ctx, cfg.Export.DatabaseURL)
		if err != nil {
			return eris.Wrap(err, "export: connect postgres")
		}
		defer pool.Close()

		n, err := export.NewPostgres(pool, cfg.Export.Table, logger).Export(ctx, records)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "upserted %d leads into %s (%d rows affected)\n", len(records), cfg.Export.Table, n)
		return nil
	},
}

func loadMaster(ctx context.Context) ([]model.MasterRecord, error) {
	db, err := store.OpenReadOnly(ctx, cfg.Store.MasterPath, logger)
	if err != nil {
		return nil, err
	}
	defer db.Close() //nolint:errcheck
	return db.ListMaster(ctx)
}

func init() {
	exportXLSXCmd.Flags().StringVarP(&exportXLSXOut, "out", "o", "", "output path (default from config)")
	exportCmd.AddCommand(exportXLSXCmd, exportPostgresCmd)
	rootCmd.AddCommand(exportCmd)
}
