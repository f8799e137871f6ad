package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-harvest/internal/config"
	"github.com/sells-group/lead-harvest/internal/monitoring"
	"github.com/sells-group/lead-harvest/internal/schema"
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lead-harvest",
	Short: "Three-phase local business lead pipeline",
	Long:  "Harvests business listings from Google Places, enriches them with contacts scraped from their websites, and merges both into a deduplicated master lead store. Each phase is validated before the next runs.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		l, err := config.NewLogger(cfg.Log)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l

		if err := schema.Validate(); err != nil {
			return fmt.Errorf("schema registry: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// phaseLogger tags every line of one phase run with its run id.
func phaseLogger(phase string) *zap.Logger {
	return logger.With(zap.String("phase", phase), zap.String("run_id", uuid.NewString()))
}

// flushMetrics finishes m and writes it out when a textfile dir is
// configured. A write failure is logged, never fatal.
func flushMetrics(log *zap.Logger, m *monitoring.PhaseMetrics, start time.Time, ok bool) {
	m.Finish(start, ok)
	if cfg.Metrics.TextfileDir == "" {
		return
	}
	path, err := m.WriteTextfile(cfg.Metrics.TextfileDir)
	if err != nil {
		log.Warn("write metrics textfile failed", zap.Error(err))
		return
	}
	log.Debug("metrics written", zap.String("path", path))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
