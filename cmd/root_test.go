package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-harvest/internal/monitoring"
	"github.com/sells-group/lead-harvest/internal/validate"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"harvest", "enrich", "aggregate", "validate", "export", "serve", "status"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "lead-harvest", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestHarvestCommand_Flags(t *testing.T) {
	for _, name := range []string{"manifest", "max-leads"} {
		assert.NotNil(t, harvestCmd.Flags().Lookup(name), "harvest should have --%s flag", name)
	}
	assert.Error(t, harvestCmd.Args(harvestCmd, []string{"plumbers in austin", "extra"}))
}

func TestEnrichCommand_Flags(t *testing.T) {
	flag := enrichCmd.Flags().Lookup("skip-enriched")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestAggregateCommand_Flags(t *testing.T) {
	require.NotNil(t, aggregateCmd.Flags().Lookup("identity"))
}

func TestValidateCommand_RequiresPhase(t *testing.T) {
	assert.Error(t, validateCmd.Args(validateCmd, nil))
	assert.NoError(t, validateCmd.Args(validateCmd, []string{"all"}))
}

func TestExportCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range exportCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["xlsx"])
	assert.True(t, names["postgres"])
	require.NotNil(t, exportXLSXCmd.Flags().ShorthandLookup("o"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &validate.Report{
		Phase:    validate.PhaseEnrichment,
		Name:     "enrichment",
		Status:   validate.StatusFail,
		RowCount: 0,
		Error:    "no enrichment rows",
		Warnings: []string{"extra column notes"},
	})

	out := buf.String()
	assert.Contains(t, out, "phase 2 enrichment: FAIL (0 rows)")
	assert.Contains(t, out, "error: no enrichment rows")
	assert.Contains(t, out, "warning: extra column notes")
}

func TestPrintStatus(t *testing.T) {
	dir := t.TempDir()
	_, err := validate.WriteReport(dir, &validate.Report{
		Phase:       validate.PhaseHarvest,
		Name:        "harvest",
		Status:      validate.StatusPass,
		GeneratedAt: time.Date(2026, 3, 4, 5, 6, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	snap := &monitoring.Snapshot{Stores: []monitoring.StoreStats{
		{Phase: "harvest", Path: filepath.Join(dir, "raw_leads.db"), Exists: true, Rows: 12, Populated: 9},
		{Phase: "enrichment", Path: filepath.Join(dir, "enriched_data.db")},
	}}

	var buf bytes.Buffer
	require.NoError(t, printStatus(&buf, snap, dir))

	out := buf.String()
	assert.Contains(t, out, "PHASE")
	assert.Regexp(t, `harvest\s+\S+raw_leads\.db\s+12\s+9\s+pass \(2026-03-04 05:06\)`, out)
	assert.Regexp(t, `enrichment\s+\S+enriched_data\.db\s+-\s+-\s+none`, out)
}
