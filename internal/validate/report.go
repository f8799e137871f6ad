package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Phase numbers a pipeline phase.
type Phase int

// Pipeline phases in run order.
const (
	PhaseHarvest    Phase = 1
	PhaseEnrichment Phase = 2
	PhaseAggregate  Phase = 3
)

// Phases lists every phase in run order.
func Phases() []Phase {
	return []Phase{PhaseHarvest, PhaseEnrichment, PhaseAggregate}
}

func (p Phase) String() string {
	switch p {
	case PhaseHarvest:
		return "harvest"
	case PhaseEnrichment:
		return "enrichment"
	case PhaseAggregate:
		return "aggregate"
	default:
		return fmt.Sprintf("phase_%d", int(p))
	}
}

// ParsePhase accepts a phase number or name.
func ParsePhase(s string) (Phase, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(name); err == nil {
		name = Phase(n).String()
	}
	for _, p := range Phases() {
		if name == p.String() {
			return p, nil
		}
	}
	if name == "master" {
		return PhaseAggregate, nil
	}
	return 0, eris.Errorf("validate: unknown phase %q", s)
}

// Status is a validation outcome.
type Status string

// Validation outcomes.
const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
)

// Report is the outcome of validating one phase. It is rewritten on every
// run.
type Report struct {
	RunID       string         `yaml:"run_id" json:"run_id"`
	Phase       Phase          `yaml:"phase" json:"phase"`
	Name        string         `yaml:"name" json:"name"`
	Store       string         `yaml:"store" json:"store"`
	Status      Status         `yaml:"status" json:"status"`
	RowCount    int            `yaml:"row_count" json:"row_count"`
	Counters    map[string]int `yaml:"counters,omitempty" json:"counters,omitempty"`
	Warnings    []string       `yaml:"warnings,omitempty" json:"warnings,omitempty"`
	Error       string         `yaml:"error,omitempty" json:"error,omitempty"`
	GeneratedAt time.Time      `yaml:"generated_at" json:"generated_at"`
}

// Passed reports whether the phase may feed the next one.
func (r *Report) Passed() bool {
	return r.Status == StatusPass
}

func (r *Report) fail(format string, args ...any) *Report {
	r.Status = StatusFail
	r.Error = fmt.Sprintf(format, args...)
	return r
}

func (r *Report) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ReportPath is where the report for phase lives under dir.
func ReportPath(dir string, phase Phase) string {
	return filepath.Join(dir, fmt.Sprintf("phase_%d_report.yaml", int(phase)))
}

// WriteReport writes r to its well-known path under dir, replacing any
// previous report.
func WriteReport(dir string, r *Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "validate: create reports dir %s", dir)
	}
	data, err := yaml.Marshal(r)
	if err != nil {
		return "", eris.Wrap(err, "validate: marshal report")
	}

	path := ReportPath(dir, r.Phase)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "validate: write %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", eris.Wrapf(err, "validate: rename %s", tmp)
	}
	return path, nil
}

// ReadReport loads the last report written for phase.
func ReadReport(dir string, phase Phase) (*Report, error) {
	path := ReportPath(dir, phase)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "validate: read %s", path)
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrapf(err, "validate: parse %s", path)
	}
	return &r, nil
}
