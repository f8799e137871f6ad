package harvest

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

// Manifest lists the niches and locations to search. JSON manifests parse
// too since YAML is a superset.
type Manifest struct {
	Niches    []string         `yaml:"niches"`
	Locations []string         `yaml:"locations"`
	Settings  ManifestSettings `yaml:"settings"`
}

// ManifestSettings holds per-manifest harvest settings.
type ManifestSettings struct {
	MaxResults int `yaml:"max_results"`
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "manifest: read %s", path)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "manifest: parse %s", path)
	}
	if len(m.Queries()) == 0 {
		return nil, eris.Errorf("manifest: %s has no niche/location pairs", path)
	}
	return &m, nil
}

// Queries expands every niche × location pair into "<niche> in <location>".
// Blank entries are dropped.
func (m *Manifest) Queries() []string {
	var out []string
	for _, n := range m.Niches {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		for _, l := range m.Locations {
			l = strings.TrimSpace(l)
			if l == "" {
				continue
			}
			out = append(out, n+" in "+l)
		}
	}
	return out
}

// HarvestAll runs each query in turn, waiting on limiter before each one. An
// exhausted query does not stop the rest; storage errors and cancellation
// do.
func (h *Harvester) HarvestAll(ctx context.Context, queries []string, maxLeads int, limiter *rate.Limiter) ([]*Result, error) {
	results := make([]*Result, 0, len(queries))
	for i, q := range queries {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return results, eris.Wrap(err, "harvest: query rate limit")
			}
		}
		res, err := h.Harvest(ctx, q, maxLeads)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		h.log.Info("query done",
			zap.Int("query_index", i+1),
			zap.Int("total_queries", len(queries)),
			zap.Bool("exhausted", res.Exhausted),
		)
	}
	return results, nil
}
