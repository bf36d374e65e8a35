package pipeline

import (
	"io"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/vitis-cat/reconcile-cli/internal/aggregate"
	"github.com/vitis-cat/reconcile-cli/internal/match"
	"github.com/vitis-cat/reconcile-cli/internal/resolve"
)

// SummaryFileName is the run summary written next to the reports.
const SummaryFileName = "resumen_ejecucion.yaml"

// Summary is the YAML view of a run.
type Summary struct {
	RunID        string                     `yaml:"run_id"`
	Cleaning     *Cleaning                  `yaml:"cleaning,omitempty"`
	Declarations int                        `yaml:"declarations"`
	ZoneExcluded int                        `yaml:"zone_excluded"`
	Resolver     resolve.Stats              `yaml:"resolver"`
	Distribution []CodeCount                `yaml:"distribution"`
	RegistryRows int                        `yaml:"registry_rows"`
	InScope      int                        `yaml:"registry_in_scope"`
	Matching     *MatchingSummary           `yaml:"matching,omitempty"`
	Producers    *aggregate.ProducerSummary `yaml:"producers,omitempty"`
	TaxIDs       *aggregate.TaxIDSummary    `yaml:"tax_ids,omitempty"`
	Notices      []string                   `yaml:"notices,omitempty"`
	Phases       []Phase                    `yaml:"phases"`
}

// MatchingSummary adds the success rate to the matcher counters.
type MatchingSummary struct {
	match.Stats `yaml:",inline"`
	SuccessRate float64 `yaml:"success_rate"`
}

// Summarize builds the Summary of r. Missing branches are omitted.
func (r *Result) Summarize() Summary {
	s := Summary{
		RunID:        r.RunID,
		Cleaning:     r.Cleaning,
		RegistryRows: r.RegistryRows,
		InScope:      len(r.Registry),
		Phases:       r.Phases,
	}
	if e := r.Enriched; e != nil {
		s.Declarations = e.Loaded
		s.ZoneExcluded = e.ZoneExcluded
		s.Resolver = e.Resolver
		s.Distribution = e.Distribution
	}
	if r.Matches != nil {
		s.Matching = &MatchingSummary{Stats: r.Matches.Stats, SuccessRate: r.Matches.Stats.SuccessRate()}
	}
	if r.Aggregate != nil {
		ps, ts := r.Aggregate.ProducerSummary(), r.Aggregate.TaxIDSummary()
		s.Producers, s.TaxIDs = &ps, &ts
		s.Notices = r.Aggregate.Notices
	}
	return s
}

// WriteSummary encodes the run summary as YAML.
func (r *Result) WriteSummary(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r.Summarize()); err != nil {
		return eris.Wrap(err, "pipeline: encode summary")
	}
	if err := enc.Close(); err != nil {
		return eris.Wrap(err, "pipeline: encode summary")
	}
	return nil
}
