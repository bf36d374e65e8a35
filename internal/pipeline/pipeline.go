// Package pipeline wires loading, enrichment, record matching and aggregate
// reconciliation into one run.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vitis-cat/reconcile-cli/internal/aggregate"
	"github.com/vitis-cat/reconcile-cli/internal/config"
	"github.com/vitis-cat/reconcile-cli/internal/match"
	"github.com/vitis-cat/reconcile-cli/internal/model"
	"github.com/vitis-cat/reconcile-cli/internal/report"
	"github.com/vitis-cat/reconcile-cli/internal/resolve"
)

// PhaseStatus is the terminal state of a phase.
type PhaseStatus string

// Phase statuses.
const (
	PhaseComplete PhaseStatus = "complete"
	PhaseFailed   PhaseStatus = "failed"
)

// Phase records one timed step of a run.
type Phase struct {
	Name       string         `json:"name" yaml:"name"`
	Status     PhaseStatus    `json:"status" yaml:"status"`
	DurationMs int64          `json:"duration_ms" yaml:"duration_ms"`
	Error      string         `json:"error,omitempty" yaml:"error,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Inputs are the three uploads of a full run. Unless Raw is set the
// Extranet export is cleaned before enrichment.
type Inputs struct {
	Extranet Input
	Master   Input
	Registry Input
	Raw      bool
}

// Enriched is the declaration table after zone filtering and resolution.
type Enriched struct {
	Declarations []model.Declaration
	Loaded       int
	ZoneExcluded int
	MasterRows   int
	Resolver     resolve.Stats
	Distribution []CodeCount
}

// Result is the outcome of a full run.
type Result struct {
	RunID         string
	Cleaning      *Cleaning
	Enriched      *Enriched
	RegistryRows  int
	Registry      []model.RegistryRecord
	Aggregate     *aggregate.Result
	Matches       *match.Result
	GroupedReport []byte
	MatchReport   []byte
	Phases        []Phase
}

// Pipeline runs reconciliation steps with one configuration.
type Pipeline struct {
	cfg *config.Config
}

// New creates a Pipeline.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// Enrich loads the Extranet export and the master data, drops excluded
// zones and resolves producer codes.
func (p *Pipeline) Enrich(extranet, master Input) (*Enriched, error) {
	decls, err := LoadDeclarations(extranet, p.cfg.Extranet.SkipRows)
	if err != nil {
		return nil, err
	}
	return p.EnrichDeclarations(decls, master)
}

// EnrichDeclarations is Enrich over already loaded declarations.
func (p *Pipeline) EnrichDeclarations(decls []model.Declaration, master Input) (*Enriched, error) {
	masters, err := LoadMasters(master, p.cfg.Master.Sheet)
	if err != nil {
		return nil, err
	}

	kept, excluded := FilterZones(decls, p.cfg.Reconcile.ExcludedZones)
	zap.L().Info("pipeline: zones filtered",
		zap.Int("kept", len(kept)),
		zap.Int("excluded", excluded),
		zap.Strings("zones", p.cfg.Reconcile.ExcludedZones),
	)

	r := resolve.New(masters)
	enriched := Enrich(kept, r)
	return &Enriched{
		Declarations: enriched,
		Loaded:       len(decls),
		ZoneExcluded: excluded,
		MasterRows:   len(masters),
		Resolver:     r.Stats(),
		Distribution: Distribution(enriched),
	}, nil
}

// Registry loads the eRVC export restricted to the configured status and to
// the producer codes present in e.
func (p *Pipeline) Registry(in Input, e *Enriched) ([]model.RegistryRecord, int, error) {
	recs, err := LoadRegistry(in)
	if err != nil {
		return nil, 0, err
	}
	return FilterRegistry(recs, p.cfg.Registry.StatusValue, Codes(e.Declarations)), len(recs), nil
}

// Check runs the aggregate reconciliation and renders the grouped report.
func (p *Pipeline) Check(e *Enriched, reg []model.RegistryRecord) (*aggregate.Result, []byte, error) {
	res := aggregate.Reconcile(e.Declarations, reg, aggregate.Options{
		WeightThresholdPct: p.cfg.Reconcile.WeightThresholdPct,
	})
	data, err := report.Grouped(res)
	if err != nil {
		return nil, nil, err
	}
	return res, data, nil
}

// Match classifies every resolved declaration and renders the match report.
func (p *Pipeline) Match(e *Enriched, reg []model.RegistryRecord) (*match.Result, []byte, error) {
	res := match.New(reg).Match(e.Declarations)
	data, err := report.Matches(res)
	if err != nil {
		return nil, nil, err
	}
	return res, data, nil
}

// Run cleans and enriches once, then runs record matching and aggregate reconciliation
// in parallel over the same enriched input.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*Result, error) {
	result := &Result{RunID: uuid.New().String()}
	log := zap.L().With(zap.String("run", result.RunID), zap.String("extranet", in.Extranet.Name))
	log.Info("pipeline: starting run")

	// Phase tracking helper with mutex for concurrent access.
	var phasesMu sync.Mutex
	trackPhase := func(name string, fn func() (map[string]any, error)) error {
		start := time.Now()
		meta, fnErr := fn()
		phase := Phase{Name: name, DurationMs: time.Since(start).Milliseconds(), Metadata: meta}

		if fnErr != nil {
			phase.Status = PhaseFailed
			phase.Error = fnErr.Error()
			log.Error("pipeline: phase failed",
				zap.String("phase", name),
				zap.Int64("duration_ms", phase.DurationMs),
				zap.Error(fnErr),
			)
		} else {
			phase.Status = PhaseComplete
			log.Info("pipeline: phase complete",
				zap.String("phase", name),
				zap.Int64("duration_ms", phase.DurationMs),
			)
		}

		phasesMu.Lock()
		result.Phases = append(result.Phases, phase)
		phasesMu.Unlock()
		return fnErr
	}

	// ===== Phase 0: Cleaning =====
	var decls []model.Declaration
	if !in.Raw {
		err := trackPhase("0_clean", func() (map[string]any, error) {
			d, c, err := p.Clean(in.Extranet)
			if err != nil {
				return nil, err
			}
			decls, result.Cleaning = d, c
			return map[string]any{
				"tax_ids_corrected": c.Corrected,
				"rows_removed":      c.Removed,
				"error_rows_after":  c.After.Total,
			}, nil
		})
		if err != nil {
			return result, eris.Wrap(err, "pipeline: clean")
		}
	}

	// ===== Phase 1: Enrichment =====
	err := trackPhase("1_enrich", func() (map[string]any, error) {
		if in.Raw {
			var err error
			if decls, err = LoadDeclarations(in.Extranet, p.cfg.Extranet.SkipRows); err != nil {
				return nil, err
			}
		}
		e, err := p.EnrichDeclarations(decls, in.Master)
		if err != nil {
			return nil, err
		}
		result.Enriched = e
		return map[string]any{
			"declarations":  e.Loaded,
			"zone_excluded": e.ZoneExcluded,
			"resolved":      e.Resolver.Resolved(),
			"unresolved":    e.Resolver.Unresolved,
		}, nil
	})
	if err != nil {
		return result, eris.Wrap(err, "pipeline: enrich")
	}

	// ===== Phase 2: Registry =====
	err = trackPhase("2_registry", func() (map[string]any, error) {
		reg, total, err := p.Registry(in.Registry, result.Enriched)
		if err != nil {
			return nil, err
		}
		result.Registry = reg
		result.RegistryRows = total
		return map[string]any{"rows": total, "in_scope": len(reg)}, nil
	})
	if err != nil {
		return result, eris.Wrap(err, "pipeline: registry")
	}

	// ===== Phase 3: Match and aggregate in parallel =====
	g, gCtx := errgroup.WithContext(ctx)

	// Phase 3A: Record matching
	g.Go(func() error {
		return trackPhase("3a_match", func() (map[string]any, error) {
			if err := gCtx.Err(); err != nil {
				return nil, eris.Wrap(err, "pipeline: match cancelled")
			}
			res, data, err := p.Match(result.Enriched, result.Registry)
			if err != nil {
				return nil, err
			}
			result.Matches, result.MatchReport = res, data
			return map[string]any{
				"processed":    res.Stats.Processed,
				"exact":        res.Stats.Exact,
				"success_rate": res.Stats.SuccessRate(),
			}, nil
		})
	})

	// Phase 3B: Aggregate reconciliation
	g.Go(func() error {
		return trackPhase("3b_aggregate", func() (map[string]any, error) {
			if err := gCtx.Err(); err != nil {
				return nil, eris.Wrap(err, "pipeline: aggregate cancelled")
			}
			res, data, err := p.Check(result.Enriched, result.Registry)
			if err != nil {
				return nil, err
			}
			result.Aggregate, result.GroupedReport = res, data
			return map[string]any{
				"producer_codes": len(res.Producers),
				"tax_ids":        len(res.TaxIDs),
				"notices":        len(res.Notices),
			}, nil
		})
	})

	if err := g.Wait(); err != nil {
		return result, eris.Wrap(err, "pipeline: reconcile")
	}

	log.Info("pipeline: run complete", zap.Int("phases", len(result.Phases)))
	return result, nil
}
