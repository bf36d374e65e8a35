package pipeline

import (
	"go.uber.org/zap"

	"github.com/vitis-cat/reconcile-cli/internal/cleaner"
	"github.com/vitis-cat/reconcile-cli/internal/model"
)

// Cleaning counts what the automatic corrections changed before enrichment.
type Cleaning struct {
	Before    cleaner.LedgerSummary `yaml:"before"`
	After     cleaner.LedgerSummary `yaml:"after"`
	Corrected int                   `yaml:"tax_ids_corrected"`
	Removed   int                   `yaml:"rows_removed"`
}

// Clean runs the analyze and correct steps over the Extranet export and
// returns the corrected declarations. The temporary upload copy is removed
// before returning.
func (p *Pipeline) Clean(in Input) ([]model.Declaration, *Cleaning, error) {
	c := cleaner.New(cleaner.Options{SkipRows: p.cfg.Extranet.SkipRows, TempDir: p.cfg.Extranet.TempDir})
	defer func() {
		if err := c.Cleanup(); err != nil {
			zap.L().Warn("pipeline: cleaner cleanup failed", zap.Error(err))
		}
	}()

	if err := c.Analyze(in.Data, in.Name); err != nil {
		return nil, nil, err
	}
	if err := c.ApplyCorrections(); err != nil {
		return nil, nil, err
	}
	decls, err := DeclarationsFromTable(in.Name, c.Corrected())
	if err != nil {
		return nil, nil, err
	}
	return decls, &Cleaning{
		Before:    cleaner.Summarize(c.Before()),
		After:     cleaner.Summarize(c.After()),
		Corrected: c.CorrectedCount(),
		Removed:   c.RemovedCount(),
	}, nil
}
