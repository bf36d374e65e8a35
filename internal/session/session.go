// Package session keeps one operator's state between the separately
// triggered steps: the declaration cleaner, the enriched declarations and
// the registry upload.
package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vitis-cat/reconcile-cli/internal/aggregate"
	"github.com/vitis-cat/reconcile-cli/internal/cleaner"
	"github.com/vitis-cat/reconcile-cli/internal/config"
	"github.com/vitis-cat/reconcile-cli/internal/match"
	"github.com/vitis-cat/reconcile-cli/internal/model"
	"github.com/vitis-cat/reconcile-cli/internal/pipeline"
	"github.com/vitis-cat/reconcile-cli/internal/report"
)

// ErrNotEnriched is returned by reconciliation steps run before Enrich.
var ErrNotEnriched = eris.New("session: declarations not enriched")

// ErrNoRegistry is returned by reconciliation steps run before SetRegistry.
var ErrNoRegistry = eris.New("session: registry not uploaded")

// Session serialises every mutating step behind one lock.
type Session struct {
	id  string
	cfg *config.Config
	p   *pipeline.Pipeline
	log *zap.Logger

	mu       sync.Mutex
	cleaner  *cleaner.Cleaner
	enriched *pipeline.Enriched
	registry []model.RegistryRecord
	regName  string
}

// New starts a session with a fresh id.
func New(cfg *config.Config) *Session {
	id := uuid.New().String()
	s := &Session{
		id:  id,
		cfg: cfg,
		p:   pipeline.New(cfg),
		log: zap.L().With(zap.String("session", id)),
	}
	s.cleaner = s.newCleaner()
	s.log.Info("session: created")
	return s
}

func (s *Session) newCleaner() *cleaner.Cleaner {
	return cleaner.New(cleaner.Options{SkipRows: s.cfg.Extranet.SkipRows, TempDir: s.cfg.Extranet.TempDir})
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// CleanerState reports where the declaration workflow stands.
func (s *Session) CleanerState() cleaner.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleaner.State()
}

// Analyze runs the declaration analysis on an upload.
func (s *Session) Analyze(in pipeline.Input) (cleaner.LedgerSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cleaner.Analyze(in.Data, in.Name); err != nil {
		return cleaner.LedgerSummary{}, err
	}
	return cleaner.Summarize(s.cleaner.Before()), nil
}

// Correct applies the automatic corrections.
func (s *Session) Correct() (cleaner.LedgerSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cleaner.ApplyCorrections(); err != nil {
		return cleaner.LedgerSummary{}, err
	}
	return cleaner.Summarize(s.cleaner.After()), nil
}

// Download returns the corrected workbook and its file name.
func (s *Session) Download() ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.cleaner.GenerateOutput()
	if err != nil {
		return nil, "", err
	}
	return data, s.cleaner.OutputName(), nil
}

// Ledgers renders both error ledgers. The post-correction sheet is empty
// until Correct has run.
func (s *Session) Ledgers() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cleaner.State() == cleaner.StateLoaded {
		return nil, eris.Wrapf(cleaner.ErrInvalidState, "ledgers require %s", cleaner.StateAnalyzed)
	}
	return report.Ledgers(s.cleaner.Before(), s.cleaner.After())
}

// Enrich loads the Extranet export and the master data and resolves producer
// codes. A previously uploaded registry is discarded.
func (s *Session) Enrich(extranet, master pipeline.Input) (*pipeline.Enriched, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.p.Enrich(extranet, master)
	if err != nil {
		return nil, err
	}
	s.enriched = e
	s.registry, s.regName = nil, ""
	s.log.Info("session: enriched", zap.String("extranet", extranet.Name), zap.Int("rows", len(e.Declarations)))
	return e, nil
}

// EnrichCorrected enriches the cleaner's corrected declarations, so tax-id
// fixes and zero-weight removals carry into reconciliation. Correct must
// have run. A previously uploaded registry is discarded.
func (s *Session) EnrichCorrected(master pipeline.Input) (*pipeline.Enriched, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.cleaner.State(); st != cleaner.StateCorrected {
		return nil, eris.Wrapf(cleaner.ErrInvalidState, "enrich corrected requires %s, have %s", cleaner.StateCorrected, st)
	}
	decls, err := pipeline.DeclarationsFromTable(s.cleaner.Name(), s.cleaner.Corrected())
	if err != nil {
		return nil, err
	}
	e, err := s.p.EnrichDeclarations(decls, master)
	if err != nil {
		return nil, err
	}
	s.enriched = e
	s.registry, s.regName = nil, ""
	s.log.Info("session: enriched corrected", zap.String("extranet", s.cleaner.Name()), zap.Int("rows", len(e.Declarations)))
	return e, nil
}

// SetRegistry loads and filters the eRVC upload against the enriched
// declarations.
func (s *Session) SetRegistry(in pipeline.Input) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enriched == nil {
		return 0, ErrNotEnriched
	}
	reg, _, err := s.p.Registry(in, s.enriched)
	if err != nil {
		return 0, err
	}
	s.registry, s.regName = reg, in.Name
	return len(reg), nil
}

// Check runs the aggregate reconciliation and renders its report.
func (s *Session) Check() (*aggregate.Result, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, nil, err
	}
	return s.p.Check(s.enriched, s.registry)
}

// Match runs record matching and renders its report.
func (s *Session) Match() (*match.Result, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, nil, err
	}
	return s.p.Match(s.enriched, s.registry)
}

func (s *Session) ready() error {
	if s.enriched == nil {
		return ErrNotEnriched
	}
	if s.regName == "" {
		return ErrNoRegistry
	}
	return nil
}

// Reset returns the session to its initial state and removes the temp file.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.cleaner.Cleanup()
	s.cleaner = s.newCleaner()
	s.enriched = nil
	s.registry, s.regName = nil, ""
	s.log.Info("session: reset")
	return err
}

// Close removes the temp file. Safe to call repeatedly.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cleaner.Cleanup(); err != nil {
		return err
	}
	s.log.Info("session: closed")
	return nil
}
