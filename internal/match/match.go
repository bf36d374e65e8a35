// Package match reconciles individual declarations against registry weighings
// sharing producer code, tax-id and date.
package match

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vitis-cat/reconcile-cli/internal/dates"
	"github.com/vitis-cat/reconcile-cli/internal/model"
)

// Unmatched reasons.
const (
	ReasonInvalidDate        = "invalid date"
	ReasonNotFound           = "not found by producer+tax-id+date"
	ReasonNonNumeric         = "non-numeric values"
	ReasonNonNumericRegistry = "non-numeric values in registry"
)

// Stats are the audit counters of one matching run.
type Stats struct {
	Processed     int `json:"processed" yaml:"processed"`
	Exact         int `json:"exact" yaml:"exact"`
	GradeMismatch int `json:"grade_mismatch" yaml:"grade_mismatch"`
	WeightApprox  int `json:"weight_approximate" yaml:"weight_approximate"`
	Unmatched     int `json:"unmatched" yaml:"unmatched"`
}

// SuccessRate is exact / processed, 0 when nothing was processed.
func (s Stats) SuccessRate() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.Exact) / float64(s.Processed)
}

// Result holds the four outcome buckets in declaration order.
type Result struct {
	Exact         []model.MatchRecord
	GradeMismatch []model.MatchRecord
	WeightApprox  []model.MatchRecord
	Unmatched     []model.MatchRecord
	Stats         Stats
}

func (r *Result) add(rec model.MatchRecord) {
	r.Stats.Processed++
	switch rec.Outcome {
	case model.OutcomeExact:
		r.Exact = append(r.Exact, rec)
		r.Stats.Exact++
	case model.OutcomeGradeMismatch:
		r.GradeMismatch = append(r.GradeMismatch, rec)
		r.Stats.GradeMismatch++
	case model.OutcomeWeightApprox:
		r.WeightApprox = append(r.WeightApprox, rec)
		r.Stats.WeightApprox++
	default:
		r.Unmatched = append(r.Unmatched, rec)
		r.Stats.Unmatched++
	}
}

type key struct {
	code  string
	taxID string
	date  model.Date
}

// Matcher indexes registry weighings by (producer code, tax-id, date).
type Matcher struct {
	index   map[key][]model.RegistryRecord
	skipped int
	log     *zap.Logger
}

// New indexes registry. Records whose date cannot be parsed are never
// candidates. Candidate order within a key follows registry order.
func New(registry []model.RegistryRecord) *Matcher {
	m := &Matcher{
		index: make(map[key][]model.RegistryRecord),
		log:   zap.L().Named("match"),
	}
	for _, r := range registry {
		d, ok := dates.ParseRegistry(r.WeighingDate)
		if !ok {
			m.skipped++
			continue
		}
		k := key{code: r.ProducerCode, taxID: r.TaxID, date: d}
		m.index[k] = append(m.index[k], r)
	}
	if m.skipped > 0 {
		m.log.Warn("match: registry rows without a usable date", zap.Int("rows", m.skipped))
	}
	return m
}

// Match classifies every declaration with a resolved producer code.
func (m *Matcher) Match(decls []model.Declaration) *Result {
	res := &Result{}
	var unresolved int
	for _, d := range decls {
		if d.ProducerCode == "" {
			unresolved++
			continue
		}
		res.add(m.One(d))
	}

	m.log.Info("match: complete",
		zap.Int("processed", res.Stats.Processed),
		zap.Int("exact", res.Stats.Exact),
		zap.Int("grade_mismatch", res.Stats.GradeMismatch),
		zap.Int("weight_approximate", res.Stats.WeightApprox),
		zap.Int("unmatched", res.Stats.Unmatched),
		zap.Int("skipped_unresolved", unresolved),
		zap.Float64("success_rate", res.Stats.SuccessRate()),
	)
	return res
}

// One classifies a single declaration.
func (m *Matcher) One(d model.Declaration) model.MatchRecord {
	rec := model.MatchRecord{
		Declaration:    d,
		Outcome:        model.OutcomeUnmatched,
		DeclaredWeight: d.Weight,
		DeclaredGrade:  d.Grade,
	}

	date, ok := dates.ParseDayMonthYear(d.Timestamp)
	if !ok {
		rec.Reason = ReasonInvalidDate
		return rec
	}
	rec.Date = date

	cands := m.index[key{code: d.ProducerCode, taxID: d.TaxID.Key(), date: date}]
	rec.Candidates = len(cands)
	if len(cands) == 0 {
		rec.Reason = fmt.Sprintf("%s (weight=%s, grade=%s)", ReasonNotFound, d.Weight.String(), d.Grade.String())
		return rec
	}

	weight, errW := d.Weight.Decimal()
	grade, errG := d.Grade.Decimal()
	if errW != nil || errG != nil {
		rec.Reason = ReasonNonNumeric
		return rec
	}

	best := -1
	var bestDiff, bestGrade decimal.Decimal
	for i, c := range cands {
		cw, err := c.Weight.Decimal()
		if err != nil {
			continue
		}
		cg, err := c.Grade.Decimal()
		if err != nil {
			continue
		}
		diff := weight.Sub(cw).Abs()
		if best < 0 || diff.LessThan(bestDiff) {
			best, bestDiff, bestGrade = i, diff, cg
		}
	}
	if best < 0 {
		rec.Reason = ReasonNonNumericRegistry
		return rec
	}

	picked := cands[best]
	rec.Candidate = &picked
	rec.WeightDiff = bestDiff
	switch {
	case !bestDiff.IsZero():
		rec.Outcome = model.OutcomeWeightApprox
	case grade.Equal(bestGrade):
		rec.Outcome = model.OutcomeExact
	default:
		rec.Outcome = model.OutcomeGradeMismatch
	}
	return rec
}
