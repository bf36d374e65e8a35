package match

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitis-cat/reconcile-cli/internal/model"
)

func decl(code, nif, ts string, kg, grade model.Value) model.Declaration {
	return model.Declaration{
		ProducerCode: code,
		TaxID:        model.Str(nif),
		Timestamp:    model.Str(ts),
		Weight:       kg,
		Grade:        grade,
	}
}

func reg(code, nif, date string, kg, grade model.Value) model.RegistryRecord {
	return model.RegistryRecord{
		ProducerCode: code,
		TaxID:        nif,
		WeighingDate: model.Str(date),
		Weight:       kg,
		Grade:        grade,
		Status:       "CV",
	}
}

var registry = []model.RegistryRecord{
	reg("123", "B12345678", "2025-09-14", model.Num(1500), model.Num(12.5)),
	reg("123", "B12345678", "2025-09-14", model.Num(1480), model.Num(12.0)),
	reg("123", "B12345678", "2025-09-15", model.Num(900), model.Num(11)),
	reg("456", "12345678Z", "2025-09-14", model.Str("n/d"), model.Num(11)),
	reg("789", "C87654321", "not a date", model.Num(100), model.Num(10)),
}

func TestOne_Outcomes(t *testing.T) {
	m := New(registry)

	tests := []struct {
		name    string
		in      model.Declaration
		outcome model.Outcome
		reason  string
		weight  model.Value
	}{
		{
			name:    "exact",
			in:      decl("123", "B12345678", "14/09/2025 08:31", model.Num(1500), model.Num(12.5)),
			outcome: model.OutcomeExact,
			weight:  model.Num(1500),
		},
		{
			name:    "grade mismatch",
			in:      decl("123", "B12345678", "14/09/2025 08:31", model.Num(1480), model.Num(12.5)),
			outcome: model.OutcomeGradeMismatch,
			weight:  model.Num(1480),
		},
		{
			name:    "closest weight",
			in:      decl("123", "B12345678", "14/09/2025 09:00", model.Num(1490.5), model.Num(12.5)),
			outcome: model.OutcomeWeightApprox,
			weight:  model.Num(1500),
		},
		{
			name:    "string numbers",
			in:      decl("123", "B12345678", "15/09/2025", model.Str("900"), model.Str("11.0")),
			outcome: model.OutcomeExact,
			weight:  model.Num(900),
		},
		{
			name:    "invalid date",
			in:      decl("123", "B12345678", "2025-09-14 08:31", model.Num(1500), model.Num(12.5)),
			outcome: model.OutcomeUnmatched,
			reason:  ReasonInvalidDate,
		},
		{
			name:    "no candidate",
			in:      decl("123", "B12345678", "16/09/2025", model.Num(1500), model.Num(12.5)),
			outcome: model.OutcomeUnmatched,
			reason:  "not found by producer+tax-id+date (weight=1500, grade=12.5)",
		},
		{
			name:    "tax id differs",
			in:      decl("123", "B99999999", "14/09/2025", model.Num(1500), model.Num(12.5)),
			outcome: model.OutcomeUnmatched,
			reason:  "not found by producer+tax-id+date (weight=1500, grade=12.5)",
		},
		{
			name:    "non numeric declaration",
			in:      decl("123", "B12345678", "14/09/2025", model.Str("1.500,0"), model.Num(12.5)),
			outcome: model.OutcomeUnmatched,
			reason:  ReasonNonNumeric,
		},
		{
			name:    "missing grade",
			in:      decl("123", "B12345678", "14/09/2025", model.Num(1500), model.Null),
			outcome: model.OutcomeUnmatched,
			reason:  ReasonNonNumeric,
		},
		{
			name:    "non numeric registry",
			in:      decl("456", "12345678Z", "14/09/2025", model.Num(10), model.Num(11)),
			outcome: model.OutcomeUnmatched,
			reason:  ReasonNonNumericRegistry,
		},
		{
			name:    "registry date unparseable",
			in:      decl("789", "C87654321", "14/09/2025", model.Num(100), model.Num(10)),
			outcome: model.OutcomeUnmatched,
			reason:  "not found by producer+tax-id+date (weight=100, grade=10)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.One(tt.in)
			assert.Equal(t, tt.outcome, got.Outcome)
			assert.Equal(t, tt.reason, got.Reason)
			if tt.outcome == model.OutcomeUnmatched {
				return
			}
			require.NotNil(t, got.Candidate)
			assert.Equal(t, tt.weight, got.Candidate.Weight)
		})
	}
}

func TestOne_WeightDiffAndTieBreak(t *testing.T) {
	m := New([]model.RegistryRecord{
		reg("1", "B12345678", "2025-09-14", model.Num(90), model.Num(10)),
		reg("1", "B12345678", "2025-09-14", model.Num(110), model.Num(11)),
	})
	got := m.One(decl("1", "B12345678", "14/09/2025", model.Num(100), model.Num(11)))
	assert.Equal(t, model.OutcomeWeightApprox, got.Outcome)
	require.NotNil(t, got.Candidate)
	assert.Equal(t, model.Num(90), got.Candidate.Weight, "first candidate wins ties")
	assert.True(t, decimal.NewFromInt(10).Equal(got.WeightDiff))
	assert.Equal(t, 2, got.Candidates)
}

func TestOne_ZeroToleranceOnWeight(t *testing.T) {
	m := New([]model.RegistryRecord{
		reg("1", "B12345678", "2025-09-14", model.Num(100), model.Num(10)),
	})
	got := m.One(decl("1", "B12345678", "14/09/2025", model.Num(100.001), model.Num(10)))
	assert.Equal(t, model.OutcomeWeightApprox, got.Outcome)
}

func TestOne_SkipsUnusableCandidate(t *testing.T) {
	m := New([]model.RegistryRecord{
		reg("1", "B12345678", "2025-09-14", model.Str("x"), model.Num(10)),
		reg("1", "B12345678", "2025-09-14", model.Num(100), model.Num(10)),
	})
	got := m.One(decl("1", "B12345678", "14/09/2025", model.Num(100), model.Num(10)))
	assert.Equal(t, model.OutcomeExact, got.Outcome)
}

func TestOne_NonFiniteRegistryWeight(t *testing.T) {
	m := New([]model.RegistryRecord{
		reg("1", "B12345678", "2025-09-14", model.Num(math.NaN()), model.Num(10)),
		reg("1", "B12345678", "2025-09-14", model.Num(math.Inf(1)), model.Num(10)),
	})
	var got model.MatchRecord
	require.NotPanics(t, func() {
		got = m.One(decl("1", "B12345678", "14/09/2025", model.Num(100), model.Num(10)))
	})
	assert.Equal(t, model.OutcomeUnmatched, got.Outcome)
	assert.Equal(t, ReasonNonNumericRegistry, got.Reason)
}

func TestOne_NonFiniteDeclaredWeight(t *testing.T) {
	m := New(registry)
	got := m.One(decl("123", "B12345678", "14/09/2025", model.Num(math.NaN()), model.Num(12.5)))
	assert.Equal(t, model.OutcomeUnmatched, got.Outcome)
	assert.Equal(t, ReasonNonNumeric, got.Reason)
}

func TestOne_TrimsDeclaredTaxID(t *testing.T) {
	m := New(registry)
	got := m.One(decl("123", " B12345678 ", "14/09/2025", model.Num(1500), model.Num(12.5)))
	assert.Equal(t, model.OutcomeExact, got.Outcome)
}

func TestMatch_BucketsAndStats(t *testing.T) {
	m := New(registry)
	res := m.Match([]model.Declaration{
		decl("123", "B12345678", "14/09/2025", model.Num(1500), model.Num(12.5)),
		decl("123", "B12345678", "14/09/2025", model.Num(1480), model.Num(13)),
		decl("123", "B12345678", "14/09/2025", model.Num(1000), model.Num(12.5)),
		decl("123", "B12345678", "bad", model.Num(1000), model.Num(12.5)),
		decl("", "B12345678", "14/09/2025", model.Num(1500), model.Num(12.5)),
	})

	assert.Equal(t, Stats{Processed: 4, Exact: 1, GradeMismatch: 1, WeightApprox: 1, Unmatched: 1}, res.Stats)
	assert.Len(t, res.Exact, 1)
	assert.Len(t, res.GradeMismatch, 1)
	assert.Len(t, res.WeightApprox, 1)
	assert.Len(t, res.Unmatched, 1)
	assert.InDelta(t, 0.25, res.Stats.SuccessRate(), 1e-9)
}

func TestStats_SuccessRateEmpty(t *testing.T) {
	res := New(nil).Match(nil)
	assert.Equal(t, 0.0, res.Stats.SuccessRate())
	assert.Zero(t, res.Stats.Processed)
}
