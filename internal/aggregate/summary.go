package aggregate

import "github.com/shopspring/decimal"

// ProducerSummary counts the producer-code table.
type ProducerSummary struct {
	Codes           int             `json:"codes" yaml:"codes"`
	WeightIncidents int             `json:"weight_incidents" yaml:"weight_incidents"`
	DateIncidents   int             `json:"date_incidents" yaml:"date_incidents"`
	TotalDifference decimal.Decimal `json:"total_difference" yaml:"total_difference"`
}

// TaxIDSummary counts the tax-id table.
type TaxIDSummary struct {
	TaxIDs          int             `json:"tax_ids" yaml:"tax_ids"`
	DateIncidents   int             `json:"date_incidents" yaml:"date_incidents"`
	TotalDifference decimal.Decimal `json:"total_difference" yaml:"total_difference"`
}

// ProducerSummary totals the producer-code pass.
func (r *Result) ProducerSummary() ProducerSummary {
	s := ProducerSummary{Codes: len(r.Producers)}
	for _, p := range r.Producers {
		if p.WeightDiscrepancy {
			s.WeightIncidents++
		}
		if p.DateCountMismatch {
			s.DateIncidents++
		}
		s.TotalDifference = s.TotalDifference.Add(p.Difference)
	}
	return s
}

// TaxIDSummary totals the tax-id pass.
func (r *Result) TaxIDSummary() TaxIDSummary {
	s := TaxIDSummary{TaxIDs: len(r.TaxIDs)}
	for _, t := range r.TaxIDs {
		if t.DateCountMismatch {
			s.DateIncidents++
		}
		s.TotalDifference = s.TotalDifference.Add(t.Difference)
	}
	return s
}
