package model

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Date is a calendar date without time or location.
type Date struct {
	Year  int        `json:"year" yaml:"year"`
	Month time.Month `json:"month" yaml:"month"`
	Day   int        `json:"day" yaml:"day"`
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// IsZero reports whether d is the zero date.
func (d Date) IsZero() bool { return d == Date{} }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Declaration is one Extranet row after column discovery.
type Declaration struct {
	Index        int      `json:"index"`
	Row          int      `json:"row"`
	Verifier     string   `json:"verifier,omitempty"`
	ProducerName string   `json:"producer_name"`
	Zone         string   `json:"zone"`
	TaxID        Value    `json:"tax_id"`
	Weight       Value    `json:"weight_kg"`
	Grade        Value    `json:"grade"`
	Timestamp    Value    `json:"weighing_timestamp"`
	ProducerCode string   `json:"producer_code,omitempty"`
	Fields       Snapshot `json:"-"`
}

// ProducerMaster is one row of the BBDD "CAT" sheet.
type ProducerMaster struct {
	ExtranetAlias string `json:"extranet_alias"`
	RegistryAlias string `json:"registry_alias"`
	ProducerCode  string `json:"producer_code"`
	Zone          string `json:"zone"`
}

// RegistryRecord is one eRVC weighing row.
type RegistryRecord struct {
	Row          int    `json:"row"`
	ProducerCode string `json:"producer_code"`
	TaxID        string `json:"tax_id"`
	Weight       Value  `json:"weight_kg"`
	Grade        Value  `json:"grade"`
	WeighingDate Value  `json:"weighing_date"`
	Status       string `json:"status_flag"`
}

// ErrorEntry describes every finding on one problematic declaration row.
type ErrorEntry struct {
	Row                 int      `json:"row"`
	Index               int      `json:"index"`
	ProducerIdentifier  string   `json:"producer_identifier"`
	Errors              []string `json:"errors"`
	ProposedCorrections []string `json:"proposed_corrections,omitempty"`
	Data                Snapshot `json:"-"`
}

// Outcome classifies a declaration against its registry candidates.
type Outcome string

// Match outcomes.
const (
	OutcomeExact         Outcome = "exact"
	OutcomeGradeMismatch Outcome = "grade_mismatch"
	OutcomeWeightApprox  Outcome = "weight_approximate"
	OutcomeUnmatched     Outcome = "unmatched"
)

// MatchRecord is the row-level result of reconciling one declaration.
type MatchRecord struct {
	Declaration    Declaration     `json:"declaration"`
	Date           Date            `json:"date"`
	Outcome        Outcome         `json:"outcome"`
	Reason         string          `json:"reason,omitempty"`
	Candidate      *RegistryRecord `json:"candidate,omitempty"`
	Candidates     int             `json:"candidates"`
	DeclaredWeight Value           `json:"declared_weight"`
	DeclaredGrade  Value           `json:"declared_grade"`
	WeightDiff     decimal.Decimal `json:"weight_diff"`
}

// Percent is a percentage that may be +Inf when the base is zero.
type Percent struct {
	Value float64 `json:"value"`
	Inf   bool    `json:"inf,omitempty"`
}

// Float returns the percentage as a float64, +Inf when undefined.
func (p Percent) Float() float64 {
	if p.Inf {
		return math.Inf(1)
	}
	return p.Value
}

// Abs returns |p|.
func (p Percent) Abs() Percent {
	return Percent{Value: math.Abs(p.Value), Inf: p.Inf}
}

// Exceeds reports whether |p| > limit. Infinity exceeds every limit.
func (p Percent) Exceeds(limit float64) bool {
	return p.Inf || math.Abs(p.Value) > limit
}

func (p Percent) String() string {
	if p.Inf {
		return "inf"
	}
	return fmt.Sprintf("%.2f", p.Value)
}

// ProducerRow is the producer-code grouped discrepancy line.
type ProducerRow struct {
	ProducerCode      string          `json:"nipd"`
	RegistryKg        decimal.Decimal `json:"kg_registry"`
	DeclarationKg     decimal.Decimal `json:"kg_declaration"`
	Difference        decimal.Decimal `json:"difference"`
	PctDifference     Percent         `json:"pct_difference"`
	RegistryDates     int             `json:"registry_dates"`
	DeclarationDates  int             `json:"declaration_dates"`
	DateCountMismatch bool            `json:"date_count_mismatch"`
	WeightDiscrepancy bool            `json:"weight_discrepancy"`
}

// TaxIDRow is the tax-id grouped discrepancy line. It has no weight
// discrepancy flag.
type TaxIDRow struct {
	ProducerCode      string          `json:"nipd"`
	TaxID             string          `json:"nif"`
	RegistryKg        decimal.Decimal `json:"kg_registry"`
	DeclarationKg     decimal.Decimal `json:"kg_declaration"`
	Difference        decimal.Decimal `json:"difference"`
	PctDifference     Percent         `json:"pct_difference"`
	RegistryDates     int             `json:"registry_dates"`
	DeclarationDates  int             `json:"declaration_dates"`
	DateCountMismatch bool            `json:"date_count_mismatch"`
}
