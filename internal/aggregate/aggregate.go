// Package aggregate compares declared and registered weights grouped by
// producer code and by tax-id.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vitis-cat/reconcile-cli/internal/dates"
	"github.com/vitis-cat/reconcile-cli/internal/model"
)

// DefaultWeightThresholdPct is the |percentage| above which differing sums
// count as a weight incident.
const DefaultWeightThresholdPct = 15

// NoticeNoCommonDates is reported when both sides share no weighing date.
const NoticeNoCommonDates = "no common dates, processing all data"

var hundred = decimal.NewFromInt(100)

// Options tunes the reconciliation.
type Options struct {
	WeightThresholdPct float64
}

// Result holds both grouped tables plus the notices raised while preparing them.
type Result struct {
	Producers []model.ProducerRow `json:"producers"`
	TaxIDs    []model.TaxIDRow    `json:"tax_ids"`
	Notices   []string            `json:"notices,omitempty"`

	DeclarationRows int `json:"declaration_rows"`
	RegistryRows    int `json:"registry_rows"`
	CommonDates     int `json:"common_dates"`
}

type dated[T any] struct {
	rec  T
	date model.Date
}

type group struct {
	kg    decimal.Decimal
	dates map[model.Date]struct{}
	code  string
}

type side map[string]*group

func (s side) add(k string, kg decimal.Decimal, d model.Date, code string) {
	g, ok := s[k]
	if !ok {
		g = &group{dates: make(map[model.Date]struct{})}
		s[k] = g
	}
	g.kg = g.kg.Add(kg)
	g.dates[d] = struct{}{}
	if g.code == "" {
		g.code = code
	}
}

func (s side) get(k string) (decimal.Decimal, int, string) {
	g, ok := s[k]
	if !ok {
		return decimal.Zero, 0, ""
	}
	return g.kg, len(g.dates), g.code
}

// Reconcile runs both grouping passes. Rows without a usable date are
// dropped first; when the two sides share weighing dates only those dates
// are compared.
func Reconcile(decls []model.Declaration, registry []model.RegistryRecord, opts Options) *Result {
	log := zap.L().Named("aggregate")
	res := &Result{}

	ds := make([]dated[model.Declaration], 0, len(decls))
	for _, d := range decls {
		if dt, ok := dates.ParseDeclaration(d.Timestamp); ok {
			ds = append(ds, dated[model.Declaration]{rec: d, date: dt})
		}
	}
	rs := make([]dated[model.RegistryRecord], 0, len(registry))
	for _, r := range registry {
		if dt, ok := dates.ParseRegistry(r.WeighingDate); ok {
			rs = append(rs, dated[model.RegistryRecord]{rec: r, date: dt})
		}
	}
	log.Info("aggregate: dates prepared",
		zap.Int("declaration_rows", len(ds)),
		zap.Int("declaration_dropped", len(decls)-len(ds)),
		zap.Int("registry_rows", len(rs)),
		zap.Int("registry_dropped", len(registry)-len(rs)),
	)

	common := commonDates(ds, rs)
	res.CommonDates = len(common)
	if len(common) == 0 {
		res.Notices = append(res.Notices, NoticeNoCommonDates)
		log.Warn("aggregate: " + NoticeNoCommonDates)
	} else {
		ds = filterDates(ds, common)
		rs = filterDates(rs, common)
	}
	res.DeclarationRows = len(ds)
	res.RegistryRows = len(rs)

	var badWeights int
	weight := func(v model.Value) decimal.Decimal {
		kg, err := v.Decimal()
		if err != nil {
			badWeights++
			return decimal.Zero
		}
		return kg
	}

	declByCode, declByNIF := side{}, side{}
	var unresolved int
	for _, d := range ds {
		kg := weight(d.rec.Weight)
		declByNIF.add(d.rec.TaxID.Key(), kg, d.date, d.rec.ProducerCode)
		if d.rec.ProducerCode == "" {
			unresolved++
			continue
		}
		declByCode.add(d.rec.ProducerCode, kg, d.date, d.rec.ProducerCode)
	}
	regByCode, regByNIF := side{}, side{}
	for _, r := range rs {
		kg := weight(r.rec.Weight)
		regByCode.add(r.rec.ProducerCode, kg, r.date, r.rec.ProducerCode)
		regByNIF.add(r.rec.TaxID, kg, r.date, r.rec.ProducerCode)
	}

	if unresolved > 0 {
		res.Notices = append(res.Notices,
			fmt.Sprintf("%d declaration rows without producer code excluded from the producer-code pass", unresolved))
	}
	if badWeights > 0 {
		res.Notices = append(res.Notices, fmt.Sprintf("%d non-numeric weights counted as 0", badWeights))
		log.Warn("aggregate: non-numeric weights counted as 0", zap.Int("rows", badWeights))
	}

	threshold := opts.WeightThresholdPct
	for _, k := range keys(regByCode, declByCode) {
		regKg, regDates, _ := regByCode.get(k)
		declKg, declDates, _ := declByCode.get(k)
		diff := declKg.Sub(regKg)
		pct := Percent(diff, regKg)
		res.Producers = append(res.Producers, model.ProducerRow{
			ProducerCode:      k,
			RegistryKg:        regKg,
			DeclarationKg:     declKg,
			Difference:        diff,
			PctDifference:     pct,
			RegistryDates:     regDates,
			DeclarationDates:  declDates,
			DateCountMismatch: regDates != declDates,
			WeightDiscrepancy: !regKg.Equal(declKg) && pct.Exceeds(threshold),
		})
	}

	for _, k := range keys(regByNIF, declByNIF) {
		regKg, regDates, regCode := regByNIF.get(k)
		declKg, declDates, declCode := declByNIF.get(k)
		code := regCode
		if code == "" {
			code = declCode
		}
		diff := declKg.Sub(regKg)
		res.TaxIDs = append(res.TaxIDs, model.TaxIDRow{
			ProducerCode:      code,
			TaxID:             k,
			RegistryKg:        regKg,
			DeclarationKg:     declKg,
			Difference:        diff,
			PctDifference:     Percent(diff, regKg),
			RegistryDates:     regDates,
			DeclarationDates:  declDates,
			DateCountMismatch: regDates != declDates,
		})
	}

	ps, ts := res.ProducerSummary(), res.TaxIDSummary()
	log.Info("aggregate: complete",
		zap.Int("producer_codes", ps.Codes),
		zap.Int("weight_incidents", ps.WeightIncidents),
		zap.Int("date_incidents", ps.DateIncidents),
		zap.Int("tax_ids", ts.TaxIDs),
		zap.String("total_difference", ps.TotalDifference.String()),
	)
	return res
}

// Percent is diff / base * 100, or +Inf when base is zero.
func Percent(diff, base decimal.Decimal) model.Percent {
	if base.IsZero() {
		return model.Percent{Inf: true}
	}
	return model.Percent{Value: diff.Div(base).Mul(hundred).InexactFloat64()}
}

func commonDates(ds []dated[model.Declaration], rs []dated[model.RegistryRecord]) map[model.Date]struct{} {
	left := make(map[model.Date]struct{}, len(ds))
	for _, d := range ds {
		left[d.date] = struct{}{}
	}
	common := make(map[model.Date]struct{})
	for _, r := range rs {
		if _, ok := left[r.date]; ok {
			common[r.date] = struct{}{}
		}
	}
	return common
}

func filterDates[T any](rows []dated[T], keep map[model.Date]struct{}) []dated[T] {
	out := make([]dated[T], 0, len(rows))
	for _, r := range rows {
		if _, ok := keep[r.date]; ok {
			out = append(out, r)
		}
	}
	return out
}

// keys is the sorted union of both sides.
func keys(a, b side) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
