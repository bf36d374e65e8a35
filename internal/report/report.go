// Package report renders reconciliation results as xlsx workbooks.
package report

import (
	"bytes"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v2"

	"github.com/vitis-cat/reconcile-cli/internal/aggregate"
	"github.com/vitis-cat/reconcile-cli/internal/match"
	"github.com/vitis-cat/reconcile-cli/internal/model"
)

// Download names.
const (
	GroupedFileName = "reporte_agrupado_pesadas.xlsx"
	MatchesFileName = "reporte_coincidencias_pesadas.xlsx"
	LedgerFileName  = "errores_declaracion.xlsx"
)

// Sheet names.
const (
	SheetProducers     = "nipd"
	SheetTaxIDs        = "nifViticultor"
	SheetExact         = "exactos"
	SheetGradeMismatch = "diferencia_grado"
	SheetWeightApprox  = "peso_aproximado"
	SheetUnmatched     = "sin_coincidencia"
	SheetBefore        = "errores_analisis"
	SheetAfter         = "errores_corregido"
)

// ProducerColumns is the header of the producer-code sheet.
var ProducerColumns = []string{
	"nipd", "kgtotales rvc", "kgtotales extranet", "diferencia",
	"porcentaje diferencia", "cantidad pesadas rvc", "cantidad pesadas extranet",
	"incidencia pesadas", "incidencias kg",
}

// TaxIDColumns is the header of the tax-id sheet.
var TaxIDColumns = []string{
	"nipd", "nif", "KgTotales RVC", "KgTotales Extranet", "diferencia porcentual",
	"porcentaje diferencia pesadas", "numero pesadas viticultor rvc",
	"numero pesadas viticultor extranet", "incidencia pesadas",
}

// MatchColumns is the header of every match bucket sheet.
var MatchColumns = []string{
	"fila", "nipd", "nif", "fecha", "kg declarados", "grado declarado",
	"kg rvc", "grado rvc", "diferencia kg", "candidatos", "motivo",
}

// LedgerColumns is the header of both ledger sheets.
var LedgerColumns = []string{"fila", "verificador", "errores", "correcciones propuestas"}

// Grouped writes the two-sheet discrepancy report.
func Grouped(res *aggregate.Result) ([]byte, error) {
	f := xlsx.NewFile()

	sh, err := addSheet(f, SheetProducers, ProducerColumns)
	if err != nil {
		return nil, err
	}
	for _, p := range res.Producers {
		r := sh.AddRow()
		text(r, p.ProducerCode)
		number(r, p.RegistryKg)
		number(r, p.DeclarationKg)
		number(r, p.Difference)
		percent(r, p.PctDifference)
		r.AddCell().SetInt(p.RegistryDates)
		r.AddCell().SetInt(p.DeclarationDates)
		flag(r, p.DateCountMismatch)
		flag(r, p.WeightDiscrepancy)
	}

	sh, err = addSheet(f, SheetTaxIDs, TaxIDColumns)
	if err != nil {
		return nil, err
	}
	for _, t := range res.TaxIDs {
		r := sh.AddRow()
		text(r, t.ProducerCode)
		text(r, t.TaxID)
		number(r, t.RegistryKg)
		number(r, t.DeclarationKg)
		number(r, t.Difference)
		percent(r, t.PctDifference)
		r.AddCell().SetInt(t.RegistryDates)
		r.AddCell().SetInt(t.DeclarationDates)
		flag(r, t.DateCountMismatch)
	}

	return write(f, GroupedFileName)
}

// Matches writes one sheet per outcome bucket.
func Matches(res *match.Result) ([]byte, error) {
	f := xlsx.NewFile()
	buckets := []struct {
		name string
		recs []model.MatchRecord
	}{
		{SheetExact, res.Exact},
		{SheetGradeMismatch, res.GradeMismatch},
		{SheetWeightApprox, res.WeightApprox},
		{SheetUnmatched, res.Unmatched},
	}
	for _, b := range buckets {
		sh, err := addSheet(f, b.name, MatchColumns)
		if err != nil {
			return nil, err
		}
		for _, m := range b.recs {
			r := sh.AddRow()
			r.AddCell().SetInt(m.Declaration.Row)
			text(r, m.Declaration.ProducerCode)
			text(r, m.Declaration.TaxID.String())
			if m.Date.IsZero() {
				text(r, "")
			} else {
				text(r, m.Date.String())
			}
			value(r, m.DeclaredWeight)
			value(r, m.DeclaredGrade)
			if m.Candidate != nil {
				value(r, m.Candidate.Weight)
				value(r, m.Candidate.Grade)
				number(r, m.WeightDiff)
			} else {
				text(r, "")
				text(r, "")
				text(r, "")
			}
			r.AddCell().SetInt(m.Candidates)
			text(r, m.Reason)
		}
	}
	return write(f, MatchesFileName)
}

// Ledgers writes the pre- and post-correction error ledgers.
func Ledgers(before, after []model.ErrorEntry) ([]byte, error) {
	f := xlsx.NewFile()
	for _, l := range []struct {
		name    string
		entries []model.ErrorEntry
	}{
		{SheetBefore, before},
		{SheetAfter, after},
	} {
		sh, err := addSheet(f, l.name, LedgerColumns)
		if err != nil {
			return nil, err
		}
		for _, e := range l.entries {
			r := sh.AddRow()
			r.AddCell().SetInt(e.Row)
			text(r, e.ProducerIdentifier)
			text(r, strings.Join(e.Errors, "; "))
			text(r, strings.Join(e.ProposedCorrections, "; "))
		}
	}
	return write(f, LedgerFileName)
}

func addSheet(f *xlsx.File, name string, header []string) (*xlsx.Sheet, error) {
	sh, err := f.AddSheet(name)
	if err != nil {
		return nil, eris.Wrapf(err, "report: add sheet %s", name)
	}
	r := sh.AddRow()
	for _, h := range header {
		text(r, h)
	}
	return sh, nil
}

func write(f *xlsx.File, name string) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrapf(err, "report: write %s", name)
	}
	return buf.Bytes(), nil
}

func text(r *xlsx.Row, s string) { r.AddCell().SetString(s) }

func number(r *xlsx.Row, d decimal.Decimal) { r.AddCell().SetFloat(d.InexactFloat64()) }

// percent writes an infinite percentage as the text "inf"; xlsx has no
// numeric infinity.
func percent(r *xlsx.Row, p model.Percent) {
	if p.Inf {
		text(r, p.String())
		return
	}
	r.AddCell().SetFloat(p.Value)
}

func flag(r *xlsx.Row, b bool) {
	if b {
		text(r, "SI")
		return
	}
	text(r, "NO")
}

func value(r *xlsx.Row, v model.Value) {
	if v.IsNumber() {
		r.AddCell().SetFloat(v.Num)
		return
	}
	text(r, v.String())
}
