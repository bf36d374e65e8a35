package pipeline

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vitis-cat/reconcile-cli/internal/model"
	"github.com/vitis-cat/reconcile-cli/internal/sheet"
)

// Logical declaration columns.
const (
	FieldVerifier  = "verifier"
	FieldProducer  = "producer"
	FieldZone      = "zone"
	FieldTaxID     = "tax_id"
	FieldWeight    = "weight"
	FieldGrade     = "grade"
	FieldTimestamp = "timestamp"
)

// Logical registry columns.
const (
	FieldStatus       = "status"
	FieldProducerCode = "producer_code"
	FieldWeighingDate = "weighing_date"
)

// DeclarationColumns resolves the Extranet export headers. Substring rules
// are evaluated in this order for each header.
var DeclarationColumns = []sheet.ColumnSpec{
	{Field: FieldVerifier, Contains: [][]string{{"verificador"}}, Last: true, Optional: true},
	{Field: FieldProducer, Contains: [][]string{{"razón", "social"}, {"razon", "social"}}, Last: true},
	{Field: FieldZone, Contains: [][]string{{"zona"}}},
	{Field: FieldTaxID, Exact: []string{"Nif Viticultor"}, Contains: [][]string{{"nif", "viticultor"}}},
	{Field: FieldWeight, Exact: []string{"Total Kg:"}, Contains: [][]string{{"kg"}, {"kilo"}, {"peso"}}},
	{Field: FieldGrade, Exact: []string{"Grado:"}, Contains: [][]string{{"grado"}}, Optional: true},
	{Field: FieldTimestamp, Exact: []string{"Día y hora:"}, Contains: [][]string{{"día", "hora"}, {"dia", "hora"}}},
}

// MasterColumns are the fixed headers of the BBDD sheet.
var MasterColumns = []sheet.ColumnSpec{
	{Field: "extranet", Exact: []string{"EXTRANET"}},
	{Field: "registry", Exact: []string{"RVC"}},
	{Field: FieldProducerCode, Exact: []string{"NIPD"}},
	{Field: FieldZone, Exact: []string{"ZONA"}, Optional: true},
}

// RegistryColumns are the eRVC headers, with fallbacks in priority order.
var RegistryColumns = []sheet.ColumnSpec{
	{Field: FieldStatus, Exact: []string{"dos"}},
	{Field: FieldProducerCode, Exact: []string{"nipd"}},
	{Field: FieldTaxID, Exact: []string{"nifLLiurador", "nifLliurador", "nif", "NIF", "nifProductor", "nomCelLliur"}},
	{Field: FieldWeighingDate, Exact: []string{"dataPesada", "dataPesai", "fecha", "dataGravacio"}},
	{Field: FieldWeight, Exact: []string{"kgTotals"}},
	{Field: FieldGrade, Exact: []string{"grau"}, Optional: true},
}

// Input is one uploaded file.
type Input struct {
	Name string
	Data []byte
}

// LoadDeclarations parses the Extranet export. Row numbers follow the ledger
// convention: data index plus the preamble, the header and 1-based numbering.
func LoadDeclarations(in Input, skipRows int) ([]model.Declaration, error) {
	tbl, err := sheet.ReadBytes(in.Data, sheet.Options{SkipRows: skipRows})
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read extranet %s", in.Name)
	}
	return declarations(in.Name, tbl, func(i int) int { return i + skipRows + 2 })
}

// DeclarationsFromTable builds declarations from an already parsed export,
// such as the cleaner's corrected table. Row is the worksheet row of the
// upload, so it stays stable when corrections drop rows.
func DeclarationsFromTable(name string, tbl *sheet.Table) ([]model.Declaration, error) {
	if tbl == nil {
		return nil, eris.Errorf("pipeline: %s has no table", name)
	}
	return declarations(name, tbl, func(i int) int { return tbl.Source[i] })
}

func declarations(name string, tbl *sheet.Table, rowNumber func(int) int) ([]model.Declaration, error) {
	cols, err := sheet.Discover(name, tbl.Header, DeclarationColumns)
	if err != nil {
		return nil, err
	}

	cell := func(i int, field string) model.Value { return tbl.Cell(i, cols.Index(field)) }
	out := make([]model.Declaration, 0, tbl.Len())
	for i := range tbl.Rows {
		out = append(out, model.Declaration{
			Index:        i,
			Row:          rowNumber(i),
			Verifier:     cell(i, FieldVerifier).String(),
			ProducerName: cell(i, FieldProducer).String(),
			Zone:         cell(i, FieldZone).String(),
			TaxID:        cell(i, FieldTaxID),
			Weight:       cell(i, FieldWeight),
			Grade:        cell(i, FieldGrade),
			Timestamp:    cell(i, FieldTimestamp),
			Fields:       tbl.Snapshot(i),
		})
	}

	zap.L().Info("pipeline: extranet loaded",
		zap.String("file", name),
		zap.Int("rows", len(out)),
		zap.Int("columns", len(tbl.Header)),
	)
	return out, nil
}

// LoadMasters parses the named sheet of the BBDD workbook.
func LoadMasters(in Input, sheetName string) ([]model.ProducerMaster, error) {
	tbl, err := sheet.ReadBytes(in.Data, sheet.Options{SheetName: sheetName})
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read master %s", in.Name)
	}
	cols, err := sheet.Discover(in.Name, tbl.Header, MasterColumns)
	if err != nil {
		return nil, err
	}

	out := make([]model.ProducerMaster, 0, tbl.Len())
	for i := range tbl.Rows {
		out = append(out, model.ProducerMaster{
			ExtranetAlias: tbl.Cell(i, cols.Index("extranet")).String(),
			RegistryAlias: tbl.Cell(i, cols.Index("registry")).String(),
			ProducerCode:  tbl.Cell(i, cols.Index(FieldProducerCode)).Key(),
			Zone:          tbl.Cell(i, cols.Index(FieldZone)).String(),
		})
	}

	zap.L().Info("pipeline: master loaded", zap.String("file", in.Name), zap.Int("rows", len(out)))
	return out, nil
}

// LoadRegistry parses the eRVC export, xlsx or csv.
func LoadRegistry(in Input) ([]model.RegistryRecord, error) {
	tbl, err := sheet.Load(in.Name, in.Data, sheet.Options{})
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read registry %s", in.Name)
	}
	cols, err := sheet.Discover(in.Name, tbl.Header, RegistryColumns)
	if err != nil {
		return nil, err
	}

	out := make([]model.RegistryRecord, 0, tbl.Len())
	for i := range tbl.Rows {
		out = append(out, model.RegistryRecord{
			Row:          tbl.Source[i],
			Status:       tbl.Cell(i, cols.Index(FieldStatus)).Key(),
			ProducerCode: tbl.Cell(i, cols.Index(FieldProducerCode)).Key(),
			TaxID:        tbl.Cell(i, cols.Index(FieldTaxID)).Key(),
			WeighingDate: tbl.Cell(i, cols.Index(FieldWeighingDate)),
			Weight:       tbl.Cell(i, cols.Index(FieldWeight)),
			Grade:        tbl.Cell(i, cols.Index(FieldGrade)),
		})
	}

	zap.L().Info("pipeline: registry loaded", zap.String("file", in.Name), zap.Int("rows", len(out)))
	return out, nil
}
