// Package cleaner analyzes an Extranet declaration upload, applies the
// automatic corrections and rewrites the original workbook.
package cleaner

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/vitis-cat/reconcile-cli/internal/model"
	"github.com/vitis-cat/reconcile-cli/internal/sheet"
	"github.com/vitis-cat/reconcile-cli/internal/taxid"
)

// Logical columns of the declaration sheet.
const (
	FieldVerifier = "verifier"
	FieldTaxID    = "tax_id"
	FieldWeight   = "weight"
)

// OutputPrefix is prepended to the uploaded file name for the corrected copy.
const OutputPrefix = "declaracion_corregida_"

// MIMEType of the corrected workbook.
const MIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ErrInvalidState is returned when a step runs out of order.
var ErrInvalidState = eris.New("cleaner: invalid state")

// ColumnSpecs mirror the operators' header conventions; when several headers
// match, the last one is used.
var ColumnSpecs = []sheet.ColumnSpec{
	{Field: FieldVerifier, Contains: [][]string{{"verificador"}}, Last: true, Optional: true},
	{Field: FieldTaxID, Contains: [][]string{{"nif", "viticultor"}}, Last: true},
	{Field: FieldWeight, Contains: [][]string{{"kg"}, {"kilo"}, {"peso"}}, Last: true},
}

// State of the cleaning workflow.
type State int

// States.
const (
	StateLoaded State = iota
	StateAnalyzed
	StateCorrected
)

func (s State) String() string {
	switch s {
	case StateAnalyzed:
		return "analyzed"
	case StateCorrected:
		return "corrected"
	default:
		return "loaded"
	}
}

// Options configures a Cleaner.
type Options struct {
	SkipRows int    // preamble rows before the header
	TempDir  string // where the upload copy lives; "" means os.TempDir
}

// Cleaner is the analyze → correct → output state machine for one upload.
type Cleaner struct {
	opts  Options
	state State
	log   *zap.Logger

	name     string
	tempPath string

	original  *sheet.Table
	corrected *sheet.Table
	cols      sheet.Columns

	before []model.ErrorEntry
	after  []model.ErrorEntry

	corrections map[int]taxid.Correction // keyed by original row index
	removed     []int                    // original row indices with weight 0
}

// New returns a Cleaner in the loaded state.
func New(opts Options) *Cleaner {
	return &Cleaner{opts: opts, log: zap.L().Named("cleaner")}
}

// State returns the current workflow state.
func (c *Cleaner) State() State { return c.state }

// Name returns the uploaded file name.
func (c *Cleaner) Name() string { return c.name }

// OutputName is the download name of the corrected workbook.
func (c *Cleaner) OutputName() string { return OutputPrefix + c.name }

// rowOffset maps a 0-based data index to the reported row number: the
// preamble, the header and 1-based numbering.
func (c *Cleaner) rowOffset() int { return c.opts.SkipRows + 2 }

// Analyze stores a temporary copy of the upload, parses it and records every
// finding without modifying anything. On failure the previous state is kept.
func (c *Cleaner) Analyze(data []byte, name string) error {
	tmp, err := os.CreateTemp(c.opts.TempDir, "declaracion-*.xlsx")
	if err != nil {
		return eris.Wrap(err, "cleaner: create temp file")
	}
	path := tmp.Name()
	discard := func() { _ = os.Remove(path) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		discard()
		return eris.Wrapf(err, "cleaner: write temp copy of %s", name)
	}
	if err := tmp.Close(); err != nil {
		discard()
		return eris.Wrapf(err, "cleaner: close temp copy of %s", name)
	}

	tbl, cols, err := load(path, name, c.opts.SkipRows)
	if err != nil {
		discard()
		return err
	}

	before := scan(tbl, cols, c.rowOffset(), true)

	_ = c.Cleanup()
	c.name = name
	c.tempPath = path
	c.original = tbl
	c.corrected = nil
	c.cols = cols
	c.before = before
	c.after = nil
	c.corrections = nil
	c.removed = nil
	c.state = StateAnalyzed

	sum := Summarize(before)
	c.log.Info("cleaner: analyzed",
		zap.String("file", name),
		zap.Int("rows", tbl.Len()),
		zap.Int("columns", len(tbl.Header)),
		zap.Int("error_rows", sum.Total),
		zap.Int("correctable", sum.Correctable),
		zap.Int("zero_weight", sum.ZeroWeight),
	)
	return nil
}

func load(path, name string, skip int) (*sheet.Table, sheet.Columns, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, eris.Wrapf(sheet.ErrUnreadable, "%s: %v", name, err)
	}
	defer f.Close()

	tbl, err := sheet.ReadFile(f, sheet.Options{SkipRows: skip})
	if err != nil {
		return nil, nil, eris.Wrapf(err, "cleaner: read %s", name)
	}
	cols, err := sheet.Discover(name, tbl.Header, ColumnSpecs)
	if err != nil {
		return nil, nil, err
	}
	return tbl, cols, nil
}

// ApplyCorrections rewrites every correctable tax-id, drops rows whose weight
// is exactly 0 and records the remaining findings.
func (c *Cleaner) ApplyCorrections() error {
	if c.state != StateAnalyzed {
		return eris.Wrapf(ErrInvalidState, "apply corrections requires %s, have %s", StateAnalyzed, c.state)
	}

	nifCol := c.cols.Index(FieldTaxID)
	kgCol := c.cols.Index(FieldWeight)

	corrections := make(map[int]taxid.Correction)
	var removed []int
	out := &sheet.Table{Table: model.Table{Header: append([]string(nil), c.original.Header...)}, Sheet: c.original.Sheet}

	for i := range c.original.Rows {
		row := append([]model.Value(nil), c.original.Rows[i]...)
		if fix := taxid.ProposeCorrection(row[nifCol]); fix.Corrected {
			row[nifCol] = model.Str(fix.Value)
			corrections[i] = fix
			c.log.Debug("cleaner: tax id corrected", zap.Int("row", i+c.rowOffset()), zap.String("detail", fix.Detail))
		}
		if row[kgCol].IsZero() {
			removed = append(removed, i)
			continue
		}
		out.Rows = append(out.Rows, row)
		out.Source = append(out.Source, c.original.Source[i])
	}

	c.corrected = out
	c.corrections = corrections
	c.removed = removed
	c.after = scan(out, c.cols, c.rowOffset(), false)
	c.state = StateCorrected

	c.log.Info("cleaner: corrections applied",
		zap.Int("tax_ids_corrected", len(corrections)),
		zap.Int("rows_removed", len(removed)),
		zap.Int("remaining_error_rows", len(c.after)),
	)
	return nil
}

// GenerateOutput reopens the uploaded workbook, rewrites corrected tax-id
// cells, deletes removed rows bottom-up and returns the serialized workbook.
// Formatting of untouched cells is preserved.
func (c *Cleaner) GenerateOutput() ([]byte, error) {
	if c.state != StateCorrected {
		return nil, eris.Wrapf(ErrInvalidState, "generate output requires %s, have %s", StateCorrected, c.state)
	}

	f, err := excelize.OpenFile(c.tempPath)
	if err != nil {
		return nil, eris.Wrapf(err, "cleaner: reopen %s", c.name)
	}
	defer f.Close()

	ws := c.original.Sheet
	nifCol, err := c.headerColumn(f, ws)
	if err != nil {
		return nil, err
	}

	idx := make([]int, 0, len(c.corrections))
	for i := range c.corrections {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	for _, i := range idx {
		cell, err := excelize.CoordinatesToCellName(nifCol, c.original.Source[i])
		if err != nil {
			return nil, eris.Wrap(err, "cleaner: cell name")
		}
		if err := f.SetCellStr(ws, cell, c.corrections[i].Value); err != nil {
			return nil, eris.Wrapf(err, "cleaner: write %s", cell)
		}
	}

	rows := make([]int, len(c.removed))
	for k, i := range c.removed {
		rows[k] = c.original.Source[i]
	}
	sort.Sort(sort.Reverse(sort.IntSlice(rows)))
	for _, r := range rows {
		if err := f.RemoveRow(ws, r); err != nil {
			return nil, eris.Wrapf(err, "cleaner: delete row %d", r)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, eris.Wrapf(err, "cleaner: serialize %s", c.OutputName())
	}

	c.log.Info("cleaner: output generated",
		zap.String("file", c.OutputName()),
		zap.Int("cells_rewritten", len(idx)),
		zap.Int("rows_deleted", len(rows)),
	)
	return buf.Bytes(), nil
}

// headerColumn finds the 1-based tax-id column by header text on the header row.
func (c *Cleaner) headerColumn(f *excelize.File, ws string) (int, error) {
	rows, err := f.GetRows(ws)
	if err != nil {
		return 0, eris.Wrapf(err, "cleaner: read %s", ws)
	}
	if len(rows) > c.opts.SkipRows {
		for j, h := range rows[c.opts.SkipRows] {
			lower := strings.ToLower(h)
			if strings.Contains(lower, "nif") && strings.Contains(lower, "viticultor") {
				return j + 1, nil
			}
		}
	}
	var header []string
	if len(rows) > c.opts.SkipRows {
		header = rows[c.opts.SkipRows]
	}
	return 0, &sheet.ColumnError{Source: c.name, Field: FieldTaxID, Accepted: []string{"*nif*viticultor*"}, Available: header}
}

// Cleanup removes the temporary upload copy. Safe to call repeatedly.
func (c *Cleaner) Cleanup() error {
	if c.tempPath == "" {
		return nil
	}
	path := c.tempPath
	c.tempPath = ""
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "cleaner: remove %s", path)
	}
	c.log.Debug("cleaner: temp file removed", zap.String("path", path))
	return nil
}

// Original returns the table as uploaded.
func (c *Cleaner) Original() *sheet.Table { return c.original }

// Corrected returns the corrected table, nil before ApplyCorrections.
func (c *Cleaner) Corrected() *sheet.Table { return c.corrected }

// Columns returns the resolved column mapping.
func (c *Cleaner) Columns() sheet.Columns { return c.cols }

// Before returns the ledger of the uploaded table.
func (c *Cleaner) Before() []model.ErrorEntry { return c.before }

// After returns the ledger of the corrected table.
func (c *Cleaner) After() []model.ErrorEntry { return c.after }

// CorrectedCount is the number of tax-ids rewritten.
func (c *Cleaner) CorrectedCount() int { return len(c.corrections) }

// RemovedCount is the number of zero-weight rows dropped.
func (c *Cleaner) RemovedCount() int { return len(c.removed) }

// TempPath exposes the upload copy location.
func (c *Cleaner) TempPath() string { return c.tempPath }
