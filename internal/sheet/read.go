// Package sheet turns uploaded spreadsheets into typed tables and resolves
// logical columns from free-text headers.
package sheet

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"github.com/vitis-cat/reconcile-cli/internal/model"
)

// ErrUnreadable marks an input that could not be opened or parsed as a workbook.
var ErrUnreadable = eris.New("sheet: unreadable workbook")

// Options configures the reader.
type Options struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	SkipRows   int    // rows before the header row
}

// Table is a parsed sheet. Source[i] is the 1-based worksheet row of Rows[i].
type Table struct {
	model.Table
	Sheet  string
	Source []int
}

// Read parses the sheet selected by opts from r. The row after SkipRows is the
// header; fully empty rows are dropped.
func Read(r io.Reader, opts Options) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, eris.Wrapf(ErrUnreadable, "open: %v", err)
	}
	defer f.Close()

	return ReadFile(f, opts)
}

// ReadBytes is Read over an in-memory upload.
func ReadBytes(data []byte, opts Options) (*Table, error) {
	return Read(bytes.NewReader(data), opts)
}

// ReadFile parses an already opened workbook.
func ReadFile(f *excelize.File, opts Options) (*Table, error) {
	name, err := SheetName(f, opts)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, eris.Wrapf(ErrUnreadable, "sheet %q: %v", name, err)
	}
	if len(rows) <= opts.SkipRows {
		return nil, eris.Wrapf(ErrUnreadable, "sheet %q: no header at row %d (sheet has %d rows)", name, opts.SkipRows+1, len(rows))
	}

	headerRow := rows[opts.SkipRows]
	width := len(headerRow)
	header := make([]string, width)
	for j, h := range headerRow {
		if strings.TrimSpace(h) == "" {
			h = fmt.Sprintf("Unnamed: %d", j)
		}
		header[j] = h
	}

	t := &Table{Table: model.Table{Header: header}, Sheet: name}
	for i := opts.SkipRows + 1; i < len(rows); i++ {
		sheetRow := i + 1
		vals := make([]model.Value, width)
		empty := true
		for j := 0; j < width && j < len(rows[i]); j++ {
			v, err := typedCell(f, name, j+1, sheetRow, rows[i][j])
			if err != nil {
				return nil, err
			}
			if !v.IsNull() {
				empty = false
			}
			vals[j] = v
		}
		if empty {
			continue
		}
		t.Rows = append(t.Rows, vals)
		t.Source = append(t.Source, sheetRow)
	}

	return t, nil
}

// SheetName resolves the worksheet selected by opts.
func SheetName(f *excelize.File, opts Options) (string, error) {
	sheets := f.GetSheetList()
	if opts.SheetName != "" {
		for _, s := range sheets {
			if s == opts.SheetName {
				return s, nil
			}
		}
		return "", eris.Errorf("sheet: sheet %q not found (available: %v)", opts.SheetName, sheets)
	}
	if opts.SheetIndex >= len(sheets) {
		return "", eris.Errorf("sheet: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(sheets))
	}
	return sheets[opts.SheetIndex], nil
}

// typedCell maps a raw cell to a Value using the stored cell type: text cells
// stay strings even when they look numeric.
func typedCell(f *excelize.File, sheet string, col, row int, raw string) (model.Value, error) {
	if raw == "" {
		return model.Null, nil
	}
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return model.Null, eris.Wrap(err, "sheet: cell name")
	}
	typ, err := f.GetCellType(sheet, axis)
	if err != nil {
		return model.Null, eris.Wrapf(err, "sheet: cell type %s", axis)
	}
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeBool, excelize.CellTypeError, excelize.CellTypeDate:
		return model.Str(raw), nil
	}
	if n, ok := parseNumber(raw); ok {
		return model.Num(n), nil
	}
	return model.Str(raw), nil
}

// parseNumber accepts finite numbers only; "NaN" and "Inf" stay text.
func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
