// Package sheettest builds xlsx fixtures for tests.
package sheettest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet of a fixture. Rows start at A1; nil cells stay empty.
type Sheet struct {
	Name string
	Rows [][]any
}

// Build writes the sheets, in order, into a new workbook and returns its bytes.
func Build(t *testing.T, sheets ...Sheet) []byte {
	t.Helper()
	f := New(t, sheets...)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return buf.Bytes()
}

// New is Build without serialization, for tests that decorate the workbook.
func New(t *testing.T, sheets ...Sheet) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	for i, s := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", s.Name))
		} else {
			_, err := f.NewSheet(s.Name)
			require.NoError(t, err)
		}
		for r, row := range s.Rows {
			for c, v := range row {
				if v == nil {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				require.NoError(t, err)
				require.NoError(t, f.SetCellValue(s.Name, cell, v))
			}
		}
	}
	return f
}

// Extranet lays out an Extranet export: six preamble rows, the header at
// row 7, data from row 8.
func Extranet(t *testing.T, header []any, rows ...[]any) []byte {
	t.Helper()
	all := [][]any{
		{"Declaración de pesadas"},
		{"Campaña 2025"},
		nil,
		{"Generado"},
		nil,
		nil,
		header,
	}
	all = append(all, rows...)
	return Build(t, Sheet{Name: "Declaraciones", Rows: all})
}
