package sheet

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitis-cat/reconcile-cli/internal/model"
	"github.com/vitis-cat/reconcile-cli/internal/sheet/sheettest"
)

func TestReadCSV_Semicolon(t *testing.T) {
	in := "dos;nipd;nifLLiurador;dataPesada;kgTotals;grau\n" +
		"CV;0802400022;B12345678;2025-09-14;1500;12,5\n" +
		";;;;;\n" +
		"XX;2501200003;12345678Z;2025-09-15;800.5;11\n"

	tbl, err := ReadCSV(strings.NewReader(in), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"dos", "nipd", "nifLLiurador", "dataPesada", "kgTotals", "grau"}, tbl.Header)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, []int{2, 4}, tbl.Source)

	assert.Equal(t, model.Str("0802400022"), tbl.Rows[0][1])
	assert.Equal(t, model.Num(1500), tbl.Rows[0][4])
	assert.Equal(t, model.Num(12.5), tbl.Rows[0][5])
	assert.Equal(t, model.Num(2501200003), tbl.Rows[1][1])
	assert.Equal(t, model.Num(800.5), tbl.Rows[1][4])
}

func TestReadCSV_CommaAndBOM(t *testing.T) {
	in := "\ufeffnipd,kgTotals,\n123,0.5,\n"
	tbl, err := ReadCSV(strings.NewReader(in), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"nipd", "kgTotals", "Unnamed: 2"}, tbl.Header)
	assert.Equal(t, model.Num(0.5), tbl.Rows[0][1])
	assert.Equal(t, model.Null, tbl.Rows[0][2])
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), CSVOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnreadable))
}

func TestLoad_DispatchesOnExtension(t *testing.T) {
	tbl, err := Load("ervc.CSV", []byte("a,b\n1,x\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.Header)

	data := sheettest.Build(t, sheettest.Sheet{Name: "Hoja1", Rows: [][]any{{"a", "b"}, {1, "x"}}})
	tbl, err = Load("ervc.xlsx", data, Options{})
	require.NoError(t, err)
	assert.Equal(t, "Hoja1", tbl.Sheet)
	assert.Equal(t, model.Num(1), tbl.Rows[0][0])

	_, err = Load("broken.xlsx", []byte("nope"), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnreadable))
	assert.Contains(t, err.Error(), "broken.xlsx")
}

func TestReadCSV_NonFiniteStaysText(t *testing.T) {
	in := "nipd;kgTotals;grau\n123;NaN; Inf \n124;Infinity;12\n"
	tbl, err := ReadCSV(strings.NewReader(in), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, model.Str("NaN"), tbl.Rows[0][1])
	assert.Equal(t, model.Str("Inf"), tbl.Rows[0][2])
	assert.Equal(t, model.Str("Infinity"), tbl.Rows[1][1])
	assert.Equal(t, model.Num(12), tbl.Rows[1][2])
}

func TestCSVCell(t *testing.T) {
	tests := []struct {
		raw          string
		commaDecimal bool
		want         model.Value
	}{
		{"  bodega x  ", false, model.Str("bodega x")},
		{"1200,5", true, model.Num(1200.5)},
		{"1200,5", false, model.Str("1200,5")},
		{"0,5", true, model.Num(0.5)},
		{"1.200,5", true, model.Str("1.200,5")},
		{"0802400022", true, model.Str("0802400022")},
		{"-inf", false, model.Str("-inf")},
		{"", false, model.Null},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, csvCell(tt.raw, tt.commaDecimal), tt.raw)
	}
}

func TestParseNumber(t *testing.T) {
	n, ok := parseNumber("12.5")
	assert.True(t, ok)
	assert.Equal(t, 12.5, n)

	for _, s := range []string{"NaN", "Inf", "+Infinity", "-inf", "abc"} {
		_, ok := parseNumber(s)
		assert.False(t, ok, s)
	}
}
