package sheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/vitis-cat/reconcile-cli/internal/model"
)

// CSVOptions configures the CSV reader.
type CSVOptions struct {
	Delimiter  rune // 0 sniffs ';' or ',' from the header line
	Comment    rune // comment character (0 = none)
	LazyQuotes bool
	SkipRows   int // rows before the header row
}

// ReadCSV parses a delimited export into a Table. Cells that parse as numbers
// become numeric values; everything else stays text.
func ReadCSV(r io.Reader, opts CSVOptions) (*Table, error) {
	br := bufio.NewReader(r)
	if opts.Delimiter == 0 {
		opts.Delimiter = sniff(br)
	}

	reader := csv.NewReader(br)
	reader.Comma = opts.Delimiter
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1 // allow variable fields

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(ErrUnreadable, "csv: %v", err)
	}
	if len(records) <= opts.SkipRows {
		return nil, eris.Wrapf(ErrUnreadable, "csv: no header at row %d (file has %d rows)", opts.SkipRows+1, len(records))
	}

	headerRow := records[opts.SkipRows]
	header := make([]string, len(headerRow))
	for j, h := range headerRow {
		h = strings.TrimPrefix(h, "\ufeff")
		if strings.TrimSpace(h) == "" {
			h = fmt.Sprintf("Unnamed: %d", j)
		}
		header[j] = h
	}

	t := &Table{Table: model.Table{Header: header}}
	for i := opts.SkipRows + 1; i < len(records); i++ {
		vals := make([]model.Value, len(header))
		empty := true
		for j := 0; j < len(header) && j < len(records[i]); j++ {
			v := csvCell(records[i][j], opts.Delimiter == ';')
			if !v.IsNull() {
				empty = false
			}
			vals[j] = v
		}
		if empty {
			continue
		}
		t.Rows = append(t.Rows, vals)
		t.Source = append(t.Source, i+1)
	}
	return t, nil
}

// Load reads an upload by file extension: .csv through ReadCSV, anything else
// as a workbook.
func Load(name string, data []byte, opts Options) (*Table, error) {
	var (
		t   *Table
		err error
	)
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		t, err = ReadCSV(bytes.NewReader(data), CSVOptions{SkipRows: opts.SkipRows})
	} else {
		t, err = ReadBytes(data, opts)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sheet: load %s", name)
	}
	return t, nil
}

// csvCell types one field. Semicolon exports use the comma as decimal
// separator, so "1200,5" is read as 1200.5 when commaDecimal is set.
func csvCell(raw string, commaDecimal bool) model.Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return model.Null
	}
	// Codes with leading zeros stay text.
	if len(s) > 1 && s[0] == '0' && s[1] != '.' && !(commaDecimal && s[1] == ',') {
		return model.Str(s)
	}
	num := s
	if commaDecimal && strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		num = strings.Replace(s, ",", ".", 1)
	}
	if n, ok := parseNumber(num); ok {
		return model.Num(n)
	}
	return model.Str(s)
}

// sniff peeks at the first line and prefers ';' when it outnumbers ','.
func sniff(br *bufio.Reader) rune {
	line, _ := br.Peek(4096)
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}
