package sheet

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
)

// ErrMissingColumn marks an input-structure failure.
var ErrMissingColumn = eris.New("sheet: required column not found")

// ColumnSpec maps a logical field to the headers that may carry it.
type ColumnSpec struct {
	Field string
	// Exact header names, tried in order before any substring rule.
	Exact []string
	// Each group lists substrings that must all occur in the lowercased
	// header. Any group is enough.
	Contains [][]string
	// Last picks the last matching header instead of the first.
	Last     bool
	Optional bool
}

func (s ColumnSpec) accepted() []string {
	out := append([]string(nil), s.Exact...)
	for _, g := range s.Contains {
		out = append(out, "*"+strings.Join(g, "*")+"*")
	}
	return out
}

func (s ColumnSpec) containsMatch(header string) bool {
	for _, g := range s.Contains {
		ok := true
		for _, sub := range g {
			if !strings.Contains(header, sub) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// Columns is the resolved logical field to column index mapping.
type Columns map[string]int

// Index returns the column of field, or -1.
func (c Columns) Index(field string) int {
	if i, ok := c[field]; ok {
		return i
	}
	return -1
}

// Has reports whether field was resolved.
func (c Columns) Has(field string) bool {
	_, ok := c[field]
	return ok
}

// ColumnError names a missing logical column and the headers that were present.
type ColumnError struct {
	Source    string
	Field     string
	Accepted  []string
	Available []string
}

func (e *ColumnError) Error() string {
	src := ""
	if e.Source != "" {
		src = e.Source + ": "
	}
	return fmt.Sprintf("%scolumn %q not found (accepted %v); available columns: %v", src, e.Field, e.Accepted, e.Available)
}

// Is lets errors.Is match ErrMissingColumn.
func (e *ColumnError) Is(target error) bool { return target == ErrMissingColumn }

// Discover resolves specs against header. Substring rules behave like an
// if/else chain: a header is claimed by the first spec whose rule it matches.
func Discover(source string, header []string, specs []ColumnSpec) (Columns, error) {
	cols := make(Columns, len(specs))

	for _, s := range specs {
		for _, name := range s.Exact {
			if i := indexOf(header, name); i >= 0 {
				cols[s.Field] = i
				break
			}
		}
	}

	for i, h := range header {
		lower := strings.ToLower(norm.NFC.String(h))
		for _, s := range specs {
			if len(s.Contains) == 0 || !s.containsMatch(lower) {
				continue
			}
			if _, done := cols[s.Field]; !done || (s.Last && len(s.Exact) == 0) {
				cols[s.Field] = i
			}
			break
		}
	}

	for _, s := range specs {
		if s.Optional || cols.Has(s.Field) {
			continue
		}
		return nil, &ColumnError{
			Source:    source,
			Field:     s.Field,
			Accepted:  s.accepted(),
			Available: append([]string(nil), header...),
		}
	}
	return cols, nil
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}
