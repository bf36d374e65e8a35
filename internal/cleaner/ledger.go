package cleaner

import (
	"fmt"
	"strings"

	"github.com/vitis-cat/reconcile-cli/internal/model"
	"github.com/vitis-cat/reconcile-cli/internal/sheet"
	"github.com/vitis-cat/reconcile-cli/internal/taxid"
)

// Finding suffixes recognised by Summarize.
const (
	NoteWillBeRemoved  = "(will be removed)"
	NoteCorrectable    = "- CORRECTABLE"
	NoteNotCorrectable = "- NOT CORRECTABLE"
)

// LedgerSummary counts a ledger for display.
type LedgerSummary struct {
	Total       int `json:"total" yaml:"total"`
	Producers   int `json:"producers" yaml:"producers"`
	Correctable int `json:"correctable" yaml:"correctable"`
	ZeroWeight  int `json:"zero_weight" yaml:"zero_weight"`
}

// Summarize counts entries, distinct producer identifiers, entries with a
// correctable tax-id and entries scheduled for removal.
func Summarize(entries []model.ErrorEntry) LedgerSummary {
	s := LedgerSummary{Total: len(entries)}
	seen := make(map[string]struct{})
	for _, e := range entries {
		seen[e.ProducerIdentifier] = struct{}{}
		for _, msg := range e.Errors {
			if strings.HasSuffix(msg, NoteCorrectable) {
				s.Correctable++
				break
			}
		}
		for _, msg := range e.Errors {
			if strings.HasSuffix(msg, NoteWillBeRemoved) {
				s.ZeroWeight++
				break
			}
		}
	}
	s.Producers = len(seen)
	return s
}

// scan builds the ledger for tbl. With proposals set, zero weights are
// annotated for removal and invalid tax-ids are tested for correction.
func scan(tbl *sheet.Table, cols sheet.Columns, rowOffset int, proposals bool) []model.ErrorEntry {
	verifierCol := cols.Index(FieldVerifier)
	nifCol := cols.Index(FieldTaxID)
	kgCol := cols.Index(FieldWeight)

	var entries []model.ErrorEntry
	for i := range tbl.Rows {
		var errs, fixes []string

		for j, col := range tbl.Header {
			v := tbl.Cell(i, j)
			if !v.IsBlank() {
				continue
			}
			if proposals && j == kgCol && v.IsZero() {
				errs = append(errs, fmt.Sprintf("Field '%s' = 0 %s", col, NoteWillBeRemoved))
			} else {
				errs = append(errs, fmt.Sprintf("Field '%s' empty/null/zero", col))
			}
		}

		if nifCol >= 0 {
			v := tbl.Cell(i, nifCol)
			ok, reason := taxid.Validate(v)
			switch {
			case ok:
			case !proposals:
				errs = append(errs, "NIF: "+reason)
			default:
				c := taxid.ProposeCorrection(v)
				note := NoteNotCorrectable
				if c.Corrected {
					note = NoteCorrectable
				}
				errs = append(errs, fmt.Sprintf("NIF: %s %s", reason, note))
				fixes = append(fixes, "NIF: "+c.Detail)
			}
		}

		if len(errs) == 0 {
			continue
		}
		producer := "N/A"
		if verifierCol >= 0 {
			producer = tbl.Cell(i, verifierCol).String()
		}
		entries = append(entries, model.ErrorEntry{
			Row:                 i + rowOffset,
			Index:               i,
			ProducerIdentifier:  producer,
			Errors:              errs,
			ProposedCorrections: fixes,
			Data:                tbl.Snapshot(i),
		})
	}
	return entries
}
