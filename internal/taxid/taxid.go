// Package taxid validates and repairs Spanish tax identifiers (NIF).
package taxid

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vitis-cat/reconcile-cli/internal/model"
)

var (
	letterFirst = regexp.MustCompile(`^[A-Z]\d{8}$`)
	digitsFirst = regexp.MustCompile(`^\d{8}[A-Z]$`)
)

// Reason returned for null, empty or zero input.
const ReasonEmpty = "empty/null"

// ValidFormat reports whether s, already normalized, is LNNNNNNNN or NNNNNNNNL.
func ValidFormat(s string) bool {
	return letterFirst.MatchString(s) || digitsFirst.MatchString(s)
}

// Normalize uppercases and trims the cell text.
func Normalize(v model.Value) string {
	return strings.ToUpper(strings.TrimSpace(v.String()))
}

// Validate checks v against the two accepted formats.
func Validate(v model.Value) (bool, string) {
	if v.IsBlank() {
		return false, ReasonEmpty
	}
	s := Normalize(v)
	if ValidFormat(s) {
		return true, "valid"
	}
	return false, fmt.Sprintf("invalid format: %s", s)
}

// Correction is the outcome of ProposeCorrection.
type Correction struct {
	Value     string
	Corrected bool
	Detail    string
}

// ProposeCorrection strips hyphens from v. The stripped value is proposed only
// when it differs from the input and passes validation; otherwise the
// original text is returned unchanged.
func ProposeCorrection(v model.Value) Correction {
	if v.IsBlank() {
		return Correction{Value: v.String(), Detail: "not correctable"}
	}
	original := Normalize(v)
	stripped := strings.ReplaceAll(original, "-", "")
	if stripped == original {
		return Correction{Value: original, Detail: "no hyphens to remove"}
	}
	if ValidFormat(stripped) {
		return Correction{
			Value:     stripped,
			Corrected: true,
			Detail:    fmt.Sprintf("%s → %s", original, stripped),
		}
	}
	return Correction{Value: original, Detail: "format still invalid after removing hyphens"}
}
