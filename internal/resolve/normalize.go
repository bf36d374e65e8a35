package resolve

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName produces the lookup key for a winery name or zone:
//  1. Unicode NFC composition, so "È" typed either way compares equal
//  2. Trimming whitespace
//  3. Converting to uppercase
//
// No punctuation or legal suffix is stripped: "CODORNIU, S.A." keeps its comma.
func NormalizeName(name string) string {
	name = strings.TrimSpace(norm.NFC.String(name))
	if name == "" {
		return ""
	}
	return strings.ToUpper(name)
}
