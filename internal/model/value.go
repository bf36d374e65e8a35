package model

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// Kind identifies which variant a Value holds.
type Kind int

// Value variants.
const (
	KindNull Kind = iota
	KindString
	KindNumber
)

// Value is a single spreadsheet cell: a string, a number or null.
type Value struct {
	Kind Kind    `json:"kind" yaml:"kind"`
	Str  string  `json:"str,omitempty" yaml:"str,omitempty"`
	Num  float64 `json:"num,omitempty" yaml:"num,omitempty"`
}

// Null is the empty cell.
var Null = Value{}

// Str builds a string Value. An empty string is stored as null, matching how
// spreadsheet readers report blank cells.
func Str(s string) Value {
	if s == "" {
		return Null
	}
	return Value{Kind: KindString, Str: s}
}

// Num builds a numeric Value.
func Num(n float64) Value {
	return Value{Kind: KindNumber, Num: n}
}

// IsNull reports whether the cell is empty.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// IsNumber reports whether the cell holds a number.
func (v Value) IsNumber() bool { return v.Kind == KindNumber }

// IsZero reports whether the cell is the number 0. The string "0" is not zero.
func (v Value) IsZero() bool { return v.Kind == KindNumber && v.Num == 0 }

// IsBlank reports whether the cell is null, an empty string or numeric zero.
func (v Value) IsBlank() bool {
	switch v.Kind {
	case KindNull:
		return true
	case KindString:
		return v.Str == ""
	default:
		return v.Num == 0
	}
}

// String renders the cell as text. Whole numbers print without a decimal
// point so numeric codes such as 2501200003 keep their identity.
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return ""
	}
}

// Key returns the trimmed text used for string-equality joins.
func (v Value) Key() string {
	return strings.TrimSpace(v.String())
}

// Decimal parses the cell as an exact decimal number.
func (v Value) Decimal() (decimal.Decimal, error) {
	switch v.Kind {
	case KindNumber:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return decimal.Zero, eris.Errorf("value: %v is not a finite number", v.Num)
		}
		return decimal.NewFromFloat(v.Num), nil
	case KindString:
		d, err := decimal.NewFromString(strings.TrimSpace(v.Str))
		if err != nil {
			return decimal.Zero, eris.Wrapf(err, "value: parse %q as number", v.Str)
		}
		return d, nil
	default:
		return decimal.Zero, eris.New("value: null is not a number")
	}
}
