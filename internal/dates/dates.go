// Package dates normalizes weighing timestamps from both sources to calendar dates.
package dates

import (
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/vitis-cat/reconcile-cli/internal/model"
)

const (
	layoutDMY = "2/1/2006"
	layoutISO = "2006-1-2"
)

// Day-first permissive layouts, used after the strict ones fail.
var dayFirst = []string{
	layoutDMY,
	"2-1-2006",
	"2.1.2006",
	layoutISO,
	"2006/1/2",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2/1/06",
	"2-1-06",
	"1/2/2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2 2006",
	"Jan 2, 2006",
	"20060102",
}

// Month-first permissive layouts for registry exports.
var monthFirst = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	layoutISO,
	"2006/1/2",
	"2006/1/2 15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	layoutDMY,
	"1-2-2006",
	"2-1-2006",
	"2.1.2006",
	"1/2/06",
	"2 Jan 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"20060102",
}

// ParseDeclaration normalizes an Extranet "date time" cell. Only the first
// whitespace-separated token is considered: strict day/month/year first, then
// strict ISO, then a permissive day-first parse. Unparseable input yields false.
func ParseDeclaration(v model.Value) (model.Date, bool) {
	if v.IsNumber() {
		return fromSerial(v.Num)
	}
	tok := firstToken(v.String())
	if tok == "" {
		return model.Date{}, false
	}
	if d, ok := parse(tok, layoutDMY); ok {
		return d, true
	}
	if d, ok := parse(tok, layoutISO); ok {
		return d, true
	}
	return parse(tok, dayFirst...)
}

// ParseDayMonthYear is the strict day/month/year parse of the date token used
// by record matching. Native spreadsheet dates are accepted as they are not
// ambiguous.
func ParseDayMonthYear(v model.Value) (model.Date, bool) {
	if v.IsNumber() {
		return fromSerial(v.Num)
	}
	tok := firstToken(v.String())
	if tok == "" {
		return model.Date{}, false
	}
	return parse(tok, layoutDMY)
}

// ParseRegistry normalizes an eRVC weighing date with a single permissive,
// month-first parse.
func ParseRegistry(v model.Value) (model.Date, bool) {
	if v.IsNumber() {
		return fromSerial(v.Num)
	}
	s := strings.TrimSpace(v.String())
	if s == "" {
		return model.Date{}, false
	}
	if d, ok := parse(s, monthFirst...); ok {
		return d, true
	}
	return parse(firstToken(s), monthFirst...)
}

func firstToken(s string) string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

func parse(s string, layouts ...string) (model.Date, bool) {
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return model.DateOf(t), true
		}
	}
	return model.Date{}, false
}

func fromSerial(serial float64) (model.Date, bool) {
	if serial <= 0 {
		return model.Date{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return model.Date{}, false
	}
	return model.DateOf(t), true
}
