// Package taxyear resolves calendar dates to jurisdiction-specific tax years.
//
// The UK fiscal year runs 6 April to 5 April; the SA fiscal year runs 1 March
// to the end of February. Labels use the shared "YYYY/YY" form in both
// jurisdictions even though the underlying ranges differ.
package taxyear

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"dualtax/internal/domain"
	"dualtax/pkg/taxerrors"
)

// TaxYear is a derived value, computed on demand from a reference date and
// never persisted independently.
type TaxYear struct {
	Jurisdiction domain.Jurisdiction
	Label        string
	Start        time.Time
	End          time.Time
}

var labelPattern = regexp.MustCompile(`^(\d{4})/(\d{2})$`)

// Resolve maps a calendar date to the tax year containing it. Exactly one tax
// year contains any given date per jurisdiction.
func Resolve(j domain.Jurisdiction, date time.Time) (TaxYear, error) {
	if !j.IsValid() {
		return TaxYear{}, taxerrors.New(taxerrors.CodeValidation, fmt.Sprintf("unknown jurisdiction: %s", j))
	}
	return forStartYear(j, startYear(j, date)), nil
}

// ParseLabel validates a "YYYY/YY" label and returns the tax year it names.
// The two-digit suffix must be the start year plus one.
func ParseLabel(j domain.Jurisdiction, label string) (TaxYear, error) {
	if !j.IsValid() {
		return TaxYear{}, taxerrors.New(taxerrors.CodeValidation, fmt.Sprintf("unknown jurisdiction: %s", j))
	}
	m := labelPattern.FindStringSubmatch(label)
	if m == nil {
		return TaxYear{}, taxerrors.New(taxerrors.CodeValidation,
			fmt.Sprintf("tax year %q does not match the YYYY/YY format", label))
	}
	start, _ := strconv.Atoi(m[1])
	suffix, _ := strconv.Atoi(m[2])
	if (start+1)%100 != suffix {
		return TaxYear{}, taxerrors.New(taxerrors.CodeValidation,
			fmt.Sprintf("tax year %q is not consecutive: expected suffix %02d", label, (start+1)%100))
	}
	return forStartYear(j, start), nil
}

// Contains reports whether the date falls inside the tax year, inclusive of
// both boundary days.
func (ty TaxYear) Contains(date time.Time) bool {
	d := midnight(date)
	return !d.Before(ty.Start) && !d.After(ty.End)
}

// Next returns the immediately following tax year.
func (ty TaxYear) Next() TaxYear {
	return forStartYear(ty.Jurisdiction, ty.Start.Year()+1)
}

// Previous returns the immediately preceding tax year.
func (ty TaxYear) Previous() TaxYear {
	return forStartYear(ty.Jurisdiction, ty.Start.Year()-1)
}

func (ty TaxYear) String() string {
	return fmt.Sprintf("%s %s", ty.Jurisdiction, ty.Label)
}

func startYear(j domain.Jurisdiction, date time.Time) int {
	d := midnight(date)
	y := d.Year()
	if d.Before(startDate(j, y)) {
		return y - 1
	}
	return y
}

func startDate(j domain.Jurisdiction, year int) time.Time {
	switch j {
	case domain.JurisdictionUK:
		return time.Date(year, time.April, 6, 0, 0, 0, 0, time.UTC)
	case domain.JurisdictionSA:
		return time.Date(year, time.March, 1, 0, 0, 0, 0, time.UTC)
	}
	panic(fmt.Sprintf("taxyear: unhandled jurisdiction %q", j))
}

func forStartYear(j domain.Jurisdiction, year int) TaxYear {
	start := startDate(j, year)
	// End is the day before the next year's start, which keeps the SA
	// February boundary correct in leap years without special-casing.
	end := startDate(j, year+1).AddDate(0, 0, -1)
	return TaxYear{
		Jurisdiction: j,
		Label:        fmt.Sprintf("%04d/%02d", year, (year+1)%100),
		Start:        start,
		End:          end,
	}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
