// Package gift tracks lifetime gifts and derives taper relief for the estate
// tax seven-year window. Relief state is always derived from the gift date and
// type at assessment time; nothing derived is ever stored.
package gift

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"dualtax/internal/domain"
	id "dualtax/pkg/domain"
	"dualtax/pkg/taxerrors"
)

// reliefPeriodYears is the survival period after which a potentially-exempt
// transfer becomes fully exempt.
const reliefPeriodYears = 7

// reliefBand gives the taper relief fraction applied once the giver has
// survived MinYears whole years since the gift.
type reliefBand struct {
	MinYears int
	Relief   decimal.Decimal
}

// Taper relief schedule. Bands are matched on whole years survived; the
// highest matching band wins.
var reliefBands = []reliefBand{
	{MinYears: 3, Relief: decimal.RequireFromString("0.20")},
	{MinYears: 4, Relief: decimal.RequireFromString("0.40")},
	{MinYears: 5, Relief: decimal.RequireFromString("0.60")},
	{MinYears: 6, Relief: decimal.RequireFromString("0.80")},
	{MinYears: 7, Relief: decimal.RequireFromString("1")},
}

// Record is a stored lifetime gift. Soft deletion keeps the row for audit but
// removes it from assessments and listings.
type Record struct {
	ID        id.GiftID
	UserID    id.UserID
	Recipient string
	Date      time.Time
	Value     decimal.Decimal
	Type      domain.GiftType
	Subtype   domain.ExemptionSubtype
	DeletedAt *time.Time
}

// Validate checks the record before any store touches it.
func (r Record) Validate() error {
	if r.ID.IsNil() {
		return taxerrors.New(taxerrors.CodeValidation, "gift id is required")
	}
	if r.UserID.IsNil() {
		return taxerrors.New(taxerrors.CodeValidation, "user id is required")
	}
	if r.Recipient == "" {
		return taxerrors.New(taxerrors.CodeValidation, "recipient is required")
	}
	if r.Date.IsZero() {
		return taxerrors.New(taxerrors.CodeValidation, "gift date is required")
	}
	if !r.Type.IsValid() {
		return taxerrors.New(taxerrors.CodeValidation, fmt.Sprintf("unknown gift type: %s", r.Type))
	}
	if r.Value.IsNegative() {
		return taxerrors.New(taxerrors.CodeValidation,
			fmt.Sprintf("gift value must not be negative, got %s", r.Value))
	}
	if r.Type == domain.GiftExempt && r.Subtype != "" && !r.Subtype.IsValid() {
		return taxerrors.New(taxerrors.CodeValidation, fmt.Sprintf("unknown exemption subtype: %s", r.Subtype))
	}
	if r.Type != domain.GiftExempt && r.Subtype != "" {
		return taxerrors.New(taxerrors.CodeValidation,
			fmt.Sprintf("exemption subtype %s only applies to exempt gifts", r.Subtype))
	}
	return nil
}

// Deleted reports whether the record has been soft-deleted.
func (r Record) Deleted() bool { return r.DeletedAt != nil }

// Assessment is the derived taper state of one gift at a reference date.
type Assessment struct {
	GiftID id.GiftID
	Type   domain.GiftType

	// YearsElapsed since the gift, fractional.
	YearsElapsed decimal.Decimal

	// ReliefFraction of the tax otherwise due that taper relief removes.
	ReliefFraction decimal.Decimal

	// InReliefPeriod is true while the giver's death would still bring the
	// gift into charge.
	InReliefPeriod bool

	// BecomesExemptOn is set for potentially-exempt transfers only.
	BecomesExemptOn *time.Time

	// YearsRemaining until full exemption, zero once out of the period.
	YearsRemaining decimal.Decimal
}

// Assess derives the taper state of a gift at asOf. Exempt gifts always carry
// full relief and are never in period; chargeable transfers carry no relief
// regardless of elapsed time, since taper only reduces tax arising on death.
func Assess(r Record, asOf time.Time) (Assessment, error) {
	if err := r.Validate(); err != nil {
		return Assessment{}, err
	}
	if asOf.Before(r.Date) {
		return Assessment{}, taxerrors.New(taxerrors.CodeValidation,
			fmt.Sprintf("assessment date %s precedes gift date %s",
				asOf.Format(time.DateOnly), r.Date.Format(time.DateOnly)))
	}

	a := Assessment{GiftID: r.ID, Type: r.Type, YearsElapsed: yearsBetween(r.Date, asOf)}

	switch r.Type {
	case domain.GiftExempt:
		a.ReliefFraction = decimal.NewFromInt(1)
		return a, nil
	case domain.GiftChargeable:
		a.ReliefFraction = decimal.Zero
		return a, nil
	case domain.GiftPotentiallyExempt:
		exemptOn := r.Date.AddDate(reliefPeriodYears, 0, 0)
		a.BecomesExemptOn = &exemptOn

		whole := wholeYears(r.Date, asOf)
		for _, band := range reliefBands {
			if whole >= band.MinYears {
				a.ReliefFraction = band.Relief
			}
		}
		if whole < reliefPeriodYears {
			a.InReliefPeriod = true
			a.YearsRemaining = decimal.NewFromInt(reliefPeriodYears).Sub(a.YearsElapsed)
		}
		return a, nil
	}
	return Assessment{}, taxerrors.New(taxerrors.CodeValidation, fmt.Sprintf("unknown gift type: %s", r.Type))
}

// wholeYears counts complete calendar years from start to end, anniversary
// based so month lengths and leap days cannot skew band boundaries.
func wholeYears(start, end time.Time) int {
	years := 0
	for !start.AddDate(years+1, 0, 0).After(end) {
		years++
	}
	return years
}

// yearsBetween returns fractional years: whole anniversaries plus the elapsed
// fraction of the current anniversary year.
func yearsBetween(start, end time.Time) decimal.Decimal {
	whole := wholeYears(start, end)
	anniversary := start.AddDate(whole, 0, 0)
	next := start.AddDate(whole+1, 0, 0)

	yearLength := decimal.NewFromInt(int64(next.Sub(anniversary) / (24 * time.Hour)))
	elapsed := decimal.NewFromInt(int64(end.Sub(anniversary) / (24 * time.Hour)))
	if yearLength.IsZero() {
		return decimal.NewFromInt(int64(whole))
	}
	return decimal.NewFromInt(int64(whole)).Add(elapsed.Div(yearLength).Round(4))
}
