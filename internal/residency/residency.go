// Package residency determines tax residency for both jurisdictions.
//
// The UK statutory residence test runs its parts in strict order: automatic
// overseas, automatic resident, then sufficient ties. The SA physical presence
// test combines a current-year day count with a five-year rolling average.
// Both produce a Verdict naming the test that decided the outcome so results
// are auditable.
package residency

import (
	"fmt"

	"github.com/shopspring/decimal"

	"dualtax/internal/domain"
	"dualtax/internal/policy"
	"dualtax/internal/taxyear"
	"dualtax/pkg/taxerrors"
)

// Deciding test names reported on verdicts.
const (
	TestAutomaticOverseas = "automatic_overseas"
	TestAutomaticUK       = "automatic_uk"
	TestSufficientTies    = "sufficient_ties"
	TestPhysicalPresence  = "physical_presence"
)

// Verdict is the residency outcome for one jurisdiction and tax year. It is
// produced fresh per request and never mutated.
type Verdict struct {
	Jurisdiction domain.Jurisdiction
	TaxYear      string
	Resident     bool

	// OrdinarilyResident is meaningful for SA verdicts only.
	OrdinarilyResident bool

	// DecidingTest names the test that settled the outcome.
	DecidingTest string

	// Supporting counters for auditability.
	DaysPresent int
	TieCount    int

	// FiveYearAverage is populated on SA verdicts. PartialHistory flags that
	// fewer than five years of day counts were supplied and missing years
	// were treated as zero.
	FiveYearAverage decimal.Decimal
	PartialHistory  bool
}

// UKInput carries the day count and tie flags for a UK tax year.
type UKInput struct {
	TaxYear          string
	DaysInUK         int
	ResidentLastYear bool

	FamilyTie        bool
	AccommodationTie bool
	WorkTie          bool
	NinetyDayTie     bool
	CountryTie       bool
}

// TieCount returns how many of the five ties apply.
func (in UKInput) TieCount() int {
	n := 0
	for _, tie := range []bool{in.FamilyTie, in.AccommodationTie, in.WorkTie, in.NinetyDayTie, in.CountryTie} {
		if tie {
			n++
		}
	}
	return n
}

// SAInput carries the presence history for an SA tax year. PriorYearDays
// holds up to four preceding years, most recent first; missing years count
// as zero days.
type SAInput struct {
	TaxYear       string
	DaysThisYear  int
	PriorYearDays []int

	// OrdinarilyQualified is the caller-supplied stricter multi-year
	// qualification; it only takes effect when the presence test passes.
	OrdinarilyQualified bool
}

func validateDays(name string, days int) error {
	if days < 0 {
		return taxerrors.New(taxerrors.CodeValidation, fmt.Sprintf("%s must not be negative, got %d", name, days))
	}
	if days > 366 {
		return taxerrors.New(taxerrors.CodeValidation, fmt.Sprintf("%s exceeds days in a year, got %d", name, days))
	}
	return nil
}

// EvaluateUK applies the statutory residence test.
func EvaluateUK(in UKInput, p policy.UKParams) (Verdict, error) {
	if _, err := taxyear.ParseLabel(domain.JurisdictionUK, in.TaxYear); err != nil {
		return Verdict{}, err
	}
	if err := validateDays("days in UK", in.DaysInUK); err != nil {
		return Verdict{}, err
	}

	ties := in.TieCount()
	v := Verdict{
		Jurisdiction: domain.JurisdictionUK,
		TaxYear:      in.TaxYear,
		DaysPresent:  in.DaysInUK,
		TieCount:     ties,
	}

	overseasThreshold := p.AutoOverseasArriverDays
	bands := p.ArriverTieBands
	if in.ResidentLastYear {
		overseasThreshold = p.AutoOverseasLeaverDays
		bands = p.LeaverTieBands
	}

	if in.DaysInUK < overseasThreshold && ties == 0 {
		v.DecidingTest = TestAutomaticOverseas
		return v, nil
	}

	if in.DaysInUK >= p.AutomaticResidentDays {
		v.Resident = true
		v.DecidingTest = TestAutomaticUK
		return v, nil
	}

	v.DecidingTest = TestSufficientTies
	for _, band := range bands {
		if in.DaysInUK >= band.MinDays && in.DaysInUK <= band.MaxDays {
			v.Resident = ties >= band.MinTies
			return v, nil
		}
	}
	// Below the lowest band no tie count suffices.
	return v, nil
}

// EvaluateSA applies the physical presence test. Resident requires both the
// current-year threshold and the five-year average threshold; the average is
// computed over current plus four prior years with absent years as zero.
func EvaluateSA(in SAInput, p policy.SAParams) (Verdict, error) {
	if _, err := taxyear.ParseLabel(domain.JurisdictionSA, in.TaxYear); err != nil {
		return Verdict{}, err
	}
	if err := validateDays("days present", in.DaysThisYear); err != nil {
		return Verdict{}, err
	}
	if len(in.PriorYearDays) > 4 {
		return Verdict{}, taxerrors.New(taxerrors.CodeValidation,
			fmt.Sprintf("prior year history must cover at most 4 years, got %d", len(in.PriorYearDays)))
	}
	total := in.DaysThisYear
	for i, days := range in.PriorYearDays {
		if err := validateDays(fmt.Sprintf("days present %d years ago", i+1), days); err != nil {
			return Verdict{}, err
		}
		total += days
	}

	average := decimal.NewFromInt(int64(total)).Div(decimal.NewFromInt(5))

	v := Verdict{
		Jurisdiction:    domain.JurisdictionSA,
		TaxYear:         in.TaxYear,
		DaysPresent:     in.DaysThisYear,
		DecidingTest:    TestPhysicalPresence,
		FiveYearAverage: average,
		PartialHistory:  len(in.PriorYearDays) < 4,
	}

	meetsCurrent := in.DaysThisYear >= p.PresenceDaysThreshold
	meetsAverage := average.GreaterThanOrEqual(decimal.NewFromInt(int64(p.PresenceAverageThreshold)))
	v.Resident = meetsCurrent && meetsAverage
	v.OrdinarilyResident = v.Resident && in.OrdinarilyQualified
	return v, nil
}
