// Package policy carries the statutory rates and thresholds that change every
// tax year. Values are keyed by (jurisdiction, tax year) and resolved once per
// calculation, then threaded explicitly through residency and liability calls.
// Nothing reads these from ambient state.
package policy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"dualtax/internal/domain"
	"dualtax/internal/taxyear"
	"dualtax/pkg/taxerrors"
)

// TieBand maps an in-country day-count range to the minimum number of ties
// that makes an individual resident under the sufficient-ties test.
type TieBand struct {
	MinDays int
	MaxDays int
	MinTies int
}

// UKParams holds the home-jurisdiction parameter set for one tax year.
type UKParams struct {
	Year string

	// Allowances.
	ISAAnnualLimit    decimal.Decimal
	DividendAllowance decimal.Decimal
	CGTExemptAmount   decimal.Decimal
	PersonalAllowance decimal.Decimal

	// Savings interest. The starting rate band tapers away as non-savings
	// income rises from the personal allowance to the taper ceiling.
	StartingRateBand           decimal.Decimal
	StartingRateTaperCeil      decimal.Decimal
	SavingsAllowanceBasic      decimal.Decimal
	SavingsAllowanceHigher     decimal.Decimal
	SavingsAllowanceAdditional decimal.Decimal

	// Rates.
	CGTRate      decimal.Decimal
	DividendRate decimal.Decimal

	// Inheritance tax. CharityRateThreshold is the fraction of the baseline
	// estate that must go to charity for the reduced rate to apply.
	NilRateBand          decimal.Decimal
	ResidenceNilRateBand decimal.Decimal
	IHTRate              decimal.Decimal
	IHTReducedRate       decimal.Decimal
	CharityRateThreshold decimal.Decimal

	// Statutory residence test. The automatic overseas day thresholds differ
	// for leavers (resident in the prior year) and arrivers.
	AutomaticResidentDays   int
	AutoOverseasLeaverDays  int
	AutoOverseasArriverDays int
	LeaverTieBands          []TieBand
	ArriverTieBands         []TieBand

	// Deemed domicile.
	DeemedDomicileResidentYears int
	DeemedDomicileLookbackYears int
}

// SAParams holds the secondary-jurisdiction parameter set for one tax year.
type SAParams struct {
	Year string

	// Wrapper caps.
	TFSAAnnualLimit   decimal.Decimal
	TFSALifetimeLimit decimal.Decimal

	// Interest exemption tiers, split at InterestExemptionAge.
	InterestExemptionUnder65 decimal.Decimal
	InterestExemptionOver65  decimal.Decimal
	InterestExemptionAge     int

	// Rates.
	CGTInclusionRate        decimal.Decimal
	DividendWithholdingRate decimal.Decimal

	// Estate duty: lower rate up to the threshold, higher rate on the excess.
	EstateAbatement      decimal.Decimal
	EstateDutyLowerRate  decimal.Decimal
	EstateDutyHigherRate decimal.Decimal
	EstateDutyThreshold  decimal.Decimal

	// Physical presence test.
	PresenceDaysThreshold    int
	PresenceAverageThreshold int
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Sufficient-ties bands from the statutory residence test tables. A leaver is
// anyone resident in the preceding tax year; arrivers need more ties at the
// same day count.
var (
	leaverTieBands = []TieBand{
		{MinDays: 16, MaxDays: 45, MinTies: 4},
		{MinDays: 46, MaxDays: 90, MinTies: 3},
		{MinDays: 91, MaxDays: 120, MinTies: 2},
		{MinDays: 121, MaxDays: 182, MinTies: 1},
	}
	arriverTieBands = []TieBand{
		{MinDays: 46, MaxDays: 90, MinTies: 4},
		{MinDays: 91, MaxDays: 120, MinTies: 3},
		{MinDays: 121, MaxDays: 182, MinTies: 2},
	}
)

func ukYear(year, dividendAllowance, cgtExempt string) UKParams {
	return UKParams{
		Year:              year,
		ISAAnnualLimit:    dec("20000"),
		DividendAllowance: dec(dividendAllowance),
		CGTExemptAmount:   dec(cgtExempt),
		PersonalAllowance: dec("12570"),

		StartingRateBand:           dec("5000"),
		StartingRateTaperCeil:      dec("17570"),
		SavingsAllowanceBasic:      dec("1000"),
		SavingsAllowanceHigher:     dec("500"),
		SavingsAllowanceAdditional: dec("0"),

		CGTRate:      dec("0.20"),
		DividendRate: dec("0.0875"),

		NilRateBand:          dec("325000"),
		ResidenceNilRateBand: dec("175000"),
		IHTRate:              dec("0.40"),
		IHTReducedRate:       dec("0.36"),
		CharityRateThreshold: dec("0.10"),

		AutomaticResidentDays:   183,
		AutoOverseasLeaverDays:  16,
		AutoOverseasArriverDays: 46,
		LeaverTieBands:          leaverTieBands,
		ArriverTieBands:         arriverTieBands,

		DeemedDomicileResidentYears: 15,
		DeemedDomicileLookbackYears: 20,
	}
}

func saYear(year string) SAParams {
	return SAParams{
		Year:              year,
		TFSAAnnualLimit:   dec("36000"),
		TFSALifetimeLimit: dec("500000"),

		InterestExemptionUnder65: dec("23800"),
		InterestExemptionOver65:  dec("34500"),
		InterestExemptionAge:     65,

		CGTInclusionRate:        dec("0.40"),
		DividendWithholdingRate: dec("0.20"),

		EstateAbatement:      dec("3500000"),
		EstateDutyLowerRate:  dec("0.20"),
		EstateDutyHigherRate: dec("0.25"),
		EstateDutyThreshold:  dec("30000000"),

		PresenceDaysThreshold:    91,
		PresenceAverageThreshold: 63,
	}
}

// Year tables. Years after the latest entry inherit its values, since rates
// roll forward until a finance act changes them. Years before the earliest
// entry are rejected: the tables do not cover them and silently applying
// current rates to an old year would misstate history.
var (
	ukByYear = map[string]UKParams{
		"2022/23": ukYear("2022/23", "2000", "12300"),
		"2023/24": ukYear("2023/24", "1000", "6000"),
		"2024/25": ukYear("2024/25", "500", "3000"),
		"2025/26": ukYear("2025/26", "500", "3000"),
	}
	ukEarliest = "2022/23"
	ukLatest   = "2025/26"

	saByYear = map[string]SAParams{
		"2022/23": saYear("2022/23"),
		"2023/24": saYear("2023/24"),
		"2024/25": saYear("2024/25"),
		"2025/26": saYear("2025/26"),
	}
	saEarliest = "2022/23"
	saLatest   = "2025/26"
)

// UKForYear resolves the UK parameter set for a tax-year label. Labels beyond
// the latest table entry resolve to its values; labels before the earliest
// entry are a validation error.
func UKForYear(label string) (UKParams, error) {
	if _, err := taxyear.ParseLabel(domain.JurisdictionUK, label); err != nil {
		return UKParams{}, err
	}
	if p, ok := ukByYear[label]; ok {
		return p, nil
	}
	// Labels are zero-padded YYYY/YY, so lexicographic order is year order.
	if label < ukEarliest {
		return UKParams{}, taxerrors.New(taxerrors.CodeValidation,
			fmt.Sprintf("no parameters for tax year %s: tables begin at %s", label, ukEarliest))
	}
	p := ukByYear[ukLatest]
	p.Year = label
	return p, nil
}

// SAForYear resolves the SA parameter set for a tax-year label. Labels beyond
// the latest table entry resolve to its values; labels before the earliest
// entry are a validation error.
func SAForYear(label string) (SAParams, error) {
	if _, err := taxyear.ParseLabel(domain.JurisdictionSA, label); err != nil {
		return SAParams{}, err
	}
	if p, ok := saByYear[label]; ok {
		return p, nil
	}
	if label < saEarliest {
		return SAParams{}, taxerrors.New(taxerrors.CodeValidation,
			fmt.Sprintf("no parameters for tax year %s: tables begin at %s", label, saEarliest))
	}
	p := saByYear[saLatest]
	p.Year = label
	return p, nil
}

// Limits describes the caps the allowance ledger enforces for one type.
type Limits struct {
	Annual      decimal.Decimal
	Lifetime    decimal.Decimal
	HasLifetime bool
}

// AllowanceLimits resolves the ledger caps for an allowance type in a tax
// year. Every variant is matched so a new allowance type fails here rather
// than defaulting silently.
func AllowanceLimits(t domain.AllowanceType, label string) (Limits, error) {
	switch t {
	case domain.AllowanceISA:
		p, err := UKForYear(label)
		if err != nil {
			return Limits{}, err
		}
		return Limits{Annual: p.ISAAnnualLimit}, nil
	case domain.AllowanceTFSA:
		p, err := SAForYear(label)
		if err != nil {
			return Limits{}, err
		}
		return Limits{Annual: p.TFSAAnnualLimit, Lifetime: p.TFSALifetimeLimit, HasLifetime: true}, nil
	case domain.AllowanceDividend:
		p, err := UKForYear(label)
		if err != nil {
			return Limits{}, err
		}
		return Limits{Annual: p.DividendAllowance}, nil
	case domain.AllowanceCGTExempt:
		p, err := UKForYear(label)
		if err != nil {
			return Limits{}, err
		}
		return Limits{Annual: p.CGTExemptAmount}, nil
	case domain.AllowanceSavingsStartingRate:
		p, err := UKForYear(label)
		if err != nil {
			return Limits{}, err
		}
		return Limits{Annual: p.StartingRateBand}, nil
	case domain.AllowanceInterestExemption:
		p, err := SAForYear(label)
		if err != nil {
			return Limits{}, err
		}
		// The higher tier is the ledger cap; the savings calculator applies
		// the age-dependent tier when it consumes the exemption.
		return Limits{Annual: p.InterestExemptionOver65}, nil
	}
	return Limits{}, taxerrors.New(taxerrors.CodeValidation, fmt.Sprintf("unknown allowance type: %s", t))
}
