package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Jurisdiction enumerates the two tax jurisdictions the core understands.
// Calculators switch exhaustively on this so an added jurisdiction surfaces as
// a compile-visible gap rather than a silent fallthrough.
type Jurisdiction string

const (
	JurisdictionUK Jurisdiction = "UK"
	JurisdictionSA Jurisdiction = "SA"
)

// IsValid reports whether the jurisdiction is one of the known variants.
func (j Jurisdiction) IsValid() bool {
	switch j {
	case JurisdictionUK, JurisdictionSA:
		return true
	}
	return false
}

func (j Jurisdiction) String() string { return string(j) }

// ParseJurisdiction validates and returns a Jurisdiction.
func ParseJurisdiction(s string) (Jurisdiction, error) {
	j := Jurisdiction(s)
	if !j.IsValid() {
		return "", fmt.Errorf("unknown jurisdiction: %s", s)
	}
	return j, nil
}

// AllowanceType enumerates the statutory allowances tracked by the ledger.
//
// ISA and TFSA are contribution wrappers with write-time cap enforcement. The
// remaining types are per-tax-year caps consumed by the liability calculators;
// the ledger treats them as read-only balances.
type AllowanceType string

const (
	AllowanceISA                 AllowanceType = "isa"
	AllowanceTFSA                AllowanceType = "tfsa"
	AllowanceDividend            AllowanceType = "dividend_allowance"
	AllowanceCGTExempt           AllowanceType = "cgt_exempt_amount"
	AllowanceSavingsStartingRate AllowanceType = "savings_starting_rate"
	AllowanceInterestExemption   AllowanceType = "interest_exemption"
)

// IsValid reports whether the allowance type is a known variant.
func (t AllowanceType) IsValid() bool {
	switch t {
	case AllowanceISA, AllowanceTFSA, AllowanceDividend, AllowanceCGTExempt,
		AllowanceSavingsStartingRate, AllowanceInterestExemption:
		return true
	}
	return false
}

// Contributable reports whether users record contributions against this type.
// Non-contributable types are consumed by calculators, never written directly.
func (t AllowanceType) Contributable() bool {
	switch t {
	case AllowanceISA, AllowanceTFSA:
		return true
	case AllowanceDividend, AllowanceCGTExempt, AllowanceSavingsStartingRate, AllowanceInterestExemption:
		return false
	}
	return false
}

// Jurisdiction returns the jurisdiction whose fiscal calendar and policy
// govern this allowance type.
func (t AllowanceType) Jurisdiction() Jurisdiction {
	switch t {
	case AllowanceISA, AllowanceDividend, AllowanceCGTExempt, AllowanceSavingsStartingRate:
		return JurisdictionUK
	case AllowanceTFSA, AllowanceInterestExemption:
		return JurisdictionSA
	}
	return ""
}

func (t AllowanceType) String() string { return string(t) }

// GiftType enumerates lifetime transfer classifications for estate tax.
type GiftType string

const (
	// GiftPotentiallyExempt becomes fully exempt if the giver survives 7 years.
	GiftPotentiallyExempt GiftType = "potentially_exempt"
	// GiftExempt is exempt from the outset (spouse, charity, annual exemption).
	GiftExempt GiftType = "exempt"
	// GiftChargeable is immediately chargeable to lifetime tax.
	GiftChargeable GiftType = "chargeable"
)

// IsValid reports whether the gift type is a known variant.
func (t GiftType) IsValid() bool {
	switch t {
	case GiftPotentiallyExempt, GiftExempt, GiftChargeable:
		return true
	}
	return false
}

func (t GiftType) String() string { return string(t) }

// ExemptionSubtype qualifies an exempt gift with the exemption relied on.
type ExemptionSubtype string

const (
	ExemptionSpouse    ExemptionSubtype = "spouse"
	ExemptionCharity   ExemptionSubtype = "charity"
	ExemptionAnnual    ExemptionSubtype = "annual"
	ExemptionSmallGift ExemptionSubtype = "small_gift"
)

// IsValid reports whether the subtype is a known variant. Empty is allowed for
// non-exempt gifts.
func (t ExemptionSubtype) IsValid() bool {
	switch t {
	case ExemptionSpouse, ExemptionCharity, ExemptionAnnual, ExemptionSmallGift:
		return true
	}
	return false
}

// DomicileKind enumerates domicile statuses for the home jurisdiction.
type DomicileKind string

const (
	DomicileUK     DomicileKind = "uk_domicile"
	DomicileNonUK  DomicileKind = "non_uk_domicile"
	DomicileDeemed DomicileKind = "deemed_domicile"
)

// IsValid reports whether the kind is a known variant.
func (k DomicileKind) IsValid() bool {
	switch k {
	case DomicileUK, DomicileNonUK, DomicileDeemed:
		return true
	}
	return false
}

func (k DomicileKind) String() string { return string(k) }

// RoundMoney applies 2-decimal round-half-up at external reporting boundaries.
// Intermediate arithmetic keeps full precision; only final figures pass through
// here so sequential allowance applications never compound rounding error.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	// decimal.Round is half away from zero, which is half-up for the
	// non-negative amounts this core reports.
	return d.Round(2)
}

// Hundred is shared by percentage derivations.
var Hundred = decimal.NewFromInt(100)

// ValidateAmount rejects negative monetary inputs with the offending value.
func ValidateAmount(name string, d decimal.Decimal) error {
	if d.IsNegative() {
		return fmt.Errorf("%s must not be negative, got %s", name, d.String())
	}
	return nil
}

// ValidateRate rejects rates outside the 0–1 fractional range.
func ValidateRate(name string, d decimal.Decimal) error {
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be between 0 and 1, got %s", name, d.String())
	}
	return nil
}
