package liability

import (
	"fmt"

	"github.com/shopspring/decimal"

	"dualtax/internal/domain"
	"dualtax/internal/policy"
	"dualtax/pkg/taxerrors"
)

// TaxBand selects the personal savings allowance tier.
type TaxBand string

const (
	BandBasic      TaxBand = "basic"
	BandHigher     TaxBand = "higher"
	BandAdditional TaxBand = "additional"
)

// UKSavingsInput describes interest income. WrapperInterest is interest earned
// inside an ISA and excluded before any allowance is consumed.
// NonSavingsIncome drives the starting-rate taper; Band selects the personal
// savings allowance; MarginalRate taxes what remains.
type UKSavingsInput struct {
	TotalInterest    decimal.Decimal
	WrapperInterest  decimal.Decimal
	NonSavingsIncome decimal.Decimal
	Band             TaxBand
	MarginalRate     decimal.Decimal
}

// startingRateAllowance tapers the starting rate band away pound for pound as
// non-savings income rises past the personal allowance, reaching zero at the
// taper ceiling.
func startingRateAllowance(nonSavings decimal.Decimal, p policy.UKParams) decimal.Decimal {
	if nonSavings.GreaterThanOrEqual(p.StartingRateTaperCeil) {
		return decimal.Zero
	}
	band := p.StartingRateBand
	if excess := nonSavings.Sub(p.PersonalAllowance); excess.IsPositive() {
		band = band.Sub(excess)
	}
	if band.IsNegative() {
		return decimal.Zero
	}
	return band
}

func savingsAllowance(band TaxBand, p policy.UKParams) (decimal.Decimal, error) {
	switch band {
	case BandBasic:
		return p.SavingsAllowanceBasic, nil
	case BandHigher:
		return p.SavingsAllowanceHigher, nil
	case BandAdditional:
		return p.SavingsAllowanceAdditional, nil
	}
	return decimal.Decimal{}, taxerrors.New(taxerrors.CodeValidation, fmt.Sprintf("unknown tax band: %q", band))
}

// UKSavingsInterestTax applies allowances in statutory order: the tapered
// starting-rate allowance first, then the band-dependent personal savings
// allowance, then the marginal rate on what remains.
func UKSavingsInterestTax(in UKSavingsInput, p policy.UKParams) (Result, error) {
	if err := domain.ValidateAmount("total interest", in.TotalInterest); err != nil {
		return Result{}, taxerrors.Wrap(err, taxerrors.CodeValidation, err.Error())
	}
	if err := domain.ValidateAmount("wrapper interest", in.WrapperInterest); err != nil {
		return Result{}, taxerrors.Wrap(err, taxerrors.CodeValidation, err.Error())
	}
	if err := domain.ValidateAmount("non-savings income", in.NonSavingsIncome); err != nil {
		return Result{}, taxerrors.Wrap(err, taxerrors.CodeValidation, err.Error())
	}
	if err := domain.ValidateRate("marginal rate", in.MarginalRate); err != nil {
		return Result{}, taxerrors.Wrap(err, taxerrors.CodeValidation, err.Error())
	}
	if in.WrapperInterest.GreaterThan(in.TotalInterest) {
		return Result{}, taxerrors.New(taxerrors.CodeValidation, "wrapper interest exceeds total interest")
	}
	psa, err := savingsAllowance(in.Band, p)
	if err != nil {
		return Result{}, err
	}

	r := Result{Calculator: CalcUKSavingsInterest, Gross: in.TotalInterest, TaxFree: in.WrapperInterest}

	taxable := in.TotalInterest.Sub(in.WrapperInterest)

	taxable, used := consume(taxable, startingRateAllowance(in.NonSavingsIncome, p))
	r.Allowances = append(r.Allowances, Applied{Name: "starting_rate_allowance", Amount: used})

	taxable, used = consume(taxable, psa)
	r.Allowances = append(r.Allowances, Applied{Name: "personal_savings_allowance", Amount: used})
	r.Taxable = taxable

	r.Rates = append(r.Rates, Rate{Name: "marginal", Rate: in.MarginalRate})
	r.TaxDue = taxable.Mul(in.MarginalRate)
	return finish(r), nil
}

// SASavingsInput describes interest income under the age-tiered exemption.
// WrapperInterest is interest earned inside a TFSA.
type SASavingsInput struct {
	TotalInterest   decimal.Decimal
	WrapperInterest decimal.Decimal
	Age             int
	MarginalRate    decimal.Decimal
}

// SASavingsInterestTax excludes wrapper interest, applies the age-tiered
// exemption and taxes the remainder at the marginal rate.
func SASavingsInterestTax(in SASavingsInput, p policy.SAParams) (Result, error) {
	if err := domain.ValidateAmount("total interest", in.TotalInterest); err != nil {
		return Result{}, taxerrors.Wrap(err, taxerrors.CodeValidation, err.Error())
	}
	if err := domain.ValidateAmount("wrapper interest", in.WrapperInterest); err != nil {
		return Result{}, taxerrors.Wrap(err, taxerrors.CodeValidation, err.Error())
	}
	if err := domain.ValidateRate("marginal rate", in.MarginalRate); err != nil {
		return Result{}, taxerrors.Wrap(err, taxerrors.CodeValidation, err.Error())
	}
	if in.Age < 0 {
		return Result{}, taxerrors.New(taxerrors.CodeValidation, "age must not be negative")
	}
	if in.WrapperInterest.GreaterThan(in.TotalInterest) {
		return Result{}, taxerrors.New(taxerrors.CodeValidation, "wrapper interest exceeds total interest")
	}

	r := Result{Calculator: CalcSASavingsInterest, Gross: in.TotalInterest, TaxFree: in.WrapperInterest}

	exemption := p.InterestExemptionUnder65
	if in.Age >= p.InterestExemptionAge {
		exemption = p.InterestExemptionOver65
	}

	taxable, used := consume(in.TotalInterest.Sub(in.WrapperInterest), exemption)
	r.Allowances = append(r.Allowances, Applied{Name: "interest_exemption", Amount: used})
	r.Taxable = taxable

	r.Rates = append(r.Rates, Rate{Name: "marginal", Rate: in.MarginalRate})
	r.TaxDue = taxable.Mul(in.MarginalRate)
	return finish(r), nil
}
