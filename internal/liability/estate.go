package liability

import (
	"github.com/shopspring/decimal"

	"dualtax/internal/domain"
	"dualtax/internal/policy"
	"dualtax/pkg/taxerrors"
)

// UKEstateInput describes an estate for UK inheritance tax.
type UKEstateInput struct {
	NetEstate decimal.Decimal

	// CharitableGifts left in the will; at or above the policy fraction of
	// the baseline estate they trigger the reduced rate.
	CharitableGifts decimal.Decimal

	// TransferableNilRateBand carried over from a predeceased spouse.
	TransferableNilRateBand decimal.Decimal

	// ResidenceBandApplies is set when a qualifying residence passes to
	// direct descendants.
	ResidenceBandApplies bool
}

// UKInheritanceTax computes inheritance tax on the taxable estate after the
// nil-rate bands. The reduced rate applies when charitable gifts reach the
// policy fraction of the baseline estate (the estate after the nil-rate band
// but before the residence band).
func UKInheritanceTax(in UKEstateInput, p policy.UKParams) (Result, error) {
	if err := domain.ValidateAmount("net estate", in.NetEstate); err != nil {
		return Result{}, taxerrors.Wrap(err, taxerrors.CodeValidation, err.Error())
	}
	if err := domain.ValidateAmount("charitable gifts", in.CharitableGifts); err != nil {
		return Result{}, taxerrors.Wrap(err, taxerrors.CodeValidation, err.Error())
	}
	if err := domain.ValidateAmount("transferable nil-rate band", in.TransferableNilRateBand); err != nil {
		return Result{}, taxerrors.Wrap(err, taxerrors.CodeValidation, err.Error())
	}

	r := Result{Calculator: CalcUKInheritanceTax, Gross: in.NetEstate}

	bands := p.NilRateBand.Add(in.TransferableNilRateBand)
	taxable, used := consume(in.NetEstate, bands)
	r.Allowances = append(r.Allowances, Applied{Name: "nil_rate_band", Amount: used})

	baseline := taxable
	if in.ResidenceBandApplies {
		var rnrbUsed decimal.Decimal
		taxable, rnrbUsed = consume(taxable, p.ResidenceNilRateBand)
		r.Allowances = append(r.Allowances, Applied{Name: "residence_nil_rate_band", Amount: rnrbUsed})
	}
	r.Taxable = taxable

	rate := p.IHTRate
	rateName := "standard"
	if baseline.IsPositive() && in.CharitableGifts.GreaterThanOrEqual(baseline.Mul(p.CharityRateThreshold)) {
		rate = p.IHTReducedRate
		rateName = "reduced_charity"
	}
	r.Rates = append(r.Rates, Rate{Name: rateName, Rate: rate})
	r.TaxDue = taxable.Mul(rate)

	return finish(r), nil
}

// SAEstateInput describes an estate for SA estate duty.
type SAEstateInput struct {
	EstateValue decimal.Decimal
}

// SAEstateDuty computes estate duty: the abatement comes off first, the lower
// rate applies up to the duty threshold and the higher rate to the excess.
func SAEstateDuty(in SAEstateInput, p policy.SAParams) (Result, error) {
	if err := domain.ValidateAmount("estate value", in.EstateValue); err != nil {
		return Result{}, taxerrors.Wrap(err, taxerrors.CodeValidation, err.Error())
	}

	r := Result{Calculator: CalcSAEstateDuty, Gross: in.EstateValue}

	dutiable, used := consume(in.EstateValue, p.EstateAbatement)
	r.Allowances = append(r.Allowances, Applied{Name: "abatement", Amount: used})
	r.Taxable = dutiable

	if dutiable.LessThanOrEqual(p.EstateDutyThreshold) {
		r.Rates = append(r.Rates, Rate{Name: "lower", Rate: p.EstateDutyLowerRate})
		r.TaxDue = dutiable.Mul(p.EstateDutyLowerRate)
		return finish(r), nil
	}

	r.Rates = append(r.Rates,
		Rate{Name: "lower", Rate: p.EstateDutyLowerRate},
		Rate{Name: "higher", Rate: p.EstateDutyHigherRate},
	)
	excess := dutiable.Sub(p.EstateDutyThreshold)
	r.TaxDue = p.EstateDutyThreshold.Mul(p.EstateDutyLowerRate).Add(excess.Mul(p.EstateDutyHigherRate))
	return finish(r), nil
}
