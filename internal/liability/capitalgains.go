package liability

import (
	"github.com/shopspring/decimal"

	"dualtax/internal/domain"
	"dualtax/internal/policy"
	"dualtax/pkg/taxerrors"
)

// UKCapitalGainsInput describes realized gains for UK capital gains tax.
// WrapperGain is the portion realized inside an ISA and carries no tax.
type UKCapitalGainsInput struct {
	TotalGain   decimal.Decimal
	WrapperGain decimal.Decimal
}

// UKCapitalGains excludes wrapper gains, applies the annual exempt amount and
// taxes the remainder at the flat rate.
func UKCapitalGains(in UKCapitalGainsInput, p policy.UKParams) (Result, error) {
	if err := domain.ValidateAmount("total gain", in.TotalGain); err != nil {
		return Result{}, taxerrors.Wrap(err, taxerrors.CodeValidation, err.Error())
	}
	if err := domain.ValidateAmount("wrapper gain", in.WrapperGain); err != nil {
		return Result{}, taxerrors.Wrap(err, taxerrors.CodeValidation, err.Error())
	}
	if in.WrapperGain.GreaterThan(in.TotalGain) {
		return Result{}, taxerrors.New(taxerrors.CodeValidation, "wrapper gain exceeds total gain")
	}

	r := Result{Calculator: CalcUKCapitalGains, Gross: in.TotalGain, TaxFree: in.WrapperGain}

	taxable, used := consume(in.TotalGain.Sub(in.WrapperGain), p.CGTExemptAmount)
	r.Allowances = append(r.Allowances, Applied{Name: "annual_exempt_amount", Amount: used})
	r.Taxable = taxable

	r.Rates = append(r.Rates, Rate{Name: "flat", Rate: p.CGTRate})
	r.TaxDue = taxable.Mul(p.CGTRate)
	return finish(r), nil
}

// SACapitalGainsInput describes realized gains for the SA inclusion-rate
// regime. WrapperGain is the portion realized inside a TFSA. MarginalRate is
// the individual's income tax marginal rate as a fraction.
type SACapitalGainsInput struct {
	TotalGain    decimal.Decimal
	WrapperGain  decimal.Decimal
	MarginalRate decimal.Decimal
}

// SACapitalGains includes a fraction of the gain in income and taxes it at the
// individual's marginal rate. The itemized effective rate is inclusion rate
// times marginal rate.
func SACapitalGains(in SACapitalGainsInput, p policy.SAParams) (Result, error) {
	if err := domain.ValidateAmount("total gain", in.TotalGain); err != nil {
		return Result{}, taxerrors.Wrap(err, taxerrors.CodeValidation, err.Error())
	}
	if err := domain.ValidateAmount("wrapper gain", in.WrapperGain); err != nil {
		return Result{}, taxerrors.Wrap(err, taxerrors.CodeValidation, err.Error())
	}
	if err := domain.ValidateRate("marginal rate", in.MarginalRate); err != nil {
		return Result{}, taxerrors.Wrap(err, taxerrors.CodeValidation, err.Error())
	}
	if in.WrapperGain.GreaterThan(in.TotalGain) {
		return Result{}, taxerrors.New(taxerrors.CodeValidation, "wrapper gain exceeds total gain")
	}

	r := Result{Calculator: CalcSACapitalGains, Gross: in.TotalGain, TaxFree: in.WrapperGain}

	included := in.TotalGain.Sub(in.WrapperGain).Mul(p.CGTInclusionRate)
	r.Taxable = included

	effective := p.CGTInclusionRate.Mul(in.MarginalRate)
	r.Rates = append(r.Rates,
		Rate{Name: "inclusion", Rate: p.CGTInclusionRate},
		Rate{Name: "marginal", Rate: in.MarginalRate},
		Rate{Name: "effective", Rate: effective},
	)
	r.TaxDue = included.Mul(in.MarginalRate)
	return finish(r), nil
}
