package liability

import (
	"github.com/shopspring/decimal"

	"dualtax/internal/domain"
	"dualtax/internal/policy"
	"dualtax/pkg/taxerrors"
)

// UKDividendInput describes dividend income. WrapperDividends are dividends
// paid inside an ISA and fall outside the charge entirely.
type UKDividendInput struct {
	TotalDividends   decimal.Decimal
	WrapperDividends decimal.Decimal
}

// UKDividendTax excludes wrapper dividends, applies the dividend allowance and
// taxes the remainder at the flat dividend rate.
func UKDividendTax(in UKDividendInput, p policy.UKParams) (Result, error) {
	if err := domain.ValidateAmount("total dividends", in.TotalDividends); err != nil {
		return Result{}, taxerrors.Wrap(err, taxerrors.CodeValidation, err.Error())
	}
	if err := domain.ValidateAmount("wrapper dividends", in.WrapperDividends); err != nil {
		return Result{}, taxerrors.Wrap(err, taxerrors.CodeValidation, err.Error())
	}
	if in.WrapperDividends.GreaterThan(in.TotalDividends) {
		return Result{}, taxerrors.New(taxerrors.CodeValidation, "wrapper dividends exceed total dividends")
	}

	r := Result{Calculator: CalcUKDividend, Gross: in.TotalDividends, TaxFree: in.WrapperDividends}

	taxable, used := consume(in.TotalDividends.Sub(in.WrapperDividends), p.DividendAllowance)
	r.Allowances = append(r.Allowances, Applied{Name: "dividend_allowance", Amount: used})
	r.Taxable = taxable

	r.Rates = append(r.Rates, Rate{Name: "flat", Rate: p.DividendRate})
	r.TaxDue = taxable.Mul(p.DividendRate)
	return finish(r), nil
}

// SADividendInput describes dividend income subject to withholding.
// WrapperDividends are dividends earned inside a TFSA and exempt from the
// withholding charge.
type SADividendInput struct {
	TotalDividends   decimal.Decimal
	WrapperDividends decimal.Decimal
}

// SADividendWithholding applies the flat withholding rate to gross dividends
// outside the wrapper. There is no allowance to consume.
func SADividendWithholding(in SADividendInput, p policy.SAParams) (Result, error) {
	if err := domain.ValidateAmount("total dividends", in.TotalDividends); err != nil {
		return Result{}, taxerrors.Wrap(err, taxerrors.CodeValidation, err.Error())
	}
	if err := domain.ValidateAmount("wrapper dividends", in.WrapperDividends); err != nil {
		return Result{}, taxerrors.Wrap(err, taxerrors.CodeValidation, err.Error())
	}
	if in.WrapperDividends.GreaterThan(in.TotalDividends) {
		return Result{}, taxerrors.New(taxerrors.CodeValidation, "wrapper dividends exceed total dividends")
	}

	r := Result{Calculator: CalcSADividendWithholding, Gross: in.TotalDividends, TaxFree: in.WrapperDividends}
	r.Taxable = in.TotalDividends.Sub(in.WrapperDividends)

	r.Rates = append(r.Rates, Rate{Name: "withholding", Rate: p.DividendWithholdingRate})
	r.TaxDue = r.Taxable.Mul(p.DividendWithholdingRate)
	return finish(r), nil
}
