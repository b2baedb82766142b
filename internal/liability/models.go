// Package liability computes per-jurisdiction tax liabilities. Every
// calculator is a pure function over its inputs and a resolved policy
// parameter set: no clock, no randomness, no shared state, so identical
// inputs always produce bit-identical results. Amounts realized inside a
// tax-advantaged wrapper are excluded from the taxable base up front and
// reported as tax-free, never merged into the exemption pool.
package liability

import (
	"github.com/shopspring/decimal"

	"dualtax/internal/domain"
)

// Calculator names, reported on results and used as metric labels.
const (
	CalcUKInheritanceTax      = "uk_inheritance_tax"
	CalcSAEstateDuty          = "sa_estate_duty"
	CalcUKCapitalGains        = "uk_capital_gains"
	CalcSACapitalGains        = "sa_capital_gains"
	CalcUKDividend            = "uk_dividend"
	CalcSADividendWithholding = "sa_dividend_withholding"
	CalcUKSavingsInterest     = "uk_savings_interest"
	CalcSASavingsInterest     = "sa_savings_interest"
)

// Applied itemizes one exemption or allowance consumed by a calculation.
type Applied struct {
	Name   string
	Amount decimal.Decimal
}

// Rate itemizes one rate used by a calculation.
type Rate struct {
	Name string
	Rate decimal.Decimal
}

// Result is the liability breakdown for a single calculator invocation.
// Monetary fields are reported at 2 decimal places; TaxFree carries the
// wrapper-held figure for reconciliation against the gross.
type Result struct {
	Calculator string
	Gross      decimal.Decimal
	TaxFree    decimal.Decimal
	Allowances []Applied
	Taxable    decimal.Decimal
	Rates      []Rate
	TaxDue     decimal.Decimal
}

// finish rounds the monetary fields for external reporting. Intermediates
// stay at full precision until this point.
func finish(r Result) Result {
	r.Gross = domain.RoundMoney(r.Gross)
	r.TaxFree = domain.RoundMoney(r.TaxFree)
	r.Taxable = domain.RoundMoney(r.Taxable)
	r.TaxDue = domain.RoundMoney(r.TaxDue)
	for i := range r.Allowances {
		r.Allowances[i].Amount = domain.RoundMoney(r.Allowances[i].Amount)
	}
	return r
}

// consume applies an allowance to a base, never below zero, and returns the
// reduced base together with the amount actually consumed.
func consume(base, allowance decimal.Decimal) (remaining, used decimal.Decimal) {
	if allowance.GreaterThanOrEqual(base) {
		return decimal.Zero, base
	}
	return base.Sub(allowance), allowance
}
