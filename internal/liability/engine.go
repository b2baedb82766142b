package liability

import (
	"log/slog"

	"dualtax/internal/platform/metrics"
	"dualtax/internal/policy"
)

// Engine wraps the pure calculators with year resolution, logging and
// instrumentation. The calculators stay importable on their own; the engine is
// the surface callers reach for when they hold only a tax-year label.
type Engine struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) done(res Result, err error) (Result, error) {
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("liability calculation rejected", "error", err)
		}
		return Result{}, err
	}
	e.metrics.RecordCalculation(res.Calculator)
	if e.logger != nil {
		e.logger.Info("liability calculated",
			"calculator", res.Calculator,
			"taxable", res.Taxable.String(),
			"tax_due", res.TaxDue.String(),
		)
	}
	return res, nil
}

func (e *Engine) UKInheritanceTax(taxYear string, in UKEstateInput) (Result, error) {
	p, err := policy.UKForYear(taxYear)
	if err != nil {
		return Result{}, err
	}
	return e.done(UKInheritanceTax(in, p))
}

func (e *Engine) SAEstateDuty(taxYear string, in SAEstateInput) (Result, error) {
	p, err := policy.SAForYear(taxYear)
	if err != nil {
		return Result{}, err
	}
	return e.done(SAEstateDuty(in, p))
}

func (e *Engine) UKCapitalGains(taxYear string, in UKCapitalGainsInput) (Result, error) {
	p, err := policy.UKForYear(taxYear)
	if err != nil {
		return Result{}, err
	}
	return e.done(UKCapitalGains(in, p))
}

func (e *Engine) SACapitalGains(taxYear string, in SACapitalGainsInput) (Result, error) {
	p, err := policy.SAForYear(taxYear)
	if err != nil {
		return Result{}, err
	}
	return e.done(SACapitalGains(in, p))
}

func (e *Engine) UKDividendTax(taxYear string, in UKDividendInput) (Result, error) {
	p, err := policy.UKForYear(taxYear)
	if err != nil {
		return Result{}, err
	}
	return e.done(UKDividendTax(in, p))
}

func (e *Engine) SADividendWithholding(taxYear string, in SADividendInput) (Result, error) {
	p, err := policy.SAForYear(taxYear)
	if err != nil {
		return Result{}, err
	}
	return e.done(SADividendWithholding(in, p))
}

func (e *Engine) UKSavingsInterestTax(taxYear string, in UKSavingsInput) (Result, error) {
	p, err := policy.UKForYear(taxYear)
	if err != nil {
		return Result{}, err
	}
	return e.done(UKSavingsInterestTax(in, p))
}

func (e *Engine) SASavingsInterestTax(taxYear string, in SASavingsInput) (Result, error) {
	p, err := policy.SAForYear(taxYear)
	if err != nil {
		return Result{}, err
	}
	return e.done(SASavingsInterestTax(in, p))
}
