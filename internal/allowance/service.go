package allowance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"dualtax/internal/domain"
	"dualtax/internal/platform/metrics"
	"dualtax/internal/policy"
	"dualtax/internal/taxyear"
	id "dualtax/pkg/domain"
	"dualtax/pkg/taxerrors"
)

// Cap names reported in metrics and error context.
const (
	capAnnual   = "annual"
	capLifetime = "lifetime"
)

// Ledger exposes balances and contribution recording over an EntryStore.
// Caps come from the policy tables; the ledger never clamps and never applies
// a contribution partially.
type Ledger struct {
	store   EntryStore
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) {
		l.metrics = m
	}
}

func New(store EntryStore, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("entry store is required")
	}
	l := &Ledger{store: store}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Balance derives the current balance for a ledger key.
func (l *Ledger) Balance(ctx context.Context, userID id.UserID, t domain.AllowanceType, taxYear string) (Balance, error) {
	key := Key{UserID: userID, Type: t, TaxYear: taxYear}
	if err := key.Validate(); err != nil {
		return Balance{}, err
	}
	limits, err := policy.AllowanceLimits(t, taxYear)
	if err != nil {
		return Balance{}, err
	}

	yearUsed, err := l.store.SumYear(ctx, key)
	if err != nil {
		return Balance{}, taxerrors.Wrap(err, taxerrors.CodeInternal, "failed to sum ledger entries")
	}

	var lifetimeUsed decimal.Decimal
	if limits.HasLifetime {
		lifetimeUsed, err = l.store.SumLifetime(ctx, userID, t)
		if err != nil {
			return Balance{}, taxerrors.Wrap(err, taxerrors.CodeInternal, "failed to sum lifetime entries")
		}
	}
	return deriveBalance(key, yearUsed, lifetimeUsed, limits), nil
}

// RecordContribution appends a contribution after re-validating both caps
// against the freshest usage inside the store's serialization boundary. A cap
// breach is rejected whole; the error names the cap and the amount by which
// the contribution overshoots it.
func (l *Ledger) RecordContribution(ctx context.Context, userID id.UserID, t domain.AllowanceType, taxYear string, amount decimal.Decimal, entryDate time.Time, note string) (Balance, error) {
	key := Key{UserID: userID, Type: t, TaxYear: taxYear}
	if err := key.Validate(); err != nil {
		return Balance{}, err
	}
	if !t.Contributable() {
		return Balance{}, taxerrors.New(taxerrors.CodeValidation,
			fmt.Sprintf("allowance type %s is consumed by calculators and cannot be contributed to", t))
	}
	if amount.IsNegative() {
		return Balance{}, taxerrors.New(taxerrors.CodeValidation,
			fmt.Sprintf("contribution amount must not be negative, got %s", amount))
	}
	ty, err := taxyear.ParseLabel(t.Jurisdiction(), taxYear)
	if err != nil {
		return Balance{}, err
	}
	if !ty.Contains(entryDate) {
		return Balance{}, taxerrors.New(taxerrors.CodeValidation,
			fmt.Sprintf("entry date %s falls outside tax year %s (%s to %s)",
				entryDate.Format(time.DateOnly), taxYear,
				ty.Start.Format(time.DateOnly), ty.End.Format(time.DateOnly)))
	}

	limits, err := policy.AllowanceLimits(t, taxYear)
	if err != nil {
		return Balance{}, err
	}

	entry := Entry{
		ID:        id.NewEntryID(),
		UserID:    userID,
		Type:      t,
		TaxYear:   taxYear,
		Amount:    amount,
		EntryDate: entryDate,
		Note:      note,
	}

	check := func(yearUsed, lifetimeUsed decimal.Decimal) error {
		if yearUsed.Add(amount).GreaterThan(limits.Annual) {
			l.reject(t, capAnnual)
			return taxerrors.New(taxerrors.CodeAllowanceExceeded,
				fmt.Sprintf("annual cap breached for %s %s: contribution %s exceeds the cap by %s (limit %s, used %s, remaining %s)",
					t, taxYear, amount,
					yearUsed.Add(amount).Sub(limits.Annual),
					limits.Annual, yearUsed, limits.Annual.Sub(yearUsed)))
		}
		if limits.HasLifetime && lifetimeUsed.Add(amount).GreaterThan(limits.Lifetime) {
			l.reject(t, capLifetime)
			return taxerrors.New(taxerrors.CodeAllowanceExceeded,
				fmt.Sprintf("lifetime cap breached for %s: contribution %s exceeds the cap by %s (limit %s, used %s, remaining %s)",
					t, amount,
					lifetimeUsed.Add(amount).Sub(limits.Lifetime),
					limits.Lifetime, lifetimeUsed, limits.Lifetime.Sub(lifetimeUsed)))
		}
		return nil
	}

	if err := l.store.Append(ctx, entry, check); err != nil {
		return Balance{}, err
	}

	l.metrics.RecordContribution(t.String())
	if l.logger != nil {
		l.logger.InfoContext(ctx, "contribution recorded",
			"user_id", userID.String(),
			"allowance_type", t.String(),
			"tax_year", taxYear,
			"amount", amount.String(),
		)
	}

	return l.Balance(ctx, userID, t, taxYear)
}

// Entries lists the ledger entries behind a balance, append order.
func (l *Ledger) Entries(ctx context.Context, userID id.UserID, t domain.AllowanceType, taxYear string) ([]Entry, error) {
	key := Key{UserID: userID, Type: t, TaxYear: taxYear}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	entries, err := l.store.Entries(ctx, key)
	if err != nil {
		return nil, taxerrors.Wrap(err, taxerrors.CodeInternal, "failed to list ledger entries")
	}
	return entries, nil
}

func (l *Ledger) reject(t domain.AllowanceType, capName string) {
	l.metrics.RejectContribution(t.String(), capName)
}
