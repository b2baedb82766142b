// Package allowance tracks statutory contribution allowances as an
// effective-dated, append-only ledger. Balances are always derived by summing
// entries; nothing mutable is stored. Cap enforcement happens at write time
// inside the store's per-key serialization boundary.
package allowance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"dualtax/internal/domain"
	"dualtax/internal/policy"
	"dualtax/internal/taxyear"
	id "dualtax/pkg/domain"
	"dualtax/pkg/taxerrors"
)

// Key identifies one ledger: a user's usage of one allowance type in one tax
// year.
type Key struct {
	UserID  id.UserID
	Type    domain.AllowanceType
	TaxYear string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.UserID, k.Type, k.TaxYear)
}

// Validate checks the key's fields, including that the tax-year label parses
// under the allowance type's jurisdiction.
func (k Key) Validate() error {
	if k.UserID.IsNil() {
		return taxerrors.New(taxerrors.CodeValidation, "user id is required")
	}
	if !k.Type.IsValid() {
		return taxerrors.New(taxerrors.CodeValidation, fmt.Sprintf("unknown allowance type: %s", k.Type))
	}
	if _, err := taxyear.ParseLabel(k.Type.Jurisdiction(), k.TaxYear); err != nil {
		return err
	}
	return nil
}

// Entry is one append-only ledger entry. Entries are never updated or deleted.
type Entry struct {
	ID        id.EntryID
	UserID    id.UserID
	Type      domain.AllowanceType
	TaxYear   string
	Amount    decimal.Decimal
	EntryDate time.Time
	Note      string
}

// Key returns the ledger key this entry belongs to.
func (e Entry) Key() Key {
	return Key{UserID: e.UserID, Type: e.Type, TaxYear: e.TaxYear}
}

// Balance is derived from the entries for a key. Monetary fields are reported
// at 2 decimal places; it is never stored.
type Balance struct {
	Key            Key
	Limit          decimal.Decimal
	Used           decimal.Decimal
	Remaining      decimal.Decimal
	PercentageUsed decimal.Decimal

	// Lifetime figures are populated for types with a lifetime cap.
	LifetimeLimit     decimal.Decimal
	LifetimeUsed      decimal.Decimal
	LifetimeRemaining decimal.Decimal
	HasLifetime       bool
}

func deriveBalance(key Key, annual, lifetime decimal.Decimal, limits policy.Limits) Balance {
	b := Balance{
		Key:       key,
		Limit:     domain.RoundMoney(limits.Annual),
		Used:      domain.RoundMoney(annual),
		Remaining: domain.RoundMoney(limits.Annual.Sub(annual)),
	}
	if !limits.Annual.IsZero() {
		b.PercentageUsed = annual.Mul(domain.Hundred).Div(limits.Annual).Round(2)
	}
	if limits.HasLifetime {
		b.HasLifetime = true
		b.LifetimeLimit = domain.RoundMoney(limits.Lifetime)
		b.LifetimeUsed = domain.RoundMoney(lifetime)
		b.LifetimeRemaining = domain.RoundMoney(limits.Lifetime.Sub(lifetime))
	}
	return b
}
