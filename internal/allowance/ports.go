package allowance

import (
	"context"

	"github.com/shopspring/decimal"

	"dualtax/internal/domain"
	id "dualtax/pkg/domain"
)

// CheckFunc validates a pending entry against the freshest usage figures for
// its ledger key. Stores call it inside their serialization boundary, so the
// figures cannot go stale between the check and the append.
type CheckFunc func(yearUsed, lifetimeUsed decimal.Decimal) error

// EntryStore persists append-only ledger entries.
//
// Append is the concurrency-critical operation: implementations must serialize
// appends per (user, allowance type) — the memory store holds a per-key lock,
// the postgres store takes a transactional advisory lock, the redis store runs
// an optimistic WATCH retry. Two concurrent contributions for the same key can
// therefore never both pass a cap check against the same stale balance.
type EntryStore interface {
	// Append runs check against current usage and appends the entry only if
	// check returns nil. The check error is returned unwrapped so callers can
	// distinguish cap breaches from storage failures.
	Append(ctx context.Context, entry Entry, check CheckFunc) error

	// SumYear returns the summed amounts for a ledger key.
	SumYear(ctx context.Context, key Key) (decimal.Decimal, error)

	// SumLifetime returns the summed amounts across all tax years for a user
	// and allowance type.
	SumLifetime(ctx context.Context, userID id.UserID, t domain.AllowanceType) (decimal.Decimal, error)

	// Entries returns all entries for a ledger key in append order.
	Entries(ctx context.Context, key Key) ([]Entry, error)
}
