package allowance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"dualtax/internal/domain"
	id "dualtax/pkg/domain"
	"dualtax/pkg/platform/sentinel"
)

// appendRetries bounds the optimistic retry loop before the conflict is
// surfaced to the caller, which owns retry policy per the ledger contract.
const appendRetries = 5

// RedisEntryStore persists ledger entries in a redis list per (user, type).
// Appends use WATCH-based optimistic concurrency: the entry list is read and
// summed under WATCH, the cap check runs against those fresh figures, and the
// append commits in a MULTI/EXEC that fails if the list changed underneath.
type RedisEntryStore struct {
	client *redis.Client
}

// NewRedisEntryStore creates a redis-backed entry store.
func NewRedisEntryStore(client *redis.Client) *RedisEntryStore {
	return &RedisEntryStore{client: client}
}

// storedEntry is the JSON shape kept in redis.
type storedEntry struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Type      string `json:"type"`
	TaxYear   string `json:"tax_year"`
	Amount    string `json:"amount"`
	EntryDate string `json:"entry_date"`
	Note      string `json:"note,omitempty"`
}

func entryListKey(userID id.UserID, t domain.AllowanceType) string {
	return fmt.Sprintf("allowance:%s:%s", userID, t)
}

func (s *RedisEntryStore) Append(ctx context.Context, entry Entry, check CheckFunc) error {
	listKey := entryListKey(entry.UserID, entry.Type)

	payload, err := json.Marshal(storedEntry{
		ID:        entry.ID.String(),
		UserID:    entry.UserID.String(),
		Type:      string(entry.Type),
		TaxYear:   entry.TaxYear,
		Amount:    entry.Amount.String(),
		EntryDate: entry.EntryDate.Format(time.DateOnly),
		Note:      entry.Note,
	})
	if err != nil {
		return fmt.Errorf("marshal ledger entry: %w", err)
	}

	txn := func(tx *redis.Tx) error {
		entries, err := s.load(ctx, tx, listKey)
		if err != nil {
			return err
		}

		yearUsed := decimal.Zero
		lifetimeUsed := decimal.Zero
		for _, e := range entries {
			lifetimeUsed = lifetimeUsed.Add(e.Amount)
			if e.TaxYear == entry.TaxYear {
				yearUsed = yearUsed.Add(e.Amount)
			}
		}

		if err := check(yearUsed, lifetimeUsed); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, listKey, payload)
			return nil
		})
		return err
	}

	for range appendRetries {
		err := s.client.Watch(ctx, txn, listKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("append to %s: %w", listKey, sentinel.ErrConflict)
}

func (s *RedisEntryStore) SumYear(ctx context.Context, key Key) (decimal.Decimal, error) {
	entries, err := s.load(ctx, s.client, entryListKey(key.UserID, key.Type))
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, e := range entries {
		if e.TaxYear == key.TaxYear {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

func (s *RedisEntryStore) SumLifetime(ctx context.Context, userID id.UserID, t domain.AllowanceType) (decimal.Decimal, error) {
	entries, err := s.load(ctx, s.client, entryListKey(userID, t))
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Amount)
	}
	return sum, nil
}

func (s *RedisEntryStore) Entries(ctx context.Context, key Key) ([]Entry, error) {
	entries, err := s.load(ctx, s.client, entryListKey(key.UserID, key.Type))
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range entries {
		if e.TaxYear == key.TaxYear {
			out = append(out, e)
		}
	}
	return out, nil
}

// load reads and decodes the full entry list through any client, including a
// watched transaction.
func (s *RedisEntryStore) load(ctx context.Context, c redis.Cmdable, listKey string) ([]Entry, error) {
	raw, err := c.LRange(ctx, listKey, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read ledger list %s: %w", listKey, err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var se storedEntry
		if err := json.Unmarshal([]byte(item), &se); err != nil {
			return nil, fmt.Errorf("decode ledger entry: %w", err)
		}
		entry, err := se.toEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (se storedEntry) toEntry() (Entry, error) {
	entryID, err := id.ParseEntryID(se.ID)
	if err != nil {
		return Entry{}, err
	}
	userID, err := id.ParseUserID(se.UserID)
	if err != nil {
		return Entry{}, err
	}
	amount, err := decimal.NewFromString(se.Amount)
	if err != nil {
		return Entry{}, fmt.Errorf("parse entry amount %q: %w", se.Amount, err)
	}
	entryDate, err := time.Parse(time.DateOnly, se.EntryDate)
	if err != nil {
		return Entry{}, fmt.Errorf("parse entry date %q: %w", se.EntryDate, err)
	}
	return Entry{
		ID:        entryID,
		UserID:    userID,
		Type:      domain.AllowanceType(se.Type),
		TaxYear:   se.TaxYear,
		Amount:    amount,
		EntryDate: entryDate,
		Note:      se.Note,
	}, nil
}
