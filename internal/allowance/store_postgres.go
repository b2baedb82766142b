package allowance

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"dualtax/internal/domain"
	id "dualtax/pkg/domain"
)

// PostgresEntryStore persists ledger entries in postgres. Appends take a
// transactional advisory lock on the (user, type) pair, then re-read summed
// usage before inserting, so concurrent contributions for the same ledger key
// serialize and re-validate against the freshest balance.
type PostgresEntryStore struct {
	pool *pgxpool.Pool
}

// NewPostgresEntryStore creates a postgres-backed entry store.
func NewPostgresEntryStore(pool *pgxpool.Pool) *PostgresEntryStore {
	return &PostgresEntryStore{pool: pool}
}

func (s *PostgresEntryStore) Append(ctx context.Context, entry Entry, check CheckFunc) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback(ctx)

	// Advisory lock scoped to the transaction; released on commit/rollback.
	lockID := fmt.Sprintf("%s/%s", entry.UserID, entry.Type)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockID); err != nil {
		return fmt.Errorf("acquire ledger lock: %w", err)
	}

	var yearRaw, lifetimeRaw string
	err = tx.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE tax_year = $3), 0)::text,
			COALESCE(SUM(amount), 0)::text
		FROM allowance_entries
		WHERE user_id = $1 AND allowance_type = $2`,
		entry.UserID.String(), string(entry.Type), entry.TaxYear).Scan(&yearRaw, &lifetimeRaw)
	if err != nil {
		return fmt.Errorf("sum ledger usage: %w", err)
	}
	yearUsed, err := decimal.NewFromString(yearRaw)
	if err != nil {
		return fmt.Errorf("parse year usage %q: %w", yearRaw, err)
	}
	lifetimeUsed, err := decimal.NewFromString(lifetimeRaw)
	if err != nil {
		return fmt.Errorf("parse lifetime usage %q: %w", lifetimeRaw, err)
	}

	if err := check(yearUsed, lifetimeUsed); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO allowance_entries (id, user_id, allowance_type, tax_year, amount, entry_date, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID.String(), entry.UserID.String(), string(entry.Type), entry.TaxYear,
		entry.Amount.String(), entry.EntryDate, entry.Note); err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresEntryStore) SumYear(ctx context.Context, key Key) (decimal.Decimal, error) {
	var raw string
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)::text
		FROM allowance_entries
		WHERE user_id = $1 AND allowance_type = $2 AND tax_year = $3`,
		key.UserID.String(), string(key.Type), key.TaxYear).Scan(&raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum year usage: %w", err)
	}
	return decimal.NewFromString(raw)
}

func (s *PostgresEntryStore) SumLifetime(ctx context.Context, userID id.UserID, t domain.AllowanceType) (decimal.Decimal, error) {
	var raw string
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)::text
		FROM allowance_entries
		WHERE user_id = $1 AND allowance_type = $2`,
		userID.String(), string(t)).Scan(&raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum lifetime usage: %w", err)
	}
	return decimal.NewFromString(raw)
}

func (s *PostgresEntryStore) Entries(ctx context.Context, key Key) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, allowance_type, tax_year, amount::text, entry_date, note
		FROM allowance_entries
		WHERE user_id = $1 AND allowance_type = $2 AND tax_year = $3
		ORDER BY entry_date, id`,
		key.UserID.String(), string(key.Type), key.TaxYear)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                         Entry
			entryID, userRaw, typeRaw string
			amountRaw                 string
		)
		if err := rows.Scan(&entryID, &userRaw, &typeRaw, &e.TaxYear, &amountRaw, &e.EntryDate, &e.Note); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		if e.ID, err = id.ParseEntryID(entryID); err != nil {
			return nil, err
		}
		if e.UserID, err = id.ParseUserID(userRaw); err != nil {
			return nil, err
		}
		e.Type = domain.AllowanceType(typeRaw)
		if e.Amount, err = decimal.NewFromString(amountRaw); err != nil {
			return nil, fmt.Errorf("parse entry amount %q: %w", amountRaw, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
