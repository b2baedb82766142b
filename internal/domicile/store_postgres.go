package domicile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dualtax/internal/domain"
	id "dualtax/pkg/domain"
	"dualtax/pkg/platform/sentinel"
	"dualtax/pkg/taxerrors"
)

// PostgresStatusStore persists domicile records in postgres. Supersession runs
// in a transaction that locks the open row, so concurrent supersedes for the
// same user serialize and the one-open-record invariant holds.
type PostgresStatusStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStatusStore creates a postgres-backed status store.
func NewPostgresStatusStore(pool *pgxpool.Pool) *PostgresStatusStore {
	return &PostgresStatusStore{pool: pool}
}

func (s *PostgresStatusStore) Current(ctx context.Context, userID id.UserID) (StatusRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, kind, deemed_start, effective_from, effective_to
		FROM domicile_status
		WHERE user_id = $1 AND effective_to IS NULL`,
		userID.String())

	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return StatusRecord{}, sentinel.ErrNotFound
	}
	if err != nil {
		return StatusRecord{}, fmt.Errorf("query current domicile status: %w", err)
	}
	return rec, nil
}

func (s *PostgresStatusStore) History(ctx context.Context, userID id.UserID) ([]StatusRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, kind, deemed_start, effective_from, effective_to
		FROM domicile_status
		WHERE user_id = $1
		ORDER BY effective_from`,
		userID.String())
	if err != nil {
		return nil, fmt.Errorf("query domicile history: %w", err)
	}
	defer rows.Close()

	var history []StatusRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan domicile record: %w", err)
		}
		history = append(history, rec)
	}
	return history, rows.Err()
}

func (s *PostgresStatusStore) Supersede(ctx context.Context, rec StatusRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if !rec.Open() {
		return taxerrors.New(taxerrors.CodeInvariantViolation, "superseding record must be open")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin supersede: %w", err)
	}
	defer tx.Rollback(ctx)

	var currentFrom time.Time
	err = tx.QueryRow(ctx, `
		SELECT effective_from FROM domicile_status
		WHERE user_id = $1 AND effective_to IS NULL
		FOR UPDATE`,
		rec.UserID.String()).Scan(&currentFrom)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// First record for this user; nothing to close.
	case err != nil:
		return fmt.Errorf("lock current domicile status: %w", err)
	default:
		if !rec.EffectiveFrom.After(currentFrom) {
			return taxerrors.New(taxerrors.CodeInvariantViolation,
				fmt.Sprintf("new record effective_from %s must be after current record effective_from %s",
					rec.EffectiveFrom.Format(time.DateOnly), currentFrom.Format(time.DateOnly)))
		}
		if _, err := tx.Exec(ctx, `
			UPDATE domicile_status SET effective_to = $1
			WHERE user_id = $2 AND effective_to IS NULL`,
			rec.EffectiveFrom, rec.UserID.String()); err != nil {
			return fmt.Errorf("close current domicile status: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO domicile_status (user_id, kind, deemed_start, effective_from, effective_to)
		VALUES ($1, $2, $3, $4, NULL)`,
		rec.UserID.String(), string(rec.Kind), rec.DeemedStart, rec.EffectiveFrom); err != nil {
		return fmt.Errorf("insert domicile status: %w", err)
	}

	return tx.Commit(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (StatusRecord, error) {
	var (
		rec     StatusRecord
		userRaw string
		kindRaw string
	)
	if err := row.Scan(&userRaw, &kindRaw, &rec.DeemedStart, &rec.EffectiveFrom, &rec.EffectiveTo); err != nil {
		return StatusRecord{}, err
	}
	userID, err := id.ParseUserID(userRaw)
	if err != nil {
		return StatusRecord{}, err
	}
	rec.UserID = userID
	rec.Kind = domain.DomicileKind(kindRaw)
	return rec, nil
}
