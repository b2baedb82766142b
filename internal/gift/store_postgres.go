package gift

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"dualtax/internal/domain"
	id "dualtax/pkg/domain"
	"dualtax/pkg/platform/sentinel"
)

// PostgresStore persists gift records in postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a postgres-backed gift store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO gifts (id, user_id, recipient, gift_date, value, gift_type, exemption_subtype, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULL)`,
		rec.ID.String(), rec.UserID.String(), rec.Recipient, rec.Date,
		rec.Value.String(), string(rec.Type), string(rec.Subtype))
	if err != nil {
		return fmt.Errorf("insert gift: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, giftID id.GiftID) (Record, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, recipient, gift_date, value::text, gift_type, COALESCE(exemption_subtype, ''), deleted_at
		FROM gifts
		WHERE id = $1`,
		giftID.String())

	rec, err := scanGift(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("query gift: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListActive(ctx context.Context, userID id.UserID) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, recipient, gift_date, value::text, gift_type, COALESCE(exemption_subtype, ''), deleted_at
		FROM gifts
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY gift_date`,
		userID.String())
	if err != nil {
		return nil, fmt.Errorf("query gifts: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanGift(rows)
		if err != nil {
			return nil, fmt.Errorf("scan gift: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SoftDelete(ctx context.Context, giftID id.GiftID, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE gifts SET deleted_at = $1
		WHERE id = $2 AND deleted_at IS NULL`,
		at, giftID.String())
	if err != nil {
		return fmt.Errorf("soft delete gift: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either missing or already deleted; distinguish for the caller.
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM gifts WHERE id = $1)`, giftID.String()).Scan(&exists); err != nil {
			return fmt.Errorf("check gift existence: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGift(row rowScanner) (Record, error) {
	var (
		rec                       Record
		giftRaw, userRaw, typeRaw string
		subtypeRaw, valueRaw      string
	)
	if err := row.Scan(&giftRaw, &userRaw, &rec.Recipient, &rec.Date, &valueRaw, &typeRaw, &subtypeRaw, &rec.DeletedAt); err != nil {
		return Record{}, err
	}

	giftID, err := id.ParseGiftID(giftRaw)
	if err != nil {
		return Record{}, err
	}
	userID, err := id.ParseUserID(userRaw)
	if err != nil {
		return Record{}, err
	}
	value, err := decimal.NewFromString(valueRaw)
	if err != nil {
		return Record{}, fmt.Errorf("parse gift value %q: %w", valueRaw, err)
	}

	rec.ID = giftID
	rec.UserID = userID
	rec.Value = value
	rec.Type = domain.GiftType(typeRaw)
	rec.Subtype = domain.ExemptionSubtype(subtypeRaw)
	return rec, nil
}
