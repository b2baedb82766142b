package gift

import (
	"context"
	"time"

	id "dualtax/pkg/domain"
)

// Store persists gift records. Stores return sentinel errors for factual
// failures; the Tracker service translates them and enforces ownership.
type Store interface {
	// Save inserts a new gift record.
	Save(ctx context.Context, rec Record) error

	// Get returns a gift by ID including soft-deleted rows, or
	// sentinel.ErrNotFound.
	Get(ctx context.Context, giftID id.GiftID) (Record, error)

	// ListActive returns a user's non-deleted gifts, oldest first.
	ListActive(ctx context.Context, userID id.UserID) ([]Record, error)

	// SoftDelete marks a gift deleted at the given time. Deleting an already
	// deleted gift is a no-op.
	SoftDelete(ctx context.Context, giftID id.GiftID, at time.Time) error
}
