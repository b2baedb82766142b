package gift

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	id "dualtax/pkg/domain"
	"dualtax/pkg/platform/sentinel"
	"dualtax/pkg/taxerrors"
)

// Tracker exposes gift recording and taper assessment over a Store, enforcing
// ownership on every per-gift operation.
type Tracker struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Tracker)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

func New(store Store, opts ...Option) (*Tracker, error) {
	if store == nil {
		return nil, fmt.Errorf("gift store is required")
	}
	t := &Tracker{store: store}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Record validates and saves a new gift.
func (t *Tracker) Record(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if err := t.store.Save(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return taxerrors.Wrap(err, taxerrors.CodeConflict, fmt.Sprintf("gift %s already exists", rec.ID))
		}
		return taxerrors.Wrap(err, taxerrors.CodeInternal, "failed to save gift")
	}
	if t.logger != nil {
		t.logger.InfoContext(ctx, "gift recorded",
			"gift_id", rec.ID.String(),
			"user_id", rec.UserID.String(),
			"gift_type", rec.Type.String(),
		)
	}
	return nil
}

// Assess derives the taper state of one of the user's gifts at asOf.
func (t *Tracker) Assess(ctx context.Context, userID id.UserID, giftID id.GiftID, asOf time.Time) (Assessment, error) {
	rec, err := t.owned(ctx, userID, giftID)
	if err != nil {
		return Assessment{}, err
	}
	if rec.Deleted() {
		return Assessment{}, taxerrors.New(taxerrors.CodeNotFound, fmt.Sprintf("gift %s not found", giftID))
	}
	return Assess(rec, asOf)
}

// AssessAll derives the taper state of every active gift the user has.
func (t *Tracker) AssessAll(ctx context.Context, userID id.UserID, asOf time.Time) ([]Assessment, error) {
	records, err := t.store.ListActive(ctx, userID)
	if err != nil {
		return nil, taxerrors.Wrap(err, taxerrors.CodeInternal, "failed to list gifts")
	}
	assessments := make([]Assessment, 0, len(records))
	for _, rec := range records {
		a, err := Assess(rec, asOf)
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, a)
	}
	return assessments, nil
}

// Delete soft-deletes one of the user's gifts.
func (t *Tracker) Delete(ctx context.Context, userID id.UserID, giftID id.GiftID, at time.Time) error {
	if _, err := t.owned(ctx, userID, giftID); err != nil {
		return err
	}
	if err := t.store.SoftDelete(ctx, giftID, at); err != nil {
		return taxerrors.Wrap(err, taxerrors.CodeInternal, "failed to delete gift")
	}
	return nil
}

// owned fetches a gift and verifies the caller owns it. A gift belonging to
// another user is forbidden, not hidden behind not-found, so storage races
// and permission failures stay distinguishable upstream.
func (t *Tracker) owned(ctx context.Context, userID id.UserID, giftID id.GiftID) (Record, error) {
	rec, err := t.store.Get(ctx, giftID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Record{}, taxerrors.Wrap(err, taxerrors.CodeNotFound, fmt.Sprintf("gift %s not found", giftID))
	}
	if err != nil {
		return Record{}, taxerrors.Wrap(err, taxerrors.CodeInternal, "failed to load gift")
	}
	if rec.UserID != userID {
		return Record{}, taxerrors.New(taxerrors.CodeForbidden, fmt.Sprintf("gift %s does not belong to the requesting user", giftID))
	}
	return rec, nil
}
