package domicile

import (
	"context"
	"fmt"
	"time"

	"dualtax/internal/domain"
	id "dualtax/pkg/domain"
	"dualtax/pkg/taxerrors"
)

// StatusRecord is an effective-dated domicile status. Records form an
// append-only sequence per user: superseding a status inserts a new record and
// closes the old one at the new record's EffectiveFrom in the same operation.
// The current record is the single one with a nil EffectiveTo.
type StatusRecord struct {
	UserID        id.UserID
	Kind          domain.DomicileKind
	DeemedStart   *time.Time
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
}

// Validate checks the record's own invariants before any store touches it.
func (r StatusRecord) Validate() error {
	if r.UserID.IsNil() {
		return taxerrors.New(taxerrors.CodeValidation, "user id is required")
	}
	if !r.Kind.IsValid() {
		return taxerrors.New(taxerrors.CodeValidation, fmt.Sprintf("unknown domicile status: %s", r.Kind))
	}
	if r.EffectiveFrom.IsZero() {
		return taxerrors.New(taxerrors.CodeValidation, "effective_from is required")
	}
	if r.EffectiveTo != nil && !r.EffectiveTo.After(r.EffectiveFrom) {
		return taxerrors.New(taxerrors.CodeInvariantViolation,
			fmt.Sprintf("effective_to %s must be strictly after effective_from %s",
				r.EffectiveTo.Format(time.DateOnly), r.EffectiveFrom.Format(time.DateOnly)))
	}
	if r.Kind == domain.DomicileDeemed && r.DeemedStart == nil {
		return taxerrors.New(taxerrors.CodeValidation, "deemed domicile requires a deemed start date")
	}
	return nil
}

// Open reports whether this is the user's current record.
func (r StatusRecord) Open() bool { return r.EffectiveTo == nil }

// StatusStore persists effective-dated domicile records. Implementations must
// keep at most one open record per user and close the previous record at the
// superseding record's EffectiveFrom atomically.
type StatusStore interface {
	// Current returns the open record for a user, or sentinel.ErrNotFound.
	Current(ctx context.Context, userID id.UserID) (StatusRecord, error)

	// History returns all records for a user, oldest first.
	History(ctx context.Context, userID id.UserID) ([]StatusRecord, error)

	// Supersede inserts the record and closes any open record at the new
	// record's EffectiveFrom. The new record must be open and must start
	// after the previous record's EffectiveFrom.
	Supersede(ctx context.Context, rec StatusRecord) error
}
