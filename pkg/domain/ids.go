package domain

import (
	"fmt"

	"github.com/google/uuid"

	"dualtax/pkg/taxerrors"
)

// Typed identifiers keep user, gift and ledger-entry IDs from being mixed up
// at compile time. IDs must be valid, non-nil UUIDs; parsing enforces this at
// trust boundaries so the rest of the core can assume well-formed IDs.

// UserID identifies the individual whose residency, allowances and gifts are
// being tracked.
type UserID uuid.UUID

// GiftID identifies a recorded lifetime gift.
type GiftID uuid.UUID

// EntryID identifies a single append-only allowance ledger entry.
type EntryID uuid.UUID

// NewUserID generates a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewGiftID generates a fresh random GiftID.
func NewGiftID() GiftID { return GiftID(uuid.New()) }

// NewEntryID generates a fresh random EntryID.
func NewEntryID() EntryID { return EntryID(uuid.New()) }

// ParseUserID validates and returns a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parse(s, "user id")
	return UserID(u), err
}

// ParseGiftID validates and returns a GiftID.
func ParseGiftID(s string) (GiftID, error) {
	u, err := parse(s, "gift id")
	return GiftID(u), err
}

// ParseEntryID validates and returns an EntryID.
func ParseEntryID(s string) (EntryID, error) {
	u, err := parse(s, "entry id")
	return EntryID(u), err
}

func parse(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, taxerrors.New(taxerrors.CodeValidation, fmt.Sprintf("%s must not be empty", kind))
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, taxerrors.Wrap(err, taxerrors.CodeValidation, fmt.Sprintf("%s is not a valid UUID: %s", kind, s))
	}
	if u == uuid.Nil {
		return uuid.Nil, taxerrors.New(taxerrors.CodeValidation, fmt.Sprintf("%s must not be the nil UUID", kind))
	}
	return u, nil
}

func (id UserID) String() string { return uuid.UUID(id).String() }

func (id GiftID) String() string { return uuid.UUID(id).String() }

func (id EntryID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero UUID.
func (id UserID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// IsNil reports whether the ID is the zero UUID.
func (id GiftID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// IsNil reports whether the ID is the zero UUID.
func (id EntryID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
