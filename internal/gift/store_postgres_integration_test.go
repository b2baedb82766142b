//go:build integration

package gift_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"dualtax/internal/domain"
	"dualtax/internal/gift"
	id "dualtax/pkg/domain"
	"dualtax/pkg/platform/sentinel"
	"dualtax/pkg/testutil/containers"
)

type PostgresGiftStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *gift.PostgresStore
}

func TestPostgresGiftStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresGiftStoreSuite))
}

func (s *PostgresGiftStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = gift.NewPostgresStore(s.postgres.Pool)
}

func (s *PostgresGiftStoreSuite) TearDownSuite() {
	s.postgres.Terminate(context.Background())
}

func (s *PostgresGiftStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "gifts")
	s.Require().NoError(err)
}

func (s *PostgresGiftStoreSuite) newPET(user id.UserID, date time.Time) gift.Record {
	return gift.Record{
		ID:        id.NewGiftID(),
		UserID:    user,
		Recipient: "eldest child",
		Date:      date,
		Value:     decimal.NewFromInt(100000),
		Type:      domain.GiftPotentiallyExempt,
	}
}

// TestSaveAndGetRoundTrip verifies record fields, including the nullable
// exemption subtype, survive the insert/scan cycle.
func (s *PostgresGiftStoreSuite) TestSaveAndGetRoundTrip() {
	ctx := context.Background()
	user := id.NewUserID()
	date := time.Date(2020, time.March, 10, 0, 0, 0, 0, time.UTC)

	exempt := gift.Record{
		ID:        id.NewGiftID(),
		UserID:    user,
		Recipient: "spouse",
		Date:      date,
		Value:     decimal.RequireFromString("2500.50"),
		Type:      domain.GiftExempt,
		Subtype:   domain.ExemptionSpouse,
	}
	s.Require().NoError(s.store.Save(ctx, exempt))

	got, err := s.store.Get(ctx, exempt.ID)
	s.Require().NoError(err)
	s.Equal(exempt.Recipient, got.Recipient)
	s.Equal(domain.GiftExempt, got.Type)
	s.Equal(domain.ExemptionSpouse, got.Subtype)
	s.True(got.Value.Equal(exempt.Value))
	s.True(got.Date.Equal(date))
	s.Nil(got.DeletedAt)

	pet := s.newPET(user, date)
	s.Require().NoError(s.store.Save(ctx, pet))

	got, err = s.store.Get(ctx, pet.ID)
	s.Require().NoError(err)
	s.Equal(domain.ExemptionSubtype(""), got.Subtype)
}

func (s *PostgresGiftStoreSuite) TestGetMissingGift() {
	_, err := s.store.Get(context.Background(), id.NewGiftID())
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

// TestSoftDeleteFiltersListing verifies deleted gifts stay fetchable by ID but
// drop out of the active listing, and that deleting twice is a no-op.
func (s *PostgresGiftStoreSuite) TestSoftDeleteFiltersListing() {
	ctx := context.Background()
	user := id.NewUserID()
	date := time.Date(2020, time.March, 10, 0, 0, 0, 0, time.UTC)

	first := s.newPET(user, date)
	second := s.newPET(user, date.AddDate(1, 0, 0))
	s.Require().NoError(s.store.Save(ctx, first))
	s.Require().NoError(s.store.Save(ctx, second))

	deletedAt := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.SoftDelete(ctx, first.ID, deletedAt))

	active, err := s.store.ListActive(ctx, user)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal(second.ID, active[0].ID)

	got, err := s.store.Get(ctx, first.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.DeletedAt)
	s.True(got.DeletedAt.Equal(deletedAt))

	// Second delete keeps the original timestamp.
	s.Require().NoError(s.store.SoftDelete(ctx, first.ID, deletedAt.AddDate(0, 1, 0)))
	got, err = s.store.Get(ctx, first.ID)
	s.Require().NoError(err)
	s.True(got.DeletedAt.Equal(deletedAt))
}

func (s *PostgresGiftStoreSuite) TestSoftDeleteMissingGift() {
	err := s.store.SoftDelete(context.Background(), id.NewGiftID(), time.Now())
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

// TestListActiveOrdersOldestFirst matches the assessment ordering callers rely
// on when walking the relief window.
func (s *PostgresGiftStoreSuite) TestListActiveOrdersOldestFirst() {
	ctx := context.Background()
	user := id.NewUserID()

	newest := s.newPET(user, time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC))
	oldest := s.newPET(user, time.Date(2018, time.May, 1, 0, 0, 0, 0, time.UTC))
	middle := s.newPET(user, time.Date(2020, time.May, 1, 0, 0, 0, 0, time.UTC))
	for _, rec := range []gift.Record{newest, oldest, middle} {
		s.Require().NoError(s.store.Save(ctx, rec))
	}

	active, err := s.store.ListActive(ctx, user)
	s.Require().NoError(err)
	s.Require().Len(active, 3)
	s.Equal(oldest.ID, active[0].ID)
	s.Equal(middle.ID, active[1].ID)
	s.Equal(newest.ID, active[2].ID)
}
