//go:build integration

package allowance_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"dualtax/internal/allowance"
	"dualtax/internal/domain"
	id "dualtax/pkg/domain"
	"dualtax/pkg/taxerrors"
	"dualtax/pkg/testutil/containers"
)

type PostgresEntryStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *allowance.PostgresEntryStore
	ledger   *allowance.Ledger
}

func TestPostgresEntryStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresEntryStoreSuite))
}

func (s *PostgresEntryStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = allowance.NewPostgresEntryStore(s.postgres.Pool)

	var err error
	s.ledger, err = allowance.New(s.store)
	s.Require().NoError(err)
}

func (s *PostgresEntryStoreSuite) TearDownSuite() {
	s.postgres.Terminate(context.Background())
}

func (s *PostgresEntryStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "allowance_entries")
	s.Require().NoError(err)
}

// TestConcurrentContributions drives parallel appends at one ledger key. The
// advisory lock must serialize the re-read-and-check so the combined total
// never exceeds the cap.
func (s *PostgresEntryStoreSuite) TestConcurrentContributions() {
	ctx := context.Background()
	user := id.NewUserID()
	entryDate := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	const workers = 20
	amount := decimal.NewFromInt(1500) // 14 x 1500 > 20000, so some must fail

	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			_, err := s.ledger.RecordContribution(ctx, user, domain.AllowanceISA, "2024/25",
				amount, entryDate, "")
			if err != nil && !taxerrors.HasCode(err, taxerrors.CodeAllowanceExceeded) {
				return err
			}
			return nil
		})
	}
	s.Require().NoError(g.Wait())

	b, err := s.ledger.Balance(ctx, user, domain.AllowanceISA, "2024/25")
	s.Require().NoError(err)
	// 13 contributions of 1500 fit under 20000; exactly that many must land.
	s.True(b.Used.Equal(decimal.NewFromInt(19500)), "used %s", b.Used)
}

// TestConcurrentUsersDoNotContend verifies the lock is scoped per (user, type)
// and distinct users never block each other's caps.
func (s *PostgresEntryStoreSuite) TestConcurrentUsersDoNotContend() {
	ctx := context.Background()
	entryDate := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	const users = 8
	ids := make([]id.UserID, users)
	for i := range ids {
		ids[i] = id.NewUserID()
	}

	var g errgroup.Group
	for _, user := range ids {
		g.Go(func() error {
			for range 4 {
				if _, err := s.ledger.RecordContribution(ctx, user, domain.AllowanceISA, "2024/25",
					decimal.NewFromInt(5000), entryDate, ""); err != nil {
					return err
				}
			}
			return nil
		})
	}
	s.Require().NoError(g.Wait())

	for _, user := range ids {
		b, err := s.ledger.Balance(ctx, user, domain.AllowanceISA, "2024/25")
		s.Require().NoError(err)
		s.True(b.Used.Equal(decimal.NewFromInt(20000)), "user %s used %s", user, b.Used)
	}
}

// TestRejectedAppendLeavesNoEntry verifies a failed cap check rolls the
// transaction back without a partial write.
func (s *PostgresEntryStoreSuite) TestRejectedAppendLeavesNoEntry() {
	ctx := context.Background()
	user := id.NewUserID()
	entryDate := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.ledger.RecordContribution(ctx, user, domain.AllowanceISA, "2024/25",
		decimal.NewFromInt(18000), entryDate, "")
	s.Require().NoError(err)

	_, err = s.ledger.RecordContribution(ctx, user, domain.AllowanceISA, "2024/25",
		decimal.NewFromInt(3000), entryDate, "")
	s.Require().Error(err)
	s.True(taxerrors.HasCode(err, taxerrors.CodeAllowanceExceeded))

	entries, err := s.ledger.Entries(ctx, user, domain.AllowanceISA, "2024/25")
	s.Require().NoError(err)
	s.Len(entries, 1)
}

// TestLifetimeSumSpansYears verifies SumLifetime aggregates across tax years
// while SumYear stays scoped to one.
func (s *PostgresEntryStoreSuite) TestLifetimeSumSpansYears() {
	ctx := context.Background()
	user := id.NewUserID()

	for year := 2022; year < 2025; year++ {
		entryDate := time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC)
		_, err := s.ledger.RecordContribution(ctx, user, domain.AllowanceTFSA, taxYearLabelFor(year),
			decimal.NewFromInt(36000), entryDate, "")
		s.Require().NoError(err, "year %d", year)
	}

	b, err := s.ledger.Balance(ctx, user, domain.AllowanceTFSA, "2024/25")
	s.Require().NoError(err)
	s.True(b.Used.Equal(decimal.NewFromInt(36000)), "year used %s", b.Used)
	s.True(b.LifetimeUsed.Equal(decimal.NewFromInt(108000)), "lifetime used %s", b.LifetimeUsed)
}

// TestEntriesRoundTrip verifies entries survive the insert/scan cycle intact.
func (s *PostgresEntryStoreSuite) TestEntriesRoundTrip() {
	ctx := context.Background()
	user := id.NewUserID()
	entryDate := time.Date(2024, time.July, 15, 0, 0, 0, 0, time.UTC)

	_, err := s.ledger.RecordContribution(ctx, user, domain.AllowanceISA, "2024/25",
		decimal.RequireFromString("1234.56"), entryDate, "transfer in")
	s.Require().NoError(err)

	entries, err := s.ledger.Entries(ctx, user, domain.AllowanceISA, "2024/25")
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(user, entries[0].UserID)
	s.Equal(domain.AllowanceISA, entries[0].Type)
	s.Equal("2024/25", entries[0].TaxYear)
	s.True(entries[0].Amount.Equal(decimal.RequireFromString("1234.56")))
	s.True(entries[0].EntryDate.Equal(entryDate), "entry date %s", entries[0].EntryDate)
	s.Equal("transfer in", entries[0].Note)
}

func taxYearLabelFor(year int) string {
	return fmt.Sprintf("%04d/%02d", year, (year+1)%100)
}
