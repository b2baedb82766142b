package allowance

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"dualtax/internal/domain"
	id "dualtax/pkg/domain"
)

// lockKey scopes append serialization. Lifetime caps span tax years, so the
// boundary is (user, type) rather than the full ledger key.
type lockKey struct {
	UserID id.UserID
	Type   domain.AllowanceType
}

// InMemoryEntryStore keeps ledger entries in process with a lock per
// (user, type). It is both the development store and the test fake.
type InMemoryEntryStore struct {
	mu      sync.RWMutex
	locks   map[lockKey]*sync.Mutex
	entries map[lockKey][]Entry
}

// NewInMemoryEntryStore creates an empty in-memory entry store.
func NewInMemoryEntryStore() *InMemoryEntryStore {
	return &InMemoryEntryStore{
		locks:   make(map[lockKey]*sync.Mutex),
		entries: make(map[lockKey][]Entry),
	}
}

func (s *InMemoryEntryStore) Append(_ context.Context, entry Entry, check CheckFunc) error {
	lk := lockKey{UserID: entry.UserID, Type: entry.Type}
	lock := s.lockFor(lk)
	lock.Lock()
	defer lock.Unlock()

	yearUsed := decimal.Zero
	lifetimeUsed := decimal.Zero
	s.mu.RLock()
	for _, e := range s.entries[lk] {
		lifetimeUsed = lifetimeUsed.Add(e.Amount)
		if e.TaxYear == entry.TaxYear {
			yearUsed = yearUsed.Add(e.Amount)
		}
	}
	s.mu.RUnlock()

	if err := check(yearUsed, lifetimeUsed); err != nil {
		return err
	}

	s.mu.Lock()
	s.entries[lk] = append(s.entries[lk], entry)
	s.mu.Unlock()
	return nil
}

func (s *InMemoryEntryStore) SumYear(_ context.Context, key Key) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := decimal.Zero
	for _, e := range s.entries[lockKey{UserID: key.UserID, Type: key.Type}] {
		if e.TaxYear == key.TaxYear {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

func (s *InMemoryEntryStore) SumLifetime(_ context.Context, userID id.UserID, t domain.AllowanceType) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := decimal.Zero
	for _, e := range s.entries[lockKey{UserID: userID, Type: t}] {
		sum = sum.Add(e.Amount)
	}
	return sum, nil
}

func (s *InMemoryEntryStore) Entries(_ context.Context, key Key) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for _, e := range s.entries[lockKey{UserID: key.UserID, Type: key.Type}] {
		if e.TaxYear == key.TaxYear {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryEntryStore) lockFor(lk lockKey) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lock, ok := s.locks[lk]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	s.locks[lk] = lock
	return lock
}
