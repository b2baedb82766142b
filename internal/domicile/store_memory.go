package domicile

import (
	"context"
	"fmt"
	"sync"
	"time"

	id "dualtax/pkg/domain"
	"dualtax/pkg/platform/sentinel"
	"dualtax/pkg/taxerrors"
)

// InMemoryStatusStore keeps domicile records in process. It doubles as the
// test fake; production deployments use the postgres store.
type InMemoryStatusStore struct {
	mu      sync.RWMutex
	records map[id.UserID][]StatusRecord
}

// NewInMemoryStatusStore creates an empty in-memory status store.
func NewInMemoryStatusStore() *InMemoryStatusStore {
	return &InMemoryStatusStore{records: make(map[id.UserID][]StatusRecord)}
}

func (s *InMemoryStatusStore) Current(_ context.Context, userID id.UserID) (StatusRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records[userID] {
		if rec.Open() {
			return rec, nil
		}
	}
	return StatusRecord{}, sentinel.ErrNotFound
}

func (s *InMemoryStatusStore) History(_ context.Context, userID id.UserID) ([]StatusRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := make([]StatusRecord, len(s.records[userID]))
	copy(history, s.records[userID])
	return history, nil
}

func (s *InMemoryStatusStore) Supersede(_ context.Context, rec StatusRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if !rec.Open() {
		return taxerrors.New(taxerrors.CodeInvariantViolation, "superseding record must be open")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.records[rec.UserID]
	for i := range records {
		if !records[i].Open() {
			continue
		}
		if !rec.EffectiveFrom.After(records[i].EffectiveFrom) {
			return taxerrors.New(taxerrors.CodeInvariantViolation,
				fmt.Sprintf("new record effective_from %s must be after current record effective_from %s",
					rec.EffectiveFrom.Format(time.DateOnly), records[i].EffectiveFrom.Format(time.DateOnly)))
		}
		to := rec.EffectiveFrom
		records[i].EffectiveTo = &to
	}
	s.records[rec.UserID] = append(records, rec)
	return nil
}
