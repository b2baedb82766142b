package gift

import (
	"context"
	"sort"
	"sync"
	"time"

	id "dualtax/pkg/domain"
	"dualtax/pkg/platform/sentinel"
)

// InMemoryStore keeps gift records in process. It doubles as the test fake.
type InMemoryStore struct {
	mu    sync.RWMutex
	gifts map[id.GiftID]Record
}

// NewInMemoryStore creates an empty in-memory gift store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{gifts: make(map[id.GiftID]Record)}
}

func (s *InMemoryStore) Save(_ context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.gifts[rec.ID]; exists {
		return sentinel.ErrConflict
	}
	s.gifts[rec.ID] = rec
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, giftID id.GiftID) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.gifts[giftID]
	if !ok {
		return Record{}, sentinel.ErrNotFound
	}
	return rec, nil
}

func (s *InMemoryStore) ListActive(_ context.Context, userID id.UserID) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, rec := range s.gifts {
		if rec.UserID == userID && !rec.Deleted() {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *InMemoryStore) SoftDelete(_ context.Context, giftID id.GiftID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.gifts[giftID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if rec.Deleted() {
		return nil
	}
	rec.DeletedAt = &at
	s.gifts[giftID] = rec
	return nil
}
