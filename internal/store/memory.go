package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/bookshelf/internal/identity"
	"github.com/lehigh-university-libraries/bookshelf/internal/models"
)

// MemoryStore keeps aggregates in process memory. It backs tests and dry runs.
type MemoryStore struct {
	books   map[string]*models.BookAggregate
	hasher  *identity.Hasher
	offline bool
	now     func() time.Time
	mu      sync.RWMutex
}

func NewMemoryStore(hasher *identity.Hasher) *MemoryStore {
	return &MemoryStore{
		books:  make(map[string]*models.BookAggregate),
		hasher: hasher,
		now:    time.Now,
	}
}

// SetConnected simulates losing or regaining the database.
func (s *MemoryStore) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline = !connected
}

func (s *MemoryStore) IsConnected(ctx context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.offline
}

func (s *MemoryStore) GetByIdentity(ctx context.Context, id string) (*models.BookAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.offline {
		return nil, ErrUnavailable
	}
	return clone(s.books[id]), nil
}

func (s *MemoryStore) GetByMetadata(ctx context.Context, meta models.Metadata) (*models.BookAggregate, error) {
	return s.GetByIdentity(ctx, s.hasher.Derive(meta))
}

func (s *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.offline {
		return false, ErrUnavailable
	}
	_, exists := s.books[id]
	return exists, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, id string, meta models.Metadata, scan models.ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return ErrUnavailable
	}
	s.books[id] = Merge(s.books[id], id, meta, scan, s.now())
	return nil
}

// List returns every aggregate ordered by creation time, then identity.
func (s *MemoryStore) List(ctx context.Context) ([]*models.BookAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.offline {
		return nil, ErrUnavailable
	}

	result := make([]*models.BookAggregate, 0, len(s.books))
	for _, agg := range s.books {
		result = append(result, clone(agg))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].Identity < result[j].Identity
	})
	return result, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
