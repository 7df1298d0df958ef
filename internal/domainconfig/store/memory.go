package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"domainconfig/internal/domainconfig/models"
	"domainconfig/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded map store with the same semantics as Postgres.
// It backs unit tests and local runs without a database.
type InMemory struct {
	mu   sync.RWMutex
	byID map[string]*models.DomainConfig
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[string]*models.DomainConfig)}
}

// Save inserts when the record has no ID and updates otherwise. Inserts
// assign the ID and stamp timestamps if unset. Updates are optimistic: the
// record's UpdatedAt must match the stored value or the write fails with
// sentinel.ErrConflict, so a concurrent writer cannot be silently lost.
func (s *InMemory) Save(ctx context.Context, rec *models.DomainConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		return s.insert(rec)
	}
	return s.update(rec)
}

func (s *InMemory) insert(rec *models.DomainConfig) error {
	for _, existing := range s.byID {
		if existing.DomainName == rec.DomainName {
			return sentinel.ErrConflict
		}
	}

	rec.ID = uuid.NewString()
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	s.byID[rec.ID] = rec.Clone()
	return nil
}

func (s *InMemory) update(rec *models.DomainConfig) error {
	existing, ok := s.byID[rec.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !existing.UpdatedAt.Equal(rec.UpdatedAt) {
		return sentinel.ErrConflict
	}
	for id, other := range s.byID {
		if id != rec.ID && other.DomainName == rec.DomainName {
			return sentinel.ErrConflict
		}
	}

	rec.UpdatedAt = time.Now().UTC()
	if !rec.UpdatedAt.After(existing.UpdatedAt) {
		rec.UpdatedAt = existing.UpdatedAt.Add(time.Microsecond)
	}
	s.byID[rec.ID] = rec.Clone()
	return nil
}

// FindByName returns the active record with that domain name.
func (s *InMemory) FindByName(ctx context.Context, name string) (*models.DomainConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.byID {
		if rec.IsActive && rec.DomainName == name {
			return rec.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// FindAllActive returns active records ordered by domain name.
func (s *InMemory) FindAllActive(ctx context.Context) ([]*models.DomainConfig, error) {
	return s.filter(func(rec *models.DomainConfig) bool { return true }), nil
}

// Exists reports whether any record, active or not, has that domain name.
func (s *InMemory) Exists(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.byID {
		if rec.DomainName == name {
			return true, nil
		}
	}
	return false, nil
}

// FindByContextType returns active records whose entities.context_type
// equals the argument.
func (s *InMemory) FindByContextType(ctx context.Context, contextType string) ([]*models.DomainConfig, error) {
	return s.filter(func(rec *models.DomainConfig) bool {
		return rec.Entities != nil && rec.Entities.ContextType == contextType
	}), nil
}

// FindPaymentRequired returns active records whose payment workflow toggle
// is on.
func (s *InMemory) FindPaymentRequired(ctx context.Context) ([]*models.DomainConfig, error) {
	return s.filter(func(rec *models.DomainConfig) bool {
		return rec.Workflows != nil && rec.Workflows.PaymentRequired
	}), nil
}

// FindByTransactionType returns active records whose
// entities.transaction_type equals the argument.
func (s *InMemory) FindByTransactionType(ctx context.Context, transactionType string) ([]*models.DomainConfig, error) {
	return s.filter(func(rec *models.DomainConfig) bool {
		return rec.Entities != nil && rec.Entities.TransactionType == transactionType
	}), nil
}

// DeleteAll physically removes every record. Reload path only.
func (s *InMemory) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID = make(map[string]*models.DomainConfig)
	return nil
}

// Count returns the total record count, active and inactive.
func (s *InMemory) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.byID)), nil
}

func (s *InMemory) filter(keep func(*models.DomainConfig) bool) []*models.DomainConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.DomainConfig, 0)
	for _, rec := range s.byID {
		if rec.IsActive && keep(rec) {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DomainName < out[j].DomainName })
	return out
}
