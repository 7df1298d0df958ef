// Package service is the single entry point coordinating validation-checked
// writes, the cache regions, and the store. All business rules for domain
// configurations live here; the HTTP layer only translates.
package service

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"domainconfig/internal/domainconfig/cache"
	"domainconfig/internal/domainconfig/metrics"
	"domainconfig/internal/domainconfig/models"
	dErrors "domainconfig/pkg/domain-errors"
	"domainconfig/pkg/platform/sentinel"
)

// Store is the persistence surface the service depends on.
type Store interface {
	Save(ctx context.Context, rec *models.DomainConfig) error
	FindByName(ctx context.Context, name string) (*models.DomainConfig, error)
	FindAllActive(ctx context.Context) ([]*models.DomainConfig, error)
	Exists(ctx context.Context, name string) (bool, error)
	FindByContextType(ctx context.Context, contextType string) ([]*models.DomainConfig, error)
	FindPaymentRequired(ctx context.Context) ([]*models.DomainConfig, error)
	FindByTransactionType(ctx context.Context, transactionType string) ([]*models.DomainConfig, error)
}

// Service orchestrates the store and cache for domain configurations.
// Concurrent cache misses for the same key collapse into one store call via
// the flight group; followers share the leader's result.
type Service struct {
	store   Store
	cache   *cache.Cache
	logger  *slog.Logger
	metrics *metrics.Metrics
	flight  singleflight.Group
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(store Store, c *cache.Cache, opts ...Option) *Service {
	s := &Service{store: store, cache: c}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// GetByName returns the active configuration with that domain name,
// cache-first. Only hits are cached: with full invalidation on every write,
// pinning misses would buy nothing and would shadow fresh creates.
func (s *Service) GetByName(ctx context.Context, name string) (*models.DomainConfig, error) {
	if rec, ok := s.cache.GetByName(name); ok {
		s.metrics.RecordCacheHit(cache.RegionByName)
		return rec, nil
	}
	s.metrics.RecordCacheMiss(cache.RegionByName)

	v, err, _ := s.flight.Do("name:"+name, func() (any, error) {
		rec, err := s.store.FindByName(ctx, name)
		if err != nil {
			return nil, err
		}
		s.cache.SetByName(name, rec)
		return rec, nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "domain configuration '%s' not found", name)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load domain configuration")
	}
	return v.(*models.DomainConfig), nil
}

// GetAllActive returns every active configuration ordered by domain name,
// cache-first.
func (s *Service) GetAllActive(ctx context.Context) ([]*models.DomainConfig, error) {
	if recs, ok := s.cache.GetAllActive(); ok {
		s.metrics.RecordCacheHit(cache.RegionAllActive)
		return recs, nil
	}
	s.metrics.RecordCacheMiss(cache.RegionAllActive)

	recs, err := s.fetchList("all_active", func() ([]*models.DomainConfig, error) {
		recs, err := s.store.FindAllActive(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.SetAllActive(recs)
		return recs, nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list domain configurations")
	}
	return recs, nil
}

// GetByContextType returns active configurations matching the context type,
// cache-first keyed by the argument.
func (s *Service) GetByContextType(ctx context.Context, contextType string) ([]*models.DomainConfig, error) {
	if recs, ok := s.cache.GetByContext(contextType); ok {
		s.metrics.RecordCacheHit(cache.RegionByContext)
		return recs, nil
	}
	s.metrics.RecordCacheMiss(cache.RegionByContext)

	recs, err := s.fetchList("context:"+contextType, func() ([]*models.DomainConfig, error) {
		recs, err := s.store.FindByContextType(ctx, contextType)
		if err != nil {
			return nil, err
		}
		s.cache.SetByContext(contextType, recs)
		return recs, nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query by context type")
	}
	return recs, nil
}

// GetPaymentRequired returns active configurations whose payment workflow
// toggle is on, cache-first with a single shared entry.
func (s *Service) GetPaymentRequired(ctx context.Context) ([]*models.DomainConfig, error) {
	if recs, ok := s.cache.GetPaymentRequired(); ok {
		s.metrics.RecordCacheHit(cache.RegionPaymentRequired)
		return recs, nil
	}
	s.metrics.RecordCacheMiss(cache.RegionPaymentRequired)

	recs, err := s.fetchList("payment_required", func() ([]*models.DomainConfig, error) {
		recs, err := s.store.FindPaymentRequired(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.SetPaymentRequired(recs)
		return recs, nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query payment-required domains")
	}
	return recs, nil
}

// GetByTransactionType returns active configurations matching the
// transaction type, cache-first keyed by the argument.
func (s *Service) GetByTransactionType(ctx context.Context, transactionType string) ([]*models.DomainConfig, error) {
	if recs, ok := s.cache.GetByTransaction(transactionType); ok {
		s.metrics.RecordCacheHit(cache.RegionByTransaction)
		return recs, nil
	}
	s.metrics.RecordCacheMiss(cache.RegionByTransaction)

	recs, err := s.fetchList("transaction:"+transactionType, func() ([]*models.DomainConfig, error) {
		recs, err := s.store.FindByTransactionType(ctx, transactionType)
		if err != nil {
			return nil, err
		}
		s.cache.SetByTransaction(transactionType, recs)
		return recs, nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query by transaction type")
	}
	return recs, nil
}

// Exists reports whether any record, active or not, carries the domain
// name. Never cached: the create pre-check must see the latest write.
func (s *Service) Exists(ctx context.Context, name string) (bool, error) {
	exists, err := s.store.Exists(ctx, name)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check domain existence")
	}
	return exists, nil
}

// Save persists a create or update and invalidates every cache region.
// The HTTP layer performs validation and uniqueness/existence pre-checks;
// Save does not re-validate.
func (s *Service) Save(ctx context.Context, rec *models.DomainConfig) (*models.DomainConfig, error) {
	creating := rec.ID == ""

	if err := s.store.Save(ctx, rec); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.Newf(dErrors.CodeConflict, "domain '%s' already exists", rec.DomainName)
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.Newf(dErrors.CodeNotFound, "domain configuration '%s' not found", rec.DomainName)
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save domain configuration")
		}
	}
	s.cache.InvalidateAll()

	if creating {
		s.inc(func(m *metrics.Metrics) { m.ConfigsCreated.Inc() })
		s.logger.InfoContext(ctx, "domain configuration created", "domain", rec.DomainName)
	} else {
		s.inc(func(m *metrics.Metrics) { m.ConfigsUpdated.Inc() })
		s.logger.InfoContext(ctx, "domain configuration updated", "domain", rec.DomainName)
	}
	return rec, nil
}

// Delete soft-deletes the active record with that name and invalidates the
// caches. Absent or already-inactive names are a no-op, not an error; the
// HTTP layer decides whether that deserves a 404.
func (s *Service) Delete(ctx context.Context, name string) error {
	// Read from the store, not the cache: the record is about to be
	// mutated, and cached entries are shared.
	rec, err := s.store.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load domain configuration for delete")
	}

	rec.IsActive = false
	if err := s.store.Save(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Newf(dErrors.CodeConflict, "domain configuration '%s' was modified concurrently", name)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to soft-delete domain configuration")
	}
	s.cache.InvalidateAll()
	s.inc(func(m *metrics.Metrics) { m.ConfigsDeleted.Inc() })
	s.logger.InfoContext(ctx, "domain configuration soft-deleted", "domain", name)
	return nil
}

// ClearAllCaches empties every cache region.
func (s *Service) ClearAllCaches() {
	s.cache.InvalidateAll()
}

func (s *Service) inc(f func(*metrics.Metrics)) {
	if s.metrics != nil {
		f(s.metrics)
	}
}

// fetchList runs a list fetch through the flight group so concurrent misses
// for the same key share one store call. The fetch populates the cache
// before returning, so callers arriving after the flight lands hit the
// cache instead of opening a new one.
func (s *Service) fetchList(key string, fetch func() ([]*models.DomainConfig, error)) ([]*models.DomainConfig, error) {
	v, err, _ := s.flight.Do(key, func() (any, error) {
		return fetch()
	})
	if err != nil {
		return nil, err
	}
	return v.([]*models.DomainConfig), nil
}
