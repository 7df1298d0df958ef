package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"domainconfig/internal/domainconfig/cache"
	"domainconfig/internal/domainconfig/models"
	"domainconfig/internal/domainconfig/store"
	dErrors "domainconfig/pkg/domain-errors"
)

// countingStore wraps the in-memory store to observe how often the service
// falls through the cache.
type countingStore struct {
	*store.InMemory
	findByName atomic.Int32
	findAll    atomic.Int32
}

func (c *countingStore) FindByName(ctx context.Context, name string) (*models.DomainConfig, error) {
	c.findByName.Add(1)
	return c.InMemory.FindByName(ctx, name)
}

func (c *countingStore) FindAllActive(ctx context.Context) ([]*models.DomainConfig, error) {
	c.findAll.Add(1)
	return c.InMemory.FindAllActive(ctx)
}

type ServiceSuite struct {
	suite.Suite
	store *countingStore
	cache *cache.Cache
	svc   *Service
	ctx   context.Context
}

func (s *ServiceSuite) SetupTest() {
	s.store = &countingStore{InMemory: store.NewInMemory()}
	s.cache = cache.New(time.Minute, 100)
	s.svc = New(s.store, s.cache)
	s.ctx = context.Background()
}

func (s *ServiceSuite) TearDownTest() {
	s.cache.Stop()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) newConfig(name, contextType, transactionType string, paymentRequired bool) *models.DomainConfig {
	return &models.DomainConfig{
		DomainName:  name,
		DisplayName: "Display " + name,
		Entities: &models.Entities{
			UserRoles:       []string{"buyer", "seller"},
			ContextType:     contextType,
			TransactionType: transactionType,
		},
		Workflows: &models.Workflows{
			TransactionStates: []string{"open", "closed"},
			PaymentRequired:   paymentRequired,
		},
		Terminology: &models.Terminology{
			UserPrimary: "User",
			Context:     "Context",
			Transaction: "Transaction",
		},
		IsActive: true,
	}
}

func (s *ServiceSuite) TestCreateThenGetRoundTrip() {
	rec := s.newConfig("ecommerce", "store", "order", true)
	saved, err := s.svc.Save(s.ctx, rec)
	s.Require().NoError(err)
	s.NotEmpty(saved.ID)
	s.True(saved.IsActive)

	found, err := s.svc.GetByName(s.ctx, "ecommerce")
	s.Require().NoError(err)
	s.Equal(saved.ID, found.ID)
	s.Equal("Display ecommerce", found.DisplayName)
	s.Equal(saved.CreatedAt, found.CreatedAt)
}

func (s *ServiceSuite) TestGetByNameCachesHits() {
	_, err := s.svc.Save(s.ctx, s.newConfig("ecommerce", "store", "order", true))
	s.Require().NoError(err)

	before := s.store.findByName.Load()
	for i := 0; i < 5; i++ {
		_, err := s.svc.GetByName(s.ctx, "ecommerce")
		s.Require().NoError(err)
	}
	s.Equal(before+1, s.store.findByName.Load(), "only the first lookup should hit the store")
}

func (s *ServiceSuite) TestGetByNameMissNotCached() {
	for i := 0; i < 3; i++ {
		_, err := s.svc.GetByName(s.ctx, "absent")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	}
	s.Equal(int32(3), s.store.findByName.Load(), "misses fall through every time")
}

func (s *ServiceSuite) TestWritesInvalidateCachesEndToEnd() {
	_, err := s.svc.Save(s.ctx, s.newConfig("ecommerce", "store", "order", true))
	s.Require().NoError(err)

	all, err := s.svc.GetAllActive(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)

	// Create: the cached all-active list must not survive.
	_, err = s.svc.Save(s.ctx, s.newConfig("healthcare", "hospital", "appointment", false))
	s.Require().NoError(err)

	all, err = s.svc.GetAllActive(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 2)

	// Update: cached by-name entry must not survive.
	rec, err := s.svc.GetByName(s.ctx, "healthcare")
	s.Require().NoError(err)
	updated := rec.Clone()
	updated.DisplayName = "Renamed"
	_, err = s.svc.Save(s.ctx, updated)
	s.Require().NoError(err)

	found, err := s.svc.GetByName(s.ctx, "healthcare")
	s.Require().NoError(err)
	s.Equal("Renamed", found.DisplayName)

	// Delete: every read path reflects the removal immediately.
	s.Require().NoError(s.svc.Delete(s.ctx, "healthcare"))

	all, err = s.svc.GetAllActive(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal("ecommerce", all[0].DomainName)

	_, err = s.svc.GetByName(s.ctx, "healthcare")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestDeleteKeepsRecordAddressable() {
	_, err := s.svc.Save(s.ctx, s.newConfig("ecommerce", "store", "order", true))
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Delete(s.ctx, "ecommerce"))

	exists, err := s.svc.Exists(s.ctx, "ecommerce")
	s.Require().NoError(err)
	s.True(exists, "soft delete must not erase the row")
}

func (s *ServiceSuite) TestDeleteIsIdempotent() {
	s.Require().NoError(s.svc.Delete(s.ctx, "never-existed"))

	_, err := s.svc.Save(s.ctx, s.newConfig("ecommerce", "store", "order", true))
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Delete(s.ctx, "ecommerce"))
	s.Require().NoError(s.svc.Delete(s.ctx, "ecommerce"))
	s.Require().NoError(s.svc.Delete(s.ctx, "ecommerce"))
}

func (s *ServiceSuite) TestDuplicateCreateConflictLeavesOriginal() {
	_, err := s.svc.Save(s.ctx, s.newConfig("ecommerce", "store", "order", true))
	s.Require().NoError(err)

	_, err = s.svc.Save(s.ctx, s.newConfig("ecommerce", "bazaar", "trade", false))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	found, err := s.svc.GetByName(s.ctx, "ecommerce")
	s.Require().NoError(err)
	s.Equal("store", found.Entities.ContextType)
}

func (s *ServiceSuite) TestQueryPathsAreCachedPerKey() {
	_, err := s.svc.Save(s.ctx, s.newConfig("healthcare", "hospital", "booking", false))
	s.Require().NoError(err)
	_, err = s.svc.Save(s.ctx, s.newConfig("cab-booking", "city", "booking", true))
	s.Require().NoError(err)

	byContext, err := s.svc.GetByContextType(s.ctx, "hospital")
	s.Require().NoError(err)
	s.Require().Len(byContext, 1)
	s.Equal("healthcare", byContext[0].DomainName)

	byTransaction, err := s.svc.GetByTransactionType(s.ctx, "booking")
	s.Require().NoError(err)
	s.Len(byTransaction, 2)

	payment, err := s.svc.GetPaymentRequired(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(payment, 1)
	s.Equal("cab-booking", payment[0].DomainName)
}

func (s *ServiceSuite) TestClearAllCaches() {
	_, err := s.svc.Save(s.ctx, s.newConfig("ecommerce", "store", "order", true))
	s.Require().NoError(err)

	_, err = s.svc.GetAllActive(s.ctx)
	s.Require().NoError(err)
	calls := s.store.findAll.Load()

	s.svc.ClearAllCaches()

	_, err = s.svc.GetAllActive(s.ctx)
	s.Require().NoError(err)
	s.Equal(calls+1, s.store.findAll.Load(), "cleared cache must refetch")
}

func (s *ServiceSuite) TestConcurrentGetByNameConverges() {
	saved, err := s.svc.Save(s.ctx, s.newConfig("ecommerce", "store", "order", true))
	s.Require().NoError(err)

	const goroutines = 20
	results := make([]*models.DomainConfig, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rec, err := s.svc.GetByName(s.ctx, "ecommerce")
			s.NoError(err)
			results[n] = rec
		}(i)
	}
	wg.Wait()

	for _, rec := range results {
		s.Require().NotNil(rec)
		s.Equal(saved.ID, rec.ID)
		s.Equal("Display ecommerce", rec.DisplayName)
	}

	// Duplicate population is acceptable, pathological amplification is not.
	s.LessOrEqual(s.store.findByName.Load(), int32(goroutines))
	s.GreaterOrEqual(s.store.findByName.Load(), int32(1))
}

// gateStore parks every FindByName until released, signalling when the
// first call arrives, so a test can hold a lookup in flight.
type gateStore struct {
	*store.InMemory
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (g *gateStore) FindByName(ctx context.Context, name string) (*models.DomainConfig, error) {
	if g.calls.Add(1) == 1 {
		close(g.entered)
	}
	<-g.release
	return g.InMemory.FindByName(ctx, name)
}

func (s *ServiceSuite) TestConcurrentMissesShareOneLookup() {
	gate := &gateStore{
		InMemory: store.NewInMemory(),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	c := cache.New(time.Minute, 100)
	defer c.Stop()
	svc := New(gate, c)

	s.Require().NoError(gate.InMemory.Save(s.ctx, s.newConfig("ecommerce", "store", "order", true)))

	const goroutines = 10
	results := make([]*models.DomainConfig, goroutines)
	errs := make([]error, goroutines)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = svc.GetByName(s.ctx, "ecommerce")
	}()
	<-gate.entered

	// The leader is parked inside the store; everyone else must join its
	// flight rather than open their own.
	for i := 1; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results[n], errs[n] = svc.GetByName(s.ctx, "ecommerce")
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(gate.release)
	wg.Wait()

	for i := range results {
		s.Require().NoError(errs[i])
		s.Equal("ecommerce", results[i].DomainName)
	}
	s.Equal(int32(1), gate.calls.Load(), "followers must share the in-flight lookup")
}

// staleWriteStore sneaks a competing update in front of the first
// ID-carrying save, making that save's version check fail.
type staleWriteStore struct {
	*store.InMemory
	raced bool
}

func (r *staleWriteStore) Save(ctx context.Context, rec *models.DomainConfig) error {
	if rec.ID != "" && !r.raced {
		r.raced = true
		other, err := r.InMemory.FindByName(ctx, rec.DomainName)
		if err == nil {
			other.DisplayName = "Concurrent Writer"
			if err := r.InMemory.Save(ctx, other); err != nil {
				return err
			}
		}
	}
	return r.InMemory.Save(ctx, rec)
}

func (s *ServiceSuite) TestDeleteLosingRaceSurfacesConflict() {
	st := &staleWriteStore{InMemory: store.NewInMemory()}
	c := cache.New(time.Minute, 100)
	defer c.Stop()
	svc := New(st, c)

	_, err := svc.Save(s.ctx, s.newConfig("ecommerce", "store", "order", true))
	s.Require().NoError(err)

	err = svc.Delete(s.ctx, "ecommerce")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	found, err := st.InMemory.FindByName(s.ctx, "ecommerce")
	s.Require().NoError(err)
	s.True(found.IsActive, "losing delete must not flip the winner's record")
}
