// Package cache holds the read-through cache regions in front of the store.
// The region set is fixed by the API surface: one region per query shape.
// Writes are rare relative to reads, so every write invalidates all regions
// in full rather than tracking affected keys. Capacity and TTL bounds are a
// safety net against unbounded growth and staleness, independent of the
// explicit invalidation.
package cache

import (
	"time"

	"github.com/jellydator/ttlcache/v3"

	"domainconfig/internal/domainconfig/models"
)

// Region names, used as metric labels.
const (
	RegionByName          = "domain_configs"
	RegionAllActive       = "all_domain_configs"
	RegionByContext       = "domains_by_context"
	RegionPaymentRequired = "payment_required_domains"
	RegionByTransaction   = "domains_by_transaction"
)

// Single-entry regions still need a key.
const singletonKey = "all"

const (
	DefaultTTL      = time.Hour
	DefaultCapacity = 1000
)

// Cache owns one ttlcache region per query shape. Entries are shared with
// callers and must be treated as read-only; mutating paths fetch from the
// store directly.
type Cache struct {
	byName          *ttlcache.Cache[string, *models.DomainConfig]
	allActive       *ttlcache.Cache[string, []*models.DomainConfig]
	byContext       *ttlcache.Cache[string, []*models.DomainConfig]
	paymentRequired *ttlcache.Cache[string, []*models.DomainConfig]
	byTransaction   *ttlcache.Cache[string, []*models.DomainConfig]
}

// New builds all regions and starts their expiry janitors. Call Stop when
// the process shuts down. TTL is expire-after-write: reads do not extend an
// entry's life.
func New(ttl time.Duration, capacity uint64) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity == 0 {
		capacity = DefaultCapacity
	}

	c := &Cache{
		byName:          newRegion[*models.DomainConfig](ttl, capacity),
		allActive:       newRegion[[]*models.DomainConfig](ttl, capacity),
		byContext:       newRegion[[]*models.DomainConfig](ttl, capacity),
		paymentRequired: newRegion[[]*models.DomainConfig](ttl, capacity),
		byTransaction:   newRegion[[]*models.DomainConfig](ttl, capacity),
	}
	go c.byName.Start()
	go c.allActive.Start()
	go c.byContext.Start()
	go c.paymentRequired.Start()
	go c.byTransaction.Start()
	return c
}

func newRegion[V any](ttl time.Duration, capacity uint64) *ttlcache.Cache[string, V] {
	return ttlcache.New(
		ttlcache.WithTTL[string, V](ttl),
		ttlcache.WithCapacity[string, V](capacity),
		ttlcache.WithDisableTouchOnHit[string, V](),
	)
}

func (c *Cache) GetByName(name string) (*models.DomainConfig, bool) {
	item := c.byName.Get(name)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

func (c *Cache) SetByName(name string, rec *models.DomainConfig) {
	c.byName.Set(name, rec, ttlcache.DefaultTTL)
}

func (c *Cache) GetAllActive() ([]*models.DomainConfig, bool) {
	return getList(c.allActive, singletonKey)
}

func (c *Cache) SetAllActive(recs []*models.DomainConfig) {
	c.allActive.Set(singletonKey, recs, ttlcache.DefaultTTL)
}

func (c *Cache) GetByContext(contextType string) ([]*models.DomainConfig, bool) {
	return getList(c.byContext, contextType)
}

func (c *Cache) SetByContext(contextType string, recs []*models.DomainConfig) {
	c.byContext.Set(contextType, recs, ttlcache.DefaultTTL)
}

func (c *Cache) GetPaymentRequired() ([]*models.DomainConfig, bool) {
	return getList(c.paymentRequired, singletonKey)
}

func (c *Cache) SetPaymentRequired(recs []*models.DomainConfig) {
	c.paymentRequired.Set(singletonKey, recs, ttlcache.DefaultTTL)
}

func (c *Cache) GetByTransaction(transactionType string) ([]*models.DomainConfig, bool) {
	return getList(c.byTransaction, transactionType)
}

func (c *Cache) SetByTransaction(transactionType string, recs []*models.DomainConfig) {
	c.byTransaction.Set(transactionType, recs, ttlcache.DefaultTTL)
}

// InvalidateAll empties every region.
func (c *Cache) InvalidateAll() {
	c.byName.DeleteAll()
	c.allActive.DeleteAll()
	c.byContext.DeleteAll()
	c.paymentRequired.DeleteAll()
	c.byTransaction.DeleteAll()
}

// Stop halts the expiry janitors.
func (c *Cache) Stop() {
	c.byName.Stop()
	c.allActive.Stop()
	c.byContext.Stop()
	c.paymentRequired.Stop()
	c.byTransaction.Stop()
}

func getList(region *ttlcache.Cache[string, []*models.DomainConfig], key string) ([]*models.DomainConfig, bool) {
	item := region.Get(key)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}
