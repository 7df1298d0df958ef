package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the domain configuration
// service. Construct once at startup; components accept a nil *Metrics and
// skip recording.
type Metrics struct {
	ConfigsCreated prometheus.Counter
	ConfigsUpdated prometheus.Counter
	ConfigsDeleted prometheus.Counter
	SeedsLoaded    prometheus.Counter
	SeedsSkipped   prometheus.Counter
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
}

// New creates and registers all metrics on the default registerer.
func New() *Metrics {
	return &Metrics{
		ConfigsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "domainconfig_configs_created_total",
			Help: "Total number of domain configurations created",
		}),
		ConfigsUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "domainconfig_configs_updated_total",
			Help: "Total number of domain configuration updates",
		}),
		ConfigsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "domainconfig_configs_deleted_total",
			Help: "Total number of domain configurations soft-deleted",
		}),
		SeedsLoaded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "domainconfig_seeds_loaded_total",
			Help: "Total number of seed documents persisted at bootstrap",
		}),
		SeedsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "domainconfig_seeds_skipped_total",
			Help: "Total number of seed documents skipped or failed",
		}),
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domainconfig_cache_hits_total",
			Help: "Cache hits per region",
		}, []string{"region"}),
		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domainconfig_cache_misses_total",
			Help: "Cache misses per region",
		}, []string{"region"}),
	}
}

// RecordCacheHit increments the hit counter for a region.
func (m *Metrics) RecordCacheHit(region string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(region).Inc()
}

// RecordCacheMiss increments the miss counter for a region.
func (m *Metrics) RecordCacheMiss(region string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(region).Inc()
}
