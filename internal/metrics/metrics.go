// Package metrics defines the Prometheus collectors exported by the
// resolution context and the catalog cache.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Resolution counts token resolution activity. A nil *Resolution is valid
// and records nothing.
type Resolution struct {
	Lookups   *prometheus.CounterVec
	CacheHits *prometheus.CounterVec
	Failures  *prometheus.CounterVec
	Packages  prometheus.Counter
}

// NewResolution creates unregistered resolution collectors.
func NewResolution() *Resolution {
	return &Resolution{
		Lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compcache_resolver_lookups_total",
				Help: "Total number of underlying entity lookups performed by the resolver.",
			},
			[]string{"kind"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compcache_resolver_cache_hits_total",
				Help: "Total number of resolutions answered from the resolver cache.",
			},
			[]string{"kind"},
		),
		Failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compcache_resolver_failures_total",
				Help: "Total number of lookups that failed with a resolution error.",
			},
			[]string{"kind"},
		),
		Packages: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "compcache_resolver_packages_loaded_total",
				Help: "Total number of packages loaded to resolve tokens.",
			},
		),
	}
}

// Register registers every collector with reg.
func (m *Resolution) Register(reg prometheus.Registerer) error {
	return registerAll(reg, m.Lookups, m.CacheHits, m.Failures, m.Packages)
}

// Lookup records an underlying lookup and its outcome.
func (m *Resolution) Lookup(kind string, err error) {
	if m == nil {
		return
	}

	m.Lookups.WithLabelValues(kind).Inc()
	if err != nil {
		m.Failures.WithLabelValues(kind).Inc()
	}
}

// Hit records a cached answer.
func (m *Resolution) Hit(kind string) {
	if m == nil {
		return
	}

	m.CacheHits.WithLabelValues(kind).Inc()
}

// PackageLoaded records a package load.
func (m *Resolution) PackageLoaded() {
	if m == nil {
		return
	}

	m.Packages.Inc()
}

// Cache counts catalog save and load passes. A nil *Cache is valid.
type Cache struct {
	BytesWritten prometheus.Counter
	BytesRead    prometheus.Counter
	PartsWritten prometheus.Counter
	PartsRead    prometheus.Counter
}

// NewCache creates unregistered cache collectors.
func NewCache() *Cache {
	return &Cache{
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "compcache_cache_bytes_written_total",
			Help: "Total number of bytes written by catalog saves.",
		}),
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "compcache_cache_bytes_read_total",
			Help: "Total number of bytes consumed by catalog loads.",
		}),
		PartsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "compcache_cache_parts_written_total",
			Help: "Total number of part definitions written.",
		}),
		PartsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "compcache_cache_parts_read_total",
			Help: "Total number of part definitions read.",
		}),
	}
}

// Register registers every collector with reg.
func (m *Cache) Register(reg prometheus.Registerer) error {
	return registerAll(reg, m.BytesWritten, m.BytesRead, m.PartsWritten, m.PartsRead)
}

// Saved records a completed save pass.
func (m *Cache) Saved(bytes int64, parts int) {
	if m == nil {
		return
	}

	m.BytesWritten.Add(float64(bytes))
	m.PartsWritten.Add(float64(parts))
}

// Loaded records a completed load pass.
func (m *Cache) Loaded(bytes int64, parts int) {
	if m == nil {
		return
	}

	m.BytesRead.Add(float64(bytes))
	m.PartsRead.Add(float64(parts))
}

func registerAll(reg prometheus.Registerer, cs ...prometheus.Collector) error {
	var errs []error
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
