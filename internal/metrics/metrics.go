// Package metrics provides optional Prometheus metrics for the portal.
//
// When InitRegistry has not been called every constructor returns a no-op
// implementation, so components can record unconditionally.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry. Safe to call more than once.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled returns true if InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}

// PortalMetrics records tree mutation outcomes.
type PortalMetrics interface {
	// ObserveMutation counts a tree mutation by operation and outcome
	ObserveMutation(op string, err error)

	// ObserveStorageFailure counts a mirror failure, including ones swallowed by rename/move
	ObserveStorageFailure(op string)

	// ObserveVisibilityCache counts overlay cache hits and misses
	ObserveVisibilityCache(hit bool)
}

type noopPortalMetrics struct{}

// NewNoopPortalMetrics returns a PortalMetrics that records nothing.
func NewNoopPortalMetrics() PortalMetrics { return noopPortalMetrics{} }

func (noopPortalMetrics) ObserveMutation(string, error) {}
func (noopPortalMetrics) ObserveStorageFailure(string)  {}
func (noopPortalMetrics) ObserveVisibilityCache(bool)   {}
