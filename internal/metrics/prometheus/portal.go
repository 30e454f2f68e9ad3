package prometheus

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"portal/internal/domain"
	"portal/internal/metrics"
)

type portalMetrics struct {
	mutationsTotal       *prometheus.CounterVec
	storageFailuresTotal *prometheus.CounterVec
	visibilityCache      *prometheus.CounterVec
}

// NewPortalMetrics creates Prometheus-backed PortalMetrics.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewPortalMetrics() metrics.PortalMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopPortalMetrics()
	}

	reg := metrics.GetRegistry()

	return &portalMetrics{
		mutationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_tree_mutations_total",
				Help: "Total number of folder, document and share mutations by operation and status",
			},
			[]string{"operation", "status"},
		),
		storageFailuresTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_storage_failures_total",
				Help: "Storage mirror failures by operation, including those tolerated after commit",
			},
			[]string{"operation"},
		),
		visibilityCache: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_visibility_cache_lookups_total",
				Help: "Shared folder overlay cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

func (m *portalMetrics) ObserveMutation(op string, err error) {
	m.mutationsTotal.WithLabelValues(op, statusLabel(err)).Inc()
}

func (m *portalMetrics) ObserveStorageFailure(op string) {
	m.storageFailuresTotal.WithLabelValues(op).Inc()
}

func (m *portalMetrics) ObserveVisibilityCache(hit bool) {
	if hit {
		m.visibilityCache.WithLabelValues("hit").Inc()
		return
	}
	m.visibilityCache.WithLabelValues("miss").Inc()
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrStorageUnavailable):
		return "storage_unavailable"
	default:
		return "error"
	}
}
