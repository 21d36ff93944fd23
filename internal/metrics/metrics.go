// Package metrics exposes Prometheus collectors for image acquisition.
//
// All metrics are namespaced "scangallery":
//
//   - images_acquired_total (counter, label origin): images appended to the gallery.
//   - scan_outcomes_total (counter, labels origin, outcome): how each acquisition ended,
//     e.g. success, failed, cancelled, empty, unavailable, blocked, error.
//   - gallery_images (gauge): current length of the gallery list.
//   - manager_readiness (gauge, label state): 1 for the current managed service state.
package metrics

import (
	"github.com/lehigh-university-libraries/scangallery/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels recorded by the acquisition paths
const (
	OutcomeSuccess     = "success"
	OutcomeFailed      = "failed"
	OutcomeCancelled   = "cancelled"
	OutcomeEmpty       = "empty"
	OutcomeUnavailable = "unavailable"
	OutcomeBlocked     = "blocked"
	OutcomeError       = "error"
	OutcomeRejected    = "rejected"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	imagesAcquired *prometheus.CounterVec
	scanOutcomes   *prometheus.CounterVec
	galleryImages  prometheus.Gauge
	readiness      *prometheus.GaugeVec
}

// New registers all collectors with registry (prometheus.DefaultRegisterer when nil).
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		imagesAcquired: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scangallery",
			Name:      "images_acquired_total",
			Help:      "Images appended to the gallery, by acquisition path",
		}, []string{"origin"}),
		scanOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scangallery",
			Name:      "scan_outcomes_total",
			Help:      "Acquisition attempts by path and outcome",
		}, []string{"origin", "outcome"}),
		galleryImages: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "scangallery",
			Name:      "gallery_images",
			Help:      "Number of images currently held by the gallery",
		}),
		readiness: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "scangallery",
			Name:      "manager_readiness",
			Help:      "Managed scan service connection state (1 for the current state)",
		}, []string{"state"}),
	}
}

func (m *Metrics) ImagesAcquired(origin models.Origin, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.imagesAcquired.WithLabelValues(string(origin)).Add(float64(n))
}

func (m *Metrics) Outcome(origin models.Origin, outcome string) {
	if m == nil {
		return
	}
	m.scanOutcomes.WithLabelValues(string(origin), outcome).Inc()
}

func (m *Metrics) GallerySize(n int) {
	if m == nil {
		return
	}
	m.galleryImages.Set(float64(n))
}

// Readiness flips the gauge so only the current state reads 1.
func (m *Metrics) Readiness(current models.Readiness) {
	if m == nil {
		return
	}
	for _, r := range []models.Readiness{models.ReadinessUnknown, models.ReadinessOpen, models.ReadinessClosed, models.ReadinessBlocked} {
		v := 0.0
		if r == current {
			v = 1
		}
		m.readiness.WithLabelValues(r.String()).Set(v)
	}
}
