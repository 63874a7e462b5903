package service

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"visitor-management/models"
)

// Metrics tracks pass issuance and gate traffic.
type Metrics struct {
	PassesIssued   prometheus.Counter
	GateScans      *prometheus.CounterVec
	ScanRejections *prometheus.CounterVec
	SweptExpired   prometheus.Counter
	ScanDuration   prometheus.Histogram
}

// NewMetrics registers the collectors with reg. Tests pass a fresh
// prometheus.NewRegistry() so engines can be built repeatedly.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PassesIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "visitor_passes_issued_total",
			Help: "Total number of visitor passes issued",
		}),
		GateScans: f.NewCounterVec(prometheus.CounterOpts{
			Name: "visitor_gate_scans_total",
			Help: "Accepted gate scans by resulting action",
		}, []string{"action"}),
		ScanRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "visitor_gate_scan_rejections_total",
			Help: "Rejected gate scans by reason",
		}, []string{"reason"}),
		SweptExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "visitor_passes_expired_by_sweep_total",
			Help: "Passes moved to expired by the background sweep",
		}),
		ScanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "visitor_gate_scan_duration_seconds",
			Help:    "Duration of gate scans including lock wait",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func (m *Metrics) IncrementIssued() {
	m.PassesIssued.Inc()
}

func (m *Metrics) RecordScan(action models.CheckAction) {
	m.GateScans.WithLabelValues(string(action)).Inc()
}

// RecordRejection buckets err into a small fixed label set.
func (m *Metrics) RecordRejection(err error) {
	reason := "error"
	switch {
	case errors.Is(err, ErrNotYetValid):
		reason = "not_yet_valid"
	case errors.Is(err, ErrExpired):
		reason = "expired"
	case errors.Is(err, ErrPassCancelled):
		reason = "cancelled"
	case errors.Is(err, ErrNotFound):
		reason = "not_found"
	case errors.Is(err, ErrConflict):
		reason = "conflict"
	}
	m.ScanRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) AddSwept(n int64) {
	m.SweptExpired.Add(float64(n))
}

func (m *Metrics) ObserveScan(start time.Time) {
	m.ScanDuration.Observe(time.Since(start).Seconds())
}
