// Package metrics exports classification and validation counters in the
// Prometheus format. Collectors are registered on a caller-supplied
// registerer so tests and one-shot CLI runs never touch the global registry.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/echoflaresat/sasprobe/surface"
	"github.com/echoflaresat/sasprobe/validation"
)

const (
	metricsNamespace    = "sasprobe"
	classifySubsystem   = "classify"
	validationSubsystem = "validation"
	backendLabel        = "backend"
	verdictLabel        = "verdict"
	stageLabel          = "stage"
)

// Metrics holds the sasprobe collectors.
type Metrics struct {
	// AtomsTotal counts classified atoms.
	// Labels: backend, verdict (surface, internal)
	AtomsTotal *prometheus.CounterVec

	// StagesTotal counts atoms by the stage that decided them.
	// Labels: backend, stage
	StagesTotal *prometheus.CounterVec

	// OverflowsTotal counts atoms whose cutting faces exceeded the capacity.
	OverflowsTotal *prometheus.CounterVec

	// PassDurationSeconds measures whole classification passes.
	PassDurationSeconds *prometheus.HistogramVec

	// FacesPerAtom is the distribution of cutting face counts.
	FacesPerAtom prometheus.Histogram

	// PlaneCacheLookups counts radical plane cache lookups.
	// Labels: result (hit, miss)
	PlaneCacheLookups *prometheus.CounterVec

	ValidationMismatches       prometheus.Counter
	ValidationUnconfirmed      prometheus.Counter
	SampledAreaSquareAngstroms prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		AtomsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: classifySubsystem,
				Name:      "atoms_total",
				Help:      "Classified atoms by verdict.",
			},
			[]string{backendLabel, verdictLabel},
		),
		StagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: classifySubsystem,
				Name:      "decisions_total",
				Help:      "Classified atoms by deciding stage.",
			},
			[]string{backendLabel, stageLabel},
		),
		OverflowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: classifySubsystem,
				Name:      "face_overflows_total",
				Help:      "Atoms that hit the cutting face capacity.",
			},
			[]string{backendLabel},
		),
		PassDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: classifySubsystem,
				Name:      "pass_duration_seconds",
				Help:      "Duration of classification passes.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{backendLabel},
		),
		FacesPerAtom: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: classifySubsystem,
				Name:      "faces_per_atom",
				Help:      "Cutting faces per classified atom.",
				Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64, 128, 256},
			},
		),
		PlaneCacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: classifySubsystem,
				Name:      "plane_cache_lookups_total",
				Help:      "Radical plane cache lookups by result.",
			},
			[]string{"result"},
		),
		ValidationMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: validationSubsystem,
			Name:      "mismatches_total",
			Help:      "Internal atoms with an exposed sample.",
		}),
		ValidationUnconfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: validationSubsystem,
			Name:      "unconfirmed_total",
			Help:      "Surface atoms without an exposed sample.",
		}),
		SampledAreaSquareAngstroms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: validationSubsystem,
			Name:      "sampled_area_square_angstroms",
			Help:      "Accessible area of the checked atoms estimated by sampling.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.AtomsTotal,
		m.StagesTotal,
		m.OverflowsTotal,
		m.PassDurationSeconds,
		m.FacesPerAtom,
		m.PlaneCacheLookups,
		m.ValidationMismatches,
		m.ValidationUnconfirmed,
		m.SampledAreaSquareAngstroms,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// ObservePass records the outcome of one pass on backend.
func (m *Metrics) ObservePass(backend string, stats surface.PassStats) {
	m.AtomsTotal.WithLabelValues(backend, surface.Surface.String()).Add(float64(stats.Surface))
	m.AtomsTotal.WithLabelValues(backend, surface.Internal.String()).Add(float64(stats.Internal))
	for stage, n := range stats.Stages {
		if n > 0 {
			m.StagesTotal.WithLabelValues(backend, surface.Stage(stage).String()).Add(float64(n))
		}
	}
	m.OverflowsTotal.WithLabelValues(backend).Add(float64(stats.Overflows))
	m.PassDurationSeconds.WithLabelValues(backend).Observe(stats.Duration.Seconds())
	for _, n := range stats.FaceCounts {
		m.FacesPerAtom.Observe(float64(n))
	}
	m.PlaneCacheLookups.WithLabelValues("hit").Add(float64(stats.CacheHits))
	m.PlaneCacheLookups.WithLabelValues("miss").Add(float64(stats.CacheMisses))
}

// ObserveValidation records a sampling cross-check.
func (m *Metrics) ObserveValidation(report validation.Report) {
	m.ValidationMismatches.Add(float64(len(report.Mismatches)))
	m.ValidationUnconfirmed.Add(float64(len(report.Unconfirmed)))
	m.SampledAreaSquareAngstroms.Set(report.Area)
}

// WriteTextfile dumps everything gathered by g to path, in the format the
// node exporter textfile collector reads.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
