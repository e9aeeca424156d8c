// Package metrics exposes the engine counters to prometheus. A nil *Metrics
// is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"chosenoffset.com/lumen2d/internal/core/grid"
)

const (
	kindLabel  = "kind"
	stateLabel = "state"
	gridLabel  = "grid"

	namespace = "lumen2d"
)

// Collision kinds.
const (
	KindBody = "body"
	KindTile = "tile"
	KindRect = "rect"
	KindLine = "line"
)

// Metrics holds the engine collectors.
type Metrics struct {
	reg prometheus.Registerer

	collisions      *prometheus.CounterVec
	lights          *prometheus.CounterVec
	shadowTriangles prometheus.Counter
	shadowDropped   prometheus.Counter
	frames          prometheus.Counter
	frameDuration   prometheus.Histogram
}

// New registers the collectors with reg. A nil reg creates unregistered
// collectors.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		collisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collisions_total",
			Help:      "The number of resolved or reported collisions.",
		}, []string{kindLabel}),
		lights: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lights_total",
			Help:      "The number of lights that reached each render state.",
		}, []string{stateLabel}),
		shadowTriangles: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shadow_triangles_total",
			Help:      "The number of shadow triangles written to the stencil.",
		}),
		shadowDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shadow_dropped_edges_total",
			Help:      "The number of casting edges dropped because the shadow buffer was full.",
		}),
		frames: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "The number of rendered frames.",
		}),
		frameDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_seconds",
			Help:      "Time spent building a frame.",
			Buckets:   []float64{.0005, .001, .002, .004, .008, .016, .033, .066},
		}),
	}
}

// Collision counts one collision of the given kind.
func (m *Metrics) Collision(kind string) {
	if m == nil {
		return
	}
	m.collisions.WithLabelValues(kind).Inc()
}

// Light counts one light reaching state.
func (m *Metrics) Light(state string) {
	if m == nil {
		return
	}
	m.lights.WithLabelValues(state).Inc()
}

// Shadow records one shadow pass.
func (m *Metrics) Shadow(triangles, dropped int) {
	if m == nil {
		return
	}
	m.shadowTriangles.Add(float64(triangles))
	if dropped > 0 {
		m.shadowDropped.Add(float64(dropped))
	}
}

// Frame records one rendered frame.
func (m *Metrics) Frame(d time.Duration) {
	if m == nil {
		return
	}
	m.frames.Inc()
	m.frameDuration.Observe(d.Seconds())
}

// StatsSource is satisfied by every *grid.Grid.
type StatsSource interface {
	Stats() grid.Stats
}

// RegisterGrid exports the query counters and set sizes of g under the
// given grid label.
func (m *Metrics) RegisterGrid(name string, g StatsSource) {
	if m == nil {
		return
	}
	f := promauto.With(m.reg)
	labels := prometheus.Labels{gridLabel: name}

	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "grid_queries_total",
		Help:        "The number of spatial queries started.",
		ConstLabels: labels,
	}, func() float64 { return float64(g.Stats().Queries) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "grid_yielded_total",
		Help:        "The number of objects returned by spatial queries.",
		ConstLabels: labels,
	}, func() float64 { return float64(g.Stats().Yielded) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "grid_objects",
		Help:        "The number of live objects in the grid.",
		ConstLabels: labels,
	}, func() float64 { return float64(g.Stats().Objects) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "grid_global_objects",
		Help:        "The number of objects too large for cell indexing.",
		ConstLabels: labels,
	}, func() float64 { return float64(g.Stats().Global) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "grid_outer_objects",
		Help:        "The number of objects reaching past the grid extent.",
		ConstLabels: labels,
	}, func() float64 { return float64(g.Stats().Outer) })
}
