package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics of a fracture run. It satisfies
// the graph and simulation recorder interfaces of the core package.
type Collector struct {
	gatherer prometheus.Gatherer

	GraphLinks          *prometheus.GaugeVec
	GraphComponents     prometheus.Gauge
	GraphAsymmetricFace prometheus.Gauge
	GraphBuildDuration  prometheus.Histogram

	Infiltrations       *prometheus.CounterVec
	InfiltrationPathLen prometheus.Histogram
	LinksBroken         prometheus.Gauge
}

// NewCollector registers fracture metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	links, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fracture_graph_links",
		Help: "Number of links in the current link graph, labeled by kind (internal or external).",
	}, []string{"kind"}), "fracture_graph_links")
	if err != nil {
		return nil, err
	}
	components, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fracture_graph_components",
		Help: "Number of connected cell components in the current link graph.",
	}), "fracture_graph_components")
	if err != nil {
		return nil, err
	}
	asymmetric, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fracture_graph_asymmetric_faces",
		Help: "Number of cell faces skipped because their neighbor could not be paired.",
	}), "fracture_graph_asymmetric_faces")
	if err != nil {
		return nil, err
	}
	buildDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fracture_graph_build_duration_seconds",
		Help:    "Duration of link graph builds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}), "fracture_graph_build_duration_seconds")
	if err != nil {
		return nil, err
	}

	c := &Collector{
		gatherer:            gatherer,
		GraphLinks:          links,
		GraphComponents:     components,
		GraphAsymmetricFace: asymmetric,
		GraphBuildDuration:  buildDuration,
	}
	if err := c.registerSimMetrics(reg); err != nil {
		return nil, err
	}
	return c, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *Collector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.Gatherer()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetGraphCounts updates the link graph gauges.
func (c *Collector) SetGraphCounts(internal, external, components, unresolvedFaces int) {
	if c == nil {
		return
	}
	if c.GraphLinks != nil {
		c.GraphLinks.WithLabelValues("internal").Set(float64(internal))
		c.GraphLinks.WithLabelValues("external").Set(float64(external))
	}
	if c.GraphComponents != nil {
		c.GraphComponents.Set(float64(components))
	}
	if c.GraphAsymmetricFace != nil {
		c.GraphAsymmetricFace.Set(float64(unresolvedFaces))
	}
}

// ObserveGraphBuild records one build duration.
func (c *Collector) ObserveGraphBuild(seconds float64) {
	if c == nil || c.GraphBuildDuration == nil {
		return
	}
	c.GraphBuildDuration.Observe(seconds)
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
