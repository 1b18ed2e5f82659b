package observability

import "github.com/prometheus/client_golang/prometheus"

func (c *Collector) registerSimMetrics(reg prometheus.Registerer) error {
	infiltrations, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fracture_infiltrations_total",
		Help: "Total number of infiltration walks, labeled by exit condition.",
	}, []string{"exit"}), "fracture_infiltrations_total")
	if err != nil {
		return err
	}
	pathLen, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fracture_infiltration_path_length",
		Help:    "Number of links visited per infiltration walk.",
		Buckets: prometheus.LinearBuckets(1, 2, 12),
	}), "fracture_infiltration_path_length")
	if err != nil {
		return err
	}
	broken, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fracture_links_broken",
		Help: "Number of links whose life has been used up.",
	}), "fracture_links_broken")
	if err != nil {
		return err
	}

	c.Infiltrations = infiltrations
	c.InfiltrationPathLen = pathLen
	c.LinksBroken = broken
	return nil
}

// ObserveInfiltration counts one walk and records its length.
func (c *Collector) ObserveInfiltration(exit string, pathLength int) {
	if c == nil {
		return
	}
	if c.Infiltrations != nil {
		c.Infiltrations.WithLabelValues(exit).Inc()
	}
	if c.InfiltrationPathLen != nil {
		c.InfiltrationPathLen.Observe(float64(pathLength))
	}
}

// SetBrokenLinks updates the broken link gauge.
func (c *Collector) SetBrokenLinks(n int) {
	if c == nil || c.LinksBroken == nil {
		return
	}
	c.LinksBroken.Set(float64(n))
}
