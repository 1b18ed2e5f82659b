package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestCollectorRecordsGraphCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	collector.SetGraphCounts(12, 24, 1, 3)
	collector.ObserveGraphBuild(0.02)

	if got := testutil.ToFloat64(collector.GraphLinks.WithLabelValues("internal")); got != 12 {
		t.Fatalf("fracture_graph_links{kind=internal} = %v, want 12", got)
	}
	if got := testutil.ToFloat64(collector.GraphLinks.WithLabelValues("external")); got != 24 {
		t.Fatalf("fracture_graph_links{kind=external} = %v, want 24", got)
	}
	if got := testutil.ToFloat64(collector.GraphComponents); got != 1 {
		t.Fatalf("fracture_graph_components = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.GraphAsymmetricFace); got != 3 {
		t.Fatalf("fracture_graph_asymmetric_faces = %v, want 3", got)
	}
	if count := histogramSampleCount(t, reg, "fracture_graph_build_duration_seconds", nil); count != 1 {
		t.Fatalf("build duration sample_count = %d, want 1", count)
	}
}

func TestCollectorRecordsInfiltrations(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	collector.ObserveInfiltration("max_depth", 10)
	collector.ObserveInfiltration("max_depth", 10)
	collector.ObserveInfiltration("water_exhausted", 3)
	collector.SetBrokenLinks(5)

	if got := testutil.ToFloat64(collector.Infiltrations.WithLabelValues("max_depth")); got != 2 {
		t.Fatalf("fracture_infiltrations_total{exit=max_depth} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.Infiltrations.WithLabelValues("water_exhausted")); got != 1 {
		t.Fatalf("fracture_infiltrations_total{exit=water_exhausted} = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "fracture_infiltration_path_length", nil); count != 3 {
		t.Fatalf("path length sample_count = %d, want 3", count)
	}
	if got := testutil.ToFloat64(collector.LinksBroken); got != 5 {
		t.Fatalf("fracture_links_broken = %v, want 5", got)
	}
}

func TestNewCollectorReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	second, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("second NewCollector: %v", err)
	}
	first.SetBrokenLinks(4)
	if got := testutil.ToFloat64(second.LinksBroken); got != 4 {
		t.Fatalf("second collector sees %v, want shared gauge value 4", got)
	}

	var nilCollector *Collector
	nilCollector.SetGraphCounts(1, 2, 3, 4)
	nilCollector.ObserveInfiltration("none", 0)
}

func TestMetricsHandlerExposesFractureMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	collector.SetGraphCounts(3, 4, 5, 6)
	collector.ObserveInfiltration("no_next_link_wall", 2)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"fracture_graph_links",
		"fracture_graph_components",
		"fracture_graph_asymmetric_faces",
		"fracture_infiltrations_total",
		"fracture_infiltration_path_length",
		"fracture_links_broken",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
	if !strings.Contains(body, `exit="no_next_link_wall"`) {
		t.Fatalf("/metrics output missing exit label: %s", body)
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
