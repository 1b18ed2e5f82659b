package core

// GraphMetricsRecorder receives link graph figures after each build.
type GraphMetricsRecorder interface {
	SetGraphCounts(internal, external, components, unresolvedFaces int)
	ObserveGraphBuild(seconds float64)
}

// SimMetricsRecorder receives per-infiltration outcomes.
type SimMetricsRecorder interface {
	ObserveInfiltration(exit string, pathLength int)
	SetBrokenLinks(n int)
}
