package core

import (
	"context"
	"testing"

	"github.com/signalsfoundry/fracture-sim/model"
)

func TestSimulationEngineNotifiesListeners(t *testing.T) {
	cont := mustGrid(t, 3, 3, 3)
	cfg := DefaultSimConfig()
	cfg.NumInfiltrations = 6

	se, err := NewSimulationEngine(context.Background(), cont, cfg)
	if err != nil {
		t.Fatalf("NewSimulationEngine error: %v", err)
	}
	defer se.Close()

	var seen []int
	se.RegisterIterationListener(func(i int, res InfiltrationResult) {
		seen = append(seen, i)
		if res.Iteration != i+1 {
			t.Errorf("iteration %d reported as %d", i, res.Iteration)
		}
	})

	out, err := se.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(seen) != cfg.NumInfiltrations || len(out.Results) != cfg.NumInfiltrations {
		t.Fatalf("listener saw %d, results %d, want %d", len(seen), len(out.Results), cfg.NumInfiltrations)
	}
	for i, v := range seen {
		if v != i {
			t.Fatalf("listener order = %v", seen)
		}
	}
}

func TestSimulationEngineExposesAirCells(t *testing.T) {
	cont := mustGrid(t, 3, 3, 3)
	se, err := NewSimulationEngine(context.Background(), cont, DefaultSimConfig())
	if err != nil {
		t.Fatalf("NewSimulationEngine error: %v", err)
	}

	center := model.CellID(13)
	if err := cont.SetCellState(center, model.StateAir); err != nil {
		t.Fatalf("SetCellState error: %v", err)
	}
	for _, key := range se.Graph.KeysForCell(center) {
		l, _ := se.Graph.Link(key)
		if !l.AirLink {
			t.Fatalf("link %s of air cell not exposed", key)
		}
	}
	if got := len(se.Graph.AirLinks()); got != len(se.Graph.External())+6 {
		t.Fatalf("air links = %d, want walls plus 6", got)
	}

	se.Close()
	if err := cont.SetCellState(0, model.StateAir); err != nil {
		t.Fatalf("SetCellState error: %v", err)
	}
	if got := len(se.Graph.AirLinks()); got != len(se.Graph.External())+6 {
		t.Fatalf("closed engine still reacts: air links = %d", got)
	}
}

func TestSimulationEngineRejectsInvalidConfig(t *testing.T) {
	if _, err := NewSimulationEngine(context.Background(), mustGrid(t, 1, 1, 1), SimConfig{}); err == nil {
		t.Fatalf("want error for zero config")
	}
}

func TestClosedEnginesStopReacting(t *testing.T) {
	cont := mustGrid(t, 3, 3, 3)
	first, err := NewSimulationEngine(context.Background(), cont, DefaultSimConfig())
	if err != nil {
		t.Fatalf("NewSimulationEngine error: %v", err)
	}
	second, err := NewSimulationEngine(context.Background(), cont, DefaultSimConfig())
	if err != nil {
		t.Fatalf("NewSimulationEngine error: %v", err)
	}
	first.Close()
	second.Close()

	if err := cont.SetCellState(13, model.StateAir); err != nil {
		t.Fatalf("SetCellState error: %v", err)
	}
	for i, se := range []*SimulationEngine{first, second} {
		if got, want := len(se.Graph.AirLinks()), len(se.Graph.External()); got != want {
			t.Fatalf("engine %d: air links = %d after Close, want %d", i, got, want)
		}
	}
}
