package core

import (
	"context"

	"github.com/pkg/errors"

	"github.com/signalsfoundry/fracture-sim/internal/logging"
	"github.com/signalsfoundry/fracture-sim/kb"
	"github.com/signalsfoundry/fracture-sim/model"
)

// SimulationEngine ties a container, its link graph and a simulator
// together. It reacts to cell state changes: a cell turning to air exposes
// every link of the cell.
type SimulationEngine struct {
	Container *kb.Container
	Graph     *LinkGraph
	Simulator *Simulator

	iterationListeners []func(int, InfiltrationResult)
	unsubscribe        func()
	log                logging.Logger
}

type engineConfig struct {
	log       logging.Logger
	graphOpts []GraphOption
	simOpts   []SimOption
}

// EngineOption configures NewSimulationEngine.
type EngineOption func(*engineConfig)

// WithEngineLogger sets the logger of the engine, its graph and simulator.
func WithEngineLogger(l logging.Logger) EngineOption {
	return func(c *engineConfig) { c.log = logging.OrNoop(l) }
}

// WithEngineGraphOptions passes options to BuildLinkGraph.
func WithEngineGraphOptions(opts ...GraphOption) EngineOption {
	return func(c *engineConfig) { c.graphOpts = append(c.graphOpts, opts...) }
}

// WithEngineSimOptions passes options to NewSimulator.
func WithEngineSimOptions(opts ...SimOption) EngineOption {
	return func(c *engineConfig) { c.simOpts = append(c.simOpts, opts...) }
}

// NewSimulationEngine builds the link graph of cont and a simulator over
// it.
func NewSimulationEngine(ctx context.Context, cont *kb.Container, cfg SimConfig, opts ...EngineOption) (*SimulationEngine, error) {
	ec := engineConfig{log: logging.Noop()}
	for _, opt := range opts {
		opt(&ec)
	}

	graphOpts := append([]GraphOption{WithGraphLogger(ec.log)}, ec.graphOpts...)
	g, err := BuildLinkGraph(ctx, cont, graphOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "build link graph")
	}
	simOpts := append([]SimOption{WithSimLogger(ec.log)}, ec.simOpts...)
	sim, err := NewSimulator(g, cfg, simOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "create simulator")
	}

	se := &SimulationEngine{
		Container: cont,
		Graph:     g,
		Simulator: sim,
		log:       ec.log,
	}
	se.unsubscribe = cont.Subscribe(se.onContainerEvent)
	return se, nil
}

// RegisterIterationListener adds a callback run after every infiltration.
func (se *SimulationEngine) RegisterIterationListener(fn func(int, InfiltrationResult)) {
	se.iterationListeners = append(se.iterationListeners, fn)
}

// Run performs the configured number of infiltrations, notifying
// listeners after each one.
func (se *SimulationEngine) Run(ctx context.Context) (*RunResult, error) {
	cfg := se.Simulator.Config()
	out := &RunResult{Exits: make(map[ExitCondition]int)}

	for i := 0; i < cfg.NumInfiltrations; i++ {
		if err := ctx.Err(); err != nil {
			out.BrokenLinks = se.Graph.BrokenLinks()
			return out, errors.Wrapf(err, "stopped after %d infiltrations", i)
		}
		res := se.Simulator.Infiltrate(ctx)
		out.Results = append(out.Results, res)
		out.Exits[res.Exit]++

		for _, fn := range se.iterationListeners {
			fn(i, res)
		}
	}

	out.BrokenLinks = se.Graph.BrokenLinks()
	if m := se.Simulator.metrics; m != nil {
		m.SetBrokenLinks(out.BrokenLinks)
	}
	se.log.Info(ctx, "simulation finished",
		logging.Int("infiltrations", len(out.Results)),
		logging.Int("broken_links", out.BrokenLinks),
		logging.Int("air_links", len(se.Graph.AirLinks())),
	)
	return out, nil
}

// Close detaches the engine from the container.
func (se *SimulationEngine) Close() {
	if se.unsubscribe != nil {
		se.unsubscribe()
		se.unsubscribe = nil
	}
}

func (se *SimulationEngine) onContainerEvent(ev kb.Event) {
	if ev.Type != kb.EventCellStateUpdated || ev.State != model.StateAir {
		return
	}
	for _, key := range se.Graph.KeysForCell(ev.Cell) {
		if l, ok := se.Graph.Link(key); ok {
			l.AirLink = true
		}
	}
}
