package core

import (
	"context"
	"math/rand/v2"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/fracture-sim/internal/logging"
	"github.com/signalsfoundry/fracture-sim/model"
)

// ExitCondition tells why a walk stopped.
type ExitCondition int

const (
	ExitNone ExitCondition = iota
	ExitWaterExhausted
	ExitMaxDepth
	ExitNoNextLinkWall
	ExitNoNextLinkDeadEnd
	ExitNoEntryLink
)

func (e ExitCondition) String() string {
	switch e {
	case ExitWaterExhausted:
		return "water_exhausted"
	case ExitMaxDepth:
		return "max_depth"
	case ExitNoNextLinkWall:
		return "no_next_link_wall"
	case ExitNoNextLinkDeadEnd:
		return "no_next_link_dead_end"
	case ExitNoEntryLink:
		return "no_entry_link"
	default:
		return "none"
	}
}

// PathStep is one visited link and the water left after visiting it.
type PathStep struct {
	Key   LinkKey
	Water float64
}

// InfiltrationResult summarizes one walk.
type InfiltrationResult struct {
	Iteration int
	Exit      ExitCondition
	Steps     int
	Water     float64
	// Path is the walk's own trace, empty when tracing is off.
	Path []PathStep
}

// RunResult summarizes a Run.
type RunResult struct {
	Results     []InfiltrationResult
	Exits       map[ExitCondition]int
	BrokenLinks int
}

// Simulator runs seeded infiltration walks over a borrowed LinkGraph.
// Walks are cumulative: link damage persists until Reset.
type Simulator struct {
	graph    *LinkGraph
	cfg      SimConfig
	field    ResistanceField
	rng      *rand.Rand
	external []*Link

	path      []PathStep
	exit      ExitCondition
	results   []InfiltrationResult
	iteration int

	log     logging.Logger
	metrics SimMetricsRecorder
}

// SimOption configures a Simulator.
type SimOption func(*Simulator)

// WithResistanceField sets the field scaling link costs. The default is a
// constant field of 1.
func WithResistanceField(f ResistanceField) SimOption {
	return func(s *Simulator) {
		if f != nil {
			s.field = f
		}
	}
}

// WithSimLogger sets the logger.
func WithSimLogger(l logging.Logger) SimOption {
	return func(s *Simulator) { s.log = logging.OrNoop(l) }
}

// WithSimMetrics sets the recorder receiving walk outcomes.
func WithSimMetrics(m SimMetricsRecorder) SimOption {
	return func(s *Simulator) { s.metrics = m }
}

// NewSimulator validates cfg and binds a simulator to g.
func NewSimulator(g *LinkGraph, cfg SimConfig, opts ...SimOption) (*Simulator, error) {
	if !g.Initialized() {
		return nil, ErrGraphNotInitialized
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Simulator{
		graph:    g,
		cfg:      cfg,
		field:    ConstantField(1),
		external: g.External(),
		log:      logging.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.seed()
	return s, nil
}

func (s *Simulator) seed() {
	s.rng = rand.New(rand.NewPCG(uint64(s.cfg.RandomSeed), 0))
}

// Config returns the simulator's configuration.
func (s *Simulator) Config() SimConfig { return s.cfg }

// Graph returns the graph the simulator walks.
func (s *Simulator) Graph() *LinkGraph { return s.graph }

// Path returns the current trace.
func (s *Simulator) Path() []PathStep { return append([]PathStep(nil), s.path...) }

// Exit returns the exit condition of the last walk.
func (s *Simulator) Exit() ExitCondition { return s.exit }

// Results returns the result of every walk since the last Reset.
func (s *Simulator) Results() []InfiltrationResult {
	return append([]InfiltrationResult(nil), s.results...)
}

// Reset restores every link and re-seeds the generator, so the next Run
// repeats the previous one.
func (s *Simulator) Reset() {
	s.graph.ResetSimulation(1)
	s.seed()
	s.path = nil
	s.exit = ExitNone
	s.results = nil
	s.iteration = 0
}

// Run performs NumInfiltrations walks. It stops early when ctx is done and
// returns the walks completed so far.
func (s *Simulator) Run(ctx context.Context) (*RunResult, error) {
	ctx, span := tracer.Start(ctx, "Simulator.Run")
	defer span.End()

	out := &RunResult{Exits: make(map[ExitCondition]int)}
	for i := 0; i < s.cfg.NumInfiltrations; i++ {
		if err := ctx.Err(); err != nil {
			out.BrokenLinks = s.graph.BrokenLinks()
			return out, errors.Wrapf(err, "stopped after %d infiltrations", i)
		}
		res := s.Infiltrate(ctx)
		out.Results = append(out.Results, res)
		out.Exits[res.Exit]++
	}
	out.BrokenLinks = s.graph.BrokenLinks()
	if s.metrics != nil {
		s.metrics.SetBrokenLinks(out.BrokenLinks)
	}
	span.SetAttributes(
		attribute.Int("infiltrations", len(out.Results)),
		attribute.Int("links.broken", out.BrokenLinks),
	)
	return out, nil
}

// Infiltrate performs one walk, or one flat degradation round when
// UniformDegradation is set.
func (s *Simulator) Infiltrate(ctx context.Context) InfiltrationResult {
	s.iteration++
	if !s.cfg.AccumulatePath {
		s.path = nil
	}
	pathStart := len(s.path)

	var res InfiltrationResult
	if s.cfg.UniformDegradation {
		for _, l := range s.graph.links {
			s.degrade(l, false)
		}
		res = InfiltrationResult{Exit: ExitNone, Water: s.cfg.InitialWater}
	} else {
		res = s.walk(ctx)
	}

	res.Iteration = s.iteration
	res.Path = append([]PathStep(nil), s.path[pathStart:]...)
	s.exit = res.Exit
	s.results = append(s.results, res)

	s.log.Debug(ctx, "infiltration done",
		logging.Int("iteration", res.Iteration),
		logging.Stringer("exit", res.Exit),
		logging.Int("steps", res.Steps),
		logging.Float("water", res.Water),
	)
	if s.metrics != nil {
		s.metrics.ObserveInfiltration(res.Exit.String(), res.Steps)
	}
	return res
}

func (s *Simulator) walk(ctx context.Context) InfiltrationResult {
	cfg := s.cfg
	water := cfg.InitialWater

	cur := s.pickEntry()
	if cur == nil {
		return InfiltrationResult{Exit: ExitNoEntryLink, Water: water}
	}
	s.degrade(cur, true)

	depth := 0
	for {
		cost := cfg.WaterBaseCost + cfg.WaterLinkCostFactor*(1-cur.LifeClamped())*s.field.Resistance(cur.Pos.X, cur.Pos.Y)
		water -= cost
		depth++
		if cfg.Trace {
			s.path = append(s.path, PathStep{Key: cur.KeyCells, Water: water})
		}
		if cfg.LogSteps {
			s.log.Debug(ctx, "infiltration step",
				logging.Int("depth", depth),
				logging.Stringer("link", cur.KeyCells),
				logging.Float("life", cur.Life),
				logging.Float("water", water),
			)
		}

		res := InfiltrationResult{Steps: depth, Water: water}
		switch {
		case water <= 0:
			res.Exit = ExitWaterExhausted
			return res
		case water <= cfg.WaterMinAbsorbThreshold && s.rng.Float64() >= cfg.WaterAbsorbContinueProb:
			res.Exit = ExitWaterExhausted
			return res
		case depth >= cfg.MaxDepth:
			res.Exit = ExitMaxDepth
			return res
		}

		next := s.pickNext(cur)
		if next == nil {
			if cur.AdjacentToWall() {
				res.Exit = ExitNoNextLinkWall
			} else {
				res.Exit = ExitNoNextLinkDeadEnd
			}
			return res
		}
		s.degrade(next, false)
		cur = next
	}
}

// degrade lowers a link's life and exposes it once broken.
func (s *Simulator) degrade(l *Link, entry bool) {
	if entry {
		l.DegradeEntry(s.cfg.DegradeAmount)
	} else {
		l.Degrade(s.cfg.DegradeAmount)
	}
	if l.Broken() {
		l.AirLink = true
	}
}

// entryWeight favours wall links facing the entry direction. wallPicks is
// the number of earlier entries through the link's wall; a heavily used
// wall draws fewer new entries.
func (s *Simulator) entryWeight(l *Link, wallPicks int) float64 {
	a := alignment(l.Dir, s.cfg.EntryDirection)
	if a < s.cfg.EntryMinAlign || a <= 0 {
		return 0
	}
	return a / float64(1+wallPicks)
}

// nextWeight favours moving along the travel direction, into larger and
// already damaged links.
func (s *Simulator) nextWeight(cur, next *Link) float64 {
	a := alignment(unit(r3.Sub(next.Pos, cur.Pos)), s.cfg.NextDirection)
	if a < s.cfg.NextMinAlign || a <= 0 {
		return 0
	}
	return a * next.AreaFactor * (2 - next.LifeClamped())
}

func (s *Simulator) pickEntry() *Link {
	wallPicks := make(map[model.CellID]int)
	for _, l := range s.external {
		wallPicks[l.KeyCells.A] += l.PicksEntry
	}
	weights := make([]float64, len(s.external))
	for i, l := range s.external {
		weights[i] = s.entryWeight(l, wallPicks[l.KeyCells.A])
	}
	i := s.pickWeighted(weights)
	if i < 0 {
		return nil
	}
	return s.external[i]
}

func (s *Simulator) pickNext(cur *Link) *Link {
	cands := s.graph.CellCellNeighbors(cur)
	weights := make([]float64, len(cands))
	for i, l := range cands {
		weights[i] = s.nextWeight(cur, l)
	}
	i := s.pickWeighted(weights)
	if i < 0 {
		return nil
	}
	return cands[i]
}

// pickWeighted draws an index with probability proportional to its
// weight. It returns -1 when no weight is positive and consumes no random
// number in that case.
func (s *Simulator) pickWeighted(weights []float64) int {
	total := 0.0
	last := -1
	for i, w := range weights {
		if w > 0 {
			total += w
			last = i
		}
	}
	if last < 0 {
		return -1
	}
	r := s.rng.Float64() * total
	cum := 0.0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cum += w
		if r < cum {
			return i
		}
	}
	return last
}
