package core

import (
	"context"
	"math"
	"time"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/fracture-sim/internal/logging"
	"github.com/signalsfoundry/fracture-sim/kb"
	"github.com/signalsfoundry/fracture-sim/model"
)

var tracer = otel.Tracer("github.com/signalsfoundry/fracture-sim/core")

// LinkGraph is the deduplicated link structure derived from a cell
// container. Every shared face becomes exactly one internal link and every
// face touching a wall becomes one external link.
//
// The graph owns its links. A Simulator borrows the graph and mutates link
// simulation state only.
type LinkGraph struct {
	linkMap  map[LinkKey]*Link
	links    []*Link
	internal []*Link
	external []*Link

	cells       []model.CellID
	keysPerCell map[model.CellID][]LinkKey
	keysPerWall *treemap.Map // int(wall id) -> []LinkKey

	minPos, maxPos            r3.Vec
	minArea, maxArea, avgArea float64

	components  [][]model.CellID
	componentOf map[model.CellID]int

	unresolved  int
	initialized bool

	log     logging.Logger
	metrics GraphMetricsRecorder
}

// GraphOption configures BuildLinkGraph.
type GraphOption func(*LinkGraph)

// WithGraphLogger sets the logger used while building.
func WithGraphLogger(l logging.Logger) GraphOption {
	return func(g *LinkGraph) { g.log = logging.OrNoop(l) }
}

// WithGraphMetrics sets the recorder receiving build figures.
func WithGraphMetrics(m GraphMetricsRecorder) GraphOption {
	return func(g *LinkGraph) { g.metrics = m }
}

func newLinkGraph(opts ...GraphOption) *LinkGraph {
	g := &LinkGraph{
		linkMap:     make(map[LinkKey]*Link),
		keysPerCell: make(map[model.CellID][]LinkKey),
		keysPerWall: treemap.NewWithIntComparator(),
		componentOf: make(map[model.CellID]int),
		minPos:      r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
		maxPos:      r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
		minArea:     math.Inf(1),
		maxArea:     math.Inf(-1),
		log:         logging.Noop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// BuildLinkGraph derives the link graph of cont in two passes. The first
// pass creates links and records, per cell face, the key of the link it
// belongs to. The second pass computes area factors and fills the
// neighbor lists of every link from the face adjacency of its cells.
//
// When no link can be created the uninitialized graph is returned along
// with ErrEmptyLinkMap.
func BuildLinkGraph(ctx context.Context, cont *kb.Container, opts ...GraphOption) (*LinkGraph, error) {
	ctx, span := tracer.Start(ctx, "BuildLinkGraph")
	defer span.End()

	if cont == nil {
		span.SetStatus(codes.Error, ErrNilContainer.Error())
		return nil, ErrNilContainer
	}

	start := time.Now()
	g := newLinkGraph(opts...)
	log := g.log.With(logging.Int("cells", cont.Len()))

	g.createLinks(ctx, cont)
	if len(g.linkMap) == 0 {
		err := errors.Wrapf(ErrEmptyLinkMap, "container with %d cells", cont.Len())
		log.Error(ctx, "link graph build failed", logging.Err(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return g, err
	}
	if g.avgArea == 0 {
		err := errors.Wrapf(ErrZeroMeanArea, "%d links", len(g.linkMap))
		log.Error(ctx, "link graph build failed", logging.Err(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	g.linkNeighbors(cont)
	g.initialized = true

	span.SetAttributes(
		attribute.Int("links.internal", len(g.internal)),
		attribute.Int("links.external", len(g.external)),
		attribute.Int("components", len(g.components)),
		attribute.Int("faces.unresolved", g.unresolved),
	)
	if g.unresolved > 0 {
		log.Warn(ctx, "unresolved faces skipped", logging.Int("faces", g.unresolved))
	}
	log.Info(ctx, "link graph built",
		logging.Int("internal", len(g.internal)),
		logging.Int("external", len(g.external)),
		logging.Int("components", len(g.components)),
		logging.Float("avg_area", g.avgArea),
	)
	if g.metrics != nil {
		g.metrics.SetGraphCounts(len(g.internal), len(g.external), len(g.components), g.unresolved)
		g.metrics.ObserveGraphBuild(time.Since(start).Seconds())
	}
	return g, nil
}

// createLinks is the first pass.
func (g *LinkGraph) createLinks(ctx context.Context, cont *kb.Container) {
	g.cells = cont.IDs()

	// Prefill with error keys so faces that never get a link stay
	// recognizable in the second pass.
	for _, id := range g.cells {
		keys := make([]LinkKey, cont.FaceCount(id))
		for f := range keys {
			keys[f] = LinkKey{A: model.ErrorMissing, B: id}
		}
		g.keysPerCell[id] = keys
	}

	ds := newDisjointSet(g.cells)
	var areaSum float64

	for _, id := range g.cells {
		cell := cont.Cell(id)
		keys := g.keysPerCell[id]

		for f := range cell.Faces {
			neigh := cont.Neighbor(id, f)
			if model.IsError(neigh) {
				keys[f] = LinkKey{A: neigh, B: id}
				g.unresolved++
				continue
			}

			geo := polygonGeometry(cell.Faces[f].Vertices, cell.Offset)

			if model.IsWall(neigh) {
				key := LinkKey{A: neigh, B: id}
				if _, dup := g.linkMap[key]; dup {
					// A convex cell meets a planar wall with one face at most.
					g.log.Warn(ctx, "cell touches wall with more than one face",
						logging.Stringer("key", key), logging.Int("face", f))
					keys[f] = LinkKey{A: model.ErrorAsymmetry, B: id}
					g.unresolved++
					continue
				}
				l := newLink(key, LinkKey{A: neigh, B: model.CellID(f)}, geo.Center, r3.Scale(-1, geo.Normal), geo.Area, true)
				g.addLink(l)
				g.external = append(g.external, l)
				keys[f] = key

				wallKeys, _ := g.keysPerWall.Get(int(neigh))
				list, _ := wallKeys.([]LinkKey)
				g.keysPerWall.Put(int(neigh), append(list, key))
				areaSum += geo.Area
				continue
			}

			key, swap := linkKeySwap(id, neigh)
			if _, exists := g.linkMap[key]; exists {
				continue
			}
			nf := cont.NeighborFace(id, f)
			dir := geo.Normal
			if swap {
				dir = r3.Scale(-1, dir)
			}
			l := newLink(key, faceKey(f, nf, swap), geo.Center, dir, geo.Area, false)
			g.addLink(l)
			g.internal = append(g.internal, l)
			keys[f] = key
			if nk := g.keysPerCell[neigh]; nf >= 0 && nf < len(nk) {
				nk[nf] = key
			}
			ds.union(id, neigh)
			areaSum += geo.Area
		}
	}

	if len(g.linkMap) > 0 {
		g.avgArea = areaSum / float64(len(g.linkMap))
	}
	g.components = ds.components(g.cells)
	for i, comp := range g.components {
		for _, id := range comp {
			g.componentOf[id] = i
		}
	}
}

func (g *LinkGraph) addLink(l *Link) {
	g.linkMap[l.KeyCells] = l
	g.links = append(g.links, l)
	g.minPos = minVec(g.minPos, l.Pos)
	g.maxPos = maxVec(g.maxPos, l.Pos)
	g.minArea = math.Min(g.minArea, l.Area)
	g.maxArea = math.Max(g.maxArea, l.Area)
}

// linkNeighbors is the second pass. A wall link collects the keys of the
// faces adjacent to its face; an internal link collects them from both of
// its cells. Each link is filled once.
func (g *LinkGraph) linkNeighbors(cont *kb.Container) {
	for _, id := range g.cells {
		keys := g.keysPerCell[id]
		for f, key := range keys {
			if key.IsError() {
				continue
			}
			l := g.linkMap[key]
			if l == nil || l.hasNeighbors() {
				continue
			}
			l.AreaFactor = l.Area / g.avgArea

			if l.IsExternal() {
				l.addNeighbors(g.adjacentKeys(cont, id, f))
				continue
			}

			a, b := l.KeyCells.A, l.KeyCells.B
			fa, fb := int(l.KeyFaces.A), int(l.KeyFaces.B)
			l.addNeighbors(g.adjacentKeys(cont, a, fa))
			l.addNeighbors(g.adjacentKeys(cont, b, fb))
		}
	}
}

func (g *LinkGraph) adjacentKeys(cont *kb.Container, id model.CellID, face int) []LinkKey {
	keys := g.keysPerCell[id]
	adj := cont.FaceAdjacency(id, face)
	out := make([]LinkKey, 0, len(adj))
	for _, af := range adj {
		if af >= 0 && af < len(keys) {
			out = append(out, keys[af])
		}
	}
	return out
}

//
// ---------- Queries ----------
//

// Initialized reports whether both build passes completed.
func (g *LinkGraph) Initialized() bool { return g != nil && g.initialized }

// Len returns the number of links.
func (g *LinkGraph) Len() int { return len(g.linkMap) }

// Link returns the link with the given key.
func (g *LinkGraph) Link(key LinkKey) (*Link, bool) {
	l, ok := g.linkMap[key]
	return l, ok
}

// MustLink is like Link but fails with ErrLinkNotFound.
func (g *LinkGraph) MustLink(key LinkKey) (*Link, error) {
	l, ok := g.linkMap[key]
	if !ok {
		return nil, errors.Wrapf(ErrLinkNotFound, "%s", key)
	}
	return l, nil
}

// Links returns every link in creation order.
func (g *LinkGraph) Links() []*Link { return append([]*Link(nil), g.links...) }

// Internal returns the cell-cell links in creation order.
func (g *LinkGraph) Internal() []*Link { return append([]*Link(nil), g.internal...) }

// External returns the cell-wall links in creation order.
func (g *LinkGraph) External() []*Link { return append([]*Link(nil), g.external...) }

// CellCellNeighbors resolves the internal neighbors of l.
func (g *LinkGraph) CellCellNeighbors(l *Link) []*Link {
	return g.resolve(l.NeighsCellCell)
}

// AirCellNeighbors resolves the wall neighbors of l.
func (g *LinkGraph) AirCellNeighbors(l *Link) []*Link {
	return g.resolve(l.NeighsAirCell)
}

func (g *LinkGraph) resolve(keys []LinkKey) []*Link {
	out := make([]*Link, 0, len(keys))
	for _, k := range keys {
		if l, ok := g.linkMap[k]; ok {
			out = append(out, l)
		}
	}
	return out
}

// KeysForCell returns the link key of every face of a cell, indexed by
// face. Unresolved faces carry an error key.
func (g *LinkGraph) KeysForCell(id model.CellID) []LinkKey {
	return append([]LinkKey(nil), g.keysPerCell[id]...)
}

// KeysForWall returns the keys of the links touching a wall.
func (g *LinkGraph) KeysForWall(wall model.CellID) []LinkKey {
	v, ok := g.keysPerWall.Get(int(wall))
	if !ok {
		return nil
	}
	return append([]LinkKey(nil), v.([]LinkKey)...)
}

// Walls returns the ids of the walls touched by at least one cell, in
// ascending order.
func (g *LinkGraph) Walls() []model.CellID {
	out := make([]model.CellID, 0, g.keysPerWall.Size())
	for _, k := range g.keysPerWall.Keys() {
		out = append(out, model.CellID(k.(int)))
	}
	return out
}

// Components returns the connected components of the cell-cell graph.
// Members are sorted; components are ordered by smallest member.
func (g *LinkGraph) Components() [][]model.CellID {
	out := make([][]model.CellID, len(g.components))
	for i, c := range g.components {
		out[i] = append([]model.CellID(nil), c...)
	}
	return out
}

// ComponentOf returns the index of the component holding id.
func (g *LinkGraph) ComponentOf(id model.CellID) (int, bool) {
	i, ok := g.componentOf[id]
	return i, ok
}

// Bounds returns the component-wise min and max link positions.
func (g *LinkGraph) Bounds() (r3.Vec, r3.Vec) { return g.minPos, g.maxPos }

// AreaStats returns the min, max and mean link area.
func (g *LinkGraph) AreaStats() (minArea, maxArea, avgArea float64) {
	return g.minArea, g.maxArea, g.avgArea
}

// Unresolved returns the number of faces skipped because they could not be
// paired.
func (g *LinkGraph) Unresolved() int { return g.unresolved }

// AirLinks returns the links currently flagged as air, in creation order.
func (g *LinkGraph) AirLinks() []*Link {
	var out []*Link
	for _, l := range g.links {
		if l.AirLink {
			out = append(out, l)
		}
	}
	return out
}

// BrokenLinks counts links whose life has been used up.
func (g *LinkGraph) BrokenLinks() int {
	n := 0
	for _, l := range g.links {
		if l.Broken() {
			n++
		}
	}
	return n
}

// ResetSimulation resets the simulation state of every link.
func (g *LinkGraph) ResetSimulation(life float64) {
	for _, l := range g.links {
		l.Reset(life)
	}
}
