package kb

import (
	"errors"
	"fmt"

	"github.com/zyedidia/generic/mapset"

	"github.com/signalsfoundry/fracture-sim/model"
)

var (
	ErrCellExists   = errors.New("cell already exists")
	ErrCellNotFound = errors.New("cell not found")
	ErrCellBadInput = errors.New("invalid cell")
)

// EventType indicates what kind of change happened in the container.
type EventType int

const (
	EventCellStateUpdated EventType = iota
)

// Event is emitted to subscribers when a cell's state changes.
type Event struct {
	Type     EventType
	Cell     model.CellID
	Previous model.CellState
	State    model.CellState
}

// Container wraps the output of the external cell decomposition. It keeps
// cells in insertion order, which is the iteration order every consumer
// relies on for reproducible results.
//
// Faces whose neighbor cannot be paired are rewritten to an error marker by
// Resolve; the Face values passed to AddCell are left untouched.
type Container struct {
	cells map[model.CellID]*model.Cell
	order []model.CellID

	// resolved neighbor id and neighbor face index, per cell and face
	neighs     map[model.CellID][]model.CellID
	neighFaces map[model.CellID][]int

	resolved    bool
	unresolved  int
	asymmetries int
	missing     int

	// subscribers by id; subOrder keeps registration order
	subs     map[int]func(Event)
	subOrder []int
	nextSub  int
}

// NewContainer constructs an empty container.
func NewContainer() *Container {
	return &Container{
		cells:      make(map[model.CellID]*model.Cell),
		neighs:     make(map[model.CellID][]model.CellID),
		neighFaces: make(map[model.CellID][]int),
		subs:       make(map[int]func(Event)),
	}
}

// AddCell adds a new cell. The container keeps the pointer, so later state
// changes through SetCellState are visible to the caller.
func (c *Container) AddCell(cell *model.Cell) error {
	if cell == nil {
		return fmt.Errorf("%w: nil cell", ErrCellBadInput)
	}
	if cell.ID < 0 {
		return fmt.Errorf("%w: negative id %d", ErrCellBadInput, cell.ID)
	}
	if _, exists := c.cells[cell.ID]; exists {
		return fmt.Errorf("%w: %d", ErrCellExists, cell.ID)
	}

	n := len(cell.Faces)
	for i, f := range cell.Faces {
		if f.Neighbor == cell.ID {
			return fmt.Errorf("%w: cell %d face %d references itself", ErrCellBadInput, cell.ID, i)
		}
		for _, adj := range f.Adjacent {
			if adj < 0 || adj >= n || adj == i {
				return fmt.Errorf("%w: cell %d face %d has adjacent face %d out of range", ErrCellBadInput, cell.ID, i, adj)
			}
		}
	}

	c.cells[cell.ID] = cell
	c.order = append(c.order, cell.ID)
	c.resolved = false
	return nil
}

// Resolve pairs every cell face with its reciprocal face on the neighbor.
// A face whose neighbor is absent is marked ErrorMissing; a face whose
// neighbor does not report the cell back, or that repeats a neighbor
// already seen on another face of the same cell, is marked ErrorAsymmetry.
// It returns the number of marked faces.
func (c *Container) Resolve() int {
	c.unresolved, c.asymmetries, c.missing = 0, 0, 0

	for _, id := range c.order {
		cell := c.cells[id]
		neighs := make([]model.CellID, len(cell.Faces))
		faces := make([]int, len(cell.Faces))
		seen := mapset.New[model.CellID]()

		for i, f := range cell.Faces {
			neighs[i], faces[i] = f.Neighbor, -1

			switch {
			case model.IsError(f.Neighbor):
				c.unresolved++
				c.asymmetries++
			case model.IsWall(f.Neighbor):
				// walls are never paired
			default:
				other, ok := c.cells[f.Neighbor]
				if !ok {
					neighs[i] = model.ErrorMissing
					c.unresolved++
					c.missing++
					continue
				}
				nf := reciprocalFace(other, id, f.NeighborFace)
				if nf < 0 || seen.Has(f.Neighbor) {
					neighs[i] = model.ErrorAsymmetry
					c.unresolved++
					c.asymmetries++
					continue
				}
				seen.Put(f.Neighbor)
				faces[i] = nf
			}
		}

		c.neighs[id] = neighs
		c.neighFaces[id] = faces
	}

	c.resolved = true
	return c.unresolved
}

// reciprocalFace returns the face of other that points back at id, trying
// the hinted index first. It returns -1 when no face reciprocates.
func reciprocalFace(other *model.Cell, id model.CellID, hint int) int {
	if hint >= 0 && hint < len(other.Faces) && other.Faces[hint].Neighbor == id {
		return hint
	}
	for j, f := range other.Faces {
		if f.Neighbor == id {
			return j
		}
	}
	return -1
}

func (c *Container) ensureResolved() {
	if !c.resolved {
		c.Resolve()
	}
}

// IDs returns the cell ids in insertion order.
func (c *Container) IDs() []model.CellID {
	return append([]model.CellID(nil), c.order...)
}

// Len returns the number of cells.
func (c *Container) Len() int { return len(c.order) }

// Cell returns the cell with the given id, or nil if not found.
func (c *Container) Cell(id model.CellID) *model.Cell {
	return c.cells[id]
}

// Has reports whether the container holds a cell with the given id.
func (c *Container) Has(id model.CellID) bool {
	_, ok := c.cells[id]
	return ok
}

// FaceCount returns the number of faces of a cell, 0 when unknown.
func (c *Container) FaceCount(id model.CellID) int {
	return c.cells[id].FaceCount()
}

// Neighbor returns the resolved neighbor of a face: a cell id, a wall id,
// or an error marker.
func (c *Container) Neighbor(id model.CellID, face int) model.CellID {
	c.ensureResolved()
	neighs, ok := c.neighs[id]
	if !ok || face < 0 || face >= len(neighs) {
		return model.ErrorMissing
	}
	return neighs[face]
}

// Neighbors returns the resolved neighbor of every face of a cell.
func (c *Container) Neighbors(id model.CellID) []model.CellID {
	c.ensureResolved()
	return append([]model.CellID(nil), c.neighs[id]...)
}

// NeighborFace returns the neighbor's local index of the given face, or
// -1 for walls and unresolved faces.
func (c *Container) NeighborFace(id model.CellID, face int) int {
	c.ensureResolved()
	faces, ok := c.neighFaces[id]
	if !ok || face < 0 || face >= len(faces) {
		return -1
	}
	return faces[face]
}

// FaceAdjacency returns the local faces sharing an edge with face.
func (c *Container) FaceAdjacency(id model.CellID, face int) []int {
	cell := c.cells[id]
	if cell == nil || face < 0 || face >= len(cell.Faces) {
		return nil
	}
	return cell.Faces[face].Adjacent
}

// Unresolved returns how many faces Resolve marked, split by cause.
func (c *Container) Unresolved() (total, asymmetries, missing int) {
	c.ensureResolved()
	return c.unresolved, c.asymmetries, c.missing
}

//
// ---------- Cell state ----------
//

// CellState returns the state of a cell.
func (c *Container) CellState(id model.CellID) (model.CellState, error) {
	cell, ok := c.cells[id]
	if !ok {
		return model.StateSolid, fmt.Errorf("%w: %d", ErrCellNotFound, id)
	}
	return cell.State, nil
}

// SetCellState updates a cell's state and notifies subscribers when it
// changed.
func (c *Container) SetCellState(id model.CellID, state model.CellState) error {
	cell, ok := c.cells[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrCellNotFound, id)
	}
	if cell.State == state {
		return nil
	}
	event := Event{
		Type:     EventCellStateUpdated,
		Cell:     id,
		Previous: cell.State,
		State:    state,
	}
	cell.State = state

	for _, id := range append([]int(nil), c.subOrder...) {
		if sub, ok := c.subs[id]; ok {
			sub(event)
		}
	}
	return nil
}

// SnapshotStates captures the state of every cell.
func (c *Container) SnapshotStates() map[model.CellID]model.CellState {
	out := make(map[model.CellID]model.CellState, len(c.cells))
	for id, cell := range c.cells {
		out[id] = cell.State
	}
	return out
}

// RestoreStates applies a snapshot taken with SnapshotStates. Unknown ids
// fail the whole restore before anything is changed.
func (c *Container) RestoreStates(states map[model.CellID]model.CellState) error {
	for id := range states {
		if _, ok := c.cells[id]; !ok {
			return fmt.Errorf("%w: %d", ErrCellNotFound, id)
		}
	}
	for _, id := range c.order {
		if s, ok := states[id]; ok {
			if err := c.SetCellState(id, s); err != nil {
				return err
			}
		}
	}
	return nil
}

// Subscribe registers a callback for container events. It returns an
// unsubscribe function.
func (c *Container) Subscribe(fn func(Event)) (unsubscribe func()) {
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subOrder = append(c.subOrder, id)

	return func() {
		if _, ok := c.subs[id]; !ok {
			return
		}
		delete(c.subs, id)
		for i, v := range c.subOrder {
			if v == id {
				c.subOrder = append(c.subOrder[:i], c.subOrder[i+1:]...)
				break
			}
		}
	}
}
