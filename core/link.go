package core

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Link is one edge of the link graph: a face shared by two cells, or a
// face of a cell touching a container wall.
//
// KeyCells, KeyFaces and the geometry never change after the graph is
// built. Neighbor lists are filled once by the second build pass and hold
// keys, resolved through the owning LinkGraph. Life and the pick counters
// are simulation state.
type Link struct {
	KeyCells LinkKey `json:"KeyCells"`
	// KeyFaces pairs the local face indices, swapped like KeyCells. For
	// wall links A is the wall id and B the cell's face index.
	KeyFaces LinkKey `json:"KeyFaces"`

	// Pos is the face centroid in world space. Dir is the unit face normal,
	// pointing away from the lower-indexed cell for internal links and from
	// the wall into the cell for external links.
	Pos        r3.Vec  `json:"Pos"`
	Dir        r3.Vec  `json:"Dir"`
	Area       float64 `json:"Area"`
	AreaFactor float64 `json:"AreaFactor"`

	NeighsCellCell []LinkKey `json:"NeighsCellCell,omitempty"`
	NeighsAirCell  []LinkKey `json:"NeighsAirCell,omitempty"`
	NeighsError    []LinkKey `json:"NeighsError,omitempty"`

	// AirLinkInitial is set for wall links. AirLink starts equal to it and
	// is raised during simulation once a link breaks and exposes its face.
	AirLinkInitial bool `json:"AirLinkInitial"`
	AirLink        bool `json:"AirLink"`

	// Life is not clamped: it may drop below 0 under repeated hits. Use
	// LifeClamped for display.
	Life       float64 `json:"Life"`
	Picks      int     `json:"Picks"`
	PicksEntry int     `json:"PicksEntry"`
}

func newLink(keyCells, keyFaces LinkKey, pos, dir r3.Vec, area float64, airLink bool) *Link {
	l := &Link{
		KeyCells:       keyCells,
		KeyFaces:       keyFaces,
		Pos:            pos,
		Dir:            dir,
		Area:           area,
		AreaFactor:     1,
		AirLinkInitial: airLink,
	}
	l.Reset(1)
	return l
}

// IsExternal reports whether the link joins a cell to a wall.
func (l *Link) IsExternal() bool { return l.KeyCells.IsWall() }

// Degrade records a traversal pick and lowers life by amount.
func (l *Link) Degrade(amount float64) {
	l.Picks++
	l.Life -= amount
}

// DegradeEntry records an entry pick and lowers life by amount.
func (l *Link) DegradeEntry(amount float64) {
	l.PicksEntry++
	l.Life -= amount
}

// LifeClamped returns life clamped to [0,1].
func (l *Link) LifeClamped() float64 {
	return math.Min(math.Max(l.Life, 0), 1)
}

// Clamp stores the clamped life.
func (l *Link) Clamp() {
	l.Life = l.LifeClamped()
}

// Broken reports whether raw life has been used up.
func (l *Link) Broken() bool { return l.Life <= 0 }

// Reset restores the simulation state.
func (l *Link) Reset(life float64) {
	l.Life = life
	l.AirLink = l.AirLinkInitial
	l.Picks = 0
	l.PicksEntry = 0
}

// NumNeighbors counts cell-cell and air-cell neighbors.
func (l *Link) NumNeighbors() int {
	return len(l.NeighsCellCell) + len(l.NeighsAirCell)
}

// hasNeighbors reports whether the second build pass already filled the
// link, including unresolved neighbors.
func (l *Link) hasNeighbors() bool {
	return l.NumNeighbors()+len(l.NeighsError) > 0
}

// addNeighbors classifies keys by their first endpoint.
func (l *Link) addNeighbors(keys []LinkKey) {
	for _, k := range keys {
		switch {
		case k.IsError():
			l.NeighsError = append(l.NeighsError, k)
		case k.IsWall():
			l.NeighsAirCell = append(l.NeighsAirCell, k)
		default:
			l.NeighsCellCell = append(l.NeighsCellCell, k)
		}
	}
}

// AdjacentToWall reports whether the link is a wall link or touches one
// along an edge.
func (l *Link) AdjacentToWall() bool {
	return l.IsExternal() || len(l.NeighsAirCell) > 0
}

func (l *Link) String() string {
	s := fmt.Sprintf("%s a(%.3f,%.3f) life(%.3f,%d)", l.KeyCells, l.AreaFactor, l.Area, l.Life, l.Picks)
	switch {
	case l.AirLinkInitial:
		s += fmt.Sprintf(" [AIR-WALL] dir(%.2f,%.2f,%.2f)", l.Dir.X, l.Dir.Y, l.Dir.Z)
	case l.AirLink:
		s += " [AIR]"
	}
	return s
}
