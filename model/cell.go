package model

import "gonum.org/v1/gonum/spatial/r3"

// CellID identifies a cell of a decomposition. Non-negative values are
// cells; negative values are walls or error markers (see sentinel.go).
type CellID int

// Face is one planar face of a convex cell.
type Face struct {
	// Neighbor is the cell on the other side of the face, a wall id, or an
	// error marker.
	Neighbor CellID

	// NeighborFace is the local face index of the same face on the
	// neighbor cell. -1 means unknown; the container resolves it by
	// scanning the neighbor's faces.
	NeighborFace int

	// Vertices is the face polygon in cell-local coordinates, ordered
	// counter-clockwise when seen from outside the cell.
	Vertices []r3.Vec

	// Adjacent lists the other local faces of the same cell that share an
	// edge with this face.
	Adjacent []int
}

// Cell is a convex polyhedral region produced by the external fracture
// routine.
type Cell struct {
	ID    CellID
	State CellState

	// Offset translates local vertices into world space.
	Offset r3.Vec

	Faces []Face
}

// FaceCount returns the number of faces of the cell.
func (c *Cell) FaceCount() int {
	if c == nil {
		return 0
	}
	return len(c.Faces)
}
