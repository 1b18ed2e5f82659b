package kb

import (
	"encoding/json"
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/fracture-sim/model"
)

// Summary is a small summary of what was loaded from JSON. It's mainly
// useful for logging from main().
type Summary struct {
	CellIDs     []model.CellID
	Faces       int
	Unresolved  int
	Asymmetries int
	Missing     int
}

// Wire shapes of the decomposition file; unexported so the format can change.
type decompositionJSON struct {
	Cells []cellJSON `json:"cells"`
}

type cellJSON struct {
	ID     *int          `json:"id"`
	State  string        `json:"state"` // "solid" | "core" | "air"
	Offset *positionJSON `json:"offset"`
	Faces  []faceJSON    `json:"faces"`
}

type faceJSON struct {
	Neighbor     int          `json:"neighbor"`
	NeighborFace *int         `json:"neighbor_face"` // optional; resolved by scanning when absent
	Vertices     [][3]float64 `json:"vertices"`
	Adjacent     []int        `json:"adjacent"`
}

type positionJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// LoadContainer reads a JSON cell decomposition from r, resolves face
// pairings and returns the populated container with a summary.
//
// Structural problems (bad JSON, missing ids, duplicate cells, adjacency
// out of range) fail the load. Unpaired faces do not: they are marked and
// counted in the summary, the same way Resolve treats them.
func LoadContainer(r io.Reader) (*Container, *Summary, error) {
	var payload decompositionJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, nil, fmt.Errorf("LoadContainer: decode failed: %w", err)
	}

	cont := NewContainer()
	result := &Summary{
		CellIDs: make([]model.CellID, 0, len(payload.Cells)),
	}

	for i, jsC := range payload.Cells {
		if jsC.ID == nil {
			return nil, nil, fmt.Errorf("LoadContainer: cell %d has no id", i)
		}
		state, err := model.ParseCellState(jsC.State)
		if err != nil {
			return nil, nil, fmt.Errorf("LoadContainer: cell %d: %w", *jsC.ID, err)
		}

		cell := &model.Cell{
			ID:    model.CellID(*jsC.ID),
			State: state,
			Faces: make([]model.Face, 0, len(jsC.Faces)),
		}
		if jsC.Offset != nil {
			cell.Offset = r3.Vec{X: jsC.Offset.X, Y: jsC.Offset.Y, Z: jsC.Offset.Z}
		}

		for _, jsF := range jsC.Faces {
			face := model.Face{
				Neighbor:     model.CellID(jsF.Neighbor),
				NeighborFace: -1,
				Vertices:     make([]r3.Vec, 0, len(jsF.Vertices)),
				Adjacent:     append([]int(nil), jsF.Adjacent...),
			}
			if jsF.NeighborFace != nil {
				face.NeighborFace = *jsF.NeighborFace
			}
			for _, v := range jsF.Vertices {
				face.Vertices = append(face.Vertices, r3.Vec{X: v[0], Y: v[1], Z: v[2]})
			}
			cell.Faces = append(cell.Faces, face)
		}

		if err := cont.AddCell(cell); err != nil {
			return nil, nil, fmt.Errorf("LoadContainer: %w", err)
		}
		result.CellIDs = append(result.CellIDs, cell.ID)
		result.Faces += len(cell.Faces)
	}

	cont.Resolve()
	result.Unresolved, result.Asymmetries, result.Missing = cont.Unresolved()
	return cont, result, nil
}
