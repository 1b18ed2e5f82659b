package kb

import (
	"testing"

	"github.com/signalsfoundry/fracture-sim/model"
)

func TestNewBoxGridTopology(t *testing.T) {
	cont, err := NewBoxGrid(2, 1, 1, 1)
	if err != nil {
		t.Fatalf("NewBoxGrid error: %v", err)
	}
	if cont.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", cont.Len())
	}

	// +x face of cell 0 meets the -x face of cell 1
	if got := cont.Neighbor(0, 1); got != 1 {
		t.Fatalf("Neighbor(0,+x) = %d, want 1", got)
	}
	if got := cont.NeighborFace(0, 1); got != 0 {
		t.Fatalf("NeighborFace(0,+x) = %d, want 0", got)
	}
	if got := cont.Neighbor(1, 0); got != 0 {
		t.Fatalf("Neighbor(1,-x) = %d, want 0", got)
	}

	walls := 0
	for _, id := range cont.IDs() {
		for f := 0; f < cont.FaceCount(id); f++ {
			if model.IsWall(cont.Neighbor(id, f)) {
				walls++
			}
		}
	}
	if walls != 10 {
		t.Fatalf("wall faces = %d, want 10", walls)
	}
	if got := cont.Neighbor(0, 0); got != model.WallXNeg {
		t.Fatalf("Neighbor(0,-x) = %d, want WallXNeg", got)
	}
	if got := cont.Neighbor(1, 5); got != model.WallZPos {
		t.Fatalf("Neighbor(1,+z) = %d, want WallZPos", got)
	}
	if total, _, _ := cont.Unresolved(); total != 0 {
		t.Fatalf("grid should have no unresolved faces, got %d", total)
	}
}

func TestNewBoxGridFaceAdjacency(t *testing.T) {
	cont, err := NewBoxGrid(1, 1, 1, 2)
	if err != nil {
		t.Fatalf("NewBoxGrid error: %v", err)
	}
	for f := 0; f < 6; f++ {
		adj := cont.FaceAdjacency(0, f)
		if len(adj) != 4 {
			t.Fatalf("face %d has %d adjacent faces, want 4", f, len(adj))
		}
		for _, g := range adj {
			if g == f || g == f^1 {
				t.Fatalf("face %d lists itself or its opposite (%d) as adjacent", f, g)
			}
		}
	}
	if c := cont.Cell(0); c.Offset.X != 1 || c.Faces[1].Vertices[0].X != 1 {
		t.Fatalf("unexpected cell geometry: offset %+v", c.Offset)
	}
}

func TestNewBoxGridRejectsBadInput(t *testing.T) {
	if _, err := NewBoxGrid(0, 1, 1, 1); err == nil {
		t.Fatalf("expected error for zero dimension")
	}
	if _, err := NewBoxGrid(1, 1, 1, 0); err == nil {
		t.Fatalf("expected error for zero size")
	}
}
