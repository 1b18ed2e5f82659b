package kb

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/fracture-sim/model"
)

// Box faces are ordered -x, +x, -y, +y, -z, +z. Face f lies on axis f/2,
// on the positive side when f is odd, and its opposite face is f^1.
const boxFaces = 6

// boxCorners holds, per face, the unit-cube corner signs of its polygon in
// counter-clockwise order seen from outside.
var boxCorners = [boxFaces][4][3]float64{
	{{-1, -1, -1}, {-1, -1, 1}, {-1, 1, 1}, {-1, 1, -1}},
	{{1, -1, -1}, {1, 1, -1}, {1, 1, 1}, {1, -1, 1}},
	{{-1, -1, -1}, {1, -1, -1}, {1, -1, 1}, {-1, -1, 1}},
	{{-1, 1, -1}, {-1, 1, 1}, {1, 1, 1}, {1, 1, -1}},
	{{-1, -1, -1}, {-1, 1, -1}, {1, 1, -1}, {1, -1, -1}},
	{{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1}},
}

// BoxWall returns the wall id touched by box face f.
func BoxWall(f int) model.CellID {
	return model.CellID(-1 - f)
}

// GridCellID returns the id NewBoxGrid assigns to the cell at (x, y, z).
func GridCellID(nx, ny, x, y, z int) model.CellID {
	return model.CellID(x + nx*(y+ny*z))
}

// NewBoxGrid subdivides an axis-aligned cuboid into nx*ny*nz cubic cells
// of edge length size, with the cuboid's minimum corner at the origin.
// Boundary faces touch the six box walls. The returned container is
// already resolved.
func NewBoxGrid(nx, ny, nz int, size float64) (*Container, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("%w: grid dimensions must be positive, got %dx%dx%d", ErrCellBadInput, nx, ny, nz)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: cell size must be positive, got %g", ErrCellBadInput, size)
	}

	dims := [3]int{nx, ny, nz}
	half := size / 2
	cont := NewContainer()

	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				at := [3]int{x, y, z}
				cell := &model.Cell{
					ID:    GridCellID(nx, ny, x, y, z),
					State: model.StateSolid,
					Offset: r3.Vec{
						X: (float64(x) + 0.5) * size,
						Y: (float64(y) + 0.5) * size,
						Z: (float64(z) + 0.5) * size,
					},
					Faces: make([]model.Face, boxFaces),
				}

				for f := 0; f < boxFaces; f++ {
					axis, step := f/2, -1
					if f%2 == 1 {
						step = 1
					}

					face := model.Face{
						Neighbor:     BoxWall(f),
						NeighborFace: -1,
						Vertices:     make([]r3.Vec, 4),
						Adjacent:     make([]int, 0, 4),
					}
					next := at
					next[axis] += step
					if next[axis] >= 0 && next[axis] < dims[axis] {
						face.Neighbor = GridCellID(nx, ny, next[0], next[1], next[2])
						face.NeighborFace = f ^ 1
					}
					for i, c := range boxCorners[f] {
						face.Vertices[i] = r3.Vec{X: c[0] * half, Y: c[1] * half, Z: c[2] * half}
					}
					for g := 0; g < boxFaces; g++ {
						if g/2 != axis {
							face.Adjacent = append(face.Adjacent, g)
						}
					}
					cell.Faces[f] = face
				}

				if err := cont.AddCell(cell); err != nil {
					return nil, err
				}
			}
		}
	}

	cont.Resolve()
	return cont, nil
}
