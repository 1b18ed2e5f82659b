package core

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// faceGeometry is the world-space description of one face polygon.
type faceGeometry struct {
	Center r3.Vec
	Normal r3.Vec
	Area   float64
}

// polygonGeometry returns the vertex centroid, unit normal and area of a
// planar polygon whose vertices are ordered counter-clockwise when seen
// from the side the normal points to. The Newell sum keeps the result
// stable for slightly non-planar loops.
//
// Degenerate polygons (fewer than three vertices or zero area) yield a
// zero normal and zero area.
func polygonGeometry(verts []r3.Vec, offset r3.Vec) faceGeometry {
	if len(verts) == 0 {
		return faceGeometry{Center: offset}
	}

	var sum, newell r3.Vec
	for i, v := range verts {
		w := verts[(i+1)%len(verts)]
		sum = r3.Add(sum, v)
		newell.X += (v.Y - w.Y) * (v.Z + w.Z)
		newell.Y += (v.Z - w.Z) * (v.X + w.X)
		newell.Z += (v.X - w.X) * (v.Y + w.Y)
	}
	center := r3.Add(offset, r3.Scale(1/float64(len(verts)), sum))

	n := r3.Norm(newell)
	if len(verts) < 3 || n == 0 {
		return faceGeometry{Center: center}
	}
	return faceGeometry{
		Center: center,
		Normal: r3.Scale(1/n, newell),
		Area:   n / 2,
	}
}

// unit returns v scaled to length one, or the zero vector when v has no
// length.
func unit(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/n, v)
}

// alignment returns the cosine of the angle between a and b, or 0 when
// either vector has no length.
func alignment(a, b r3.Vec) float64 {
	na, nb := r3.Norm(a), r3.Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	c := r3.Dot(a, b) / (na * nb)
	return math.Max(-1, math.Min(1, c))
}

// minVec and maxVec are component-wise.
func minVec(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

func maxVec(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}
