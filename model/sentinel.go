package model

// Wall ids occupy [WallIDMin, -1]. The six walls of a box container follow
// the voro++ numbering.
const (
	WallXNeg CellID = -1
	WallXPos CellID = -2
	WallYNeg CellID = -3
	WallYPos CellID = -4
	WallZNeg CellID = -5
	WallZPos CellID = -6

	WallIDMin CellID = -999
)

// Error markers are at or below ErrorIDMax. A face carrying one of them
// could not be paired with its neighbor and never produces a link.
const (
	ErrorIDMax CellID = -1000

	// ErrorAsymmetry marks a face whose neighbor does not report the
	// reciprocal face.
	ErrorAsymmetry CellID = -1001
	// ErrorMissing marks a face whose neighbor cell is not present.
	ErrorMissing CellID = -1002
)

// IsCell reports whether id refers to a cell.
func IsCell(id CellID) bool { return id >= 0 }

// IsWall reports whether id refers to a container wall.
func IsWall(id CellID) bool { return id < 0 && id >= WallIDMin }

// IsError reports whether id is an unresolved-face marker.
func IsError(id CellID) bool { return id <= ErrorIDMax }
