package core

import (
	"encoding/binary"
	"fmt"

	"github.com/signalsfoundry/fracture-sim/model"
)

// LinkKey is the identity of a link: an unordered pair of endpoint ids
// stored with A <= B. Wall ids are negative, so they always come first.
type LinkKey struct {
	A, B model.CellID
}

// NewLinkKey forms the canonical key for the pair (a, b).
func NewLinkKey(a, b model.CellID) LinkKey {
	key, _ := linkKeySwap(a, b)
	return key
}

// linkKeySwap forms the canonical key and reports whether a and b had to
// be swapped. The face key of the same link uses the same swap so the two
// keys stay in correspondence.
func linkKeySwap(a, b model.CellID) (LinkKey, bool) {
	if a > b {
		return LinkKey{A: b, B: a}, true
	}
	return LinkKey{A: a, B: b}, false
}

// faceKey orders a pair of face indices with the given swap.
func faceKey(fa, fb int, swap bool) LinkKey {
	if swap {
		return LinkKey{A: model.CellID(fb), B: model.CellID(fa)}
	}
	return LinkKey{A: model.CellID(fa), B: model.CellID(fb)}
}

// IsWall reports whether the key joins a cell to a wall.
func (k LinkKey) IsWall() bool { return model.IsWall(k.A) }

// IsError reports whether the key stands for an unresolved face.
func (k LinkKey) IsError() bool { return model.IsError(k.A) }

// Other returns the endpoint opposite to id.
func (k LinkKey) Other(id model.CellID) model.CellID {
	if k.A == id {
		return k.B
	}
	return k.A
}

// Has reports whether id is one of the endpoints.
func (k LinkKey) Has(id model.CellID) bool { return k.A == id || k.B == id }

func (k LinkKey) String() string {
	return fmt.Sprintf("k(%d_%d)", k.A, k.B)
}

// Bytes packs the key into 16 big-endian bytes. Byte order follows the
// numeric order of non-negative ids, which is enough for prefix scans.
func (k LinkKey) Bytes() []byte {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(int64(k.A)))
	binary.BigEndian.PutUint64(buf[8:], uint64(int64(k.B)))
	return buf[:]
}

// LinkKeyFromBytes decodes a key produced by Bytes.
func LinkKeyFromBytes(b []byte) (LinkKey, error) {
	if len(b) != 16 {
		return LinkKey{}, fmt.Errorf("link key: want 16 bytes, got %d", len(b))
	}
	return LinkKey{
		A: model.CellID(int64(binary.BigEndian.Uint64(b[:8]))),
		B: model.CellID(int64(binary.BigEndian.Uint64(b[8:]))),
	}, nil
}
