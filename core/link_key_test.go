package core

import (
	"testing"

	"github.com/signalsfoundry/fracture-sim/model"
)

func TestLinkKeyOrderIndependent(t *testing.T) {
	ids := []model.CellID{-6, -1, 0, 1, 7, 42}
	for _, a := range ids {
		for _, b := range ids {
			if NewLinkKey(a, b) != NewLinkKey(b, a) {
				t.Fatalf("NewLinkKey(%d,%d) != NewLinkKey(%d,%d)", a, b, b, a)
			}
			k := NewLinkKey(a, b)
			if k.A > k.B {
				t.Fatalf("key %v is not sorted", k)
			}
		}
	}
}

func TestLinkKeyWallSortsFirst(t *testing.T) {
	k := NewLinkKey(3, model.WallZPos)
	if k.A != model.WallZPos || k.B != 3 {
		t.Fatalf("wall id must come first, got %v", k)
	}
	if !k.IsWall() || k.IsError() {
		t.Fatalf("expected a wall key, got %v", k)
	}
	if k.Other(3) != model.WallZPos || !k.Has(3) {
		t.Fatalf("Other/Has broken for %v", k)
	}
}

func TestFaceKeyFollowsCellSwap(t *testing.T) {
	key, swap := linkKeySwap(5, 2)
	if !swap || key != (LinkKey{A: 2, B: 5}) {
		t.Fatalf("linkKeySwap(5,2) = %v,%v", key, swap)
	}
	// face 4 belongs to cell 5, face 1 to cell 2
	fk := faceKey(4, 1, swap)
	if fk != (LinkKey{A: 1, B: 4}) {
		t.Fatalf("faceKey = %v, want k(1_4)", fk)
	}
}

func TestLinkKeyBytesRoundTrip(t *testing.T) {
	k := NewLinkKey(model.WallXNeg, 12)
	got, err := LinkKeyFromBytes(k.Bytes())
	if err != nil {
		t.Fatalf("LinkKeyFromBytes: %v", err)
	}
	if got != k {
		t.Fatalf("round trip = %v, want %v", got, k)
	}
	if _, err := LinkKeyFromBytes([]byte{1, 2}); err == nil {
		t.Fatalf("expected error for short input")
	}
}
