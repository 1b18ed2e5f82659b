package model

import "testing"

func TestSentinelRanges(t *testing.T) {
	cases := []struct {
		id                  CellID
		cell, wall, errMark bool
	}{
		{0, true, false, false},
		{42, true, false, false},
		{WallXNeg, false, true, false},
		{WallZPos, false, true, false},
		{WallIDMin, false, true, false},
		{ErrorIDMax, false, false, true},
		{ErrorAsymmetry, false, false, true},
		{ErrorMissing, false, false, true},
	}
	for _, c := range cases {
		if got := IsCell(c.id); got != c.cell {
			t.Errorf("IsCell(%d) = %v, want %v", c.id, got, c.cell)
		}
		if got := IsWall(c.id); got != c.wall {
			t.Errorf("IsWall(%d) = %v, want %v", c.id, got, c.wall)
		}
		if got := IsError(c.id); got != c.errMark {
			t.Errorf("IsError(%d) = %v, want %v", c.id, got, c.errMark)
		}
	}
}

func TestParseCellState(t *testing.T) {
	for in, want := range map[string]CellState{
		"":      StateSolid,
		"SOLID": StateSolid,
		"core":  StateCore,
		" Air ": StateAir,
	} {
		got, err := ParseCellState(in)
		if err != nil {
			t.Fatalf("ParseCellState(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseCellState(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseCellState("lava"); err == nil {
		t.Fatalf("expected error for unknown state")
	}
	if StateCore.String() != "core" {
		t.Fatalf("StateCore.String() = %q", StateCore.String())
	}
}
