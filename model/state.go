package model

import (
	"fmt"
	"strings"
)

// CellState is the per-cell simulation state.
type CellState int

const (
	StateSolid CellState = iota
	StateCore
	StateAir
)

func (s CellState) String() string {
	switch s {
	case StateSolid:
		return "solid"
	case StateCore:
		return "core"
	case StateAir:
		return "air"
	default:
		return fmt.Sprintf("CellState(%d)", int(s))
	}
}

// ParseCellState maps a case-insensitive name to a CellState. An empty
// string defaults to StateSolid.
func ParseCellState(s string) (CellState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "solid":
		return StateSolid, nil
	case "core":
		return StateCore, nil
	case "air":
		return StateAir, nil
	default:
		return StateSolid, fmt.Errorf("unknown cell state %q", s)
	}
}
