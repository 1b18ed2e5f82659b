package kb

import (
	"strings"
	"testing"

	"github.com/signalsfoundry/fracture-sim/model"
)

const twoCellJSON = `{
  "cells": [
    {
      "id": 0,
      "offset": {"x": 0.5, "y": 0.5, "z": 0.5},
      "faces": [
        {"neighbor": 1, "neighbor_face": 0,
         "vertices": [[0.5,-0.5,-0.5],[0.5,0.5,-0.5],[0.5,0.5,0.5],[0.5,-0.5,0.5]],
         "adjacent": [1]},
        {"neighbor": -1,
         "vertices": [[-0.5,-0.5,-0.5],[-0.5,-0.5,0.5],[-0.5,0.5,0.5],[-0.5,0.5,-0.5]],
         "adjacent": [0]}
      ]
    },
    {
      "id": 1,
      "state": "core",
      "offset": {"x": 1.5, "y": 0.5, "z": 0.5},
      "faces": [
        {"neighbor": 0,
         "vertices": [[-0.5,-0.5,-0.5],[-0.5,-0.5,0.5],[-0.5,0.5,0.5],[-0.5,0.5,-0.5]],
         "adjacent": [1]},
        {"neighbor": 7, "adjacent": [0]}
      ]
    }
  ]
}`

func TestLoadContainer(t *testing.T) {
	cont, summary, err := LoadContainer(strings.NewReader(twoCellJSON))
	if err != nil {
		t.Fatalf("LoadContainer error: %v", err)
	}
	if len(summary.CellIDs) != 2 || summary.Faces != 4 {
		t.Fatalf("summary = %+v, want 2 cells and 4 faces", summary)
	}
	if summary.Unresolved != 1 || summary.Missing != 1 {
		t.Fatalf("summary unresolved = %d missing = %d, want 1 and 1", summary.Unresolved, summary.Missing)
	}

	if s, _ := cont.CellState(1); s != model.StateCore {
		t.Fatalf("cell 1 state = %v, want core", s)
	}
	c0 := cont.Cell(0)
	if c0.Offset.X != 0.5 || len(c0.Faces[0].Vertices) != 4 {
		t.Fatalf("cell 0 geometry not loaded: %+v", c0)
	}
	if got := cont.NeighborFace(1, 0); got != 0 {
		t.Fatalf("NeighborFace(1,0) = %d, want 0", got)
	}
	if got := cont.Neighbor(1, 1); got != model.ErrorMissing {
		t.Fatalf("Neighbor(1,1) = %d, want ErrorMissing", got)
	}
}

func TestLoadContainerErrors(t *testing.T) {
	for name, payload := range map[string]string{
		"bad json":    `{"cells": [`,
		"missing id":  `{"cells": [{"faces": []}]}`,
		"bad state":   `{"cells": [{"id": 0, "state": "lava"}]}`,
		"duplicate":   `{"cells": [{"id": 0}, {"id": 0}]}`,
		"bad adjoint": `{"cells": [{"id": 0, "faces": [{"neighbor": -1, "adjacent": [3]}]}]}`,
	} {
		if _, _, err := LoadContainer(strings.NewReader(payload)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
