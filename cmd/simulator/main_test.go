package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const pairJSON = `{
  "cells": [
    {"id": 0, "offset": {"x": 0.5, "y": 0.5, "z": 0.5}, "faces": [
      {"neighbor": 1, "neighbor_face": 0, "adjacent": [1],
       "vertices": [[-0.5,-0.5,-0.5],[0.5,-0.5,-0.5],[0.5,0.5,-0.5],[-0.5,0.5,-0.5]]},
      {"neighbor": -6, "adjacent": [0],
       "vertices": [[-0.5,-0.5,0.5],[0.5,-0.5,0.5],[0.5,0.5,0.5],[-0.5,0.5,0.5]]}
    ]},
    {"id": 1, "offset": {"x": 0.5, "y": 0.5, "z": -0.5}, "faces": [
      {"neighbor": 0, "neighbor_face": 0,
       "vertices": [[-0.5,-0.5,0.5],[-0.5,0.5,0.5],[0.5,0.5,0.5],[0.5,-0.5,0.5]]},
      {"neighbor": -5,
       "vertices": [[-0.5,-0.5,-0.5],[-0.5,0.5,-0.5],[0.5,0.5,-0.5],[0.5,-0.5,-0.5]]}
    ]}
  ]
}`

func TestRunBoxGrid(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	err := run(context.Background(), []string{
		"-grid", "2,2,3",
		"-set", "num_infiltrations=4",
		"-set", "random_seed=5",
		"-resistance", "wave",
		"-print-path",
	}, &out)
	if err != nil {
		t.Fatalf("run error: %v\n%s", err, out.String())
	}

	got := out.String()
	for _, want := range []string{
		"Link graph: 12 cells, 20 internal links, 32 external links, 1 components, 0 unresolved faces",
		"infiltration 4: exit=",
		"Simulation complete: 4 infiltrations",
		"Broken links:",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
	if !strings.Contains(got, "  k(") {
		t.Fatalf("path trace not printed:\n%s", got)
	}
}

func TestRunLoadsDecompositionAndSnapshots(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	dir := t.TempDir()
	input := filepath.Join(dir, "pair.json")
	if err := os.WriteFile(input, []byte(pairJSON), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	db := filepath.Join(dir, "snapshots")

	var out bytes.Buffer
	err := run(context.Background(), []string{
		"-input", input,
		"-set", "num_infiltrations=2",
		"-snapshot-db", db,
		"-save", "first",
	}, &out)
	if err != nil {
		t.Fatalf("first run error: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "Link graph: 2 cells, 1 internal links, 2 external links") {
		t.Fatalf("unexpected graph summary:\n%s", out.String())
	}
	if !strings.Contains(out.String(), `Saved snapshot "first"`) {
		t.Fatalf("snapshot not saved:\n%s", out.String())
	}

	out.Reset()
	err = run(context.Background(), []string{
		"-input", input,
		"-set", "num_infiltrations=1",
		"-snapshot-db", db,
		"-load", "first",
	}, &out)
	if err != nil {
		t.Fatalf("second run error: %v\n%s", err, out.String())
	}

	out.Reset()
	err = run(context.Background(), []string{
		"-input", input,
		"-snapshot-db", db,
		"-load", "missing",
	}, &out)
	if err == nil {
		t.Fatalf("want error loading a missing snapshot")
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	for _, args := range [][]string{
		{"-grid", "2,2"},
		{"-grid", "0,1,1"},
		{"-set", "max_depth=0"},
		{"-set", "nonsense"},
		{"-resistance", "fractal"},
		{"-input", "/does/not/exist.json"},
	} {
		var out bytes.Buffer
		if err := run(context.Background(), args, &out); err == nil {
			t.Errorf("run(%v) succeeded, want error", args)
		}
	}
}

func TestOverridesFlag(t *testing.T) {
	o := overrides{}
	if err := o.Set(" max_depth = 4 "); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := o.Set("=3"); err == nil {
		t.Fatalf("want error for empty key")
	}
	if o["max_depth"] != "4" || o.String() != "max_depth=4" {
		t.Fatalf("overrides = %v", o)
	}
}
