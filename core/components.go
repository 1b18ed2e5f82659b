package core

import (
	"slices"

	"github.com/emirpasic/gods/maps/treemap"

	"github.com/signalsfoundry/fracture-sim/model"
)

// disjointSet is a union-find over cell ids with path halving and union
// by size.
type disjointSet struct {
	parent map[model.CellID]model.CellID
	size   map[model.CellID]int
}

func newDisjointSet(ids []model.CellID) *disjointSet {
	ds := &disjointSet{
		parent: make(map[model.CellID]model.CellID, len(ids)),
		size:   make(map[model.CellID]int, len(ids)),
	}
	for _, id := range ids {
		ds.parent[id] = id
		ds.size[id] = 1
	}
	return ds
}

func (ds *disjointSet) find(id model.CellID) model.CellID {
	for ds.parent[id] != id {
		ds.parent[id] = ds.parent[ds.parent[id]]
		id = ds.parent[id]
	}
	return id
}

func (ds *disjointSet) union(a, b model.CellID) {
	ra, rb := ds.find(a), ds.find(b)
	if ra == rb {
		return
	}
	if ds.size[ra] < ds.size[rb] {
		ra, rb = rb, ra
	}
	ds.parent[rb] = ra
	ds.size[ra] += ds.size[rb]
}

// components groups ids by root. Members are sorted and components are
// ordered by their smallest member.
func (ds *disjointSet) components(ids []model.CellID) [][]model.CellID {
	byRoot := make(map[model.CellID][]model.CellID)
	for _, id := range ids {
		r := ds.find(id)
		byRoot[r] = append(byRoot[r], id)
	}

	ordered := treemap.NewWithIntComparator()
	for _, members := range byRoot {
		slices.Sort(members)
		ordered.Put(int(members[0]), members)
	}

	out := make([][]model.CellID, 0, ordered.Size())
	for _, v := range ordered.Values() {
		out = append(out, v.([]model.CellID))
	}
	return out
}
