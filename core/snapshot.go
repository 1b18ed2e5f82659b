package core

import "github.com/pkg/errors"

// LinkState is the mutable part of a link.
type LinkState struct {
	Key        LinkKey `json:"key"`
	Life       float64 `json:"life"`
	Picks      int     `json:"picks"`
	PicksEntry int     `json:"picks_entry"`
	AirLink    bool    `json:"air_link"`
}

// GraphSnapshot captures the simulation state of every link, in creation
// order.
type GraphSnapshot struct {
	Links []LinkState `json:"links"`
}

// Snapshot captures the simulation state of the graph.
func (g *LinkGraph) Snapshot() GraphSnapshot {
	snap := GraphSnapshot{Links: make([]LinkState, 0, len(g.links))}
	for _, l := range g.links {
		snap.Links = append(snap.Links, LinkState{
			Key:        l.KeyCells,
			Life:       l.Life,
			Picks:      l.Picks,
			PicksEntry: l.PicksEntry,
			AirLink:    l.AirLink,
		})
	}
	return snap
}

// Restore applies a snapshot taken from a graph with the same links. The
// snapshot is checked in full before any link is changed.
func (g *LinkGraph) Restore(snap GraphSnapshot) error {
	if len(snap.Links) != len(g.linkMap) {
		return errors.Wrapf(ErrSnapshotMismatch, "snapshot has %d links, graph has %d", len(snap.Links), len(g.linkMap))
	}
	for _, st := range snap.Links {
		if _, ok := g.linkMap[st.Key]; !ok {
			return errors.Wrapf(ErrSnapshotMismatch, "unknown link %s", st.Key)
		}
	}
	for _, st := range snap.Links {
		l := g.linkMap[st.Key]
		l.Life = st.Life
		l.Picks = st.Picks
		l.PicksEntry = st.PicksEntry
		l.AirLink = st.AirLink
	}
	return nil
}
