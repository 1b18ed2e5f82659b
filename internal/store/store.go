// Package store persists simulation snapshots in a badger database so a
// host can undo and redo link damage and cell state changes.
package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"

	"github.com/signalsfoundry/fracture-sim/core"
	"github.com/signalsfoundry/fracture-sim/internal/logging"
	"github.com/signalsfoundry/fracture-sim/model"
)

var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrBadName          = errors.New("invalid snapshot name")
	ErrCorrupt          = errors.New("corrupt snapshot record")
)

/*
Database layout:

	snap/<name>/meta           => snapshotMeta (JSON)
	snap/<name>/l/<LinkKey>    => link state, 25 bytes:
	                              life (float64 bits), picks, picks_entry, air flag
*/
const (
	snapPrefix = "snap/"
	metaSuffix = "/meta"
	linkInfix  = "/l/"

	linkStateLen = 8 + 8 + 8 + 1
)

// Snapshot is the mutable state of one fracture result.
type Snapshot struct {
	Name      string
	CreatedAt time.Time
	Graph     core.GraphSnapshot
	Cells     map[model.CellID]model.CellState
}

type snapshotMeta struct {
	CreatedAt time.Time                        `json:"created_at"`
	Links     int                              `json:"links"`
	Cells     map[model.CellID]model.CellState `json:"cells,omitempty"`
}

// SnapshotStore is a badger-backed snapshot database.
type SnapshotStore struct {
	db  *badger.DB
	log logging.Logger
}

// Open opens the database at path. An empty path opens an in-memory
// database.
func Open(path string, log logging.Logger) (*SnapshotStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.DetectConflicts = false
	if path == "" {
		opts.InMemory = true
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open snapshot store %q", path)
	}
	return &SnapshotStore{db: db, log: logging.OrNoop(log)}, nil
}

// Close closes the database.
func (s *SnapshotStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func checkName(name string) error {
	if name == "" || strings.ContainsRune(name, '/') {
		return errors.Wrapf(ErrBadName, "%q", name)
	}
	return nil
}

func snapshotPrefix(name string) []byte { return []byte(snapPrefix + name + "/") }
func metaKey(name string) []byte        { return []byte(snapPrefix + name + metaSuffix) }

func linkKey(name string, key core.LinkKey) []byte {
	return append([]byte(snapPrefix+name+linkInfix), key.Bytes()...)
}

// Save writes snap, replacing any snapshot with the same name.
func (s *SnapshotStore) Save(ctx context.Context, snap Snapshot) error {
	if err := checkName(snap.Name); err != nil {
		return err
	}
	if err := s.dropPrefix(snapshotPrefix(snap.Name)); err != nil {
		return errors.Wrapf(err, "replace snapshot %q", snap.Name)
	}

	created := snap.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	meta, err := json.Marshal(snapshotMeta{
		CreatedAt: created,
		Links:     len(snap.Graph.Links),
		Cells:     snap.Cells,
	})
	if err != nil {
		return errors.Wrap(err, "encode snapshot meta")
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, st := range snap.Graph.Links {
		if err := wb.Set(linkKey(snap.Name, st.Key), encodeLinkState(st)); err != nil {
			return errors.Wrapf(err, "write link %s", st.Key)
		}
	}
	// meta last, so a snapshot is only listed once its links are in
	if err := wb.Set(metaKey(snap.Name), meta); err != nil {
		return errors.Wrap(err, "write snapshot meta")
	}
	if err := wb.Flush(); err != nil {
		return errors.Wrapf(err, "flush snapshot %q", snap.Name)
	}

	s.log.Debug(ctx, "snapshot saved",
		logging.String("name", snap.Name),
		logging.Int("links", len(snap.Graph.Links)),
		logging.Int("cells", len(snap.Cells)),
	)
	return nil
}

// Load reads the snapshot called name.
func (s *SnapshotStore) Load(name string) (*Snapshot, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	out := &Snapshot{Name: name}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(name))
		if err == badger.ErrKeyNotFound {
			return errors.Wrapf(ErrSnapshotNotFound, "%q", name)
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		var meta snapshotMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return errors.Wrapf(ErrCorrupt, "meta of %q: %v", name, err)
		}
		out.CreatedAt = meta.CreatedAt
		out.Cells = meta.Cells
		out.Graph.Links = make([]core.LinkState, 0, meta.Links)

		prefix := []byte(snapPrefix + name + linkInfix)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 100})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key, err := core.LinkKeyFromBytes(bytes.TrimPrefix(item.Key(), prefix))
			if err != nil {
				return errors.Wrapf(ErrCorrupt, "%v", err)
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			st, err := decodeLinkState(key, val)
			if err != nil {
				return err
			}
			out.Graph.Links = append(out.Graph.Links, st)
		}
		if len(out.Graph.Links) != meta.Links {
			return errors.Wrapf(ErrCorrupt, "%q has %d links, meta says %d", name, len(out.Graph.Links), meta.Links)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns the names of stored snapshots in key order.
func (s *SnapshotStore) List() ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(snapPrefix)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			k := string(it.Item().Key())
			if strings.HasSuffix(k, metaSuffix) {
				names = append(names, strings.TrimSuffix(strings.TrimPrefix(k, snapPrefix), metaSuffix))
			}
		}
		return nil
	})
	return names, err
}

// Delete removes the snapshot called name.
func (s *SnapshotStore) Delete(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(metaKey(name))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return errors.Wrapf(ErrSnapshotNotFound, "%q", name)
	}
	if err != nil {
		return err
	}
	return s.dropPrefix(snapshotPrefix(name))
}

// dropPrefix deletes every key under prefix.
func (s *SnapshotStore) dropPrefix(prefix []byte) error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil || len(keys) == 0 {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func encodeLinkState(st core.LinkState) []byte {
	buf := make([]byte, linkStateLen)
	binary.BigEndian.PutUint64(buf[0:8], math.Float64bits(st.Life))
	binary.BigEndian.PutUint64(buf[8:16], uint64(st.Picks))
	binary.BigEndian.PutUint64(buf[16:24], uint64(st.PicksEntry))
	if st.AirLink {
		buf[24] = 1
	}
	return buf
}

func decodeLinkState(key core.LinkKey, buf []byte) (core.LinkState, error) {
	if len(buf) != linkStateLen {
		return core.LinkState{}, errors.Wrapf(ErrCorrupt, "link %s: %d bytes", key, len(buf))
	}
	return core.LinkState{
		Key:        key,
		Life:       math.Float64frombits(binary.BigEndian.Uint64(buf[0:8])),
		Picks:      int(binary.BigEndian.Uint64(buf[8:16])),
		PicksEntry: int(binary.BigEndian.Uint64(buf[16:24])),
		AirLink:    buf[24] == 1,
	}, nil
}
