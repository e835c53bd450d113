// Package store provides durable per-meeting state as plain files in the
// output directory.
//
// Each meeting ID owns a pair of files:
//   - <id>.json: the persisted Meeting attributes, instants in the
//     canonical RSS date format
//   - <id>.html: the last-known agenda body, or the placeholder
//
// Both files are written atomically (write-to-temp-then-rename), so a
// crash mid-run leaves the previous state intact. The store is
// single-writer: one driver instance owns the directory during a run.
// Concurrent instances are not guarded against; that discipline is the
// operator's.
package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/akkana/mtgmon/internal/faults"
	"github.com/akkana/mtgmon/internal/meeting"
)

// Store manages the per-meeting state files in one directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// Open prepares the store directory, creating it if needed.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, faults.Wrap(faults.Store, "create store directory", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the store's directory.
func (s *Store) Dir() string {
	return s.dir
}

// JSONPath returns the state-file path for a meeting ID.
func (s *Store) JSONPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// HTMLPath returns the agenda-file path for a meeting ID.
func (s *Store) HTMLPath(id string) string {
	return filepath.Join(s.dir, id+".html")
}

// Load returns the persisted meeting for id, or nil if no state file
// exists. Malformed JSON is logged and treated as absent, which forces a
// fresh "new" classification on this run rather than aborting it.
func (s *Store) Load(id string) (*meeting.Meeting, error) {
	data, err := os.ReadFile(s.JSONPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, faults.Wrap(faults.Store, "read meeting state", err)
	}

	var m meeting.Meeting
	if err := json.Unmarshal(data, &m); err != nil {
		s.logger.Warn("malformed meeting state, treating as new", "id", id, "error", err)
		return nil, nil
	}

	html, err := os.ReadFile(s.HTMLPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		// Half a pair is a store inconsistency; the agenda will look
		// changed on this run and the pair gets rewritten.
		s.logger.Warn("meeting state has no agenda file", "id", id)
	} else if err != nil {
		return nil, faults.Wrap(faults.Store, "read agenda file", err)
	} else {
		m.AgendaHTML = html
	}
	return &m, nil
}

// Save persists the meeting's agenda HTML and JSON state, each atomically.
// The HTML is written first so that a reader following a feed link never
// finds state without a body.
func (s *Store) Save(m *meeting.Meeting) error {
	html := m.AgendaHTML
	if html == nil {
		html = []byte{}
	}
	if err := s.writeAtomic(s.HTMLPath(m.ID), html); err != nil {
		return err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return faults.Wrap(faults.Store, "encode meeting state", err)
	}
	return s.writeAtomic(s.JSONPath(m.ID), append(data, '\n'))
}

// ListIDs enumerates the IDs of all persisted meetings.
func (s *Store) ListIDs() (map[string]bool, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, faults.Wrap(faults.Store, "list store directory", err)
	}
	ids := make(map[string]bool)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := strings.CutSuffix(e.Name(), ".json"); ok {
			ids[id] = true
		}
	}
	return ids, nil
}

// Remove deletes both state files for id, if present.
func (s *Store) Remove(id string) error {
	for _, path := range []string{s.JSONPath(id), s.HTMLPath(id)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return faults.Wrap(faults.Store, "remove meeting files", err)
		}
	}
	return nil
}

// WriteArtifact atomically writes a named artifact (feed, index page, diff
// page) into the store directory.
func (s *Store) WriteArtifact(name string, data []byte) error {
	return s.writeAtomic(filepath.Join(s.dir, name), data)
}

// writeAtomic writes data to path via a temp file in the same directory
// plus rename.
func (s *Store) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return faults.Wrap(faults.Store, "create temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return faults.Wrap(faults.Store, "write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return faults.Wrap(faults.Store, "close temp file", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return faults.Wrap(faults.Store, "rename temp file", err)
	}
	return nil
}
