// Package history implements the History Store of spec.md §4.8: up to 5
// numbered JSON save-slots per fully-qualified method name, on disk under a
// configured base directory. All I/O is best-effort — a failed save, load
// or delete is logged and otherwise ignored, never propagated as a fatal
// error, matching original_source/wireman/src/model/history.rs's
// `Logger::debug(...); return` pattern throughout.
package history

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/kdavison/grpctui/internal/logging"
	"go.uber.org/zap"
)

// NumSlots is the number of numbered save spots per method, per spec.md.
const NumSlots = 5

// Record is the on-disk shape of one save slot. Field names and json tags
// mirror HistoryData in history.rs (message/address/authentication/
// metadata), with metadata kept as a map the way BTreeMap<String,String>
// serializes — ordering is not meaningful for gRPC metadata re-application.
type Record struct {
	Message        string            `json:"message"`
	Address        string            `json:"address"`
	Authentication string            `json:"authentication,omitempty"`
	Metadata       map[string]string `json:"metadata"`
}

// Store manages history files for one configured base directory.
type Store struct {
	baseDir  string
	disabled bool
	autosave bool
}

// New creates a Store rooted at baseDir. If disabled is true, Save/Load/
// Delete are no-ops (spec.md's `history.disabled` config key).
func New(baseDir string, disabled, autosave bool) *Store {
	return &Store{baseDir: baseDir, disabled: disabled, autosave: autosave}
}

// Disabled reports whether history is turned off entirely.
func (s *Store) Disabled() bool { return s.disabled }

// Autosave reports whether a save should happen automatically before every
// dispatch (spec.md §9's "autosave ordering pre-dispatch").
func (s *Store) Autosave() bool { return s.autosave }

// slotPath returns the path for a given method/slot pair, or ("", false)
// if the base directory does not exist — mirrors path() in history.rs,
// which refuses to operate when the configured base folder is absent
// rather than creating it.
func (s *Store) slotPath(methodFullName string, slot int) (string, bool) {
	if _, err := os.Stat(s.baseDir); err != nil {
		logging.Debug("history: base path does not exist", zap.String("path", s.baseDir))
		return "", false
	}
	dir := filepath.Join(s.baseDir, methodFullName)
	return filepath.Join(dir, slotFilename(slot)), true
}

func slotFilename(slot int) string {
	return string(rune('0'+slot)) + ".json"
}

// EnabledSlots reports which of the NumSlots save spots already have a
// file on disk for the given method.
func (s *Store) EnabledSlots(methodFullName string) [NumSlots]bool {
	var out [NumSlots]bool
	for i := 0; i < NumSlots; i++ {
		path, ok := s.slotPath(methodFullName, i+1)
		if !ok {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			out[i] = true
		}
	}
	return out
}

// Save writes a record to the given slot, creating the per-method
// subdirectory if needed. Failures are logged and swallowed.
func (s *Store) Save(methodFullName string, slot int, rec Record) {
	if s.disabled {
		return
	}
	path, ok := s.slotPath(methodFullName, slot)
	if !ok {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logging.Debug("history: cannot create dir", zap.String("dir", filepath.Dir(path)), zap.Error(err))
		return
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		logging.Debug("history: failed to convert to json", zap.Error(err))
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logging.Debug("history: unable to write file", zap.String("path", path), zap.Error(err))
	}
}

// Load reads a record from the given slot. It returns (nil, false) if
// history is disabled, the slot file is missing, or it cannot be parsed —
// callers treat all three identically (no history to apply).
func (s *Store) Load(methodFullName string, slot int) (*Record, bool) {
	if s.disabled {
		return nil, false
	}
	path, ok := s.slotPath(methodFullName, slot)
	if !ok {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		logging.Debug("history: failed to parse from json", zap.String("path", path), zap.Error(err))
		return nil, false
	}
	return &rec, true
}

// Delete removes a save slot, ignoring a missing file.
func (s *Store) Delete(methodFullName string, slot int) {
	if s.disabled {
		return
	}
	path, ok := s.slotPath(methodFullName, slot)
	if !ok {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.Debug("history: unable to delete file", zap.String("path", path), zap.Error(err))
	}
}
