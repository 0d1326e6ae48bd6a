// Package state persists per-document pipeline progress as one JSON file per
// document. Writers are independent OS processes; the write path is guarded
// by an advisory file lock with a bounded acquisition budget, and every write
// goes through an atomic temp-file rename so readers never observe a torn
// file.
//
// Known hazard, preserved deliberately: Update is a read-modify-write whose
// lock covers only the final write step. Two concurrent Updates for the same
// document can interleave between their read and write, and the later write
// wins (a lost update). Callers needing stronger ordering must serialize
// externally.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/specgate/internal/filelock"
)

const (
	lockAttempts = 10
	lockBackoff  = 10 * time.Millisecond
)

// issueFields maps pipeline stages to the finding lists that count toward
// the accumulated issue total.
var issueFields = map[string][]string{
	"stress-test": {"invariant_violations", "critical_blockers"},
	"validate":    {"ambiguity_flags"},
}

// Findings is the payload a pipeline stage records: named lists of issue
// descriptions.
type Findings map[string][]string

// CommandRecord is one stage's entry in a document's pipeline state.
type CommandRecord struct {
	Timestamp string   `json:"timestamp"`
	Findings  Findings `json:"findings"`
}

// PipelineState tracks which stages have run for one document. On disk it is
// a flat JSON object: one key per executed command, plus last_updated and
// last_command bookkeeping keys.
type PipelineState struct {
	Commands    map[string]CommandRecord
	LastUpdated string
	LastCommand string
}

// NewPipelineState returns an empty state.
func NewPipelineState() *PipelineState {
	return &PipelineState{Commands: map[string]CommandRecord{}}
}

// MarshalJSON flattens command records to top-level keys, matching the
// on-disk shape consumed by external pipeline drivers.
func (s *PipelineState) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(s.Commands)+2)
	for name, rec := range s.Commands {
		flat[name] = rec
	}
	if s.LastUpdated != "" {
		flat["last_updated"] = s.LastUpdated
	}
	if s.LastCommand != "" {
		flat["last_command"] = s.LastCommand
	}
	return json.Marshal(flat)
}

// UnmarshalJSON rebuilds the command map from the flat on-disk object.
// Unknown non-record keys are ignored.
func (s *PipelineState) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	s.Commands = map[string]CommandRecord{}
	for key, raw := range flat {
		switch key {
		case "last_updated":
			if err := json.Unmarshal(raw, &s.LastUpdated); err != nil {
				return fmt.Errorf("last_updated: %w", err)
			}
		case "last_command":
			if err := json.Unmarshal(raw, &s.LastCommand); err != nil {
				return fmt.Errorf("last_command: %w", err)
			}
		default:
			var rec CommandRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				return fmt.Errorf("command %s: %w", key, err)
			}
			s.Commands[key] = rec
		}
	}
	return nil
}

// WarnLogger receives degraded-mode notices: unlocked-write fallback and
// recovery from a corrupted state file.
type WarnLogger interface {
	Warnf(format string, args ...interface{})
}

// Clock supplies timestamps; injectable so tests control time.
type Clock func() time.Time

// Store reads and writes pipeline state files under a single directory.
type Store struct {
	dir  string
	now  Clock
	warn WarnLogger
}

// NewStore creates a store rooted at dir. clock may be nil (wall clock);
// warn may be nil (notices dropped).
func NewStore(dir string, clock Clock, warn WarnLogger) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{dir: dir, now: clock, warn: warn}
}

// Path returns the state file path for a document: the document basename
// with its extension stripped, suffixed .state.json, under the store dir.
func (s *Store) Path(documentID string) string {
	base := filepath.Base(documentID)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(s.dir, base+".state.json")
}

// Read loads the state for a document. A missing file is an empty state, not
// an error. A file that exists but holds invalid JSON is also an empty state,
// with recovered=true so callers can observe that prior history was
// discarded rather than it being silently swallowed.
func (s *Store) Read(documentID string) (st *PipelineState, recovered bool, err error) {
	data, err := os.ReadFile(s.Path(documentID))
	if err != nil {
		if os.IsNotExist(err) {
			return NewPipelineState(), false, nil
		}
		return nil, false, fmt.Errorf("read state for %s: %w", documentID, err)
	}

	st = NewPipelineState()
	if err := json.Unmarshal(data, st); err != nil {
		s.warnf("state file for %s is corrupted, starting fresh: %v", documentID, err)
		return NewPipelineState(), true, nil
	}
	return st, false, nil
}

// Write persists the state for a document. The per-document lock is tried
// for lockAttempts × lockBackoff; on timeout the write proceeds WITHOUT the
// lock (liveness over isolation — a concurrent writer may race this write).
// The temp-file rename still guarantees no reader sees partial JSON.
func (s *Store) Write(documentID string, st *PipelineState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state for %s: %w", documentID, err)
	}

	// The lock file lives inside the state dir, so the dir must exist
	// before the first acquisition attempt or every try fails and the
	// write degrades to the unlocked path for no reason.
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create state directory %s: %w", s.dir, err)
	}

	path := s.Path(documentID)
	lock := filelock.New(path + ".lock")
	if lock.AcquireWithin(lockAttempts, lockBackoff) {
		defer lock.Release()
	} else {
		s.warnf("lock timeout on %s, writing unlocked", path)
	}

	return filelock.AtomicWrite(path, data)
}

// Update records one stage execution: it reads the current state, sets the
// command's record, refreshes last_updated/last_command, and writes the
// result. Prior command keys are never removed.
//
// Not atomic end-to-end: see the package comment.
func (s *Store) Update(documentID, command string, findings Findings) error {
	st, _, err := s.Read(documentID)
	if err != nil {
		return err
	}

	now := s.now().UTC().Format(time.RFC3339)
	st.Commands[command] = CommandRecord{Timestamp: now, Findings: findings}
	st.LastUpdated = now
	st.LastCommand = command

	return s.Write(documentID, st)
}

// HasCommand reports whether the given stage has been recorded for the
// document.
func (s *Store) HasCommand(documentID, command string) (bool, error) {
	st, _, err := s.Read(documentID)
	if err != nil {
		return false, err
	}
	_, ok := st.Commands[command]
	return ok, nil
}

// AccumulatedIssues sums the issue-list lengths recorded by known stages.
// Absent stages or fields contribute zero: absence means no issues recorded
// yet, not an error.
func (s *Store) AccumulatedIssues(documentID string) (int, error) {
	st, _, err := s.Read(documentID)
	if err != nil {
		return 0, err
	}

	total := 0
	for command, fields := range issueFields {
		rec, ok := st.Commands[command]
		if !ok {
			continue
		}
		for _, field := range fields {
			total += len(rec.Findings[field])
		}
	}
	return total, nil
}

func (s *Store) warnf(format string, args ...interface{}) {
	if s.warn != nil {
		s.warn.Warnf(format, args...)
	}
}
