// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

// Package configpresence implements the per-configuration-file-path
// cache and the watcher-lifecycle state machine from spec.md §3 and
// §4.3.
package configpresence

import "github.com/langsvc/projectset/internal/projectset/ports"

// State names the four states the §4.3 table distinguishes. It is
// derived, never stored directly — Entry carries the facts the table
// is computed from.
type State int

const (
	Absent State = iota
	Ghost
	GhostWatched
	Adopted
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Ghost:
		return "ghost"
	case GhostWatched:
		return "ghost-watched"
	case Adopted:
		return "adopted"
	default:
		return "unknown"
	}
}

// Entry is the per-canonical-config-path cache entry.
type Entry struct {
	Exists bool
	// Tracking maps tracking script-path -> isInferredRoot.
	Tracking map[string]bool
	HasConfiguredProject bool
	Watcher  ports.WatcherHandle
}

func newEntry() *Entry {
	return &Entry{Tracking: make(map[string]bool)}
}

// State computes the table state in spec.md §4.3 from the entry's facts.
func (e *Entry) State() State {
	if !e.HasConfiguredProject && len(e.Tracking) == 0 {
		return Absent
	}
	if e.HasConfiguredProject {
		return Adopted
	}
	if e.anyInferredRoot() {
		return GhostWatched
	}
	return Ghost
}

func (e *Entry) anyInferredRoot() bool {
	for _, isRoot := range e.Tracking {
		if isRoot {
			return true
		}
	}
	return false
}

// Table is the coordinator-owned collection of entries, keyed by
// canonical config-file path.
type Table struct {
	byPath map[string]*Entry
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{byPath: make(map[string]*Entry)}
}

// Get returns the entry for path, if one exists.
func (t *Table) Get(path string) (*Entry, bool) {
	e, ok := t.byPath[path]
	return e, ok
}

// EnsureEntry returns the entry for path, creating one (exists=false,
// no trackers) if absent.
func (t *Table) EnsureEntry(path string) *Entry {
	if e, ok := t.byPath[path]; ok {
		return e
	}
	e := newEntry()
	t.byPath[path] = e
	return e
}

// AddTracker records path as a tracker of configPath with the given
// inferred-root-ness, transitioning the entry per the §4.3 table.
func (t *Table) AddTracker(configPath, scriptPath string, isInferredRoot bool) *Entry {
	e := t.EnsureEntry(configPath)
	e.Tracking[scriptPath] = isInferredRoot
	return e
}

// RemoveTracker drops scriptPath's tracking of configPath. If this was
// the last root tracker, any armed watcher is canceled (the caller is
// expected to have passed the same Entry each time so Watcher state is
// consistent); if no trackers and no project remain, the entry
// collapses to Absent and is pruned.
func (t *Table) RemoveTracker(configPath, scriptPath string) {
	e, ok := t.byPath[configPath]
	if !ok {
		return
	}
	delete(e.Tracking, scriptPath)
	if e.Watcher != nil && !e.anyInferredRoot() {
		e.Watcher.Close()
		e.Watcher = nil
	}
	t.pruneIfAbsent(configPath, e)
}

// SetConfiguredProject marks (or unmarks) that a Configured project
// exists for configPath, transitioning the entry to/from Adopted.
func (t *Table) SetConfiguredProject(configPath string, present bool) *Entry {
	e := t.EnsureEntry(configPath)
	e.HasConfiguredProject = present
	if present && e.Watcher != nil {
		e.Watcher.Close()
		e.Watcher = nil
	}
	if !present {
		t.pruneIfAbsent(configPath, e)
	}
	return e
}

func (t *Table) pruneIfAbsent(configPath string, e *Entry) {
	if !e.HasConfiguredProject && len(e.Tracking) == 0 {
		if e.Watcher != nil {
			e.Watcher.Close()
			e.Watcher = nil
		}
		delete(t.byPath, configPath)
	}
}

// SetExists records the host filesystem's view of the path's existence.
func (e *Entry) SetExists(exists bool) {
	e.Exists = exists
}

// NeedsWatcher reports whether the entry's state requires an armed
// watcher (GhostWatched) but does not yet have one.
func (e *Entry) NeedsWatcher() bool {
	return e.State() == GhostWatched && e.Watcher == nil
}

// ArmWatcher records the watcher handle obtained for a GhostWatched
// entry.
func (e *Entry) ArmWatcher(h ports.WatcherHandle) {
	e.Watcher = h
}
