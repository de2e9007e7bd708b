// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

// Package script holds the canonical store of every known source file,
// open or watched-closed, keyed by normalized path (spec.md §3 "Script").
package script

import "github.com/langsvc/projectset/internal/projectset/ports"

// Kind tags the recognized script kinds.
type Kind int

const (
	Unknown Kind = iota
	JS
	JSX
	TS
	TSX
	ExternalMixed
)

func (k Kind) String() string {
	switch k {
	case JS:
		return "js"
	case JSX:
		return "jsx"
	case TS:
		return "ts"
	case TSX:
		return "tsx"
	case ExternalMixed:
		return "external-mixed"
	default:
		return "unknown"
	}
}

// Script is a single known source file. A script is watched iff it is
// closed, not mixed-content, and a known reference to it exists; it is
// never both open and watched (spec.md §3 invariant).
type Script struct {
	Path          string // normalized path, the registry key
	CanonicalPath string
	Kind          Kind

	Open            bool
	Contents        string
	HasMixedContent bool

	// Projects is a non-owning set of containing projects, keyed by
	// project name. Projects own their root lists; this is lookup-only.
	Projects map[string]bool

	Watcher ports.WatcherHandle

	// SearchedConfigPaths is the set of config-file paths this script's
	// last upward search probed, in search order. It is replayed
	// whenever IsInferredRoot flips, so the config-presence table's
	// tracker-root-ness (spec.md §4.3) stays in sync.
	SearchedConfigPaths []string
	IsInferredRoot      bool
}

// New creates a script for path, not yet open, not yet watched.
func New(path, canonicalPath string, kind Kind) *Script {
	return &Script{
		Path:          path,
		CanonicalPath: canonicalPath,
		Kind:          kind,
		Projects:      make(map[string]bool),
	}
}

// AttachTo records that project owns this script. Non-owning: callers
// are still responsible for adding the script to the project's own
// root/reference set.
func (s *Script) AttachTo(projectName string) {
	s.Projects[projectName] = true
}

// DetachFrom removes the non-owning back-reference.
func (s *Script) DetachFrom(projectName string) {
	delete(s.Projects, projectName)
}

// MembershipEmpty reports whether no project currently claims this script.
func (s *Script) MembershipEmpty() bool {
	return len(s.Projects) == 0
}

// ShouldBeWatched reports what the watcher-present invariant requires
// for this script right now: !open && !mixed.
func (s *Script) ShouldBeWatched() bool {
	return !s.Open && !s.HasMixedContent
}

// IsWatched reports whether a watcher handle is currently held.
func (s *Script) IsWatched() bool {
	return s.Watcher != nil
}

// Registry is the canonical store of every known script, keyed by
// normalized path.
type Registry struct {
	byPath map[string]*Script
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byPath: make(map[string]*Script)}
}

// Get returns the script at path, if known.
func (r *Registry) Get(path string) (*Script, bool) {
	s, ok := r.byPath[path]
	return s, ok
}

// GetOrCreate returns the existing script at path, or creates one.
func (r *Registry) GetOrCreate(path, canonicalPath string, kind Kind) *Script {
	if s, ok := r.byPath[path]; ok {
		return s
	}
	s := New(path, canonicalPath, kind)
	r.byPath[path] = s
	return s
}

// Delete removes a script from the registry unconditionally. Callers
// must have already verified it is closed with empty membership.
func (r *Registry) Delete(path string) {
	delete(r.byPath, path)
}

// All returns every known script. The returned slice is a snapshot;
// mutating the registry while iterating it is safe.
func (r *Registry) All() []*Script {
	out := make([]*Script, 0, len(r.byPath))
	for _, s := range r.byPath {
		out = append(out, s)
	}
	return out
}

// Len reports how many scripts are known.
func (r *Registry) Len() int {
	return len(r.byPath)
}
