// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

// Package project models the three project variants (External,
// Configured, Inferred) as a single tagged-variant type with a shared
// header, per spec.md §9's "runtime polymorphism over projects" note —
// a small match on the tag rather than a class hierarchy.
package project

import (
	"sort"

	"github.com/langsvc/projectset/internal/projectset/ports"
)

// Kind tags which of the three variants a Project is.
type Kind int

const (
	External Kind = iota
	Configured
	Inferred
)

func (k Kind) String() string {
	switch k {
	case External:
		return "external"
	case Configured:
		return "configured"
	case Inferred:
		return "inferred"
	default:
		return "unknown"
	}
}

// Priority orders the three kinds for inferred-rebalancing purposes:
// External > Configured > Inferred (spec.md §4.6).
func (k Kind) Priority() int {
	switch k {
	case External:
		return 2
	case Configured:
		return 1
	default:
		return 0
	}
}

// Watchers bundles the per-project watcher handles a Configured or
// External project may own: wildcard directories, type roots, and (for
// Configured only) the config file itself.
type Watchers struct {
	Config           ports.WatcherHandle
	WildcardDirs     map[string]ports.WatcherHandle
	TypeRoots        map[string]ports.WatcherHandle
}

func (w *Watchers) closeAll() {
	if w.Config != nil {
		w.Config.Close()
		w.Config = nil
	}
	for k, h := range w.WildcardDirs {
		h.Close()
		delete(w.WildcardDirs, k)
	}
	for k, h := range w.TypeRoots {
		h.Close()
		delete(w.TypeRoots, k)
	}
}

// Project is the shared-header tagged variant described by spec.md §3.
type Project struct {
	Kind Kind
	Name string // external-project-name, canonical config path, or generated inferred name

	CompilerOptions     map[string]any
	CompileOnSave        bool
	LanguageServiceEnabled bool
	Dirty                bool

	// Version increments each time the project's graph is rebuilt; used
	// by synchronizeProjectList to report which projects changed since a
	// caller-held snapshot.
	Version int

	// Roots is an ordered set of root scripts, keyed by path, preserving
	// insertion order via RootOrder.
	Roots     map[string]bool
	RootOrder []string

	Program any // opaque program/graph handle owned by the compiler

	Watchers Watchers

	// OpenRefCount is positive for Configured/External projects only.
	OpenRefCount int

	// Configured-only fields.
	PendingReload bool
	Include       []string
	Exclude       []string
	FileSpec      []string

	// WildcardDirectories holds the config's wildcard-included
	// directories (from include/exclude resolution), independent of
	// whether a watcher is currently armed on them. Used to decide
	// whether a file absent from the resolved root list still belongs
	// to this project (spec.md §4.1 step 4).
	WildcardDirectories map[string]bool

	// Typings holds the most recently acquired @types package names for
	// this project, as reported back by the typings installer (spec.md
	// §4.7, §6).
	Typings []string
}

// NewExternal creates an External project for the given opaque name.
func NewExternal(name string) *Project {
	return newProject(External, name)
}

// NewConfigured creates a Configured project for a canonical config path.
func NewConfigured(canonicalConfigPath string) *Project {
	p := newProject(Configured, canonicalConfigPath)
	return p
}

// NewInferred creates an Inferred project with the generated name.
func NewInferred(name string) *Project {
	return newProject(Inferred, name)
}

func newProject(kind Kind, name string) *Project {
	return &Project{
		Kind:      kind,
		Name:      name,
		Roots:     make(map[string]bool),
		RootOrder: nil,
		Watchers: Watchers{
			WildcardDirs: make(map[string]ports.WatcherHandle),
			TypeRoots:    make(map[string]ports.WatcherHandle),
		},
	}
}

// AddRoot inserts path into the root set, preserving insertion order.
func (p *Project) AddRoot(path string) {
	if p.Roots[path] {
		return
	}
	p.Roots[path] = true
	p.RootOrder = append(p.RootOrder, path)
	p.Dirty = true
}

// RemoveRoot drops path from the root set.
func (p *Project) RemoveRoot(path string) {
	if !p.Roots[path] {
		return
	}
	delete(p.Roots, path)
	for i, r := range p.RootOrder {
		if r == path {
			p.RootOrder = append(p.RootOrder[:i], p.RootOrder[i+1:]...)
			break
		}
	}
	p.Dirty = true
}

// HasRoot reports whether path is a root of this project.
func (p *Project) HasRoot(path string) bool {
	return p.Roots[path]
}

// RootCount reports the number of roots.
func (p *Project) RootCount() int {
	return len(p.Roots)
}

// SoleRoot returns the single root path when RootCount()==1.
func (p *Project) SoleRoot() (string, bool) {
	if len(p.RootOrder) != 1 {
		return "", false
	}
	return p.RootOrder[0], true
}

// SortedRoots returns a stable, sorted copy of the root paths; used
// only where deterministic ordering matters (e.g. snapshots handed to
// callers), normal iteration uses RootOrder.
func (p *Project) SortedRoots() []string {
	out := append([]string(nil), p.RootOrder...)
	sort.Strings(out)
	return out
}

// IsRootless reports whether the project has no roots left.
func (p *Project) IsRootless() bool {
	return len(p.Roots) == 0
}

// IncRef increments the open-reference count for Configured/External
// projects.
func (p *Project) IncRef() {
	p.OpenRefCount++
}

// DecRef decrements the open-reference count, returning true once it
// reaches zero (the project should now be torn down).
func (p *Project) DecRef() bool {
	if p.OpenRefCount > 0 {
		p.OpenRefCount--
	}
	return p.OpenRefCount == 0
}

// Teardown releases every watcher the project owns. Called once the
// project is removed from the coordinator's collections.
func (p *Project) Teardown() {
	p.Watchers.closeAll()
}

// DisableLanguageService tears down the wildcard/type-root watchers
// and flips the flag (spec.md §4.5 step 4, the "doesn't fit" branch).
func (p *Project) DisableLanguageService() {
	p.LanguageServiceEnabled = false
	for k, h := range p.Watchers.WildcardDirs {
		h.Close()
		delete(p.Watchers.WildcardDirs, k)
	}
	for k, h := range p.Watchers.TypeRoots {
		h.Close()
		delete(p.Watchers.TypeRoots, k)
	}
}
