// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"fmt"
	"sort"

	"github.com/langsvc/projectset/internal/projectset/project"
	"github.com/langsvc/projectset/internal/projectset/safelist"
)

// FindProject implements spec.md §6's findProject(name), searching
// External, Configured, then Inferred projects.
func (c *Coordinator) FindProject(name string) (ProjectSnapshot, bool) {
	var snap ProjectSnapshot
	var found bool
	c.exec(func() {
		if p := c.findProjectByName(name); p != nil {
			snap, found = snapshotProject(p), true
		}
	})
	return snap, found
}

// ProjectSnapshot is a read-only view of a project's public-facing
// state, safe to hand back across the coordinator's exec boundary.
type ProjectSnapshot struct {
	Name                   string
	Kind                   string
	Roots                  []string
	Typings                []string
	LanguageServiceEnabled bool
	Dirty                  bool
	Version                int
}

func snapshotProject(p *project.Project) ProjectSnapshot {
	return ProjectSnapshot{
		Name:                   p.Name,
		Kind:                   p.Kind.String(),
		Roots:                  p.SortedRoots(),
		Typings:                append([]string(nil), p.Typings...),
		LanguageServiceEnabled: p.LanguageServiceEnabled,
		Dirty:                  p.Dirty,
		Version:                p.Version,
	}
}

// GetDefaultProjectForFile implements spec.md §6's
// getDefaultProjectForFile(path, refresh): the highest-priority project
// (External > Configured > Inferred) currently containing path. When
// refresh is true, the script's membership is reconciled first.
func (c *Coordinator) GetDefaultProjectForFile(path string, refresh bool) (ProjectSnapshot, bool) {
	var snap ProjectSnapshot
	var found bool
	c.exec(func() {
		norm := c.normalize(path)
		if refresh {
			c.reconcileOpenFile(norm)
		}
		s, ok := c.scripts.Get(norm)
		if !ok {
			return
		}
		var best *project.Project
		for name := range s.Projects {
			p := c.findProjectByName(name)
			if p == nil {
				continue
			}
			if best == nil || p.Kind.Priority() > best.Kind.Priority() {
				best = p
			}
		}
		if best != nil {
			snap, found = snapshotProject(best), true
		}
	})
	return snap, found
}

// ScriptInfo is the read-only view returned by GetScriptInfo.
type ScriptInfo struct {
	Path            string
	Kind            string
	Open            bool
	HasMixedContent bool
	Projects        []string
}

// GetScriptInfo implements spec.md §6's getScriptInfo(path).
func (c *Coordinator) GetScriptInfo(path string) (ScriptInfo, bool) {
	var info ScriptInfo
	var found bool
	c.exec(func() {
		s, ok := c.scripts.Get(c.normalize(path))
		if !ok {
			return
		}
		names := make([]string, 0, len(s.Projects))
		for name := range s.Projects {
			names = append(names, name)
		}
		sort.Strings(names)
		info = ScriptInfo{
			Path:            s.Path,
			Kind:            s.Kind.String(),
			Open:            s.Open,
			HasMixedContent: s.HasMixedContent,
			Projects:        names,
		}
		found = true
	})
	return info, found
}

// SynchronizeProjectList implements spec.md §6's
// synchronizeProjectList(knownVersions): returns a snapshot for every
// currently live project whose version differs from (or is absent
// from) the caller's known-versions map, so the caller can refresh only
// what changed.
func (c *Coordinator) SynchronizeProjectList(knownVersions map[string]int) []ProjectSnapshot {
	var out []ProjectSnapshot
	c.exec(func() {
		for _, p := range c.allProjects() {
			if known, ok := knownVersions[p.Name]; !ok || known != p.Version {
				out = append(out, snapshotProject(p))
			}
		}
	})
	return out
}

func (c *Coordinator) allProjects() []*project.Project {
	out := make([]*project.Project, 0, len(c.externalProjects)+len(c.configuredProjects)+len(c.inferredProjects))
	for _, p := range c.externalProjects {
		out = append(out, p)
	}
	for _, p := range c.configuredProjects {
		out = append(out, p)
	}
	out = append(out, c.inferredProjects...)
	return out
}

// ReloadProjects implements spec.md §6's reloadProjects(): re-applies
// the size gate and re-parses every Configured project, and marks every
// Configured and External project dirty so the next debounce flush
// rebuilds it. Inferred projects are not marked dirty.
func (c *Coordinator) ReloadProjects() {
	c.exec(func() {
		for path, proj := range c.configuredProjects {
			text, err := c.host.ReadFile(path)
			if err != nil {
				c.log.Warn("reloadProjects: failed to read config", "path", path, "error", err.Error())
				continue
			}
			parsed := c.parseConfig(path, text)
			for _, root := range append([]string(nil), proj.RootOrder...) {
				c.detachScriptFromProject(root, proj)
			}
			c.applyParsedConfig(proj, parsed, path)
			c.runSizeGate(proj)
			if proj.LanguageServiceEnabled {
				c.armProjectWatchers(proj, parsed)
			}
			c.enqueueGraphUpdate(proj)
		}
		for _, proj := range c.externalProjects {
			c.runSizeGate(proj)
			c.enqueueGraphUpdate(proj)
		}
		c.forceFullReconciliation()
	})
}

// SetCompilerOptionsForInferredProjects implements spec.md §6's
// setCompilerOptionsForInferredProjects(opts): applied to existing
// Inferred projects and recorded for any created afterward.
func (c *Coordinator) SetCompilerOptionsForInferredProjects(opts map[string]any) {
	c.exec(func() {
		c.inferredCompilerOptions = opts
		for _, p := range c.inferredProjects {
			p.CompilerOptions = opts
			c.enqueueGraphUpdate(p)
		}
	})
}

// SetHostConfiguration implements spec.md §6's setHostConfiguration.
// Any zero-valued field in next leaves the corresponding current value
// untouched, so callers may patch a single field at a time.
func (c *Coordinator) SetHostConfiguration(next HostConfiguration) {
	c.exec(func() { c.mergeHostConfiguration(next) })
}

// mergeHostConfiguration is the unexported core of SetHostConfiguration,
// callable from anywhere already running on the coordinator's internal
// goroutine (e.g. LoadHostConfigurationFile) without re-entering exec.
func (c *Coordinator) mergeHostConfiguration(next HostConfiguration) {
	if next.File != "" {
		c.hostConfig.File = next.File
	}
	if next.HostInfo != "" {
		c.hostConfig.HostInfo = next.HostInfo
	}
	if next.FormatOptions != nil {
		c.hostConfig.FormatOptions = next.FormatOptions
	}
	if next.ExtraFileExtensions != nil {
		c.hostConfig.ExtraFileExtensions = next.ExtraFileExtensions
	}
	if next.DebounceDelay != 0 {
		c.hostConfig.DebounceDelay = next.DebounceDelay
	}
}

// LoadSafeList implements spec.md §6's loadSafeList(path): reads and
// compiles the JSON safelist file, replacing the active one.
func (c *Coordinator) LoadSafeList(path string) error {
	var loadErr error
	c.exec(func() {
		text, err := c.host.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("loadSafeList: %w", err)
			return
		}
		sl, err := safelist.Load([]byte(text))
		if err != nil {
			loadErr = fmt.Errorf("loadSafeList: %w", err)
			return
		}
		c.safelist = sl
	})
	return loadErr
}

// ResetSafeList implements spec.md §6's resetSafeList().
func (c *Coordinator) ResetSafeList() {
	c.exec(func() {
		c.safelist = safelist.Empty()
	})
}
