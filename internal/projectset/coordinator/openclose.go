// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"github.com/langsvc/projectset/internal/projectset/invariant"
	"github.com/langsvc/projectset/internal/projectset/ports"
	"github.com/langsvc/projectset/internal/projectset/project"
	"github.com/langsvc/projectset/internal/projectset/script"
	"github.com/langsvc/projectset/internal/projectset/telemetry"
)

// OpenFileParams are the optional extras openClientFile accepts.
type OpenFileParams struct {
	Contents        *string
	ScriptKind      *script.Kind
	ProjectRootPath string
}

// OpenResult is what openClientFile reports back to the session layer.
type OpenResult struct {
	ConfigFileName string
	ConfigFound    bool
}

// OpenClientFile is the central ingress described by spec.md §4.1.
func (c *Coordinator) OpenClientFile(path string, params OpenFileParams) OpenResult {
	var result OpenResult
	c.exec(func() {
		result = c.openClientFile(path, params)
	})
	return result
}

func (c *Coordinator) openClientFile(path string, params OpenFileParams) OpenResult {
	norm := c.normalize(path)
	canon := c.canonical(path)

	kind := script.Unknown
	if params.ScriptKind != nil {
		kind = *params.ScriptKind
	} else {
		kind = c.scriptKindFromPath(path)
	}

	s := c.scripts.GetOrCreate(norm, canon, kind)
	if params.Contents != nil {
		s.Contents = *params.Contents
	}
	s.Open = true
	if s.Watcher != nil {
		s.Watcher.Close()
		s.Watcher = nil
	}

	result := c.reconcileOpenFileBounded(norm, params.ProjectRootPath)

	alreadyTracked := false
	for _, o := range c.openFiles {
		if o.Path == norm {
			alreadyTracked = true
			break
		}
	}
	if !alreadyTracked {
		c.openFiles = append(c.openFiles, s)
	}

	c.garbageCollectClosedScripts()
	return result
}

// reconcileOpenFile re-runs the carrier search (external → upward
// config search → inferred rebalancing) for an already-known, already-
// open script. It is the shared core of both the initial open and any
// config-triggered reload (spec.md §4.3's Ghost-watched/Adopted
// callbacks).
func (c *Coordinator) reconcileOpenFile(norm string) OpenResult {
	return c.reconcileOpenFileBounded(norm, "")
}

// reconcileOpenFileBounded is reconcileOpenFile with an optional
// project-root-path bound on the upward config search (spec.md §4.1
// step 3's "bounded above by project-root-path if given").
func (c *Coordinator) reconcileOpenFileBounded(norm, boundedRoot string) OpenResult {
	s, ok := c.scripts.Get(norm)
	if !ok {
		return OpenResult{}
	}

	if carrier := c.findOwningExternalProject(norm); carrier != nil {
		c.attachScriptToProject(s, carrier)
		if !c.hasOpenRef(s, carrier) {
			carrier.IncRef()
			c.markOpenRef(s, carrier)
		}
		c.updateInferredRootFlag(s, false)
		c.rebalanceAfterAttach(s)
		return OpenResult{}
	}

	var result OpenResult
	if configPath, found := c.resolveConfigForScript(s, boundedRoot); found {
		proj := c.findOrCreateConfiguredProject(configPath)
		if c.scriptBelongsToConfig(s, proj) {
			result.ConfigFileName, result.ConfigFound = configPath, true
			c.attachScriptToProject(s, proj)
			if !c.hasOpenRef(s, proj) {
				proj.IncRef()
				c.markOpenRef(s, proj)
			}
			c.rebalanceAfterAttach(s)
		}
	}

	c.updateInferredRootFlag(s, s.MembershipEmpty())
	c.rebalanceInferredFor(s)

	return result
}

func (c *Coordinator) findOwningExternalProject(scriptPath string) *project.Project {
	for _, p := range c.externalProjects {
		if p.HasRoot(scriptPath) {
			return p
		}
	}
	return nil
}

func (c *Coordinator) attachScriptToProject(s *script.Script, p *project.Project) {
	if s.Projects[p.Name] {
		return
	}
	s.AttachTo(p.Name)
	if !p.HasRoot(s.Path) {
		p.AddRoot(s.Path)
	}
	c.emit.ContextChanged(telemetry.ContextChanged{Project: p.Name, File: s.Path})
}

func (c *Coordinator) detachScriptFromProject(scriptPath string, p *project.Project) {
	s, ok := c.scripts.Get(scriptPath)
	if ok {
		s.DetachFrom(p.Name)
	}
	p.RemoveRoot(scriptPath)
	if ok {
		c.emit.ContextChanged(telemetry.ContextChanged{Project: p.Name, File: s.Path})
	}
}

func (c *Coordinator) hasOpenRef(s *script.Script, p *project.Project) bool {
	return c.openRefTracking[s.Path][p.Name]
}

func (c *Coordinator) markOpenRef(s *script.Script, p *project.Project) {
	if c.openRefTracking[s.Path] == nil {
		c.openRefTracking[s.Path] = make(map[string]bool)
	}
	c.openRefTracking[s.Path][p.Name] = true
}

func (c *Coordinator) clearOpenRef(s *script.Script, p *project.Project) {
	delete(c.openRefTracking[s.Path], p.Name)
}

// CloseClientFile implements spec.md §4.1 "closeClientFile".
func (c *Coordinator) CloseClientFile(path string) {
	c.exec(func() { c.closeClientFile(path) })
}

func (c *Coordinator) closeClientFile(path string) {
	norm := c.normalize(path)
	s, ok := c.scripts.Get(norm)
	if !ok {
		return // unknown-file close is a no-op (spec.md §7)
	}

	s.Open = false
	if !s.HasMixedContent {
		handle, err := c.host.WatchFile(norm, func(p string, kind ports.EventKind) {
			c.dispatchAsync(func() { c.onScriptFileEvent(p, kind) })
		})
		if err != nil {
			c.log.Warn("failed to arm closed-script watcher", "path", norm, "error", err.Error())
		} else {
			s.Watcher = handle
		}
	}

	for i, o := range c.openFiles {
		if o.Path == norm {
			c.openFiles = append(c.openFiles[:i], c.openFiles[i+1:]...)
			break
		}
	}

	emptiedAfterClose := make([]*script.Script, 0)
	for _, name := range mapKeys(s.Projects) {
		proj := c.findProjectByName(name)
		if proj == nil {
			continue
		}
		switch proj.Kind {
		case project.Configured, project.External:
			if proj.DecRef() {
				c.clearOpenRef(s, proj)
				c.teardownOwnedProject(proj)
			}
		case project.Inferred:
			if _, sole := proj.SoleRoot(); sole {
				c.teardownOwnedProject(proj)
			} else {
				c.detachScriptFromProject(norm, proj)
			}
		}
	}

	for _, cp := range append([]string(nil), s.SearchedConfigPaths...) {
		c.presence.RemoveTracker(cp, norm)
	}

	if s.MembershipEmpty() {
		emptiedAfterClose = append(emptiedAfterClose, s)
	}
	for _, o := range emptiedAfterClose {
		c.rebalanceInferredFor(o)
	}

	c.garbageCollectClosedScripts()
}

func mapKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// teardownOwnedProject removes proj from whichever collection owns it
// and releases its watchers.
func (c *Coordinator) teardownOwnedProject(proj *project.Project) {
	switch proj.Kind {
	case project.External:
		for _, root := range append([]string(nil), proj.RootOrder...) {
			c.detachScriptFromProject(root, proj)
		}
		proj.Teardown()
		c.sizeGate.Remove(proj.Name)
		delete(c.externalProjects, proj.Name)
		delete(c.pendingUpdates, key(project.External, proj.Name))
	case project.Configured:
		c.removeConfiguredProject(proj.Name)
	case project.Inferred:
		for _, root := range append([]string(nil), proj.RootOrder...) {
			c.detachScriptFromProject(root, proj)
		}
		proj.Teardown()
		c.removeInferredProject(proj)
	default:
		invariant.Violated("teardownOwnedProject: unknown project kind", "kind", proj.Kind)
	}
}

func (c *Coordinator) removeInferredProject(proj *project.Project) {
	for i, p := range c.inferredProjects {
		if p == proj {
			c.inferredProjects = append(c.inferredProjects[:i], c.inferredProjects[i+1:]...)
			return
		}
	}
}

// garbageCollectClosedScripts deletes any closed, unwatched script with
// empty membership, deferred from prior closes (spec.md §4.1 step 7). A
// closed script that still holds a file watcher stays known.
func (c *Coordinator) garbageCollectClosedScripts() {
	for _, s := range c.scripts.All() {
		if !s.Open && s.MembershipEmpty() && !s.IsWatched() {
			c.scripts.Delete(s.Path)
			delete(c.openRefTracking, s.Path)
		}
	}
}
