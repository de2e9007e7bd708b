// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"sort"

	"github.com/langsvc/projectset/internal/projectset/ports"
	"github.com/langsvc/projectset/internal/projectset/project"
	"github.com/langsvc/projectset/internal/projectset/script"
)

// ExternalProjectSpec is the client-declared shape of an External
// project (spec.md §3, §6 openExternalProject).
type ExternalProjectSpec struct {
	Name string
	// RootFiles lists the project's source roots, before safelist
	// filtering. Any entry also present in MixedContentFiles is created
	// as a mixed-content script (never watched).
	RootFiles         []string
	MixedContentFiles map[string]bool
	CompilerOptions   map[string]any
	TypeAcquisition   *struct {
		Include []string
		Exclude []string
	}
	// ConfigFilePaths are canonical config-file paths this external
	// declaration "adopts": held alive as Configured projects for as
	// long as this external references them (§9 Open Question 3 —
	// reference-counted per adopting external).
	ConfigFilePaths []string
}

// OpenExternalProject implements spec.md §6's openExternalProject(spec):
// create-or-reload semantics keyed by spec.Name.
func (c *Coordinator) OpenExternalProject(spec ExternalProjectSpec) {
	c.exec(func() { c.openExternalProject(spec) })
}

func (c *Coordinator) openExternalProject(spec ExternalProjectSpec) *project.Project {
	proj, existed := c.externalProjects[spec.Name]
	if existed {
		c.clearExternalRoots(proj)
	} else {
		proj = project.NewExternal(spec.Name)
		c.externalProjects[spec.Name] = proj
	}

	normalizedRoots := make([]string, 0, len(spec.RootFiles))
	for _, r := range spec.RootFiles {
		normalizedRoots = append(normalizedRoots, c.normalize(r))
	}

	result := c.safelist.Apply(normalizedRoots, c.log)
	for _, w := range result.Warnings {
		c.log.Warn("safelist exclusion degraded to literal", "rule", w.Rule, "group", w.Group)
	}

	proj.CompilerOptions = spec.CompilerOptions
	for _, root := range result.Roots {
		proj.AddRoot(root)
		s := c.scripts.GetOrCreate(root, root, c.externalScriptKind(root, spec))
		s.HasMixedContent = spec.MixedContentFiles[root]
		c.attachScriptToProject(s, proj)
		c.updateInferredRootFlag(s, false)
		// An External project outranks any Inferred project a root may
		// already belong to (spec.md §4.6 priority order); drop it there
		// the same way reconcileOpenFileBounded does for an already-open
		// script newly claimed by a carrier.
		c.rebalanceAfterAttach(s)
	}

	c.reconcileAdoptedConfigs(spec.Name, spec.ConfigFilePaths)

	proj.Typings = result.Typings
	if c.typings != nil && len(result.Typings) > 0 {
		c.typings.UpdateTypingsForProject(proj.Name, proj.CompilerOptions, acquisitionOf(spec), nil, result.Typings)
	}

	c.runSizeGate(proj)
	if proj.LanguageServiceEnabled {
		c.armProjectWatchers(proj, nil)
	}
	c.enqueueGraphUpdate(proj)
	return proj
}

// acquisitionOf converts a spec's optional type-acquisition override
// into the port's shape, understood only by the typings installer.
func acquisitionOf(spec ExternalProjectSpec) ports.TypeAcquisition {
	if spec.TypeAcquisition == nil {
		return ports.TypeAcquisition{Enable: true}
	}
	return ports.TypeAcquisition{
		Enable:  true,
		Include: spec.TypeAcquisition.Include,
		Exclude: spec.TypeAcquisition.Exclude,
	}
}

// ApplyAcquiredTypings implements the response half of spec.md §6's
// typings-installer collaboration: the installer runs externally and
// reports back asynchronously through this entry point, which records
// the acquired package list and marks the project dirty so the next
// rebuild reflects it.
func (c *Coordinator) ApplyAcquiredTypings(projectName string, typings []string) {
	c.exec(func() {
		proj := c.findProjectByName(projectName)
		if proj == nil {
			return
		}
		proj.Typings = typings
		c.enqueueGraphUpdate(proj)
	})
}

func (c *Coordinator) externalScriptKind(path string, spec ExternalProjectSpec) script.Kind {
	if spec.MixedContentFiles[path] {
		return script.ExternalMixed
	}
	return c.scriptKindFromPath(path)
}

// clearExternalRoots detaches every current root ahead of a reload, so
// the fresh spec's root list starts from empty rather than accumulating.
func (c *Coordinator) clearExternalRoots(proj *project.Project) {
	for _, root := range append([]string(nil), proj.RootOrder...) {
		c.detachScriptFromProject(root, proj)
	}
}

// reconcileAdoptedConfigs diffs externalName's previously adopted
// config paths against the new set: configs no longer referenced
// release this external's contribution (tearing the Configured project
// down once no external or open file holds it alive); newly referenced
// configs are found-or-created and gain a contribution.
func (c *Coordinator) reconcileAdoptedConfigs(externalName string, newConfigs []string) {
	sorted := append([]string(nil), newConfigs...)
	sort.Strings(sorted)
	newSet := make(map[string]bool, len(sorted))
	for _, p := range sorted {
		newSet[p] = true
	}

	oldSet := make(map[string]bool, len(c.externalToConfigs[externalName]))
	for _, old := range c.externalToConfigs[externalName] {
		oldSet[old] = true
		if !newSet[old] {
			c.releaseAdoptedConfig(old)
		}
	}

	for _, p := range sorted {
		if oldSet[p] {
			continue // already held alive by this external's prior contribution
		}
		proj := c.findOrCreateConfiguredProject(p)
		proj.IncRef()
	}

	if len(sorted) == 0 {
		delete(c.externalToConfigs, externalName)
	} else {
		c.externalToConfigs[externalName] = sorted
	}
}

func (c *Coordinator) releaseAdoptedConfig(configPath string) {
	proj, ok := c.configuredProjects[configPath]
	if !ok {
		return
	}
	if proj.DecRef() {
		c.removeConfiguredProject(configPath)
	}
}

// CloseExternalProject implements spec.md §6's closeExternalProject(name).
func (c *Coordinator) CloseExternalProject(name string) {
	c.exec(func() { c.closeExternalProject(name) })
}

func (c *Coordinator) closeExternalProject(name string) {
	proj, ok := c.externalProjects[name]
	if !ok {
		return
	}
	c.clearExternalRoots(proj)
	c.reconcileAdoptedConfigs(name, nil)
	proj.Teardown()
	c.sizeGate.Remove(proj.Name)
	delete(c.externalProjects, name)
	delete(c.pendingUpdates, key(project.External, name))
	c.forceFullReconciliation()
}

// OpenExternalProjects implements spec.md §6's openExternalProjects(list):
// an atomic delta against the current external-project set — any
// project absent from list is closed first, then every spec in list is
// applied (create-or-reload).
func (c *Coordinator) OpenExternalProjects(specs []ExternalProjectSpec) {
	c.exec(func() { c.openExternalProjects(specs) })
}

func (c *Coordinator) openExternalProjects(specs []ExternalProjectSpec) {
	wanted := make(map[string]bool, len(specs))
	for _, s := range specs {
		wanted[s.Name] = true
	}
	for name := range c.externalProjects {
		if !wanted[name] {
			c.closeExternalProject(name)
		}
	}
	for _, s := range specs {
		c.openExternalProject(s)
	}
}
