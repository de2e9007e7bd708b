// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/langsvc/projectset/internal/projectset/ports"
	"github.com/langsvc/projectset/internal/projectset/project"
	"github.com/langsvc/projectset/internal/projectset/script"
	"github.com/langsvc/projectset/internal/projectset/sizegate"
	"github.com/langsvc/projectset/internal/projectset/telemetry"
)

// findOrCreateConfiguredProject returns the Configured project for
// canonicalConfigPath, creating it (spec.md §4.1 step 4) if absent.
func (c *Coordinator) findOrCreateConfiguredProject(canonicalConfigPath string) *project.Project {
	if proj, ok := c.configuredProjects[canonicalConfigPath]; ok {
		return proj
	}
	proj := c.createConfiguredProject(canonicalConfigPath)
	return proj
}

func (c *Coordinator) createConfiguredProject(canonicalConfigPath string) *project.Project {
	proj := project.NewConfigured(canonicalConfigPath)

	text, err := c.host.ReadFile(canonicalConfigPath)
	var parsed *ports.ParsedConfig
	if err != nil {
		c.log.Warn("failed to read config file", "path", canonicalConfigPath, "error", err.Error())
		parsed = &ports.ParsedConfig{
			Diagnostics: []ports.Diagnostic{{Message: "failed to read configuration file: " + err.Error(), FileName: canonicalConfigPath}},
		}
	} else {
		parsed = c.parseConfig(canonicalConfigPath, text)
	}
	c.applyParsedConfig(proj, parsed, canonicalConfigPath)

	c.configuredProjects[canonicalConfigPath] = proj
	c.presence.SetConfiguredProject(canonicalConfigPath, true)
	c.armConfiguredProjectWatcher(canonicalConfigPath, proj)
	c.runSizeGate(proj)
	if proj.LanguageServiceEnabled {
		c.armProjectWatchers(proj, parsed)
	}
	c.markDirty(proj)
	return proj
}

// parseConfig delegates to the config-parser collaborator if one was
// configured, or returns an empty record otherwise (tests exercising
// only the reconciliation logic need not supply a parser).
func (c *Coordinator) parseConfig(path, text string) *ports.ParsedConfig {
	if c.parser == nil {
		return &ports.ParsedConfig{}
	}
	return c.parser.ParseConfigFile(path, text)
}

// applyParsedConfig copies the parser's record onto proj and emits its
// diagnostics; config-parse failures never prevent project creation
// (spec.md §4.8) — an empty result combined with no diagnostics yields
// the dedicated "no files matched" diagnostic.
func (c *Coordinator) applyParsedConfig(proj *project.Project, parsed *ports.ParsedConfig, configPath string) {
	proj.CompilerOptions = parsed.CompilerOptions
	proj.CompileOnSave = parsed.CompileOnSave
	proj.WildcardDirectories = parsed.WildcardDirectories
	for _, f := range parsed.FileNames {
		proj.AddRoot(c.normalize(f))
	}

	diags := parsed.Diagnostics
	if len(proj.RootOrder) == 0 && len(diags) == 0 {
		diags = append(diags, ports.Diagnostic{
			Message:  "no files matched the configuration's include/exclude/files specification",
			FileName: configPath,
		})
	}
	if len(diags) > 0 {
		c.emit.ConfigFileDiagnostics(telemetry.ConfigFileDiagnostics{
			TriggerFile:    configPath,
			ConfigFileName: configPath,
			Diagnostics:    diags,
		})
	}
}

// removeConfiguredProject tears a Configured project down: releases its
// watchers, detaches every root script, updates the size gate and the
// presence table, and drops it from the coordinator's collection.
func (c *Coordinator) removeConfiguredProject(canonicalConfigPath string) {
	proj, ok := c.configuredProjects[canonicalConfigPath]
	if !ok {
		return
	}
	for _, root := range append([]string(nil), proj.RootOrder...) {
		c.detachScriptFromProject(root, proj)
	}
	proj.Teardown()
	c.sizeGate.Remove(proj.Name)
	delete(c.configuredProjects, canonicalConfigPath)
	delete(c.pendingUpdates, key(project.Configured, canonicalConfigPath))
	c.presence.SetConfiguredProject(canonicalConfigPath, false)
}

// runSizeGate applies the size-limit gate (spec.md §4.5) to a Configured
// or External project's current root set.
func (c *Coordinator) runSizeGate(proj *project.Project) {
	c.sizeGate.Reset(proj.Name)
	candidates := make([]sizegate.CandidateFile, 0, len(proj.RootOrder))
	for _, root := range proj.RootOrder {
		size, err := c.host.GetFileSize(root)
		if err != nil {
			continue
		}
		candidates = append(candidates, sizegate.CandidateFile{Path: root, Size: size})
	}
	verdict := c.sizeGate.Evaluate(candidates)
	wasEnabled := proj.LanguageServiceEnabled
	if verdict.Fits {
		c.sizeGate.Record(proj.Name, verdict.Total)
		proj.LanguageServiceEnabled = true
	} else {
		proj.DisableLanguageService()
	}
	if proj.LanguageServiceEnabled != wasEnabled || !verdict.Fits {
		c.emit.LanguageServiceState(telemetry.LanguageServiceState{Project: proj.Name, Enabled: proj.LanguageServiceEnabled})
	}
}

// armProjectWatchers registers wildcard-directory watchers for a
// Configured/External project whose language service is enabled
// (spec.md §4.1 step 4, §4.5 step 4 "re-arm watchers"). No type-root
// watchers are registered, and a nil parsed record (the External case)
// arms nothing.
func (c *Coordinator) armProjectWatchers(proj *project.Project, parsed *ports.ParsedConfig) {
	if parsed == nil {
		return
	}
	for dir, recursive := range parsed.WildcardDirectories {
		if _, already := proj.Watchers.WildcardDirs[dir]; already {
			continue
		}
		handle, err := c.host.WatchDirectory(dir, recursive, func(p string, kind ports.EventKind) {
			c.dispatchAsync(func() { c.onWildcardDirEvent(proj.Name, p, kind) })
		})
		if err != nil {
			c.log.Warn("failed to arm wildcard directory watcher", "dir", dir, "error", err.Error())
			continue
		}
		proj.Watchers.WildcardDirs[dir] = handle
	}
}

// onWildcardDirEvent handles a file appearing/disappearing under a
// project's wildcard-included directories: the project's file set may
// now need to change, so it is marked dirty and a graph update queued.
func (c *Coordinator) onWildcardDirEvent(projectName, path string, kind ports.EventKind) {
	proj := c.findProjectByName(projectName)
	if proj == nil {
		return
	}
	if !matchesAnySourceExtension(path, c.hostConfig.ExtraFileExtensions) {
		return
	}
	c.markDirty(proj)
	c.enqueueGraphUpdate(proj)
}

func matchesAnySourceExtension(path string, extra []string) bool {
	e := ext(path)
	switch e {
	case ".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs":
		return true
	}
	for _, x := range extra {
		if x == e {
			return true
		}
	}
	return false
}

// scriptBelongsToConfig reports whether s is actually a member of proj's
// resolved file set: either it was already a root at parse time (an
// explicit "files" entry or a prior include-match), or it newly falls
// under one of the config's wildcard-included directories. A nearby
// config file being *found* does not by itself make every file in its
// directory tree a member (spec.md §8 scenario S3).
func (c *Coordinator) scriptBelongsToConfig(s *script.Script, proj *project.Project) bool {
	if proj.HasRoot(s.Path) {
		return true
	}
	return matchesWildcard(s.Path, proj.WildcardDirectories)
}

func (c *Coordinator) findProjectByName(name string) *project.Project {
	if p, ok := c.externalProjects[name]; ok {
		return p
	}
	if p, ok := c.configuredProjects[name]; ok {
		return p
	}
	for _, p := range c.inferredProjects {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// matchesWildcard reports whether path falls under any of the
// project's wildcard directories using doublestar glob semantics,
// used when deciding whether a newly discovered file should join a
// Configured project (spec.md §4.1's include/exclude resolution is
// delegated to the config parser; this helper backs the coordinator's
// own include-boundary checks for diagnostics and tests).
func matchesWildcard(path string, wildcardDirs map[string]bool) bool {
	for dir := range wildcardDirs {
		pattern := filepath.ToSlash(filepath.Join(dir, "**"))
		if ok, _ := doublestar.Match(pattern, filepath.ToSlash(path)); ok {
			return true
		}
	}
	return false
}
