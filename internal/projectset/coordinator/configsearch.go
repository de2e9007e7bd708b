// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"path/filepath"

	"github.com/langsvc/projectset/internal/projectset/script"
)

// resolveConfigForScript runs the upward config search for s, starting
// at its directory and bounded above by boundedRoot if non-empty
// (spec.md §4.1 step 3). Every probed path is recorded against s for
// later replay by updateInferredRootFlag, and registered as a tracker
// of the config-presence table with s's *current* IsInferredRoot value.
func (c *Coordinator) resolveConfigForScript(s *script.Script, boundedRoot string) (string, bool) {
	s.SearchedConfigPaths = s.SearchedConfigPaths[:0]
	dir := filepath.ToSlash(filepath.Dir(s.Path))
	bounded := ""
	if boundedRoot != "" {
		bounded = filepath.ToSlash(filepath.Clean(boundedRoot))
	}

	var found string
	for {
		for _, name := range []string{c.configFileNamePrimary, c.configFileNameSecondary} {
			candidate := filepath.ToSlash(filepath.Join(dir, name))
			exists := c.probeConfigPath(candidate, s.Path, s.IsInferredRoot)
			s.SearchedConfigPaths = append(s.SearchedConfigPaths, candidate)
			if exists && found == "" {
				found = candidate
			}
		}
		if found != "" {
			break
		}
		if bounded != "" && dir == bounded {
			break
		}
		parent, ok := parentDir(dir)
		if !ok {
			break
		}
		dir = parent
	}
	return found, found != ""
}

// probeConfigPath consults the presence table for candidate, creating
// an entry if missing (reading existence from the host), recording
// trackerScript as a tracker, and returning whether it exists.
func (c *Coordinator) probeConfigPath(candidate, trackerScript string, isInferredRoot bool) bool {
	entry, existed := c.presence.Get(candidate)
	if !existed {
		entry = c.presence.EnsureEntry(candidate)
		entry.SetExists(c.host.FileExists(candidate))
	}
	if trackerScript != "" {
		c.presence.AddTracker(candidate, trackerScript, isInferredRoot)
		c.reconcileConfigWatcher(candidate)
	}
	return entry.Exists
}

// updateInferredRootFlag flips s's inferred-root-ness and replays it
// across every config path s's last search visited, keeping the
// config-presence table's tracker state (spec.md §4.3) in sync without
// re-running the search itself.
func (c *Coordinator) updateInferredRootFlag(s *script.Script, isRoot bool) {
	if s.IsInferredRoot == isRoot {
		return
	}
	s.IsInferredRoot = isRoot
	for _, p := range s.SearchedConfigPaths {
		c.presence.AddTracker(p, s.Path, isRoot)
		c.reconcileConfigWatcher(p)
	}
}
