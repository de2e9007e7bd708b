// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"github.com/langsvc/projectset/internal/projectset/ports"
	"github.com/langsvc/projectset/internal/projectset/project"
)

// reconcileConfigWatcher arms or leaves alone the watcher for a
// presence-table entry per the §4.3 transition table: only a
// Ghost-watched entry needs a watcher of its own (an Adopted entry's
// watcher lives on the Configured project instead).
func (c *Coordinator) reconcileConfigWatcher(path string) {
	entry, ok := c.presence.Get(path)
	if !ok || !entry.NeedsWatcher() {
		return
	}
	handle, err := c.host.WatchFile(path, func(p string, kind ports.EventKind) {
		c.dispatchAsync(func() { c.onConfigFileEvent(p, kind) })
	})
	if err != nil {
		c.log.Warn("failed to arm ghost-watched config watcher", "path", path, "error", err.Error())
		return
	}
	entry.ArmWatcher(handle)
}

// onConfigFileEvent handles a watcher callback for a configuration
// file path, dispatching Ghost-watched or Adopted semantics depending
// on the entry's *current* state (read at execution time, not capture
// time, per the idempotence requirement of spec.md §4.4).
func (c *Coordinator) onConfigFileEvent(path string, kind ports.EventKind) {
	entry, ok := c.presence.Get(path)
	if !ok {
		c.log.Warn("watch event for unknown config path", "path", path)
		return
	}
	entry.SetExists(kind != ports.Deleted)

	if proj, ok := c.configuredProjects[path]; ok {
		// Adopted entry.
		if kind == ports.Deleted {
			trackers := c.trackersOf(path)
			c.removeConfiguredProject(path)
			for _, t := range trackers {
				c.reconcileOpenFile(t)
			}
			return
		}
		proj.PendingReload = true
		c.enqueueGraphUpdate(proj)
		return
	}

	// Ghost-watched entry: reload every tracking open file, since the
	// upward search may now resolve differently.
	for _, t := range c.trackersOf(path) {
		c.reconcileOpenFile(t)
	}
}

func (c *Coordinator) trackersOf(path string) []string {
	entry, ok := c.presence.Get(path)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(entry.Tracking))
	for p := range entry.Tracking {
		out = append(out, p)
	}
	return out
}

// armConfiguredProjectWatcher arms a Configured project's own watcher
// on its config file. An Adopted presence entry never carries its own
// watcher (reconcileConfigWatcher is a no-op for it); the project owns
// this one instead, released on project teardown.
func (c *Coordinator) armConfiguredProjectWatcher(configPath string, proj *project.Project) {
	handle, err := c.host.WatchFile(configPath, func(p string, kind ports.EventKind) {
		c.dispatchAsync(func() { c.onConfigFileEvent(p, kind) })
	})
	if err != nil {
		c.log.Warn("failed to arm configured-project watcher", "path", configPath, "error", err.Error())
		return
	}
	proj.Watchers.Config = handle
}
