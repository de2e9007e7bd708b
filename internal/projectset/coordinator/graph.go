// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"github.com/langsvc/projectset/internal/projectset/project"
	"github.com/langsvc/projectset/internal/projectset/scheduler"
	"github.com/langsvc/projectset/internal/projectset/telemetry"
)

// markDirty flags proj as needing a graph rebuild and registers it
// under the pending-updates map so a later flush can find it by key
// (spec.md §4.4: scheduled tasks re-read live state, never a captured
// snapshot).
func (c *Coordinator) markDirty(proj *project.Project) {
	proj.Dirty = true
	c.pendingUpdates[key(proj.Kind, proj.Name)] = proj
}

// enqueueGraphUpdate (re)schedules a debounced flush for proj. Any
// already-queued flush under the same key is replaced, not
// accumulated — N mutations within one debounce window collapse to a
// single rebuild (spec.md §4.4, §8 property 5).
func (c *Coordinator) enqueueGraphUpdate(proj *project.Project) {
	c.markDirty(proj)
	k := key(proj.Kind, proj.Name)
	c.scheduler.Schedule(k, c.debounceDelay(), func() {
		c.dispatchAsync(func() { c.flushProjectUpdate(k) })
	})
	c.scheduleInferredRefresh()
}

// scheduleInferredRefresh arms (or extends) the dedicated
// "*refreshInferredProjects*" tail-of-quiesce task from spec.md §4.4:
// it reschedules itself for as long as any per-project update is still
// pending when it fires, and otherwise runs one global inferred-
// rebalance pass. pendingInferredRefresh stays true for the whole
// window, per invariant 5.
func (c *Coordinator) scheduleInferredRefresh() {
	c.pendingInferredRefresh = true
	c.scheduler.Schedule(scheduler.RefreshInferredKey, c.debounceDelay(), func() {
		c.dispatchAsync(c.runInferredRefreshTick)
	})
}

// runInferredRefreshTick is the task body for RefreshInferredKey: it
// re-reads pendingUpdates at execution time (never a captured
// snapshot) so it reschedules itself while per-project updates remain
// queued, and only then performs the single global inferred-rebalance
// pass spec.md §4.4 describes.
func (c *Coordinator) runInferredRefreshTick() {
	if len(c.scheduler.PendingKeys()) > 0 {
		c.scheduleInferredRefresh()
		return
	}
	c.pendingInferredRefresh = false
	c.forceFullReconciliation()
}

// flushProjectUpdate rebuilds a single project's language service if it
// is still registered and still dirty. Both checks are read at flush
// time: the project may have been torn down, or rebuilt already by an
// intervening call, while this task sat queued.
func (c *Coordinator) flushProjectUpdate(k string) {
	proj, ok := c.pendingUpdates[k]
	if !ok {
		return
	}
	delete(c.pendingUpdates, k)
	if !proj.Dirty {
		return
	}
	c.rebuildProject(proj)
}

// rebuildProject invokes the language-service factory for proj and
// records the resulting opaque handle. A nil factory (e.g. in tests
// exercising only the reconciliation logic) is a valid no-op.
func (c *Coordinator) rebuildProject(proj *project.Project) {
	if c.lsFact != nil && proj.LanguageServiceEnabled {
		proj.Program = c.lsFact.NewLanguageService(nil)
	}
	proj.Dirty = false
	proj.Version++
	c.emit.ProjectInfo(telemetry.BuildProjectInfo(proj, c.host))
}
