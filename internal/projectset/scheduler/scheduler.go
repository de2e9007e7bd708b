// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

// Package scheduler implements the named-key throttled task queue from
// spec.md §4.4: schedule(key, delay, task) replaces any queued task
// under the same key. A dedicated key is the tail-of-quiesce task that
// reschedules itself while per-project work remains pending.
package scheduler

import (
	"sync"
	"time"
)

// RefreshInferredKey is the dedicated key for the tail-of-quiesce
// inferred-projects refresh task.
const RefreshInferredKey = "*refreshInferredProjects*"

// DefaultDelay is the ≈250ms fixed debounce delay spec.md names.
// Every task uses the same delay; there is no priority queue.
const DefaultDelay = 250 * time.Millisecond

// Debouncer is a mapping from key to an active timer. Schedule cancels
// and replaces; there is no general priority queue, by design
// (spec.md §9).
type Debouncer struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	newTimer func(time.Duration, func()) *time.Timer
}

// New creates an empty Debouncer using the real wall clock.
func New() *Debouncer {
	return &Debouncer{
		timers: make(map[string]*time.Timer),
		newTimer: func(d time.Duration, f func()) *time.Timer {
			return time.AfterFunc(d, f)
		},
	}
}

// Schedule replaces any queued task under key with task, to run after
// delay. Scheduled tasks must be idempotent: they re-read shared state
// under the coordinator's single-threaded contract (spec.md §5),
// rather than capturing a snapshot at schedule time.
func (d *Debouncer) Schedule(key string, delay time.Duration, task func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.timers[key]; ok {
		existing.Stop()
	}
	d.timers[key] = d.newTimer(delay, func() {
		d.mu.Lock()
		delete(d.timers, key)
		d.mu.Unlock()
		task()
	})
}

// Cancel stops and removes any pending task under key.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.timers[key]; ok {
		existing.Stop()
		delete(d.timers, key)
	}
}

// Pending reports whether a task is currently queued under key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.timers[key]
	return ok
}

// PendingKeys returns every key with a currently queued task, excluding
// RefreshInferredKey — used by the refresh task to decide whether it
// must reschedule itself instead of running (spec.md §4.4).
func (d *Debouncer) PendingKeys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.timers))
	for k := range d.timers {
		if k == RefreshInferredKey {
			continue
		}
		out = append(out, k)
	}
	return out
}
