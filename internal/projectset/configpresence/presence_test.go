// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

package configpresence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_AbsentByDefault(t *testing.T) {
	tbl := NewTable()
	_, ok := tbl.Get("/a/tsconfig.json")
	assert.False(t, ok)
}

func TestTable_GhostThenGhostWatched(t *testing.T) {
	tbl := NewTable()
	e := tbl.AddTracker("/a/tsconfig.json", "/a/b.ts", false)
	assert.Equal(t, Ghost, e.State())

	tbl.AddTracker("/a/tsconfig.json", "/a/c.ts", true)
	assert.Equal(t, GhostWatched, e.State())
}

func TestTable_ConfiguredProjectIsAdopted(t *testing.T) {
	tbl := NewTable()
	tbl.AddTracker("/a/tsconfig.json", "/a/b.ts", true)
	e := tbl.SetConfiguredProject("/a/tsconfig.json", true)
	assert.Equal(t, Adopted, e.State())
}

func TestTable_RemoveTrackerCollapsesToAbsentAndPrunes(t *testing.T) {
	tbl := NewTable()
	tbl.AddTracker("/a/tsconfig.json", "/a/b.ts", false)
	tbl.RemoveTracker("/a/tsconfig.json", "/a/b.ts")

	_, ok := tbl.Get("/a/tsconfig.json")
	assert.False(t, ok, "an entry with no trackers and no configured project must be pruned")
}

func TestTable_RemovingConfiguredProjectFallsBackToGhostWatched(t *testing.T) {
	tbl := NewTable()
	tbl.AddTracker("/a/tsconfig.json", "/a/b.ts", true)
	tbl.SetConfiguredProject("/a/tsconfig.json", true)
	e := tbl.SetConfiguredProject("/a/tsconfig.json", false)

	assert.Equal(t, GhostWatched, e.State())
}

func TestEntry_NeedsWatcherOnlyWhenGhostWatchedAndUnarmed(t *testing.T) {
	tbl := NewTable()
	e := tbl.AddTracker("/a/tsconfig.json", "/a/b.ts", false)
	assert.False(t, e.NeedsWatcher())

	tbl.AddTracker("/a/tsconfig.json", "/a/c.ts", true)
	assert.True(t, e.NeedsWatcher())

	e.ArmWatcher(noopHandle{})
	assert.False(t, e.NeedsWatcher())
}

type noopHandle struct{}

func (noopHandle) Close() error { return nil }
