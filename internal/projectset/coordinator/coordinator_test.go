// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langsvc/projectset/internal/projectset/configpresence"
	"github.com/langsvc/projectset/internal/projectset/ports"
	"github.com/langsvc/projectset/internal/projectset/safelist"
	"github.com/langsvc/projectset/internal/projectset/sizegate"
	"github.com/langsvc/projectset/internal/projectset/telemetry"
)

// recordingEmitter captures the events a test wants to assert on,
// discarding everything else via the embedded NopEmitter.
type recordingEmitter struct {
	telemetry.NopEmitter
	languageServiceStates []telemetry.LanguageServiceState
	projectInfos          []telemetry.ProjectInfo
}

func (e *recordingEmitter) LanguageServiceState(s telemetry.LanguageServiceState) {
	e.languageServiceStates = append(e.languageServiceStates, s)
}

func (e *recordingEmitter) ProjectInfo(p telemetry.ProjectInfo) {
	e.projectInfos = append(e.projectInfos, p)
}

func strPtr(s string) *string { return &s }

// --- spec.md §8 scenarios -------------------------------------------

func TestS1_OpenFileWithNoConfig_GetsSoleInferredProject(t *testing.T) {
	h := newTestHost()
	h.put("/proj/a.ts", "const a = 1")
	c := New(Options{Host: h, Parser: testParser{}})
	defer c.Close()

	result := c.OpenClientFile("/proj/a.ts", OpenFileParams{})
	assert.False(t, result.ConfigFound)

	info, ok := c.GetScriptInfo("/proj/a.ts")
	require.True(t, ok)
	require.Len(t, info.Projects, 1)

	snap, ok := c.FindProject(info.Projects[0])
	require.True(t, ok)
	assert.Equal(t, "inferred", snap.Kind)
	assert.Equal(t, []string{"/proj/a.ts"}, snap.Roots)
}

func TestS2_ConfiguredProjectAdoptsListedFiles(t *testing.T) {
	h := newTestHost()
	h.put("/a/tsconfig.json", "files=b.ts,c.ts")
	h.put("/a/b.ts", "")
	h.put("/a/c.ts", "")
	c := New(Options{Host: h, Parser: testParser{}})
	defer c.Close()

	result := c.OpenClientFile("/a/b.ts", OpenFileParams{})
	assert.True(t, result.ConfigFound)
	assert.Equal(t, "/a/tsconfig.json", result.ConfigFileName)

	snap, ok := c.FindProject("/a/tsconfig.json")
	require.True(t, ok)
	assert.Equal(t, "configured", snap.Kind)
	assert.ElementsMatch(t, []string{"/a/b.ts", "/a/c.ts"}, snap.Roots)

	// Only b.ts ever contributed an open-ref; closing it must tear the
	// project down.
	c.CloseClientFile("/a/b.ts")
	_, ok = c.FindProject("/a/tsconfig.json")
	assert.False(t, ok, "open-ref-count for the Configured project must have reached zero")
}

func TestS3_UnlistedFileGetsOwnInferredProjectConfiguredUntouched(t *testing.T) {
	h := newTestHost()
	h.put("/a/tsconfig.json", "files=b.ts")
	h.put("/a/b.ts", "")
	h.put("/a/d.ts", "")
	c := New(Options{Host: h, Parser: testParser{}})
	defer c.Close()

	c.OpenClientFile("/a/b.ts", OpenFileParams{})
	dResult := c.OpenClientFile("/a/d.ts", OpenFileParams{})
	assert.False(t, dResult.ConfigFound, "d.ts is absent from the config's resolved files")

	configSnap, ok := c.FindProject("/a/tsconfig.json")
	require.True(t, ok)
	assert.Equal(t, []string{"/a/b.ts"}, configSnap.Roots, "the Configured project must be untouched by d.ts")

	dInfo, ok := c.GetScriptInfo("/a/d.ts")
	require.True(t, ok)
	require.Len(t, dInfo.Projects, 1)
	dProj, ok := c.FindProject(dInfo.Projects[0])
	require.True(t, ok)
	assert.Equal(t, "inferred", dProj.Kind)
}

func TestS4_ConfigDeletion_RemovesProjectAndLeavesGhostWatchedTracker(t *testing.T) {
	h := newTestHost()
	h.put("/a/tsconfig.json", "files=b.ts,c.ts")
	h.put("/a/b.ts", "")
	h.put("/a/c.ts", "")
	c := New(Options{Host: h, Parser: testParser{}})
	defer c.Close()

	c.OpenClientFile("/a/b.ts", OpenFileParams{})
	c.OpenClientFile("/a/c.ts", OpenFileParams{})

	h.remove("/a/tsconfig.json")
	h.fire("/a/tsconfig.json", ports.Deleted)

	require.Eventually(t, func() bool {
		_, ok := c.FindProject("/a/tsconfig.json")
		return !ok
	}, time.Second, 5*time.Millisecond, "the Configured project must be removed on config deletion")

	require.Eventually(t, func() bool {
		info, ok := c.GetScriptInfo("/a/c.ts")
		return ok && len(info.Projects) == 1
	}, time.Second, 5*time.Millisecond, "c.ts must regain membership via an Inferred project")

	info, _ := c.GetScriptInfo("/a/c.ts")
	snap, ok := c.FindProject(info.Projects[0])
	require.True(t, ok)
	assert.Equal(t, "inferred", snap.Kind)

	var state configpresence.State
	c.exec(func() {
		e, ok := c.presence.Get("/a/tsconfig.json")
		require.True(t, ok)
		state = e.State()
	})
	assert.Equal(t, configpresence.GhostWatched, state, "a Ghost-watched entry must remain since c.ts replayed as an inferred root")
}

func TestS5_ExternalProjectOverSizeBudget_DisablesLanguageService(t *testing.T) {
	h := newTestHost()
	h.put("/proj/p.js", strings.Repeat("a", 2*1024*1024))
	h.put("/proj/q.js", strings.Repeat("a", 19*1024*1024))
	emitter := &recordingEmitter{}
	c := New(Options{Host: h, Emitter: emitter})
	defer c.Close()

	c.OpenExternalProject(ExternalProjectSpec{
		Name:      "ext1",
		RootFiles: []string{"/proj/p.js", "/proj/q.js"},
	})

	snap, ok := c.FindProject("ext1")
	require.True(t, ok)
	assert.False(t, snap.LanguageServiceEnabled)
	assert.ElementsMatch(t, []string{"/proj/p.js", "/proj/q.js"}, snap.Roots, "both files remain project scripts even with the language service disabled")

	require.NotEmpty(t, emitter.languageServiceStates)
	last := emitter.languageServiceStates[len(emitter.languageServiceStates)-1]
	assert.Equal(t, "ext1", last.Project)
	assert.False(t, last.Enabled)
}

func TestS6_SafelistExcludesJQueryBundleAndReportsTypings(t *testing.T) {
	h := newTestHost()
	sl, err := safelist.Load([]byte(`{
		"jquery": {"match": "jquery.*\\.js$", "types": ["jquery"]}
	}`))
	require.NoError(t, err)

	c := New(Options{Host: h, SafeList: sl})
	defer c.Close()

	c.OpenExternalProject(ExternalProjectSpec{
		Name:      "ext1",
		RootFiles: []string{"lib/jquery-1.10.2.min.js"},
	})

	snap, ok := c.FindProject("ext1")
	require.True(t, ok)
	assert.Empty(t, snap.Roots, "the matched bundle must be excluded from the root list")
	assert.Contains(t, snap.Typings, "jquery")

	_, found := c.GetScriptInfo("lib/jquery-1.10.2.min.js")
	assert.False(t, found, "the excluded root was never attached as a script")
}

// --- spec.md §8 testable properties ----------------------------------

func TestProperty_ExternalOpenRefSymmetric_ClosingFirstFileKeepsSiblingAlive(t *testing.T) {
	h := newTestHost()
	h.put("/proj/a.ts", "x")
	h.put("/proj/b.ts", "x")
	c := New(Options{Host: h})
	defer c.Close()

	c.OpenExternalProject(ExternalProjectSpec{Name: "ext1", RootFiles: []string{"/proj/a.ts", "/proj/b.ts"}})
	c.OpenClientFile("/proj/a.ts", OpenFileParams{})
	c.OpenClientFile("/proj/b.ts", OpenFileParams{})

	c.CloseClientFile("/proj/a.ts")

	_, stillExists := c.FindProject("ext1")
	require.True(t, stillExists, "an External project must outlive the close of one of its open members")

	info, ok := c.GetScriptInfo("/proj/b.ts")
	require.True(t, ok)
	require.Len(t, info.Projects, 1, "the still-open sibling must keep its membership")
	assert.Equal(t, "ext1", info.Projects[0])
}

func TestProperty_ConfigDiscoveredAfterInferredProjectDropsInferredMembership(t *testing.T) {
	h := newTestHost()
	h.put("/a/b.ts", "")
	c := New(Options{Host: h, Parser: testParser{}})
	defer c.Close()

	c.OpenClientFile("/a/b.ts", OpenFileParams{})
	info, _ := c.GetScriptInfo("/a/b.ts")
	require.Len(t, info.Projects, 1)
	inferredName := info.Projects[0]
	snap, ok := c.FindProject(inferredName)
	require.True(t, ok)
	assert.Equal(t, "inferred", snap.Kind)

	h.put("/a/tsconfig.json", "files=b.ts")
	h.fire("/a/tsconfig.json", ports.Created)

	require.Eventually(t, func() bool {
		info, ok := c.GetScriptInfo("/a/b.ts")
		return ok && len(info.Projects) == 1 && info.Projects[0] == "/a/tsconfig.json"
	}, time.Second, 5*time.Millisecond, "b.ts must end up solely in the Configured project, not also the Inferred one")

	_, stillExists := c.FindProject(inferredName)
	assert.False(t, stillExists, "the now-rootless Inferred project must be torn down")
}

func TestProperty_HigherPriorityCarrierDropsInferredMembership(t *testing.T) {
	h := newTestHost()
	h.put("/proj/a.ts", "x")
	c := New(Options{Host: h})
	defer c.Close()

	c.OpenClientFile("/proj/a.ts", OpenFileParams{})
	info, _ := c.GetScriptInfo("/proj/a.ts")
	require.Len(t, info.Projects, 1)
	inferredName := info.Projects[0]

	c.OpenExternalProject(ExternalProjectSpec{Name: "ext1", RootFiles: []string{"/proj/a.ts"}})

	info, _ = c.GetScriptInfo("/proj/a.ts")
	require.Len(t, info.Projects, 1, "a script belongs to exactly one project at a time once a higher-priority carrier claims it")
	assert.Equal(t, "ext1", info.Projects[0])

	_, stillExists := c.FindProject(inferredName)
	assert.False(t, stillExists, "the now-rootless Inferred project must be torn down")
}

func TestProperty_WatcherArmedOnlyWhileClosed(t *testing.T) {
	h := newTestHost()
	h.put("/proj/a.ts", "x")
	c := New(Options{Host: h})
	defer c.Close()

	c.OpenClientFile("/proj/a.ts", OpenFileParams{})
	assert.False(t, h.isWatched("/proj/a.ts"), "an open script is never watched")

	c.CloseClientFile("/proj/a.ts")
	assert.True(t, h.isWatched("/proj/a.ts"), "a closed, still-known script must be watched")
}

func TestProperty_SizeGateNeverExceedsBudgetAcrossProjects(t *testing.T) {
	h := newTestHost()
	h.put("/proj/a.js", strings.Repeat("a", 12*1024*1024))
	h.put("/proj/b.js", strings.Repeat("b", 12*1024*1024))
	c := New(Options{Host: h})
	defer c.Close()

	c.OpenExternalProject(ExternalProjectSpec{Name: "extA", RootFiles: []string{"/proj/a.js"}})
	c.OpenExternalProject(ExternalProjectSpec{Name: "extB", RootFiles: []string{"/proj/b.js"}})

	snapA, _ := c.FindProject("extA")
	snapB, _ := c.FindProject("extB")
	assert.True(t, snapA.LanguageServiceEnabled, "the first project fits the budget alone")
	assert.False(t, snapB.LanguageServiceEnabled, "the second project would push the shared budget over 20 MiB")

	var sum int64
	c.exec(func() { sum = c.sizeGate.Sum() })
	assert.LessOrEqual(t, sum, sizegate.Budget)
}

func TestProperty_DebounceCoalescesMultipleMutationsIntoOneRebuild(t *testing.T) {
	h := newTestHost()
	h.put("/proj/a.ts", "x")
	c := New(Options{Host: h, HostConfiguration: HostConfiguration{DebounceDelay: 20 * time.Millisecond}})
	defer c.Close()

	c.OpenClientFile("/proj/a.ts", OpenFileParams{Contents: strPtr("x")})
	info, _ := c.GetScriptInfo("/proj/a.ts")
	projName := info.Projects[0]

	for i := 0; i < 5; i++ {
		c.ApplyChangesInOpenFiles(nil, []Edit{{Path: "/proj/a.ts", StartOffset: 0, EndOffset: 1, NewText: "y"}}, nil)
	}

	require.Eventually(t, func() bool {
		snap, ok := c.FindProject(projName)
		return ok && snap.Version == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	snap, _ := c.FindProject(projName)
	assert.Equal(t, 1, snap.Version, "five edits within one debounce window must coalesce into a single rebuild")
}

func TestProperty_EmptyChangeBatchIsNoOp(t *testing.T) {
	h := newTestHost()
	h.put("/proj/a.ts", "hello")
	c := New(Options{Host: h})
	defer c.Close()

	c.OpenClientFile("/proj/a.ts", OpenFileParams{})
	before, ok := c.GetScriptInfo("/proj/a.ts")
	require.True(t, ok)

	results := c.ApplyChangesInOpenFiles(nil, nil, nil)
	assert.Empty(t, results)

	after, ok := c.GetScriptInfo("/proj/a.ts")
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestProperty_OpenExternalProjectsTwiceIsIdempotent(t *testing.T) {
	h := newTestHost()
	h.put("/proj/p.js", "x")
	c := New(Options{Host: h})
	defer c.Close()

	specs := []ExternalProjectSpec{{Name: "ext1", RootFiles: []string{"/proj/p.js"}}}
	c.OpenExternalProjects(specs)
	snap1, ok := c.FindProject("ext1")
	require.True(t, ok)

	c.OpenExternalProjects(specs)
	snap2, ok := c.FindProject("ext1")
	require.True(t, ok)

	assert.Equal(t, snap1.Roots, snap2.Roots)
	assert.Equal(t, snap1.Kind, snap2.Kind)
}

// --- other coordinator behaviors --------------------------------------

func TestSynchronizeProjectList_ReportsOnlyChangedVersions(t *testing.T) {
	h := newTestHost()
	h.put("/proj/a.ts", "x")
	c := New(Options{Host: h, HostConfiguration: HostConfiguration{DebounceDelay: 10 * time.Millisecond}})
	defer c.Close()

	c.OpenClientFile("/proj/a.ts", OpenFileParams{})
	info, _ := c.GetScriptInfo("/proj/a.ts")
	projName := info.Projects[0]

	require.Eventually(t, func() bool {
		snap, ok := c.FindProject(projName)
		return ok && snap.Version >= 1
	}, time.Second, 5*time.Millisecond)

	snap, _ := c.FindProject(projName)
	known := map[string]int{projName: snap.Version}

	stale := c.SynchronizeProjectList(known)
	assert.Empty(t, stale, "an already-known version must not be reported again")

	stale = c.SynchronizeProjectList(map[string]int{})
	require.Len(t, stale, 1)
	assert.Equal(t, projName, stale[0].Name)
}

func TestCloseClientFile_UnknownPathIsNoOp(t *testing.T) {
	h := newTestHost()
	c := New(Options{Host: h})
	defer c.Close()

	assert.NotPanics(t, func() { c.CloseClientFile("/never/opened.ts") })
}

func TestLoadHostConfigurationFile_AppliesYAMLOverrides(t *testing.T) {
	h := newTestHost()
	h.put("/proj/host.yaml", "hostInfo: my-editor\ndebounceDelayMs: 42\nextraFileExtensions:\n  - .mjsx\n")
	c := New(Options{Host: h})
	defer c.Close()

	require.NoError(t, c.LoadHostConfigurationFile("/proj/host.yaml"))

	c.exec(func() {
		assert.Equal(t, "my-editor", c.hostConfig.HostInfo)
		assert.Equal(t, "/proj/host.yaml", c.hostConfig.File)
		assert.Equal(t, 42*time.Millisecond, c.hostConfig.DebounceDelay)
		assert.Equal(t, []string{".mjsx"}, c.hostConfig.ExtraFileExtensions)
	})
}

func TestLoadHostConfigurationFile_MissingFileIsAnError(t *testing.T) {
	h := newTestHost()
	c := New(Options{Host: h})
	defer c.Close()

	assert.Error(t, c.LoadHostConfigurationFile("/proj/nope.yaml"))
}

// applyEdits against an unknown open file panics inside the
// coordinator's internal goroutine rather than returning an error
// (spec.md §7: protocol misuse is a fatal assertion, not a recoverable
// condition) — deliberately not exercised here since the panic is not
// recoverable from the caller's goroutine.
