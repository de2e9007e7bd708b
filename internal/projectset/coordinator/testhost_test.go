// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/langsvc/projectset/internal/projectset/ports"
)

// testHost is an in-memory ports.Host: no real filesystem or fsnotify,
// so tests can deterministically control existence, content, and fire
// watch events without waiting on the OS.
type testHost struct {
	mu    sync.Mutex
	files map[string]string // path -> content; absence means FileExists is false

	watchersMu sync.Mutex
	watchers   map[string][]testSub
	nextSubID  int
}

type testSub struct {
	id int
	cb ports.WatchCallback
}

func newTestHost() *testHost {
	return &testHost{
		files:    make(map[string]string),
		watchers: make(map[string][]testSub),
	}
}

func (h *testHost) put(path, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.files[path] = content
}

func (h *testHost) remove(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.files, path)
}

func (h *testHost) FileExists(path string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.files[path]
	return ok
}

func (h *testHost) ReadFile(path string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	text, ok := h.files[path]
	if !ok {
		return "", fmt.Errorf("testhost: no such file: %s", path)
	}
	return text, nil
}

func (h *testHost) GetFileSize(path string) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	text, ok := h.files[path]
	if !ok {
		return 0, fmt.Errorf("testhost: no such file: %s", path)
	}
	return int64(len(text)), nil
}

func (h *testHost) GetCurrentDirectory() string    { return "/" }
func (h *testHost) UseCaseSensitiveFileNames() bool { return true }
func (h *testHost) CreateHash(data string) string   { return "hash:" + data }

type testWatcherHandle struct {
	host  *testHost
	path  string
	subID int
}

func (wh *testWatcherHandle) Close() error {
	wh.host.watchersMu.Lock()
	defer wh.host.watchersMu.Unlock()
	subs := wh.host.watchers[wh.path]
	for i, s := range subs {
		if s.id == wh.subID {
			wh.host.watchers[wh.path] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	return nil
}

func (h *testHost) WatchFile(path string, cb ports.WatchCallback) (ports.WatcherHandle, error) {
	h.watchersMu.Lock()
	h.nextSubID++
	id := h.nextSubID
	h.watchers[path] = append(h.watchers[path], testSub{id: id, cb: cb})
	h.watchersMu.Unlock()
	return &testWatcherHandle{host: h, path: path, subID: id}, nil
}

func (h *testHost) WatchDirectory(path string, recursive bool, cb ports.WatchCallback) (ports.WatcherHandle, error) {
	return h.WatchFile(path, cb)
}

// fire synchronously invokes every callback registered for path. Tests
// call this directly instead of going through a real filesystem.
func (h *testHost) fire(path string, kind ports.EventKind) {
	h.watchersMu.Lock()
	subs := append([]testSub(nil), h.watchers[path]...)
	h.watchersMu.Unlock()
	for _, sub := range subs {
		sub.cb(path, kind)
	}
}

func (h *testHost) isWatched(path string) bool {
	h.watchersMu.Lock()
	defer h.watchersMu.Unlock()
	return len(h.watchers[path]) > 0
}

// testParser parses a tiny JSON-free fixture format understood only by
// these tests: a comma-separated "files=a.ts,b.ts" line selects the
// root file list; everything else is ignored. Real config parsing is
// out of scope for the coordinator (spec.md §1).
type testParser struct{}

func (testParser) ParseConfigFile(configFileName, text string) *ports.ParsedConfig {
	out := &ports.ParsedConfig{}
	dir := configFileName[:strings.LastIndex(configFileName, "/")]
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "files=") {
			continue
		}
		for _, f := range strings.Split(strings.TrimPrefix(line, "files="), ",") {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			out.FileNames = append(out.FileNames, dir+"/"+f)
		}
	}
	sort.Strings(out.FileNames)
	return out
}

var _ ports.Host = (*testHost)(nil)
var _ ports.ConfigParser = testParser{}
