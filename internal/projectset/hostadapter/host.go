// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

// Package hostadapter implements ports.Host on top of the OS filesystem
// and a single shared fsnotify.Watcher, the way
// vormadev-vorma/wave/tooling/watcher.go multiplexes one
// *fsnotify.Watcher across many logical subscriptions.
package hostadapter

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/langsvc/projectset/internal/projectset/ports"
)

// subscription is one registered callback against a watched path.
type subscription struct {
	path      string
	recursive bool
	cb        ports.WatchCallback
}

// Host is the concrete ports.Host backed by the OS and fsnotify.
type Host struct {
	caseSensitive bool

	mu          sync.Mutex
	fsWatch     *fsnotify.Watcher
	subsByDir   map[string][]*subscription // directory -> subscriptions interested in it
	refcount    map[string]int             // directory -> number of live fsnotify.Add calls
}

// New creates a Host. caseSensitive should reflect the host OS; callers
// on case-insensitive filesystems (the historical default on macOS and
// Windows) should pass false.
func New(caseSensitive bool) (*Host, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	h := &Host{
		caseSensitive: caseSensitive,
		fsWatch:       w,
		subsByDir:     make(map[string][]*subscription),
		refcount:      make(map[string]int),
	}
	go h.dispatchLoop()
	return h, nil
}

// NewForRuntime creates a Host defaulting case-sensitivity from GOOS,
// matching the host abstraction's useCaseSensitiveFileNames contract.
func NewForRuntime() (*Host, error) {
	caseSensitive := runtime.GOOS != "windows" && runtime.GOOS != "darwin"
	return New(caseSensitive)
}

func (h *Host) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (h *Host) ReadFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *Host) GetFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (h *Host) GetCurrentDirectory() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func (h *Host) UseCaseSensitiveFileNames() bool {
	return h.caseSensitive
}

// CreateHash returns a hex-encoded SHA-256 digest, used for scrubbing
// project identifiers in telemetry.
func (h *Host) CreateHash(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

type watcherHandle struct {
	host *Host
	sub  *subscription
	dir  string
}

func (wh *watcherHandle) Close() error {
	return wh.host.unsubscribe(wh.dir, wh.sub)
}

// WatchFile watches a single file by subscribing to its containing
// directory, the standard fsnotify technique for surviving
// rename-over-write editors.
func (h *Host) WatchFile(path string, cb ports.WatchCallback) (ports.WatcherHandle, error) {
	dir := filepath.Dir(path)
	sub := &subscription{path: path, recursive: false, cb: cb}
	if err := h.subscribe(dir, sub); err != nil {
		return nil, err
	}
	return &watcherHandle{host: h, sub: sub, dir: dir}, nil
}

// WatchDirectory watches path itself (and, if recursive, every
// subdirectory discovered at registration time).
func (h *Host) WatchDirectory(path string, recursive bool, cb ports.WatchCallback) (ports.WatcherHandle, error) {
	sub := &subscription{path: path, recursive: recursive, cb: cb}
	if err := h.subscribe(path, sub); err != nil {
		return nil, err
	}
	if recursive {
		_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() || p == path {
				return err
			}
			return h.addWatch(p)
		})
	}
	return &watcherHandle{host: h, sub: sub, dir: path}, nil
}

func (h *Host) subscribe(dir string, sub *subscription) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.addWatchLocked(dir); err != nil {
		return err
	}
	h.subsByDir[dir] = append(h.subsByDir[dir], sub)
	return nil
}

func (h *Host) unsubscribe(dir string, sub *subscription) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.subsByDir[dir]
	for i, s := range subs {
		if s == sub {
			h.subsByDir[dir] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(h.subsByDir[dir]) == 0 {
		delete(h.subsByDir, dir)
		return h.removeWatchLocked(dir)
	}
	return nil
}

func (h *Host) addWatch(dir string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.addWatchLocked(dir)
}

func (h *Host) addWatchLocked(dir string) error {
	if h.refcount[dir] == 0 {
		if err := h.fsWatch.Add(dir); err != nil {
			return err
		}
	}
	h.refcount[dir]++
	return nil
}

func (h *Host) removeWatchLocked(dir string) error {
	h.refcount[dir]--
	if h.refcount[dir] <= 0 {
		delete(h.refcount, dir)
		return h.fsWatch.Remove(dir)
	}
	return nil
}

func (h *Host) dispatchLoop() {
	for {
		select {
		case ev, ok := <-h.fsWatch.Events:
			if !ok {
				return
			}
			h.dispatch(ev)
		case _, ok := <-h.fsWatch.Errors:
			if !ok {
				return
			}
		}
	}
}

func (h *Host) dispatch(ev fsnotify.Event) {
	kind, ok := translate(ev.Op)
	if !ok {
		return
	}

	dir := filepath.Dir(ev.Name)
	h.mu.Lock()
	var matched []*subscription
	for _, sub := range h.subsByDir[dir] {
		if !sub.recursive && sub.path != ev.Name && sub.path != dir {
			continue
		}
		matched = append(matched, sub)
	}
	for _, sub := range h.subsByDir[ev.Name] {
		matched = append(matched, sub)
	}
	// Recursive subscriptions registered on an ancestor directory also
	// receive events from their subdirectories.
	for d := dir; filepath.Dir(d) != d; {
		d = filepath.Dir(d)
		for _, sub := range h.subsByDir[d] {
			if sub.recursive {
				matched = append(matched, sub)
			}
		}
	}
	h.mu.Unlock()

	for _, sub := range matched {
		sub.cb(ev.Name, kind)
	}
}

func translate(op fsnotify.Op) (ports.EventKind, bool) {
	switch {
	case op&fsnotify.Create != 0:
		return ports.Created, true
	case op&fsnotify.Remove != 0, op&fsnotify.Rename != 0:
		return ports.Deleted, true
	case op&fsnotify.Write != 0, op&fsnotify.Chmod != 0:
		return ports.Changed, true
	default:
		return ports.Changed, false
	}
}

// Close releases the underlying fsnotify watcher. Callers should do
// this once, at process shutdown.
func (h *Host) Close() error {
	return h.fsWatch.Close()
}

var _ ports.Host = (*Host)(nil)
