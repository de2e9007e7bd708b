// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

// Package coordinator implements the project-set coordinator: the
// reconciliation logic described across spec.md §4 that decides which
// projects exist, which files each owns, and when each project's
// compilation graph must rebuild.
//
// Exported methods may be called from any goroutine: spec.md §5's
// single-threaded contract is kept by serializing every mutation — whether it arrives
// from a direct method call, a debounced scheduler tick, or a
// filesystem watcher callback — onto one internal goroutine, the way
// vormadev-vorma's devserver client manager serializes register/
// unregister/broadcast onto a single loop.
package coordinator

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/langsvc/projectset/internal/projectset/configpresence"
	"github.com/langsvc/projectset/internal/projectset/logging"
	"github.com/langsvc/projectset/internal/projectset/ports"
	"github.com/langsvc/projectset/internal/projectset/project"
	"github.com/langsvc/projectset/internal/projectset/safelist"
	"github.com/langsvc/projectset/internal/projectset/scheduler"
	"github.com/langsvc/projectset/internal/projectset/script"
	"github.com/langsvc/projectset/internal/projectset/sizegate"
	"github.com/langsvc/projectset/internal/projectset/telemetry"
)

// Config-file names recognized by upward search (spec.md §4.1 step 3).
// HostConfiguration has no field for them, so these names are fixed.
const (
	DefaultConfigFileNamePrimary   = "tsconfig.json"
	DefaultConfigFileNameSecondary = "jsconfig.json"
)

// HostConfiguration bundles the setHostConfiguration payload from
// spec.md §6, plus the coordinator-local overrides resolved in
// SPEC_FULL.md's Open Question §9.2.
type HostConfiguration struct {
	File                string
	HostInfo            string
	FormatOptions       map[string]any
	ExtraFileExtensions []string
	DebounceDelay       time.Duration // 0 means "use scheduler.DefaultDelay"
}

// Options configures a new Coordinator.
type Options struct {
	Host                ports.Host
	Parser              ports.ConfigParser
	LanguageServices     ports.LanguageServiceFactory
	Typings             ports.TypingsInstaller
	Logger              ports.Logger
	Emitter             telemetry.Emitter
	SafeList            *safelist.SafeList
	SingleInferredProject bool
	HostConfiguration   HostConfiguration
}

// Coordinator is the project-set coordinator.
type Coordinator struct {
	sessionID string

	host    ports.Host
	parser  ports.ConfigParser
	lsFact  ports.LanguageServiceFactory
	typings ports.TypingsInstaller
	log     ports.Logger
	emit    telemetry.Emitter

	scripts  *script.Registry
	presence *configpresence.Table

	externalProjects   map[string]*project.Project // keyed by external-project-name
	configuredProjects map[string]*project.Project // keyed by canonical config path
	inferredProjects   []*project.Project

	openFiles []*script.Script

	pendingUpdates         map[string]*project.Project
	pendingInferredRefresh bool
	changedFiles           []*script.Script

	externalToConfigs map[string][]string // external name -> sorted canonical config paths

	// openRefTracking records, per script path, which Configured/External
	// projects an open already contributed a ref-count to, so a script
	// reconciled more than once against the same project never double-
	// increments OpenRefCount.
	openRefTracking map[string]map[string]bool

	scheduler *scheduler.Debouncer
	sizeGate  *sizegate.Gate
	safelist  *safelist.SafeList

	hostConfig HostConfiguration

	singleInferredProject bool
	inferredCounter        int

	inferredCompilerOptions map[string]any

	configFileNamePrimary   string
	configFileNameSecondary string

	work chan func()
	stop chan struct{}
}

// key returns the unique pending-updates/project-set key for a project.
func key(kind project.Kind, name string) string {
	return fmt.Sprintf("%d:%s", kind, name)
}

// New constructs a Coordinator and starts its internal dispatch loop.
// Callers must call Close when done to release the loop and any
// watchers the coordinator still owns.
func New(opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Emitter == nil {
		opts.Emitter = telemetry.NopEmitter{}
	}
	if opts.SafeList == nil {
		opts.SafeList = safelist.Empty()
	}

	c := &Coordinator{
		sessionID:           uuid.NewString(),
		host:                opts.Host,
		parser:              opts.Parser,
		lsFact:              opts.LanguageServices,
		typings:             opts.Typings,
		log:                 opts.Logger,
		emit:                opts.Emitter,
		scripts:             script.NewRegistry(),
		presence:            configpresence.NewTable(),
		externalProjects:    make(map[string]*project.Project),
		configuredProjects:  make(map[string]*project.Project),
		pendingUpdates:      make(map[string]*project.Project),
		externalToConfigs:   make(map[string][]string),
		openRefTracking:     make(map[string]map[string]bool),
		scheduler:           scheduler.New(),
		sizeGate:            sizegate.New(sizegate.Budget),
		safelist:            opts.SafeList,
		hostConfig:          opts.HostConfiguration,
		singleInferredProject: opts.SingleInferredProject,
		configFileNamePrimary:   DefaultConfigFileNamePrimary,
		configFileNameSecondary: DefaultConfigFileNameSecondary,
		work: make(chan func()),
		stop: make(chan struct{}),
	}
	go c.loop()
	return c
}

func (c *Coordinator) loop() {
	for {
		select {
		case fn := <-c.work:
			fn()
		case <-c.stop:
			return
		}
	}
}

// exec runs fn on the coordinator's internal goroutine and waits for
// it to complete, serializing it against every other call, scheduled
// task, and watcher callback.
func (c *Coordinator) exec(fn func()) {
	done := make(chan struct{})
	select {
	case c.work <- func() { fn(); close(done) }:
		<-done
	case <-c.stop:
	}
}

// dispatchAsync is used by scheduler tasks and watcher callbacks, which
// arrive on goroutines the coordinator does not own; it serializes fn
// without making the caller wait for completion.
func (c *Coordinator) dispatchAsync(fn func()) {
	go c.exec(fn)
}

// Close stops the dispatch loop and releases every watcher the
// coordinator still holds.
func (c *Coordinator) Close() {
	c.exec(func() {
		for _, p := range c.externalProjects {
			p.Teardown()
		}
		for _, p := range c.configuredProjects {
			p.Teardown()
		}
		for _, p := range c.inferredProjects {
			p.Teardown()
		}
		for _, s := range c.scripts.All() {
			if s.Watcher != nil {
				s.Watcher.Close()
			}
		}
	})
	close(c.stop)
}

// debounceDelay returns the effective debounce delay, honoring the
// Open Question §9.2 override.
func (c *Coordinator) debounceDelay() time.Duration {
	if c.hostConfig.DebounceDelay > 0 {
		return c.hostConfig.DebounceDelay
	}
	return scheduler.DefaultDelay
}

func (c *Coordinator) scriptKindFromPath(path string) script.Kind {
	switch ext(path) {
	case ".ts":
		return script.TS
	case ".tsx":
		return script.TSX
	case ".jsx":
		return script.JSX
	case ".js", ".mjs", ".cjs":
		return script.JS
	default:
		for _, e := range c.hostConfig.ExtraFileExtensions {
			if e == ext(path) {
				return script.JS
			}
		}
		return script.Unknown
	}
}
