// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

// Package projectset is the public facade over the project-set
// coordinator, for embedders that want the coordinator without
// importing the internal package tree directly.
package projectset

import (
	"github.com/langsvc/projectset/internal/projectset/configpresence"
	"github.com/langsvc/projectset/internal/projectset/coordinator"
	"github.com/langsvc/projectset/internal/projectset/hostadapter"
	"github.com/langsvc/projectset/internal/projectset/logging"
	"github.com/langsvc/projectset/internal/projectset/ports"
	"github.com/langsvc/projectset/internal/projectset/safelist"
	"github.com/langsvc/projectset/internal/projectset/telemetry"
)

// Coordinator is the project-set coordinator. See
// internal/projectset/coordinator for the full reconciliation logic;
// this alias is what embedders construct and call.
type Coordinator = coordinator.Coordinator

// Options configures a new Coordinator.
type Options = coordinator.Options

// HostConfiguration is the runtime-overridable host configuration
// (debounce delay, extra extensions, format options).
type HostConfiguration = coordinator.HostConfiguration

// ExternalProjectSpec describes a client-declared External project.
type ExternalProjectSpec = coordinator.ExternalProjectSpec

// Edit is a single replace-range edit against an open script.
type Edit = coordinator.Edit

// Host, ConfigParser, LanguageServiceFactory, and TypingsInstaller are
// the collaborator contracts a host process implements.
type (
	Host                   = ports.Host
	ConfigParser           = ports.ConfigParser
	LanguageServiceFactory = ports.LanguageServiceFactory
	TypingsInstaller       = ports.TypingsInstaller
	Logger                 = ports.Logger
)

// Emitter is the fire-and-forget telemetry handler.
type Emitter = telemetry.Emitter

// New constructs a Coordinator and starts its internal dispatch loop.
func New(opts Options) *Coordinator {
	return coordinator.New(opts)
}

// NewHost constructs the default fsnotify-backed Host implementation,
// defaulting case-sensitivity from the running OS.
func NewHost() (*hostadapter.Host, error) {
	return hostadapter.NewForRuntime()
}

// NewLogger constructs the default zap-backed Logger.
func NewLogger(level logging.Level) *logging.Adapter {
	return logging.New(level)
}

// LoadSafeList parses the JSON safelist format from spec.md §6.
func LoadSafeList(data []byte) (*safelist.SafeList, error) {
	return safelist.Load(data)
}

// presenceStateNames re-exports the config-presence state labels, useful
// for embedders building their own diagnostics views.
var presenceStateNames = map[configpresence.State]string{
	configpresence.Absent:       "absent",
	configpresence.Ghost:        "ghost",
	configpresence.GhostWatched: "ghost-watched",
	configpresence.Adopted:      "adopted",
}

// PresenceStateName renders a config-presence state as its spec.md §4.3
// label.
func PresenceStateName(s configpresence.State) string {
	if name, ok := presenceStateNames[s]; ok {
		return name
	}
	return "unknown"
}
