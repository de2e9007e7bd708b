// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

// Package telemetry defines the coordinator's fire-and-forget emitted
// events (spec.md §6) and the scrubbed project-info-telemetry record.
package telemetry

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/langsvc/projectset/internal/projectset/ports"
	"github.com/langsvc/projectset/internal/projectset/project"
)

// ContextChanged fires whenever a file's set of containing projects
// may have changed.
type ContextChanged struct {
	Project string
	File    string
}

// ConfigFileDiagnostics forwards a config parser's diagnostics.
type ConfigFileDiagnostics struct {
	TriggerFile    string
	ConfigFileName string
	Diagnostics    []ports.Diagnostic
}

// LanguageServiceState reports a project's language-service enabled/
// disabled transition (spec.md §4.5, §4.8).
type LanguageServiceState struct {
	Project string
	Enabled bool
}

// ProjectInfo is the scrubbed, privacy-safe telemetry record: a hashed
// project id, extension counts, enum options stringified, path-bearing
// options omitted, and the taxonomic project type.
type ProjectInfo struct {
	ProjectIDHash          string
	ProjectType            string
	ExtensionCounts        map[string]int
	CompilerOptionsSummary map[string]string
	LanguageServiceEnabled bool
}

// Emitter is the single fire-and-forget handler the coordinator calls.
// Implementations must not block; the coordinator does not retry or
// await a response.
type Emitter interface {
	ContextChanged(ContextChanged)
	ConfigFileDiagnostics(ConfigFileDiagnostics)
	LanguageServiceState(LanguageServiceState)
	ProjectInfo(ProjectInfo)
}

// NopEmitter discards every event; useful as a default and in tests.
type NopEmitter struct{}

func (NopEmitter) ContextChanged(ContextChanged)             {}
func (NopEmitter) ConfigFileDiagnostics(ConfigFileDiagnostics) {}
func (NopEmitter) LanguageServiceState(LanguageServiceState)  {}
func (NopEmitter) ProjectInfo(ProjectInfo)                    {}

// pathBearingOptions never survive into CompilerOptionsSummary.
var pathBearingOptions = map[string]bool{
	"outdir":    true,
	"outfile":   true,
	"rootdir":   true,
	"baseurl":   true,
	"declarationdir": true,
}

// BuildProjectInfo scrubs a project's state into a ProjectInfo record:
// the project name is hashed (never transmitted in the clear), options
// that carry filesystem paths are omitted entirely, and every other
// option value is stringified.
func BuildProjectInfo(p *project.Project, host ports.Host) ProjectInfo {
	ext := make(map[string]int)
	for _, root := range p.RootOrder {
		e := strings.ToLower(filepath.Ext(root))
		if e == "" {
			e = "(none)"
		}
		ext[e]++
	}

	summary := make(map[string]string, len(p.CompilerOptions))
	for k, v := range p.CompilerOptions {
		if pathBearingOptions[strings.ToLower(k)] {
			continue
		}
		summary[k] = stringifyOption(v)
	}

	return ProjectInfo{
		ProjectIDHash:          host.CreateHash(p.Name),
		ProjectType:            p.Kind.String(),
		ExtensionCounts:        ext,
		CompilerOptionsSummary: summary,
		LanguageServiceEnabled: p.LanguageServiceEnabled,
	}
}

// stringifyOption renders an enum-ish option value as a string; every
// compiler-option value surviving the scrub (i.e. not path-bearing) is
// stringified rather than passed through as its native type.
func stringifyOption(v any) string {
	return fmt.Sprintf("%v", v)
}
