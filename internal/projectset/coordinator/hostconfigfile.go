// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// hostConfigFile is the on-disk YAML shape of the coordinator's own
// host-configuration file (SPEC_FULL.md's AMBIENT STACK): the
// debounce-delay override, extra file extensions, and format options a
// host process can pin at startup instead of pushing every field
// through setHostConfiguration calls, mirroring the teacher's
// yaml.v3-decoded Config in internal/config.
type hostConfigFile struct {
	HostInfo            string         `yaml:"hostInfo"`
	FormatOptions       map[string]any `yaml:"formatOptions"`
	ExtraFileExtensions []string       `yaml:"extraFileExtensions"`
	DebounceDelayMS     int            `yaml:"debounceDelayMs"`
}

// LoadHostConfigurationFile reads path through the Host collaborator
// (never os directly, per SPEC_FULL.md §4's implementation note),
// decodes it as YAML, and applies it the same way SetHostConfiguration
// does: a zero-valued field in the file leaves the current
// configuration untouched. The loaded path itself is recorded as
// HostConfiguration.File.
func (c *Coordinator) LoadHostConfigurationFile(path string) error {
	var loadErr error
	c.exec(func() {
		text, err := c.host.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("loadHostConfigurationFile: %w", err)
			return
		}
		var parsed hostConfigFile
		if err := yaml.Unmarshal([]byte(text), &parsed); err != nil {
			loadErr = fmt.Errorf("loadHostConfigurationFile: %w", err)
			return
		}
		next := HostConfiguration{
			File:                path,
			HostInfo:            parsed.HostInfo,
			FormatOptions:       parsed.FormatOptions,
			ExtraFileExtensions: parsed.ExtraFileExtensions,
		}
		if parsed.DebounceDelayMS > 0 {
			next.DebounceDelay = time.Duration(parsed.DebounceDelayMS) * time.Millisecond
		}
		c.mergeHostConfiguration(next)
	})
	return loadErr
}
