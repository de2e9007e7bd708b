// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

// Command projectsetd is a minimal wiring demonstration for the
// project-set coordinator: it constructs the host, logger, and
// coordinator, opens every file named on the command line, and prints
// the resulting project set. It is not the wire-protocol session layer
// described in spec.md §1's Out-of-scope list — that dispatch surface
// is a collaborator the coordinator consumes, not part of it.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/langsvc/projectset/internal/projectset/coordinator"
	"github.com/langsvc/projectset/internal/projectset/hostadapter"
	"github.com/langsvc/projectset/internal/projectset/logging"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	safelistPath := flag.String("safelist", "", "path to a safelist JSON file")
	hostConfigPath := flag.String("hostconfig", "", "path to a YAML host-configuration file")
	flag.Parse()

	level := logging.Basic
	if *debug {
		level = logging.Debug
	}
	logger := logging.New(level)
	defer logger.Sync()

	host, err := hostadapter.NewForRuntime()
	if err != nil {
		fmt.Fprintln(os.Stderr, "projectsetd: failed to start filesystem watcher:", err)
		os.Exit(1)
	}
	defer host.Close()

	c := coordinator.New(coordinator.Options{
		Host:   host,
		Logger: logger,
	})
	defer c.Close()

	if *hostConfigPath != "" {
		if err := c.LoadHostConfigurationFile(*hostConfigPath); err != nil {
			fmt.Fprintln(os.Stderr, "projectsetd: failed to load host configuration:", err)
			os.Exit(1)
		}
	}

	if *safelistPath != "" {
		if err := c.LoadSafeList(*safelistPath); err != nil {
			fmt.Fprintln(os.Stderr, "projectsetd: failed to load safelist:", err)
			os.Exit(1)
		}
	}

	for _, path := range flag.Args() {
		result := c.OpenClientFile(path, coordinator.OpenFileParams{})
		if result.ConfigFound {
			fmt.Printf("%s -> configured project %s\n", path, result.ConfigFileName)
		} else {
			fmt.Printf("%s -> inferred project\n", path)
		}
	}

	// Give the debounce scheduler a moment to flush before reporting the
	// final project set; a real host keeps the process alive indefinitely
	// and drives this from its own event loop instead.
	time.Sleep(300 * time.Millisecond)

	for _, path := range flag.Args() {
		info, ok := c.GetScriptInfo(path)
		if !ok {
			continue
		}
		fmt.Printf("%s: open=%v projects=%v\n", info.Path, info.Open, info.Projects)
	}
}
