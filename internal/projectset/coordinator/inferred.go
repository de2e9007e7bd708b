// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"fmt"

	"github.com/langsvc/projectset/internal/projectset/ports"
	"github.com/langsvc/projectset/internal/projectset/project"
	"github.com/langsvc/projectset/internal/projectset/script"
)

// singleInferredProjectName is the fixed key used for the one shared
// Inferred project when the coordinator is running in single-inferred-
// project mode (spec.md §4.6).
const singleInferredProjectName = "*inferred*"

// rebalanceAfterAttach drops s from any Inferred project it belonged
// to now that a higher-priority carrier (External or Configured) owns
// it: spec.md §4.6's priority order is External > Configured >
// Inferred, so an inferred membership never survives a higher-priority
// attach.
func (c *Coordinator) rebalanceAfterAttach(s *script.Script) {
	for name := range s.Projects {
		proj := c.findProjectByName(name)
		if proj == nil || proj.Kind != project.Inferred {
			continue
		}
		c.detachScriptFromProject(s.Path, proj)
		if proj.IsRootless() {
			proj.Teardown()
			c.removeInferredProject(proj)
		} else {
			c.enqueueGraphUpdate(proj)
		}
	}
}

// rebalanceInferredFor ensures an open, otherwise-unclaimed script
// gains (or keeps) Inferred-project membership, per spec.md §4.6. A
// script already owned by an External or Configured project, or not
// currently open, needs no inferred membership at all.
func (c *Coordinator) rebalanceInferredFor(s *script.Script) {
	if !s.Open {
		return
	}
	if !s.MembershipEmpty() {
		return
	}

	var proj *project.Project
	if c.singleInferredProject {
		proj = c.ensureSingleInferredProject()
	} else {
		proj = c.ensureInferredProjectForRoot(s.Path)
	}

	c.attachScriptToProject(s, proj)
	c.enqueueGraphUpdate(proj)
}

// ensureSingleInferredProject returns the one shared Inferred project,
// creating it on first use.
func (c *Coordinator) ensureSingleInferredProject() *project.Project {
	for _, p := range c.inferredProjects {
		if p.Name == singleInferredProjectName {
			return p
		}
	}
	return c.newInferredProject(singleInferredProjectName)
}

// ensureInferredProjectForRoot returns the dedicated Inferred project
// rooted at path, creating it if absent. In multi-inferred-project mode
// each config-less root file gets its own project, matching the
// language service's conventional one-root-per-inferred-project default.
func (c *Coordinator) ensureInferredProjectForRoot(path string) *project.Project {
	for _, p := range c.inferredProjects {
		if root, sole := p.SoleRoot(); sole && root == path {
			return p
		}
	}
	c.inferredCounter++
	name := fmt.Sprintf("/dev/null/inferred-project-%d*", c.inferredCounter)
	return c.newInferredProject(name)
}

func (c *Coordinator) newInferredProject(name string) *project.Project {
	proj := project.NewInferred(name)
	proj.CompilerOptions = c.inferredCompilerOptions
	proj.LanguageServiceEnabled = true
	c.inferredProjects = append(c.inferredProjects, proj)
	return proj
}

// onScriptFileEvent handles a watcher callback for a closed, known
// script (spec.md §4.2): a delete drops the script from every project
// that held it and lets its membership collapse; a change simply marks
// every owning project dirty so the next rebuild picks up new content.
func (c *Coordinator) onScriptFileEvent(path string, kind ports.EventKind) {
	s, ok := c.scripts.Get(path)
	if !ok {
		return
	}

	owners := make([]*project.Project, 0, len(s.Projects))
	for name := range s.Projects {
		if p := c.findProjectByName(name); p != nil {
			owners = append(owners, p)
		}
	}

	if kind == ports.Deleted {
		for _, p := range owners {
			c.detachScriptFromProject(path, p)
			switch p.Kind {
			case project.Inferred:
				if p.IsRootless() {
					p.Teardown()
					c.removeInferredProject(p)
					continue
				}
			}
			c.enqueueGraphUpdate(p)
		}
		if s.Watcher != nil {
			s.Watcher.Close()
			s.Watcher = nil
		}
		c.scripts.Delete(path)
		delete(c.openRefTracking, path)
		return
	}

	for _, p := range owners {
		c.enqueueGraphUpdate(p)
	}
}
