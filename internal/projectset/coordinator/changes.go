// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"sort"

	"github.com/langsvc/projectset/internal/projectset/invariant"
	"github.com/langsvc/projectset/internal/projectset/script"
)

// Edit is a single replace-range edit against an already-open script.
type Edit struct {
	Path        string
	StartOffset int
	EndOffset   int
	NewText     string
}

// ApplyChangesInOpenFiles implements spec.md §4.2's
// applyChangesInOpenFiles(opens, changes, closes): opens are applied
// first, then edits (in reverse offset order within each file so
// earlier spans keep their coordinates), then closes. Opens/closes
// force a full reconciliation pass; a pure-edit batch relies on the
// debounce scheduler to flush.
func (c *Coordinator) ApplyChangesInOpenFiles(opens []OpenFileWithPath, edits []Edit, closes []string) []OpenResult {
	var results []OpenResult
	c.exec(func() {
		results = c.applyChangesInOpenFiles(opens, edits, closes)
	})
	return results
}

// OpenFileWithPath pairs a path with the optional extras openClientFile
// accepts, for use inside a batched applyChangesInOpenFiles call.
type OpenFileWithPath struct {
	Path string
	OpenFileParams
}

func (c *Coordinator) applyChangesInOpenFiles(opens []OpenFileWithPath, edits []Edit, closes []string) []OpenResult {
	results := make([]OpenResult, 0, len(opens))
	for _, o := range opens {
		results = append(results, c.openClientFile(o.Path, o.OpenFileParams))
	}

	c.applyEdits(edits)

	for _, path := range closes {
		c.closeClientFile(path)
	}

	if len(opens) > 0 || len(closes) > 0 {
		c.forceFullReconciliation()
	}

	return results
}

// applyEdits groups edits by path and, within each path, applies them
// highest-offset-first so earlier edits in the same file are never
// shifted by a later one's splice (spec.md §4.2, §5 ordering guarantee ii).
func (c *Coordinator) applyEdits(edits []Edit) {
	byPath := make(map[string][]Edit, len(edits))
	for _, e := range edits {
		norm := c.normalize(e.Path)
		byPath[norm] = append(byPath[norm], e)
	}

	for path, fileEdits := range byPath {
		s, ok := c.scripts.Get(path)
		if !ok {
			// Editing a file the client never opened is protocol misuse,
			// not a recoverable condition (spec.md §7).
			invariant.Violated("applyEdits: edit against unknown open file", "path", path)
		}

		sort.Slice(fileEdits, func(i, j int) bool {
			return fileEdits[i].StartOffset > fileEdits[j].StartOffset
		})
		for _, e := range fileEdits {
			s.Contents = spliceText(s.Contents, e.StartOffset, e.EndOffset, e.NewText)
		}

		c.changedFiles = append(c.changedFiles, s)
		for name := range s.Projects {
			if proj := c.findProjectByName(name); proj != nil {
				c.enqueueGraphUpdate(proj)
			}
		}
	}
}

func spliceText(text string, start, end int, replacement string) string {
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if start > end {
		start = end
	}
	return text[:start] + replacement + text[end:]
}

// forceFullReconciliation re-runs inferred rebalancing over every
// currently open file, as required whenever a batch contained any open
// or close (spec.md §4.2, §4.6).
func (c *Coordinator) forceFullReconciliation() {
	snapshot := append([]*script.Script(nil), c.openFiles...)
	for _, s := range snapshot {
		if s.MembershipEmpty() {
			c.rebalanceInferredFor(s)
		}
	}
}
