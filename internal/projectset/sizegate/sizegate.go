// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

// Package sizegate enforces the process-wide byte budget across
// projects for non-TypeScript-extension files (spec.md §4.5).
package sizegate

import (
	"path/filepath"
	"strings"
)

// Budget is the default process-wide budget: 20 MiB.
const Budget int64 = 20 * 1024 * 1024

// sourceExtensions are the extensions excluded from accounting — only
// non-source (e.g. plain JavaScript) files count against the budget.
var sourceExtensions = map[string]bool{
	".ts":  true,
	".tsx": true,
}

// IsAccountable reports whether a file's size should be accounted
// against the budget: everything except recognized TypeScript-kind
// source extensions.
func IsAccountable(path string) bool {
	return !sourceExtensions[strings.ToLower(filepath.Ext(path))]
}

// CandidateFile is one file considered for a project reload, as needed
// to compute the accountable total.
type CandidateFile struct {
	Path string
	Size int64
}

// Gate tracks accounted bytes per project and enforces Budget across
// all of them. Recomputed from the map on every call (spec.md §9).
type Gate struct {
	budget   int64
	accounted map[string]int64
}

// New creates a Gate with the given budget (use Budget for the default).
func New(budget int64) *Gate {
	return &Gate{budget: budget, accounted: make(map[string]int64)}
}

// Reset zeroes a project's entry ahead of a create/reload attempt
// (spec.md §4.5 step 1).
func (g *Gate) Reset(projectName string) {
	g.accounted[projectName] = 0
}

// Remove drops a project's entry entirely, e.g. on teardown.
func (g *Gate) Remove(projectName string) {
	delete(g.accounted, projectName)
}

// Available computes budget minus the sum of every entry (step 2).
func (g *Gate) Available() int64 {
	var sum int64
	for _, v := range g.accounted {
		sum += v
	}
	avail := g.budget - sum
	if avail < 0 {
		return 0
	}
	return avail
}

// Verdict is the outcome of Evaluate: whether the candidate set fits,
// and the total it would consume if it does.
type Verdict struct {
	Fits  bool
	Total int64
}

// Evaluate sums the accountable sizes of candidates, short-circuiting
// as soon as the running total exceeds either the budget or the
// available space (step 3).
func (g *Gate) Evaluate(candidates []CandidateFile) Verdict {
	available := g.Available()
	var total int64
	for _, c := range candidates {
		if !IsAccountable(c.Path) {
			continue
		}
		total += c.Size
		if total > g.budget || total > available {
			return Verdict{Fits: false, Total: total}
		}
	}
	return Verdict{Fits: true, Total: total}
}

// Record stores the accepted total for a project (step 4, fits branch).
func (g *Gate) Record(projectName string, total int64) {
	g.accounted[projectName] = total
}

// Sum reports the current sum across every entry, used by tests
// asserting the size-gate-monotone property (spec.md §8 property 4).
func (g *Gate) Sum() int64 {
	var sum int64
	for _, v := range g.accounted {
		sum += v
	}
	return sum
}
