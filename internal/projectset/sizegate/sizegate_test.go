// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

package sizegate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAccountable(t *testing.T) {
	assert.False(t, IsAccountable("a.ts"))
	assert.False(t, IsAccountable("a.tsx"))
	assert.True(t, IsAccountable("a.js"))
	assert.True(t, IsAccountable("a.jsx"))
}

func TestGate_Evaluate_FitsWithinBudget(t *testing.T) {
	g := New(20 * 1024 * 1024)
	verdict := g.Evaluate([]CandidateFile{
		{Path: "p.js", Size: 2 * 1024 * 1024},
		{Path: "q.ts", Size: 100 * 1024 * 1024}, // source-kind, never accounted
	})
	assert.True(t, verdict.Fits)
	assert.Equal(t, int64(2*1024*1024), verdict.Total)
}

func TestGate_Evaluate_ExceedsBudget(t *testing.T) {
	g := New(20 * 1024 * 1024)
	verdict := g.Evaluate([]CandidateFile{
		{Path: "p.js", Size: 2 * 1024 * 1024},
		{Path: "q.js", Size: 19 * 1024 * 1024},
	})
	assert.False(t, verdict.Fits)
}

func TestGate_LaterProjectsSeeSmallerAvailable(t *testing.T) {
	g := New(20 * 1024 * 1024)
	g.Reset("a")
	g.Record("a", 15*1024*1024)

	assert.Equal(t, int64(5*1024*1024), g.Available())

	verdict := g.Evaluate([]CandidateFile{{Path: "q.js", Size: 6 * 1024 * 1024}})
	assert.False(t, verdict.Fits)
}

func TestGate_Remove(t *testing.T) {
	g := New(20 * 1024 * 1024)
	g.Reset("a")
	g.Record("a", 10*1024*1024)
	assert.Equal(t, int64(10*1024*1024), g.Sum())

	g.Remove("a")
	assert.Equal(t, int64(0), g.Sum())
}

func TestGate_SumNeverExceedsBudget(t *testing.T) {
	g := New(20 * 1024 * 1024)
	for i, name := range []string{"a", "b", "c"} {
		g.Reset(name)
		verdict := g.Evaluate([]CandidateFile{{Path: "f.js", Size: 9 * 1024 * 1024}})
		if verdict.Fits {
			g.Record(name, verdict.Total)
		}
		assert.LessOrEqual(t, g.Sum(), int64(20*1024*1024), "iteration %d", i)
	}
}
