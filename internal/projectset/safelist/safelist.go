// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

// Package safelist implements the rule-based exclusion of known
// third-party bundles from externally declared projects (spec.md §4.7).
package safelist

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/langsvc/projectset/internal/projectset/ports"
)

// excludeToken is either a literal exclusion-template fragment or a
// 1-indexed capture-group reference, as loaded from the JSON file.
type excludeToken struct {
	literal string
	group   int // 0 means "literal", group>=1 means capture-group index
}

// rawRule is the on-disk shape of one safelist rule.
type rawRule struct {
	Match   string          `json:"match"`
	Exclude [][]json.RawMessage `json:"exclude,omitempty"`
	Types   []string        `json:"types,omitempty"`
}

// Rule is a compiled safelist rule.
type Rule struct {
	Name    string
	Match   *regexp.Regexp
	Exclude [][]excludeToken
	Types   []string
}

// SafeList holds every loaded rule plus a bounded cache of compiled
// per-match exclusion regexes, so the same rule/root pair is never
// recompiled across repeated external-project reloads.
type SafeList struct {
	rules []Rule
	cache *lru.Cache[string, *regexp.Regexp]
}

const exclusionCacheSize = 512

// Empty returns a SafeList with no rules loaded.
func Empty() *SafeList {
	cache, _ := lru.New[string, *regexp.Regexp](exclusionCacheSize)
	return &SafeList{cache: cache}
}

// Load parses the safelist JSON format from spec.md §6: a mapping from
// rule-name to {match, exclude?, types?}. Regexes are compiled
// case-insensitively.
func Load(data []byte) (*SafeList, error) {
	var raw map[string]rawRule
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("safelist: decode: %w", err)
	}

	sl := Empty()
	for name, r := range raw {
		match, err := regexp.Compile("(?i)" + r.Match)
		if err != nil {
			return nil, fmt.Errorf("safelist: rule %q: compile match: %w", name, err)
		}
		exclude, err := parseExcludeTemplate(r.Exclude)
		if err != nil {
			return nil, fmt.Errorf("safelist: rule %q: %w", name, err)
		}
		sl.rules = append(sl.rules, Rule{Name: name, Match: match, Exclude: exclude, Types: r.Types})
	}
	return sl, nil
}

func parseExcludeTemplate(raw [][]json.RawMessage) ([][]excludeToken, error) {
	out := make([][]excludeToken, 0, len(raw))
	for _, group := range raw {
		tokens := make([]excludeToken, 0, len(group))
		for _, msg := range group {
			var asStr string
			if err := json.Unmarshal(msg, &asStr); err == nil {
				tokens = append(tokens, excludeToken{literal: asStr})
				continue
			}
			var asNum int
			if err := json.Unmarshal(msg, &asNum); err == nil {
				tokens = append(tokens, excludeToken{group: asNum})
				continue
			}
			return nil, fmt.Errorf("exclude token must be string or number: %s", msg)
		}
		out = append(out, tokens)
	}
	return out, nil
}

// Warning is a non-fatal degrade reported while applying a rule: a
// numeric exclude token referenced a capture group the match regex
// doesn't have.
type Warning struct {
	Rule  string
	Group int
}

// ApplyResult is the outcome of applying the safelist to one external
// project's root list.
type ApplyResult struct {
	Roots    []string
	Typings  []string
	Warnings []Warning
}

// Apply runs every rule against every root filename and computes the
// union of exclusion regexes, mutating nothing itself — the caller
// mutates the external project declaration in place with the result.
func (sl *SafeList) Apply(roots []string, log ports.Logger) ApplyResult {
	var typings []string
	var exclusionRegexes []*regexp.Regexp
	var warnings []Warning

	for _, root := range roots {
		for _, rule := range sl.rules {
			m := rule.Match.FindStringSubmatch(root)
			if m == nil {
				continue
			}
			typings = append(typings, rule.Types...)
			if len(rule.Exclude) == 0 {
				// No exclusions: exclude only the matched file itself.
				exclusionRegexes = append(exclusionRegexes, regexp.MustCompile("^"+regexp.QuoteMeta(root)+"$"))
				continue
			}
			for _, group := range rule.Exclude {
				pattern, warn := sl.substitute(rule.Name, group, m)
				if warn != nil {
					warnings = append(warnings, *warn)
				}
				re, err := sl.compileCached(pattern)
				if err != nil {
					if log != nil {
						log.Warn("safelist: bad exclusion pattern", "rule", rule.Name, "pattern", pattern, "error", err.Error())
					}
					continue
				}
				exclusionRegexes = append(exclusionRegexes, re)
			}
		}
	}

	filtered := make([]string, 0, len(roots))
	for _, root := range roots {
		excluded := false
		for _, re := range exclusionRegexes {
			if re.MatchString(root) {
				excluded = true
				break
			}
		}
		if !excluded {
			filtered = append(filtered, root)
		}
	}

	return ApplyResult{Roots: filtered, Typings: dedupe(typings), Warnings: warnings}
}

// substitute builds the concrete exclusion pattern for one exclude
// group by substituting capture-group references (1-indexed). A
// numeric token referencing a missing group degrades to a literal `\*`
// and a warning, per spec.md §4.7.
func (sl *SafeList) substitute(ruleName string, group []excludeToken, m []string) (string, *Warning) {
	var b strings.Builder
	var warn *Warning
	for _, tok := range group {
		if tok.group == 0 {
			b.WriteString(tok.literal)
			continue
		}
		if tok.group < len(m) {
			b.WriteString(regexp.QuoteMeta(m[tok.group]))
		} else {
			b.WriteString(`\*`)
			warn = &Warning{Rule: ruleName, Group: tok.group}
		}
	}
	return b.String(), warn
}

func (sl *SafeList) compileCached(pattern string) (*regexp.Regexp, error) {
	if re, ok := sl.cache.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	sl.cache.Add(pattern, re)
	return re, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

