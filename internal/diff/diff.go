// Copyright The Conforma Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package diff is the structural comparator used to verify migrated issues.
//
// A Comparator walks two JSON-like trees describing the same record on two
// servers and returns the differences left after normalization and
// suppression. It performs no I/O and never mutates its inputs; the only
// shared state is the SignatureCache of the SuppressionPolicy, which may be
// used by many goroutines at once.
package diff

import (
	"sort"

	"github.com/conforma/jira-migrate/internal/node"
)

// Comparator compares trees under a fixed pair of policies.
type Comparator struct {
	suppress  *SuppressionPolicy
	normalize *NormalizationPolicy
}

// NewComparator creates a comparator. A nil suppression policy means nothing
// is ignored and a private cache is used; a nil normalization policy only
// trims strings.
func NewComparator(suppress *SuppressionPolicy, normalize *NormalizationPolicy) *Comparator {
	if suppress == nil {
		suppress = NewSuppressionPolicy(nil, nil, nil)
	}
	return &Comparator{
		suppress:  suppress,
		normalize: normalize,
	}
}

// Compare returns the discrepancies between left and right found under path.
// Mapping keys are visited in sorted order, so the result is deterministic
// for a given cache state.
func (c *Comparator) Compare(path string, left, right node.Node) []Discrepancy {
	var out []Discrepancy
	c.compare(path, left, right, &out)
	return out
}

func (c *Comparator) compare(path string, left, right node.Node, out *[]Discrepancy) {
	if c.suppress.IgnoresPath(path) {
		return
	}

	left, right = orNull(left), orNull(right)
	leaves := !node.IsContainer(left) && !node.IsContainer(right)
	if leaves && c.suppress.cache.Contains(mismatchSignature(path, left, right)) {
		return
	}

	if l, ok := left.(node.String); ok {
		if r, ok := right.(node.String); ok {
			ls, rs := c.normalize.Normalize(path, string(l), string(r))
			left, right = node.String(ls), node.String(rs)
		}
	}

	if node.Equal(left, right) {
		return
	}

	switch l := left.(type) {
	case node.Mapping:
		if r, ok := right.(node.Mapping); ok {
			c.compareMappings(path, l, r, out)
			return
		}
	case node.Sequence:
		if r, ok := right.(node.Sequence); ok {
			c.compareSequences(path, l, r, out)
			return
		}
	}

	if !leaves {
		// container against something else, report the whole subtree
		*out = append(*out, NewMismatch(path, left, right))
		return
	}

	if c.suppress.cache.Add(mismatchSignature(path, left, right)) {
		*out = append(*out, NewMismatch(path, left, right))
	}
}

func (c *Comparator) compareMappings(path string, left, right node.Mapping, out *[]Discrepancy) {
	remaining := make(map[string]bool, len(right))
	for k := range right {
		remaining[k] = true
	}

	for _, k := range sortedKeys(left) {
		p := join(path, k)
		if c.suppress.IgnoresKey(k) || c.suppress.IgnoresPath(p) {
			continue
		}

		v := left[k]
		w, ok := right[k]
		if !ok {
			if node.Truthy(v) && c.suppress.cache.Add(missingKeySignature(p, v)) {
				*out = append(*out, NewMissingKey(p, Right, v))
			}
			continue
		}

		delete(remaining, k)
		if !node.Equal(v, w) {
			c.compare(p, v, w, out)
		}
	}

	for _, k := range sortedKeys(remaining) {
		p := join(path, k)
		if c.suppress.IgnoresKey(k) || c.suppress.IgnoresPath(p) {
			continue
		}

		v := right[k]
		if node.Truthy(v) && c.suppress.cache.Add(missingKeySignature(p, v)) {
			*out = append(*out, NewMissingKey(p, Left, v))
		}
	}
}

// compareSequences compares strictly by position, elements share the path
// of the sequence itself.
func (c *Comparator) compareSequences(path string, left, right node.Sequence, out *[]Discrepancy) {
	n := min(len(left), len(right))
	for i := 0; i < n; i++ {
		if !node.Equal(left[i], right[i]) {
			c.compare(path, left[i], right[i], out)
		}
	}

	for i := n; i < len(left); i++ {
		*out = append(*out, NewExtraListItem(path, Left, i, left[i]))
	}
	for i := n; i < len(right); i++ {
		*out = append(*out, NewExtraListItem(path, Right, i, right[i]))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// join builds the dotted path of a child key; the root path is empty.
func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func orNull(n node.Node) node.Node {
	if n == nil {
		return node.Null{}
	}
	return n
}
