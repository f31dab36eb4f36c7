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

package diff

import (
	"sort"

	"github.com/conforma/jira-migrate/internal/node"
)

// CompareOrderInsensitive compares two sequences whose order carries no
// meaning. Both are sorted by their canonical JSON form; a length difference
// is reported before any element is looked at, otherwise the first differing
// position after sorting is reported. Inputs are not modified.
func CompareOrderInsensitive(path string, left, right node.Sequence) *Discrepancy {
	if len(left) != len(right) {
		d := NewLengthMismatch(path, len(left), len(right))
		d.Left, d.Right = left, right
		return &d
	}

	l := sortedCanonical(left)
	r := sortedCanonical(right)
	for i := range l {
		if l[i].key == r[i].key {
			continue
		}
		d := NewMismatch(path, l[i].node, r[i].node)
		d.Index = i
		return &d
	}

	return nil
}

type keyed struct {
	key  string
	node node.Node
}

func sortedCanonical(seq node.Sequence) []keyed {
	items := make([]keyed, len(seq))
	for i, n := range seq {
		items[i] = keyed{key: node.Signature(n), node: n}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].key < items[j].key
	})
	return items
}
