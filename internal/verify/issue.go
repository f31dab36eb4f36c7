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

package verify

import (
	"fmt"

	"github.com/conforma/jira-migrate/internal/config"
	"github.com/conforma/jira-migrate/internal/diff"
	"github.com/conforma/jira-migrate/internal/node"
)

// IssueComparer compares the fields of a source issue with the fields of
// the same issue on the destination, following a field map.
type IssueComparer struct {
	comparator *diff.Comparator
	fields     []config.FieldPair
}

func NewIssueComparer(comparator *diff.Comparator, fields []config.FieldPair) *IssueComparer {
	return &IssueComparer{comparator: comparator, fields: fields}
}

// Compare returns the discrepancies between the raw issues src and dst.
// Paths start at the source field name. A field carrying a value on one side
// and absent from the other is reported as a MissingKey; fields absent or
// empty on both sides are skipped.
func (c *IssueComparer) Compare(src, dst node.Node) ([]diff.Discrepancy, error) {
	srcFields, err := issueFields(src)
	if err != nil {
		return nil, fmt.Errorf("source issue: %w", err)
	}
	dstFields, err := issueFields(dst)
	if err != nil {
		return nil, fmt.Errorf("destination issue: %w", err)
	}

	var out []diff.Discrepancy
	for _, f := range c.fields {
		s, inSrc := srcFields[f.Source]
		d, inDst := dstFields[f.Destination]

		switch {
		case inSrc && inDst:
			out = append(out, c.comparator.Compare(f.Source, s, d)...)
		case inSrc && node.Truthy(s):
			out = append(out, diff.NewMissingKey(f.Source, diff.Right, s))
		case inDst && node.Truthy(d):
			out = append(out, diff.NewMissingKey(f.Source, diff.Left, d))
		}
	}
	return out, nil
}

func issueFields(issue node.Node) (node.Mapping, error) {
	m, ok := issue.(node.Mapping)
	if !ok {
		return nil, fmt.Errorf("%w: issue is a %s, not an object", node.ErrMalformedInput, kindOf(issue))
	}
	fields, ok := m["fields"]
	if !ok {
		return node.Mapping{}, nil
	}
	f, ok := fields.(node.Mapping)
	if !ok {
		return nil, fmt.Errorf("%w: fields is a %s, not an object", node.ErrMalformedInput, kindOf(fields))
	}
	return f, nil
}

func kindOf(n node.Node) node.Kind {
	if n == nil {
		return node.KindNull
	}
	return n.Kind()
}
