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
	"fmt"

	"github.com/conforma/jira-migrate/internal/node"
)

// Kind is the type of a reported difference.
type Kind string

const (
	MissingKey     Kind = "missing_key"
	Mismatch       Kind = "mismatch"
	LengthMismatch Kind = "length_mismatch"
	ExtraListItem  Kind = "extra_list_item"
)

// Side names one of the two trees handed to the comparator. Left is the
// source system, Right is the destination.
type Side string

const (
	Left  Side = "left"
	Right Side = "right"
)

// Discrepancy is one difference found between two trees.
//
// For MissingKey, Side is the tree that lacks the key and the value found on
// the other tree is held in Left or Right accordingly. For ExtraListItem,
// Side is the tree holding the surplus element. Index is the element index
// for ExtraListItem and for Mismatch results of CompareOrderInsensitive, and
// -1 everywhere else.
type Discrepancy struct {
	Kind     Kind
	Path     string
	Side     Side
	Left     node.Node
	Right    node.Node
	LeftLen  int
	RightLen int
	Index    int
}

func NewMissingKey(path string, missingFrom Side, value node.Node) Discrepancy {
	d := Discrepancy{Kind: MissingKey, Path: path, Side: missingFrom, Index: -1}
	if missingFrom == Right {
		d.Left = value
	} else {
		d.Right = value
	}
	return d
}

func NewMismatch(path string, left, right node.Node) Discrepancy {
	return Discrepancy{Kind: Mismatch, Path: path, Left: left, Right: right, Index: -1}
}

func NewLengthMismatch(path string, leftLen, rightLen int) Discrepancy {
	return Discrepancy{Kind: LengthMismatch, Path: path, LeftLen: leftLen, RightLen: rightLen, Index: -1}
}

func NewExtraListItem(path string, presentIn Side, index int, value node.Node) Discrepancy {
	d := Discrepancy{Kind: ExtraListItem, Path: path, Side: presentIn, Index: index}
	if presentIn == Left {
		d.Left = value
	} else {
		d.Right = value
	}
	return d
}

// Value returns the single value carried by MissingKey and ExtraListItem
// discrepancies.
func (d Discrepancy) Value() node.Node {
	if d.Left != nil {
		return d.Left
	}
	return d.Right
}

func (d Discrepancy) String() string {
	switch d.Kind {
	case MissingKey:
		return fmt.Sprintf("missing key %s in %s: %s", d.Path, d.Side, node.Format(d.Value()))
	case Mismatch:
		if d.Index >= 0 {
			return fmt.Sprintf("mismatch %s at index %d: %s != %s", d.Path, d.Index, node.Format(d.Left), node.Format(d.Right))
		}
		return fmt.Sprintf("mismatch %s: %s != %s", d.Path, node.Format(d.Left), node.Format(d.Right))
	case LengthMismatch:
		return fmt.Sprintf("length mismatch %s: %d != %d", d.Path, d.LeftLen, d.RightLen)
	case ExtraListItem:
		return fmt.Sprintf("extra list item %s[%d] in %s: %s", d.Path, d.Index, d.Side, node.Format(d.Value()))
	default:
		return fmt.Sprintf("unknown discrepancy at %s", d.Path)
	}
}
