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

// Package node holds the JSON-like trees that the comparator walks.
//
// A Node is one of Null, Bool, Number, String, Sequence or Mapping. The set
// is closed: only this package can add implementations, so a type switch
// over the six variants is exhaustive.
package node

import (
	"fmt"
	"strconv"
)

// Kind identifies the variant of a Node.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Node is a JSON-like value.
type Node interface {
	Kind() Kind
	isNode()
}

type Null struct{}

type Bool bool

type Number float64

type String string

type Sequence []Node

type Mapping map[string]Node

func (Null) Kind() Kind     { return KindNull }
func (Bool) Kind() Kind     { return KindBool }
func (Number) Kind() Kind   { return KindNumber }
func (String) Kind() Kind   { return KindString }
func (Sequence) Kind() Kind { return KindSequence }
func (Mapping) Kind() Kind  { return KindMapping }

func (Null) isNode()     {}
func (Bool) isNode()     {}
func (Number) isNode()   {}
func (String) isNode()   {}
func (Sequence) isNode() {}
func (Mapping) isNode()  {}

// IsContainer reports whether n is a Sequence or a Mapping. A nil Node is
// treated as Null.
func IsContainer(n Node) bool {
	if n == nil {
		return false
	}
	k := n.Kind()
	return k == KindSequence || k == KindMapping
}

// Equal reports deep structural equality. Nodes of different kinds are never
// equal, so Bool(true) differs from Number(1).
func Equal(a, b Node) bool {
	a, b = orNull(a), orNull(b)
	if a.Kind() != b.Kind() {
		return false
	}

	switch x := a.(type) {
	case Null:
		return true
	case Bool:
		return x == b.(Bool)
	case Number:
		return x == b.(Number)
	case String:
		return x == b.(String)
	case Sequence:
		y := b.(Sequence)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Mapping:
		y := b.(Mapping)
		if len(x) != len(y) {
			return false
		}
		for k, v := range x {
			w, ok := y[k]
			if !ok || !Equal(v, w) {
				return false
			}
		}
		return true
	}

	return false
}

// Truthy mirrors the "non-empty" test used when deciding whether a missing
// key is worth reporting: null, false, 0, "", [] and {} are all falsy.
func Truthy(n Node) bool {
	switch x := orNull(n).(type) {
	case Null:
		return false
	case Bool:
		return bool(x)
	case Number:
		return x != 0
	case String:
		return x != ""
	case Sequence:
		return len(x) > 0
	case Mapping:
		return len(x) > 0
	}
	return false
}

// Interface converts n back into plain Go values (nil, bool, float64,
// string, []any, map[string]any) suitable for encoding/json.
func Interface(n Node) any {
	switch x := orNull(n).(type) {
	case Bool:
		return bool(x)
	case Number:
		return float64(x)
	case String:
		return string(x)
	case Sequence:
		out := make([]any, len(x))
		for i, v := range x {
			out[i] = Interface(v)
		}
		return out
	case Mapping:
		out := make(map[string]any, len(x))
		for k, v := range x {
			out[k] = Interface(v)
		}
		return out
	}
	return nil
}

// Format renders scalars the way they appear in reports; containers are
// rendered as canonical JSON.
func Format(n Node) string {
	switch x := orNull(n).(type) {
	case Null:
		return "null"
	case Bool:
		return strconv.FormatBool(bool(x))
	case Number:
		return strconv.FormatFloat(float64(x), 'f', -1, 64)
	case String:
		return strconv.Quote(string(x))
	default:
		b, err := Canonical(x)
		if err != nil {
			return fmt.Sprintf("%v", Interface(x))
		}
		return string(b)
	}
}

func orNull(n Node) Node {
	if n == nil {
		return Null{}
	}
	return n
}
