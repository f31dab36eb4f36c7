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

package node

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

// Canonical creates deterministic JSON by sorting mapping keys at every level
func Canonical(n Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeCanonical(&buf, n, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MustCanonical is Canonical for callers holding trees built by this
// package, where encoding cannot fail.
func MustCanonical(n Node) string {
	b, err := Canonical(n)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// Signature is the canonical form of n with strings quoted byte for byte.
// Unlike Canonical it is not always valid JSON, but distinct trees never
// share a signature, even when their strings hold invalid UTF-8.
func Signature(n Node) string {
	var buf bytes.Buffer
	if err := encodeCanonical(&buf, n, true); err != nil {
		panic(err)
	}
	return buf.String()
}

// encodeCanonical recursively encodes JSON with sorted keys for deterministic output
func encodeCanonical(buf *bytes.Buffer, n Node, exact bool) error {
	switch x := orNull(n).(type) {
	case Mapping:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, k, exact); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := encodeCanonical(buf, x[k], exact); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case Sequence:
		buf.WriteByte('[')
		for i, item := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeCanonical(buf, item, exact); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Number:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			// not representable in JSON, keep the signature stable anyway
			buf.WriteString(strconv.Quote(strconv.FormatFloat(f, 'g', -1, 64)))
			return nil
		}
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case String:
		return encodeString(buf, string(x), exact)
	case Null:
		buf.WriteString("null")
	default:
		b, err := json.Marshal(Interface(x))
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}

// encodeString writes s as a JSON string. json.Marshal replaces invalid
// UTF-8 with U+FFFD, so exact encoding uses Go quoting instead.
func encodeString(buf *bytes.Buffer, s string, exact bool) error {
	if exact {
		buf.WriteString(strconv.Quote(s))
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
