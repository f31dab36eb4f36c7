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
	"errors"
	"fmt"
	"io"

	"sigs.k8s.io/yaml"
)

// ErrMalformedInput is returned when a value cannot be represented as a
// Node, e.g. a mapping with non-string keys.
var ErrMalformedInput = errors.New("malformed input")

// FromValue converts a decoded JSON or YAML value into a Node.
func FromValue(v any) (Node, error) {
	return fromValue(v, "")
}

func fromValue(v any, at string) (Node, error) {
	switch x := v.(type) {
	case nil:
		return Null{}, nil
	case Node:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: number %q at %q: %v", ErrMalformedInput, x, at, err)
		}
		return Number(f), nil
	case float64:
		return Number(x), nil
	case float32:
		return Number(x), nil
	case int:
		return Number(x), nil
	case int8:
		return Number(x), nil
	case int16:
		return Number(x), nil
	case int32:
		return Number(x), nil
	case int64:
		return Number(x), nil
	case uint:
		return Number(x), nil
	case uint8:
		return Number(x), nil
	case uint16:
		return Number(x), nil
	case uint32:
		return Number(x), nil
	case uint64:
		return Number(x), nil
	case []any:
		seq := make(Sequence, len(x))
		for i, item := range x {
			n, err := fromValue(item, at)
			if err != nil {
				return nil, err
			}
			seq[i] = n
		}
		return seq, nil
	case []string:
		seq := make(Sequence, len(x))
		for i, item := range x {
			seq[i] = String(item)
		}
		return seq, nil
	case map[string]any:
		m := make(Mapping, len(x))
		for k, item := range x {
			n, err := fromValue(item, join(at, k))
			if err != nil {
				return nil, err
			}
			m[k] = n
		}
		return m, nil
	case map[any]any:
		m := make(Mapping, len(x))
		for k, item := range x {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("%w: non-string key %v (%T) at %q", ErrMalformedInput, k, k, at)
			}
			n, err := fromValue(item, join(at, key))
			if err != nil {
				return nil, err
			}
			m[key] = n
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: unsupported value of type %T at %q", ErrMalformedInput, v, at)
	}
}

// Parse decodes a single JSON document.
func Parse(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("unable to decode JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unable to decode JSON: unexpected data after the document")
	}

	return FromValue(v)
}

// ParseDocument decodes a JSON or YAML document.
func ParseDocument(data []byte) (Node, error) {
	if n, err := Parse(data); err == nil {
		return n, nil
	}

	j, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("unable to parse document as JSON or YAML: %w", err)
	}

	return Parse(j)
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
