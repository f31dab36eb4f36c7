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

// Package mapping reads the flat username mapping and exclusion files used
// throughout the migration.
package mapping

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

// Pair maps a username on the source server to the one on the destination.
type Pair struct {
	Old string
	New string
}

// Names is an ordered list of username mappings.
type Names []Pair

// Map returns the mappings as a map, later entries winning.
func (n Names) Map() map[string]string {
	m := make(map[string]string, len(n))
	for _, p := range n {
		m[p.Old] = p.New
	}
	return m
}

// Parse reads "old=new" lines. Blank lines and lines starting with "#" are
// skipped, a line without "=" maps the name to itself. When a name appears
// more than once the last line wins and keeps its first position.
func Parse(data []byte) (Names, error) {
	var names Names
	index := map[string]int{}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		from, to, found := strings.Cut(text, "=")
		from = strings.TrimSpace(from)
		if found {
			to = strings.TrimSpace(to)
		} else {
			to = from
		}
		if from == "" {
			return nil, fmt.Errorf("line %d: empty source username in %q", line, text)
		}

		if i, ok := index[from]; ok {
			names[i].New = to
			continue
		}
		index[from] = len(names)
		names = append(names, Pair{Old: from, New: to})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return names, nil
}

// Load parses the mapping file at path.
func Load(fs afero.Fs, path string) (Names, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read username mapping file %q: %w", path, err)
	}

	names, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse username mapping file %q: %w", path, err)
	}
	return names, nil
}

// LoadList reads a file holding one name per line into a set.
func LoadList(fs afero.Fs, path string) (map[string]bool, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read list file %q: %w", path, err)
	}

	set := map[string]bool{}
	for _, l := range strings.Split(string(data), "\n") {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		set[l] = true
	}
	return set, nil
}
