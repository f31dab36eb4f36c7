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

package attachment

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/conforma/jira-migrate/internal/jira"
	"github.com/conforma/jira-migrate/internal/node"
)

type issueRef struct {
	project string
	number  int
}

// Export lists attachments from a JSON project export instead of a server.
// Each issue of the export carries its attachments as
// {"name": ..., "uri": ...} objects.
type Export struct {
	issues map[issueRef][]jira.Attachment
}

// LoadExport reads the export at path.
func LoadExport(fs afero.Fs, path string) (*Export, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read export %q: %w", path, err)
	}
	doc, err := node.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read export %q: %w", path, err)
	}
	e, err := NewExport(doc)
	if err != nil {
		return nil, fmt.Errorf("export %q: %w", path, err)
	}
	return e, nil
}

func NewExport(doc node.Node) (*Export, error) {
	root, ok := doc.(node.Mapping)
	if !ok {
		return nil, fmt.Errorf("%w: export is a %s", node.ErrMalformedInput, doc.Kind())
	}
	projects, _ := root["projects"].(node.Sequence)

	e := &Export{issues: map[issueRef][]jira.Attachment{}}
	for _, p := range projects {
		pm, _ := p.(node.Mapping)
		issues, _ := pm["issues"].(node.Sequence)
		for _, i := range issues {
			im, ok := i.(node.Mapping)
			if !ok {
				return nil, fmt.Errorf("%w: issue is a %s", node.ErrMalformedInput, i.Kind())
			}
			key, _ := im["key"].(node.String)
			project, n, err := jira.ParseIssueKey(string(key))
			if err != nil {
				return nil, err
			}

			ref := issueRef{project, n}
			e.issues[ref] = []jira.Attachment{}
			items, _ := im["attachments"].(node.Sequence)
			for j, item := range items {
				am, _ := item.(node.Mapping)
				name, _ := am["name"].(node.String)
				uri, _ := am["uri"].(node.String)
				if uri == "" {
					return nil, fmt.Errorf("%w: attachment %d of %s has no uri", node.ErrMalformedInput, j, key)
				}
				e.issues[ref] = append(e.issues[ref], jira.Attachment{Name: string(name), URL: string(uri)})
			}
		}
	}
	return e, nil
}

// Contains reports whether the export holds issue n of project.
func (e *Export) Contains(project string, n int) bool {
	_, ok := e.issues[issueRef{project, n}]
	return ok
}

// Attachments implements Lister. Issues absent from the export have none.
func (e *Export) Attachments(_ context.Context, key string) ([]jira.Attachment, error) {
	project, n, err := jira.ParseIssueKey(key)
	if err != nil {
		return nil, err
	}
	return e.issues[issueRef{project, n}], nil
}
