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

// Package remap rewrites the usernames of a JSON JIRA export before it is
// imported into the destination server.
//
// Exports are handled as decoded encoding/json values with numbers kept as
// json.Number, so everything the remapping does not touch is written back
// with the same values and number literals.
package remap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/conforma/jira-migrate/internal/mapping"
	"github.com/conforma/jira-migrate/internal/node"
)

// fields holding a username, or a list of them
var exactUsernameFields = []string{
	"reporter", "name", "assignee", "author", "oldValue", "newValue", "voters", "watchers", "lead",
}

// free text fields that may mention users as [~name]
var mentionFields = []string{"description", "body"}

// UnmappedUsersError lists the export users that are neither mapped nor
// excluded, one profile link per user.
type UnmappedUsersError struct {
	Users []string
}

func (e *UnmappedUsersError) Error() string {
	return fmt.Sprintf("%d users were not found in any mapping or exclusion file:\n%s",
		len(e.Users), strings.Join(e.Users, "\n"))
}

type Remapper struct {
	names   mapping.Names
	lookup  map[string]string
	exclude map[string]bool
	destURL string
}

// New creates a remapper. destURL is used for the profile links of unmapped
// users.
func New(names mapping.Names, exclude map[string]bool, destURL string) *Remapper {
	if exclude == nil {
		exclude = map[string]bool{}
	}
	return &Remapper{
		names:   names,
		lookup:  names.Map(),
		exclude: exclude,
		destURL: strings.TrimSuffix(destURL, "/"),
	}
}

// Decode reads a JSON export.
func Decode(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("unable to decode JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unable to decode JSON: unexpected data after the document")
	}

	export, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: export is not an object", node.ErrMalformedInput)
	}
	return export, nil
}

// Remap returns a copy of export with usernames replaced, excluded users
// removed and hidden issues dropped. It fails with an UnmappedUsersError
// when a user is neither mapped nor excluded. export is not modified.
func (r *Remapper) Remap(export map[string]any) (map[string]any, error) {
	users, err := objects(export, "users")
	if err != nil {
		return nil, err
	}
	if err := r.validate(users); err != nil {
		return nil, err
	}

	out := copyMapping(export)

	kept := []any{}
	for _, u := range users {
		if r.exclude[str(u["name"])] {
			continue
		}
		kept = append(kept, r.replace(u))
	}
	if _, ok := export["users"]; ok {
		out["users"] = kept
	}
	log.WithFields(log.Fields{"kept": len(kept), "excluded": len(users) - len(kept)}).Info("Remapped users")

	projects, err := objects(export, "projects")
	if err != nil {
		return nil, err
	}
	remapped := []any{}
	for _, p := range projects {
		project, err := r.project(p)
		if err != nil {
			return nil, err
		}
		remapped = append(remapped, project)
	}
	if _, ok := export["projects"]; ok {
		out["projects"] = remapped
	}

	return out, nil
}

func (r *Remapper) validate(users []map[string]any) error {
	var missing []string
	for _, u := range users {
		name := str(u["name"])
		if r.exclude[name] {
			continue
		}
		if _, ok := r.lookup[name]; ok {
			continue
		}
		missing = append(missing, ProfileLink(u, r.destURL))
	}
	if len(missing) > 0 {
		return &UnmappedUsersError{Users: missing}
	}
	return nil
}

func (r *Remapper) project(p map[string]any) (map[string]any, error) {
	project := r.replace(p)
	logger := log.WithField("project", str(p["key"]))

	issues, err := objects(p, "issues")
	if err != nil {
		return nil, err
	}
	kept := []any{}
	for _, i := range issues {
		issue, hidden, err := r.issue(i)
		if err != nil {
			return nil, err
		}
		if hidden {
			logger.Debugf("Dropping hidden issue %s", str(i["key"]))
			continue
		}
		kept = append(kept, issue)
	}
	if _, ok := p["issues"]; ok {
		project["issues"] = kept
	}
	if dropped := len(issues) - len(kept); dropped > 0 {
		logger.Infof("Dropped %d hidden issues", dropped)
	}

	components, err := objects(p, "components")
	if err != nil {
		return nil, err
	}
	if _, ok := p["components"]; ok {
		project["components"] = r.replaceAll(components)
	}

	return project, nil
}

// issue remaps an issue and reports whether its history ever made it
// hidden.
func (r *Remapper) issue(i map[string]any) (map[string]any, bool, error) {
	issue := r.replace(i)
	hidden := false

	history, err := objects(i, "history")
	if err != nil {
		return nil, false, err
	}
	entries := []any{}
	for _, h := range history {
		entry := r.replace(h)
		items, err := objects(h, "items")
		if err != nil {
			return nil, false, err
		}
		if _, ok := h["items"]; ok {
			entry["items"] = r.replaceAll(items)
		}
		for _, item := range items {
			hidden = hidden || hides(item)
		}
		entries = append(entries, entry)
	}
	if _, ok := i["history"]; ok {
		issue["history"] = entries
	}

	comments, err := objects(i, "comments")
	if err != nil {
		return nil, false, err
	}
	if _, ok := i["comments"]; ok {
		issue["comments"] = r.replaceAll(comments)
	}

	return issue, hidden, nil
}

func hides(item map[string]any) bool {
	if _, ok := item["newValue"]; !ok {
		return false
	}
	return str(item["field"]) == "security" && str(item["newDisplayValue"]) == "Hidden"
}

func (r *Remapper) replaceAll(ms []map[string]any) []any {
	out := make([]any, 0, len(ms))
	for _, m := range ms {
		out = append(out, r.replace(m))
	}
	return out
}

// replace returns a shallow copy of m with the usernames of its own fields
// replaced.
func (r *Remapper) replace(m map[string]any) map[string]any {
	out := copyMapping(m)

	for _, f := range exactUsernameFields {
		switch v := m[f].(type) {
		case string:
			if to, ok := r.lookup[v]; ok {
				out[f] = to
			}
		case []any:
			l := make([]any, len(v))
			for i, e := range v {
				l[i] = e
				if s, ok := e.(string); ok {
					if to, ok := r.lookup[s]; ok {
						l[i] = to
					}
				}
			}
			out[f] = l
		}
	}

	for _, f := range mentionFields {
		if v, ok := m[f].(string); ok {
			out[f] = r.mentions(v)
		}
	}

	return out
}

func (r *Remapper) mentions(text string) string {
	for _, p := range r.names {
		text = strings.ReplaceAll(text, "[~"+p.Old+"]", "[~"+p.New+"]")
	}
	return text
}

// ProfileLink formats a user of the export as
// "name email fullname url/secure/ViewProfile.jspa?name=name".
func ProfileLink(user map[string]any, url string) string {
	name := str(user["name"])
	return strings.Join([]string{
		name,
		str(user["email"]),
		str(user["fullname"]),
		fmt.Sprintf("%s/secure/ViewProfile.jspa?name=%s", url, name),
	}, " ")
}

// Encode renders an export as indented JSON with sorted keys.
func Encode(export map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(export); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// objects returns the list of objects held by key, or nothing when key is
// absent.
func objects(m map[string]any, key string) ([]map[string]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	seq, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a list", node.ErrMalformedInput, key)
	}

	out := make([]map[string]any, 0, len(seq))
	for i, e := range seq {
		obj, ok := e.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] is not an object", node.ErrMalformedInput, key, i)
		}
		out = append(out, obj)
	}
	return out, nil
}

func copyMapping(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
