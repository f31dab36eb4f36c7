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

//go:build unit

package compare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conforma/jira-migrate/internal/config"
	"github.com/conforma/jira-migrate/internal/jira"
	"github.com/conforma/jira-migrate/internal/node"
	"github.com/conforma/jira-migrate/internal/utils"
	"github.com/conforma/jira-migrate/internal/verify"
)

func setUp(t *testing.T, cmd *cobra.Command, files map[string]string) (*bytes.Buffer, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	cmd.SetContext(utils.WithFS(context.Background(), fs))

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	return &out, fs
}

func decode(t *testing.T, out *bytes.Buffer) map[string]any {
	t.Helper()
	var r map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &r))
	return r
}

func TestCompareFilesText(t *testing.T) {
	cmd := compareFilesCmd()
	out, _ := setUp(t, cmd, map[string]string{
		"/left.json":  `{"a": 1, "b": {"c": "x"}}`,
		"/right.yaml": "a: 2\nb:\n  c: x\n",
	})
	cmd.SetArgs([]string{"/left.json", "/right.yaml", "--no-color"})

	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Comparing /left.json with /right.yaml", lines[0])
	assert.Equal(t, "Mismatched: a 1 2", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "Compared 1 record in "), lines[2])
	assert.True(t, strings.HasSuffix(lines[2], ": 1 discrepancy"), lines[2])
}

func TestCompareFilesNormalized(t *testing.T) {
	cmd := compareFilesCmd()
	out, _ := setUp(t, cmd, map[string]string{
		"/left.json":  `{"assignee": "jdoe", "body": "thanks [~jdoe]", "avatarUrls": {"16x16": "a"}}`,
		"/right.json": `{"assignee": "john", "body": "thanks [~john]", "avatarUrls": {"16x16": "b"}}`,
		"/users.txt":  "# users\njdoe=john\n",
	})
	cmd.SetArgs([]string{"/left.json", "/right.json", "--mapping", "/users.txt", "--output", "json", "--fail-on-diff"})

	require.NoError(t, cmd.Execute())
	r := decode(t, out)
	assert.Equal(t, true, r["success"])
	assert.Equal(t, float64(0), r["discrepancies"])
}

func TestCompareFilesFailOnDiff(t *testing.T) {
	cmd := compareFilesCmd()
	out, _ := setUp(t, cmd, map[string]string{
		"/left.json":  `{"a": {"b": 1}}`,
		"/right.json": `{"a": {}}`,
	})
	cmd.SetArgs([]string{"/left.json", "/right.json", "--output", "json", "--fail-on-diff"})

	err := cmd.Execute()
	assert.ErrorIs(t, err, errDiscrepancies)

	r := decode(t, out)
	issues := r["issues"].([]any)
	require.Len(t, issues, 1)
	discrepancies := issues[0].(map[string]any)["discrepancies"].([]any)
	assert.Equal(t, map[string]any{
		"kind":    "missing_key",
		"path":    "a.b",
		"side":    "right",
		"left":    float64(1),
		"message": "Missing key: a.b (missing in right) 1",
	}, discrepancies[0])
}

func TestCompareFilesIgnoreFlags(t *testing.T) {
	cmd := compareFilesCmd()
	out, _ := setUp(t, cmd, map[string]string{
		"/left.json":  `{"a": {"id": 1, "name": "x"}, "seen": 3}`,
		"/right.json": `{"a": {"id": 2, "name": "x"}, "seen": 4}`,
	})
	cmd.SetArgs([]string{"/left.json", "/right.json", "--output", "summary", "--ignore-key", "id", "--ignore-path", "seen"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, true, decode(t, out)["success"])
}

func TestCompareFilesPathAndProfile(t *testing.T) {
	cmd := compareFilesCmd()
	out, _ := setUp(t, cmd, map[string]string{
		"/left.json":    `{"self": "https://a/1", "name": "x"}`,
		"/right.json":   `{"self": "https://b/1", "name": "x"}`,
		"/profile.yaml": "ignore_paths: [versions.self]\n",
	})
	cmd.SetArgs([]string{"/left.json", "/right.json", "--path", "versions", "--profile", "/profile.yaml", "--output", "summary"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, true, decode(t, out)["success"])
}

func TestCompareFilesUnordered(t *testing.T) {
	cases := []struct {
		name    string
		right   string
		success bool
		kind    string
	}{
		{name: "same elements", right: `["c", "a", "b"]`, success: true},
		{name: "different length", right: `["a", "b"]`, kind: "length_mismatch"},
		{name: "different element", right: `["a", "b", "d"]`, kind: "mismatch"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cmd := compareFilesCmd()
			out, _ := setUp(t, cmd, map[string]string{
				"/left.json":  `["a", "b", "c"]`,
				"/right.json": c.right,
			})
			cmd.SetArgs([]string{"/left.json", "/right.json", "--unordered", "--path", "labels", "--output", "summary"})

			require.NoError(t, cmd.Execute())
			r := decode(t, out)
			assert.Equal(t, c.success, r["success"])
			if c.kind != "" {
				assert.Equal(t, map[string]any{c.kind: float64(1)}, r["kinds"])
			}
		})
	}
}

func TestCompareFilesErrors(t *testing.T) {
	cases := []struct {
		name  string
		args  []string
		files map[string]string
		err   string
	}{
		{name: "missing file", args: []string{"/left.json", "/nope.json"}, err: `failed to read "/left.json"`},
		{
			name:  "malformed document",
			args:  []string{"/left.json", "/right.json"},
			files: map[string]string{"/left.json": "{", "/right.json": "{}"},
			err:   `unable to parse "/left.json"`,
		},
		{
			name:  "unordered objects",
			args:  []string{"/left.json", "/right.json", "--unordered"},
			files: map[string]string{"/left.json": "{}", "/right.json": "[]"},
			err:   "--unordered needs two lists, got mapping and sequence",
		},
		{
			name:  "missing mapping",
			args:  []string{"/left.json", "/right.json", "--mapping", "/users.txt"},
			files: map[string]string{"/left.json": "{}", "/right.json": "{}"},
			err:   `failed to read username mapping file "/users.txt"`,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cmd := compareFilesCmd()
			setUp(t, cmd, c.files)
			cmd.SetArgs(c.args)
			assert.ErrorContains(t, cmd.Execute(), c.err)
		})
	}
}

type fakeFetcher map[string]node.Node

func (f fakeFetcher) Issue(_ context.Context, key string) (node.Node, error) {
	if i, ok := f[key]; ok {
		return i, nil
	}
	return nil, fmt.Errorf("%s: %w", key, jira.ErrIssueNotFound)
}

func fakeServers(t *testing.T, servers map[string]fakeFetcher) fetcherFactory {
	return func(url string, _ config.Server) (verify.Fetcher, error) {
		f, ok := servers[url]
		if !ok {
			t.Fatalf("unexpected server %s", url)
		}
		return f, nil
	}
}

func issue(key string, fields string) node.Node {
	f, err := node.Parse([]byte(fields))
	if err != nil {
		panic(err)
	}
	return node.Mapping{"key": node.String(key), "fields": f}
}

func TestCompareIssues(t *testing.T) {
	servers := map[string]fakeFetcher{
		"https://source": {
			"P-1": issue("P-1", `{"summary": "Crash", "assignee": {"name": "jdoe", "key": "jdoe"}}`),
			"P-2": issue("P-2", `{"summary": "Slow", "customfield_10055": 3}`),
			"P-3": issue("P-3", `{"summary": "Hang"}`),
		},
		"https://dest": {
			"P-1": issue("P-1", `{"summary": "Crash", "assignee": {"name": "john", "key": "john"}}`),
			"P-2": issue("P-2", `{"summary": "Slow", "customfield_12311123": 5}`),
		},
	}

	cmd := compareIssuesCmd(fakeServers(t, servers))
	out, _ := setUp(t, cmd, map[string]string{"/users.txt": "jdoe=john\n"})
	cmd.SetArgs([]string{
		"--project", "P", "--to", "4",
		"--source-url", "https://source", "--dest-url", "https://dest",
		"--mapping", "/users.txt",
		"--output", "json?show-clean=true",
	})

	require.NoError(t, cmd.Execute())

	r := decode(t, out)
	assert.Equal(t, false, r["success"])
	assert.Equal(t, float64(3), r["compared"])
	assert.Equal(t, float64(1), r["failed"])
	assert.Equal(t, float64(1), r["discrepancies"])

	issues := r["issues"].([]any)
	require.Len(t, issues, 3)
	assert.Equal(t, map[string]any{"key": "P-1"}, issues[0])
	assert.Equal(t, "Mismatched: customfield_10055 3 5", issues[1].(map[string]any)["discrepancies"].([]any)[0].(map[string]any)["message"])
	assert.Contains(t, issues[2].(map[string]any)["error"], "error fetching P-3 from destination")
}

func TestCompareIssuesServersFromProfile(t *testing.T) {
	servers := map[string]fakeFetcher{
		"https://source": {"P-1": issue("P-1", `{}`)},
		"https://dest":   {"P-1": issue("P-1", `{}`)},
	}

	cmd := compareIssuesCmd(fakeServers(t, servers))
	out, _ := setUp(t, cmd, map[string]string{
		"/profile.yaml": "source:\n  url: https://source\ndestination:\n  url: https://dest\n",
	})
	cmd.SetArgs([]string{"--project", "P", "--to", "2", "--profile", "/profile.yaml", "--output", "summary", "--fail-on-diff"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, true, decode(t, out)["success"])
}

func TestCompareIssuesErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
		err  string
	}{
		{name: "missing project", args: []string{"--to", "3"}, err: `required flag(s) "project" not set`},
		{name: "empty range", args: []string{"--project", "P", "--from", "3", "--to", "3"}, err: "--to (3) must be greater than --from (3)"},
		{name: "missing servers", args: []string{"--project", "P", "--to", "3"}, err: "both --source-url and --dest-url are required"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cmd := compareIssuesCmd(fakeServers(t, nil))
			setUp(t, cmd, nil)
			cmd.SetArgs(c.args)
			assert.ErrorContains(t, cmd.Execute(), c.err)
		})
	}
}

func TestNewJiraFetcher(t *testing.T) {
	f, err := newJiraFetcher("https://issues.example.com", config.Server{User: "u", Token: "t"})
	require.NoError(t, err)
	assert.IsType(t, &jira.Client{}, f)

	f, err = newJiraFetcher("issues.example.com", config.Server{})
	assert.Error(t, err)
	assert.Nil(t, f)
}
