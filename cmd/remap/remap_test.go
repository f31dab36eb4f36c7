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

package remap

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conforma/jira-migrate/internal/utils"
)

const export = `{
  "users": [
    {"name": "jdoe", "email": "jdoe@example.com", "fullname": "John Doe"},
    {"name": "bot", "email": "bot@example.com", "fullname": "Bot"}
  ],
  "projects": [{"key": "P", "lead": "jdoe", "components": [], "issues": []}]
}`

func run(t *testing.T, files map[string]string, args ...string) (string, afero.Fs, error) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}

	cmd := NewRemapCmd()
	cmd.SetContext(utils.WithFS(context.Background(), fs))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), fs, err
}

func TestRemapToStdout(t *testing.T) {
	out, _, err := run(t, map[string]string{
		"/export.json":  export,
		"/users.txt":    "jdoe=john\n",
		"/excluded.txt": "bot\n",
	}, "/export.json", "--mapping", "/users.txt", "--exclude", "/excluded.txt")
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"users": [{"name": "john", "email": "jdoe@example.com", "fullname": "John Doe"}],
		"projects": [{"key": "P", "lead": "john", "components": [], "issues": []}]
	}`, out)
	assert.Contains(t, out, "\n  \"projects\": [\n")
}

func TestRemapToFile(t *testing.T) {
	out, fs, err := run(t, map[string]string{
		"/export.json": export,
		"/users.txt":   "jdoe=john\nbot\n",
	}, "/export.json", "--mapping", "/users.txt", "-o", "/out.json")
	require.NoError(t, err)
	assert.Empty(t, out)

	written, err := afero.ReadFile(fs, "/out.json")
	require.NoError(t, err)
	assert.Contains(t, string(written), `"name": "bot"`)
	assert.Contains(t, string(written), `"lead": "john"`)
}

func TestRemapUnmappedUsers(t *testing.T) {
	out, _, err := run(t, map[string]string{
		"/export.json": export,
		"/users.txt":   "jdoe=john\n",
	}, "/export.json", "--mapping", "/users.txt", "--dest-url", "https://issues.example.com")

	assert.ErrorContains(t, err, "bot bot@example.com Bot https://issues.example.com/secure/ViewProfile.jspa?name=bot")
	assert.Empty(t, out)
}

func TestRemapErrors(t *testing.T) {
	_, _, err := run(t, map[string]string{"/users.txt": ""}, "/export.json", "--mapping", "/users.txt")
	assert.ErrorContains(t, err, `failed to read export "/export.json"`)

	_, _, err = run(t, map[string]string{"/export.json": "{", "/users.txt": ""}, "/export.json", "--mapping", "/users.txt")
	assert.ErrorContains(t, err, `unable to parse export "/export.json"`)

	_, _, err = run(t, map[string]string{"/export.json": "{}"}, "/export.json")
	assert.ErrorContains(t, err, `required flag(s) "mapping" not set`)
}
