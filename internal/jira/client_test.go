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

package jira

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conforma/jira-migrate/internal/node"
)

func TestIssue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jira/rest/api/2/issue/IMPALA-7", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "alice", user)
		assert.Equal(t, "s3cret", pass)
		_, _ = w.Write([]byte(`{"key": "IMPALA-7", "fields": {"summary": "Crash", "votes": {"votes": 2}}}`))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL+"/jira/", WithBasicAuth("alice", "s3cret"), WithHTTPClient(server.Client()))
	require.NoError(t, err)

	issue, err := c.Issue(context.Background(), "IMPALA-7")
	require.NoError(t, err)
	assert.Equal(t, node.Mapping{
		"key": node.String("IMPALA-7"),
		"fields": node.Mapping{
			"summary": node.String("Crash"),
			"votes":   node.Mapping{"votes": node.Number(2)},
		},
	}, issue)
}

func TestIssueAnonymous(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, ok := r.BasicAuth()
		assert.False(t, ok)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, WithHTTPClient(server.Client()))
	require.NoError(t, err)

	_, err = c.Issue(context.Background(), "X-1")
	assert.NoError(t, err)
}

func TestIssueErrors(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		notFound bool
		err      string
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"errorMessages":["Issue Does Not Exist"]}`, notFound: true},
		{name: "forbidden", status: http.StatusForbidden, body: "go away", err: "(HTTP 403): go away"},
		{name: "malformed", status: http.StatusOK, body: `{"key": `, err: "failed to parse X-1"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(c.status)
				_, _ = w.Write([]byte(c.body))
			}))
			t.Cleanup(server.Close)

			client, err := NewClient(server.URL, WithHTTPClient(server.Client()))
			require.NoError(t, err)

			_, err = client.Issue(context.Background(), "X-1")
			require.Error(t, err)
			if c.notFound {
				assert.ErrorIs(t, err, ErrIssueNotFound)
			} else {
				assert.NotErrorIs(t, err, ErrIssueNotFound)
				assert.ErrorContains(t, err, c.err)
			}
		})
	}
}

func TestNewClientInvalidURL(t *testing.T) {
	_, err := NewClient("issues.example.com")
	assert.ErrorContains(t, err, "scheme must be http or https")

	_, err = NewClient("https://[::1")
	assert.ErrorContains(t, err, "invalid JIRA URL")
}

func TestIssueKey(t *testing.T) {
	assert.Equal(t, "IMPALA-42", IssueKey("IMPALA", 42))

	project, n, err := ParseIssueKey("MY-PROJ-42")
	require.NoError(t, err)
	assert.Equal(t, "MY-PROJ", project)
	assert.Equal(t, 42, n)

	for _, bad := range []string{"", "IMPALA", "-1", "IMPALA-", "IMPALA-x"} {
		_, _, err := ParseIssueKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestAttachments(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/api/2/issue/P-1":
			_, _ = w.Write([]byte(`{"key": "P-1", "fields": {"attachment": [
				{"filename": "log.txt", "content": "` + server.URL + `/secure/attachment/10/log.txt"},
				{"filename": "trace.txt", "content": "` + server.URL + `/secure/attachment/11/trace.txt"}
			]}}`))
		case "/rest/api/2/issue/P-2":
			_, _ = w.Write([]byte(`{"key": "P-2", "fields": {"summary": "no files"}}`))
		case "/secure/attachment/10/log.txt":
			user, _, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "alice", user)
			_, _ = w.Write([]byte("hello"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, WithBasicAuth("alice", "s3cret"), WithHTTPClient(server.Client()))
	require.NoError(t, err)
	ctx := context.Background()

	files, err := c.Attachments(ctx, "P-1")
	require.NoError(t, err)
	assert.Equal(t, []Attachment{
		{Name: "log.txt", URL: server.URL + "/secure/attachment/10/log.txt"},
		{Name: "trace.txt", URL: server.URL + "/secure/attachment/11/trace.txt"},
	}, files)

	list, err := c.Attachments(ctx, "P-2")
	require.NoError(t, err)
	assert.Empty(t, list)

	// missing issues have no attachments
	list, err = c.Attachments(ctx, "P-3")
	require.NoError(t, err)
	assert.Empty(t, list)

	body, err := c.Open(ctx, files[0].URL)
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.Equal(t, "hello", string(data))

	_, err = c.Open(ctx, server.URL+"/secure/attachment/11/trace.txt")
	assert.ErrorContains(t, err, "(HTTP 404)")
}

func TestOpenSendsCredentialsOnlyToServer(t *testing.T) {
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, ok := r.BasicAuth()
		assert.False(t, ok)
		_, _ = w.Write([]byte("x"))
	}))
	t.Cleanup(other.Close)

	c, err := NewClient("https://jira.example.com", WithBasicAuth("alice", "s3cret"), WithHTTPClient(other.Client()))
	require.NoError(t, err)

	body, err := c.Open(context.Background(), other.URL+"/file")
	require.NoError(t, err)
	assert.NoError(t, body.Close())
}

func TestAttachmentsOfMalformed(t *testing.T) {
	_, err := AttachmentsOf(node.Sequence{})
	assert.ErrorIs(t, err, node.ErrMalformedInput)

	_, err = AttachmentsOf(node.Mapping{"fields": node.Mapping{"attachment": node.Sequence{node.Mapping{"filename": node.String("a")}}}})
	assert.ErrorContains(t, err, "attachment 0 has no content URL")
}

func TestSnippetKeepsRunesWhole(t *testing.T) {
	s := snippet([]byte(strings.Repeat("a", 199) + strings.Repeat("é", 10)))
	assert.True(t, utf8.ValidString(s))
	assert.Equal(t, strings.Repeat("a", 199)+"...", s)

	assert.Equal(t, "short", snippet([]byte("  short\n")))
}
