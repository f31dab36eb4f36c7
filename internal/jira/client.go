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

// Package jira fetches raw issues from a JIRA server over the REST API.
package jira

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	jmhttp "github.com/conforma/jira-migrate/internal/http"
	"github.com/conforma/jira-migrate/internal/node"
)

var ErrIssueNotFound = errors.New("issue not found")

// DefaultTimeout bounds a single request, retries included.
const DefaultTimeout = 2 * time.Minute

type Client struct {
	base  *url.URL
	user  string
	token string
	http  *http.Client
}

type Option func(*Client)

// WithBasicAuth authenticates every request as user.
func WithBasicAuth(user, token string) Option {
	return func(c *Client) {
		c.user = user
		c.token = token
	}
}

// WithHTTPClient replaces the retrying client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// NewClient creates a client for the server at baseURL, e.g.
// https://issues.apache.org/jira.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid JIRA URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid JIRA URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base: u,
		http: jmhttp.NewClient(DefaultTimeout),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Issue returns the raw JSON of the issue with the given key.
func (c *Client) Issue(ctx context.Context, key string) (node.Node, error) {
	u := c.base.JoinPath("rest", "api", "2", "issue", key)

	resp, err := c.get(ctx, u, "application/json")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", key, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s at %s: %w", key, c.base, ErrIssueNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("failed to fetch %s from %s (HTTP %d): %s", key, c.base, resp.StatusCode, snippet(body))
	}

	n, err := node.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return n, nil
}

// Attachment is a file attached to an issue.
type Attachment struct {
	Name string
	URL  string
}

// Attachments lists the attachments of the issue with the given key. An
// issue missing from the server has none.
func (c *Client) Attachments(ctx context.Context, key string) ([]Attachment, error) {
	issue, err := c.Issue(ctx, key)
	if errors.Is(err, ErrIssueNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return AttachmentsOf(issue)
}

// AttachmentsOf reads fields.attachment of an issue returned by Issue.
func AttachmentsOf(issue node.Node) ([]Attachment, error) {
	m, ok := issue.(node.Mapping)
	if !ok {
		return nil, fmt.Errorf("%w: issue is a %s", node.ErrMalformedInput, issue.Kind())
	}
	fields, ok := m["fields"].(node.Mapping)
	if !ok {
		return nil, nil
	}
	items, ok := fields["attachment"].(node.Sequence)
	if !ok {
		return nil, nil
	}

	out := make([]Attachment, 0, len(items))
	for i, item := range items {
		a, ok := item.(node.Mapping)
		if !ok {
			return nil, fmt.Errorf("%w: attachment %d is not a mapping", node.ErrMalformedInput, i)
		}
		name, _ := a["filename"].(node.String)
		content, _ := a["content"].(node.String)
		if content == "" {
			return nil, fmt.Errorf("%w: attachment %d has no content URL", node.ErrMalformedInput, i)
		}
		out = append(out, Attachment{Name: string(name), URL: string(content)})
	}
	return out, nil
}

// Open downloads the file at rawURL. Credentials are only sent to the host
// of the client's server.
func (c *Client) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid attachment URL %q: %w", rawURL, err)
	}

	resp, err := c.get(ctx, u, "*/*")
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("failed to download %s (HTTP %d): %s", rawURL, resp.StatusCode, snippet(body))
	}
	return resp.Body, nil
}

func (c *Client) get(ctx context.Context, u *url.URL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	if c.user != "" && u.Host == c.base.Host {
		req.SetBasicAuth(c.user, c.token)
	}

	log.Debugf("Fetching %s", u)
	return c.http.Do(req)
}

func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// IssueKey formats the key of issue n in project, e.g. IMPALA-42.
func IssueKey(project string, n int) string {
	return project + "-" + strconv.Itoa(n)
}

// ParseIssueKey splits a key like IMPALA-42 into project and number.
func ParseIssueKey(key string) (string, int, error) {
	i := strings.LastIndex(key, "-")
	if i <= 0 || i == len(key)-1 {
		return "", 0, fmt.Errorf("invalid issue key %q", key)
	}
	n, err := strconv.Atoi(key[i+1:])
	if err != nil || n < 0 {
		return "", 0, fmt.Errorf("invalid issue key %q", key)
	}
	return key[:i], n, nil
}
