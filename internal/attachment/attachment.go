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

// Package attachment checks that the files attached to migrated issues
// reached the destination intact. Attachments are compared by name and
// SHA-512 of their content, the URLs they are served from may differ.
package attachment

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/conforma/jira-migrate/internal/jira"
	"github.com/conforma/jira-migrate/internal/verify"
)

// Lister lists the attachments of an issue.
type Lister interface {
	Attachments(ctx context.Context, key string) ([]jira.Attachment, error)
}

// Opener downloads an attachment.
type Opener interface {
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// Fingerprint identifies an attachment independently of where it is stored.
type Fingerprint struct {
	Name   string
	SHA512 string
}

// Set holds the URLs of the attachments sharing a fingerprint, in listing
// order.
type Set map[Fingerprint][]string

// Collect downloads every attachment and groups them by fingerprint.
func Collect(ctx context.Context, attachments []jira.Attachment, o Opener) (Set, error) {
	set := make(Set, len(attachments))
	for _, a := range attachments {
		sum, err := checksum(ctx, o, a.URL)
		if err != nil {
			return nil, err
		}
		f := Fingerprint{Name: a.Name, SHA512: sum}
		set[f] = append(set[f], a.URL)
	}
	return set, nil
}

func checksum(ctx context.Context, o Opener, url string) (string, error) {
	body, err := o.Open(ctx, url)
	if err != nil {
		return "", err
	}
	defer body.Close()

	h := sha512.New()
	if _, err := io.Copy(h, body); err != nil {
		return "", fmt.Errorf("failed to download %s: %w", url, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

type Op string

const (
	// Add means the destination lacks copies of a source attachment.
	Add Op = "add"
	// Remove means the destination holds an attachment the source does not.
	Remove Op = "remove"
)

// Change is one action that brings the destination in line with the
// source. An Add is Count uploads of the file at URL; a Remove is the
// deletion of the destination file at URL.
type Change struct {
	Op    Op
	Name  string
	URL   string
	Count int
}

func (c Change) String() string {
	if c.Op == Add {
		return fmt.Sprintf("Add %d times: %s", c.Count, c.URL)
	}
	return "Remove " + c.URL
}

// Diff lists the changes turning dst into src, ordered by attachment name.
func Diff(src, dst Set) []Change {
	var changes []Change
	for _, f := range sortedFingerprints(src) {
		have, want := len(dst[f]), len(src[f])
		switch {
		case have < want:
			changes = append(changes, Change{Op: Add, Name: f.Name, URL: src[f][0], Count: want - have})
		case have > want:
			for _, url := range dst[f][:have-want] {
				changes = append(changes, Change{Op: Remove, Name: f.Name, URL: url, Count: 1})
			}
		}
	}
	for _, f := range sortedFingerprints(dst) {
		if _, ok := src[f]; ok {
			continue
		}
		for _, url := range dst[f] {
			changes = append(changes, Change{Op: Remove, Name: f.Name, URL: url, Count: 1})
		}
	}
	return changes
}

func sortedFingerprints(s Set) []Fingerprint {
	out := make([]Fingerprint, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].SHA512 < out[j].SHA512
	})
	return out
}

// Result is the outcome for a single issue. Err is set when the attachments
// of either side could not be listed or downloaded.
type Result struct {
	Number  int
	Key     string
	Changes []Change
	Err     error
}

type Summary struct {
	Results  []Result
	Skipped  int
	Duration time.Duration
}

// Options configure Run. The source is listed through Source and its files
// downloaded through SourceFiles, which are usually the same client.
type Options struct {
	verify.Range
	Source           Lister
	SourceFiles      Opener
	Destination      Lister
	DestinationFiles Opener
}

// Run compares the attachments of every issue in the range. Like
// verify.Run it keeps going when an issue fails and stops only when ctx is
// cancelled.
func Run(ctx context.Context, opts Options) (Summary, error) {
	start := time.Now()

	if opts.Source == nil || opts.SourceFiles == nil || opts.Destination == nil || opts.DestinationFiles == nil {
		return Summary{}, fmt.Errorf("source and destination are required")
	}

	results, skipped, err := verify.Each(ctx, opts.Range, func(ctx context.Context, key string, n int) (Result, error) {
		r := compareIssue(ctx, opts, key, n)
		return r, r.Err
	})
	s := Summary{Results: results, Skipped: skipped, Duration: time.Since(start)}

	changes := 0
	for _, r := range results {
		changes += len(r.Changes)
	}
	logger := log.WithFields(log.Fields{
		"compared": len(results),
		"skipped":  skipped,
		"changes":  changes,
	})
	if err != nil {
		logger.Warn("Attachment comparison interrupted")
		return s, err
	}
	logger.Info("Attachment comparison finished")

	return s, nil
}

func compareIssue(ctx context.Context, opts Options, key string, n int) Result {
	r := Result{Number: n, Key: key}
	logger := log.WithField("issue", key)

	src, err := collect(ctx, key, opts.Source, opts.SourceFiles)
	if err != nil {
		r.Err = fmt.Errorf("error reading attachments of %s from source: %w", key, err)
		logger.Warn(r.Err)
		return r
	}
	dst, err := collect(ctx, key, opts.Destination, opts.DestinationFiles)
	if err != nil {
		r.Err = fmt.Errorf("error reading attachments of %s from destination: %w", key, err)
		logger.Warn(r.Err)
		return r
	}

	r.Changes = Diff(src, dst)
	logger.Debugf("%d attachment changes", len(r.Changes))
	return r
}

func collect(ctx context.Context, key string, l Lister, o Opener) (Set, error) {
	list, err := l.Attachments(ctx, key)
	if err != nil {
		return nil, err
	}
	return Collect(ctx, list, o)
}
