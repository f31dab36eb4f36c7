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

// Package verify fetches every issue of a range from both servers and
// compares them.
package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/conforma/jira-migrate/internal/diff"
	"github.com/conforma/jira-migrate/internal/node"
)

const DefaultWorkers = 8

// Fetcher returns the raw JSON of an issue.
type Fetcher interface {
	Issue(ctx context.Context, key string) (node.Node, error)
}

type Options struct {
	Project string
	// From and To bound the issue numbers, To is exclusive.
	From int
	To   int
	// Skip reports issue numbers known to be missing.
	Skip        func(int) bool
	Workers     int
	Source      Fetcher
	Destination Fetcher
	Comparer    *IssueComparer
}

// Result is the outcome for a single issue. Err is set when either side
// could not be fetched or parsed, in which case Discrepancies is empty.
type Result struct {
	Number        int
	Key           string
	Discrepancies []diff.Discrepancy
	Err           error
}

type Summary struct {
	Results  []Result
	Skipped  int
	Duration time.Duration
}

func (s Summary) Discrepancies() int {
	total := 0
	for _, r := range s.Results {
		total += len(r.Discrepancies)
	}
	return total
}

func (s Summary) Failed() int {
	failed := 0
	for _, r := range s.Results {
		if r.Err != nil {
			failed++
		}
	}
	return failed
}

// Run compares the issues From to To-1 of Project. Issues are processed by
// a bounded pool of workers sharing one comparator, so a difference
// repeated on many issues is reported once. Fetch errors are recorded on the
// issue's Result and do not stop the run; only cancellation of ctx does, in
// which case the results gathered so far are returned along with the
// context's error.
func Run(ctx context.Context, opts Options) (Summary, error) {
	start := time.Now()

	if opts.Source == nil || opts.Destination == nil || opts.Comparer == nil {
		return Summary{}, errors.New("source, destination and comparer are required")
	}

	r := Range{
		Project: opts.Project,
		From:    opts.From,
		To:      opts.To,
		Skip:    opts.Skip,
		Workers: opts.Workers,
	}
	if err := r.validate(); err != nil {
		return Summary{}, err
	}

	results, skipped, err := Each(ctx, r, func(ctx context.Context, key string, n int) (Result, error) {
		res := compareIssue(ctx, opts, key, n)
		return res, res.Err
	})
	summary := Summary{
		Results:  results,
		Skipped:  skipped,
		Duration: time.Since(start),
	}

	logger := log.WithFields(log.Fields{
		"compared":      len(summary.Results),
		"skipped":       summary.Skipped,
		"failed":        summary.Failed(),
		"discrepancies": summary.Discrepancies(),
	})
	if err != nil {
		logger.Warn("Comparison interrupted")
		return summary, err
	}
	logger.Info("Comparison finished")

	return summary, nil
}

func compareIssue(ctx context.Context, opts Options, key string, n int) Result {
	r := Result{Number: n, Key: key}
	logger := log.WithField("issue", key)

	src, err := opts.Source.Issue(ctx, key)
	if err != nil {
		r.Err = fmt.Errorf("error fetching %s from source: %w", key, err)
		logger.Warn(r.Err)
		return r
	}
	dst, err := opts.Destination.Issue(ctx, key)
	if err != nil {
		r.Err = fmt.Errorf("error fetching %s from destination: %w", key, err)
		logger.Warn(r.Err)
		return r
	}

	logger.Debug("Comparing")
	r.Discrepancies, r.Err = opts.Comparer.Compare(src, dst)
	if r.Err != nil {
		logger.Warn(r.Err)
	}
	return r
}
