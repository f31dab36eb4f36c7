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

package verify

import (
	"context"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/conforma/jira-migrate/internal/jira"
)

// Range selects the issues From to To-1 of Project.
type Range struct {
	Project string
	From    int
	To      int
	// Skip reports issue numbers known to be missing.
	Skip    func(int) bool
	Workers int
}

func (r Range) validate() error {
	if r.To < r.From {
		return fmt.Errorf("invalid issue range %d-%d", r.From, r.To)
	}
	return nil
}

type numbered[T any] struct {
	n   int
	val T
}

// Each calls fn for every issue of r that is not skipped, from a bounded pool
// of workers, and returns the values ordered by issue number along with the
// number of skipped issues.
//
// fn records per-issue failures in its value. An error returned by fn after
// ctx was cancelled marks the issue as interrupted: its value is dropped and
// Each stops, returning the values gathered so far with the context's error.
func Each[T any](ctx context.Context, r Range, fn func(ctx context.Context, key string, n int) (T, error)) ([]T, int, error) {
	if err := r.validate(); err != nil {
		return nil, 0, err
	}
	workers := r.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	results := make(chan numbered[T], workers)

	skipped := 0
	go func() {
		defer close(results)
		for n := r.From; n < r.To; n++ {
			key := jira.IssueKey(r.Project, n)
			if r.Skip != nil && r.Skip(n) {
				log.Debugf("Skipping %s", key)
				skipped++
				continue
			}
			if gctx.Err() != nil {
				break
			}

			g.Go(func() error {
				v, err := fn(gctx, key, n)
				if err != nil && gctx.Err() != nil {
					return gctx.Err()
				}
				results <- numbered[T]{n: n, val: v}
				return nil
			})
		}
		_ = g.Wait()
	}()

	var collected []numbered[T]
	for v := range results {
		collected = append(collected, v)
	}
	sort.Slice(collected, func(i, j int) bool {
		return collected[i].n < collected[j].n
	})

	values := make([]T, len(collected))
	for i, v := range collected {
		values[i] = v.val
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return values, skipped, err
}
