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

package diff

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conforma/jira-migrate/internal/mapping"
	"github.com/conforma/jira-migrate/internal/node"
)

// fragments are glued together so generated text hits every rewrite rule
var fragments = []string{
	"[~jdoe]", "[~MSmith]", "jdoe", "MSmith", "mary", "issues.cloudera.org",
	"issues.cloudera.org/browse/HUE", "user?username=jdoe", " ", "\t", "text", "/", "-42",
}

func genText() gopter.Gen {
	return gen.SliceOfN(6, gen.IntRange(0, len(fragments)-1)).Map(func(idx []int) string {
		var b strings.Builder
		for _, i := range idx {
			b.WriteString(fragments[i])
		}
		return b.String()
	})
}

func genPath() gopter.Gen {
	return gen.OneConstOf("summary", "description", "assignee.key", "assignee.name", "comment.comments.body")
}

func TestNormalizationIsIdempotent(t *testing.T) {
	p := testNormalization()

	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("normalizing twice equals normalizing once", prop.ForAll(
		func(path, text string) bool {
			once, _ := p.Normalize(path, text, "")
			twice, _ := p.Normalize(path, once, "")
			return once == twice
		},
		genPath(), genText(),
	))

	properties.Property("whole-field usernames are idempotent", prop.ForAll(
		func(path string, idx int) bool {
			names := []string{"jdoe", "MSmith", "Mary", "john.doe@example.com", "other"}
			once, _ := p.Normalize(path, names[idx], "")
			twice, _ := p.Normalize(path, once, "")
			return once == twice
		},
		genPath(), gen.IntRange(0, 4),
	))

	properties.TestingRun(t)
}

func TestSuppressionIsMonotonic(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("a repeated comparison reports nothing new", prop.ForAll(
		func(path, left, right string) bool {
			c := NewComparator(NewSuppressionPolicy(nil, nil, nil), testNormalization())
			l := node.Mapping{"f": node.String(left), "only": node.String(left)}
			r := node.Mapping{"f": node.String(right)}

			first := c.Compare(path, l, r)
			second := c.Compare(path, l, r)
			return len(second) == 0 && len(first) <= 2
		},
		genPath(), genText(), genText(),
	))

	properties.Property("a pre-populated cache never reports more", prop.ForAll(
		func(a, b, x, y string) bool {
			cache := NewSignatureCache()
			c := NewComparator(NewSuppressionPolicy(nil, nil, cache), nil)

			warm := node.Mapping{"f": node.String(a)}
			c.Compare("", warm, node.Mapping{"f": node.String(b)})

			l := node.Mapping{"f": node.String(x), "g": node.String(a)}
			r := node.Mapping{"f": node.String(y), "g": node.String(b)}
			cold := NewComparator(nil, nil).Compare("", l, r)
			return len(c.Compare("", l, r)) <= len(cold)
		},
		genText(), genText(), genText(), genText(),
	))

	properties.TestingRun(t)
}

func TestNamesFromMappingAreUsed(t *testing.T) {
	names, err := mapping.Parse([]byte("jdoe=jd\n"))
	if err != nil {
		t.Fatal(err)
	}
	p := NewNormalizationPolicy(NormalizationConfig{Names: names})
	if got, _ := p.Normalize("assignee.name", "jdoe", ""); got != "jd" {
		t.Errorf("expected jd, got %q", got)
	}
}
