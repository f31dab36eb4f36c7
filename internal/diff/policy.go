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

package diff

import (
	"regexp"
	"strings"

	"github.com/conforma/jira-migrate/internal/mapping"
)

// SuppressionPolicy silences discrepancies by path, by bare key and by
// signatures already reported. Everything except the cache is fixed at
// construction.
type SuppressionPolicy struct {
	ignorePaths map[string]bool
	ignoreKeys  map[string]bool
	cache       *SignatureCache
}

// NewSuppressionPolicy creates a policy. A nil cache gets a fresh one; pass a
// shared cache to suppress repeats across records.
func NewSuppressionPolicy(ignorePaths, ignoreKeys []string, cache *SignatureCache) *SuppressionPolicy {
	if cache == nil {
		cache = NewSignatureCache()
	}
	return &SuppressionPolicy{
		ignorePaths: toSet(ignorePaths),
		ignoreKeys:  toSet(ignoreKeys),
		cache:       cache,
	}
}

func (p *SuppressionPolicy) Cache() *SignatureCache {
	return p.cache
}

// IgnoresPath reports whether path is always ignored.
func (p *SuppressionPolicy) IgnoresPath(path string) bool {
	return p.ignorePaths[path]
}

// IgnoresKey reports whether the bare key is ignored at any depth.
func (p *SuppressionPolicy) IgnoresKey(key string) bool {
	return p.ignoreKeys[key]
}

// Substitution is a literal text replacement.
type Substitution struct {
	Old string `json:"old" mapstructure:"old"`
	New string `json:"new" mapstructure:"new"`
}

// NormalizationConfig holds the inputs of a NormalizationPolicy.
type NormalizationConfig struct {
	// Names are the username mappings, source to destination.
	Names mapping.Names
	// NameContexts wrap a name, "{}" marks where the name goes, e.g. "[~{}]".
	NameContexts []string
	// Substitutions are applied in order.
	Substitutions []Substitution
	// ExemptPaths skip Substitutions.
	ExemptPaths []string
	// RecasePaths get their value replaced by the lowercase destination
	// name when it matches a known name ignoring case.
	RecasePaths []string
}

type nameRewrite struct {
	re          *regexp.Regexp
	replacement string
}

// NormalizationPolicy rewrites string leaves of the source tree so that
// known, accepted differences between the two servers compare equal.
type NormalizationPolicy struct {
	names         mapping.Names
	contexts      []string
	substitutions []Substitution
	exempt        map[string]bool
	recase        map[string]bool
	rewrites      []nameRewrite
	known         map[string]string
}

func NewNormalizationPolicy(cfg NormalizationConfig) *NormalizationPolicy {
	p := &NormalizationPolicy{
		names:         append(mapping.Names(nil), cfg.Names...),
		contexts:      append([]string(nil), cfg.NameContexts...),
		substitutions: append([]Substitution(nil), cfg.Substitutions...),
		exempt:        toSet(cfg.ExemptPaths),
		recase:        toSet(cfg.RecasePaths),
		known:         make(map[string]string, 2*len(cfg.Names)),
	}

	for _, n := range cfg.Names {
		old := regexp.QuoteMeta(n.Old)
		p.rewrites = append(p.rewrites,
			nameRewrite{regexp.MustCompile(`^` + old + `$`), n.New},
			nameRewrite{regexp.MustCompile(`user\?username=` + old + `$`), "user?username=" + strings.ReplaceAll(n.New, "@", "%40")},
		)
	}

	// destination names first so a source name that equals some other
	// destination name still maps through
	for _, n := range cfg.Names {
		p.known[strings.ToLower(n.New)] = strings.ToLower(n.New)
	}
	for _, n := range cfg.Names {
		p.known[strings.ToLower(n.Old)] = strings.ToLower(n.New)
	}

	return p
}

// Normalize applies the rewrite rules to the left value and trims both.
func (p *NormalizationPolicy) Normalize(path, left, right string) (string, string) {
	if p == nil {
		return strings.TrimSpace(left), strings.TrimSpace(right)
	}

	for _, c := range p.contexts {
		for _, n := range p.names {
			left = strings.ReplaceAll(left, wrap(c, n.Old), wrap(c, n.New))
		}
	}

	if !p.exempt[path] {
		for _, s := range p.substitutions {
			if s.Old == "" {
				continue
			}
			left = strings.ReplaceAll(left, s.Old, s.New)
		}
	}

	// trimmed before the anchored rewrites, so " jdoe " maps too
	left = strings.TrimSpace(left)
	for _, r := range p.rewrites {
		left = r.re.ReplaceAllLiteralString(left, r.replacement)
	}

	left = strings.TrimSpace(left)
	if p.recase[path] {
		if name, ok := p.known[strings.ToLower(left)]; ok {
			left = name
		}
	}

	return left, strings.TrimSpace(right)
}

func wrap(context, name string) string {
	return strings.ReplaceAll(context, "{}", name)
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, i := range items {
		set[i] = true
	}
	return set
}
