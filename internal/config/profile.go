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

// Package config loads the comparison profile: what to ignore, how to
// rewrite source values and which fields to compare. Every setting has a
// default taken from the original migration, a profile file only needs to
// list what differs.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/conforma/jira-migrate/internal/diff"
	"github.com/conforma/jira-migrate/internal/mapping"
)

// EnvPrefix prefixes the environment variables read by Load, e.g.
// JM_SOURCE_TOKEN.
const EnvPrefix = "JM"

// Server is a JIRA endpoint with optional basic auth credentials.
type Server struct {
	URL   string `mapstructure:"url"`
	User  string `mapstructure:"user"`
	Token string `mapstructure:"token"`
}

// FieldPair maps an issue field on the source server to the field holding
// the same data on the destination.
type FieldPair struct {
	Source      string `mapstructure:"source"`
	Destination string `mapstructure:"destination"`
}

type Profile struct {
	IgnorePaths   []string            `mapstructure:"ignore_paths"`
	IgnoreKeys    []string            `mapstructure:"ignore_keys"`
	Substitutions []diff.Substitution `mapstructure:"substitutions"`
	NameContexts  []string            `mapstructure:"name_contexts"`
	ExemptPaths   []string            `mapstructure:"exempt_paths"`
	RecasePaths   []string            `mapstructure:"recase_paths"`
	Fields        []FieldPair         `mapstructure:"fields"`
	SkipIssues    []int               `mapstructure:"skip_issues"`
	Source        Server              `mapstructure:"source"`
	Destination   Server              `mapstructure:"destination"`
}

// Load reads the profile at path, which may be empty to only use defaults
// and the environment.
func Load(fs afero.Fs, path string) (*Profile, error) {
	v := viper.New()
	v.SetFs(fs)
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{"source.url", "source.user", "source.token", "destination.url", "destination.user", "destination.token"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if !strings.Contains(path, ".") {
			v.SetConfigType("yaml")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read profile %q: %w", path, err)
		}
	}

	var p Profile
	if err := v.Unmarshal(&p); err != nil {
		return nil, fmt.Errorf("failed to decode profile %q: %w", path, err)
	}

	for i, f := range p.Fields {
		if f.Source == "" {
			return nil, fmt.Errorf("profile %q: field %d has no source", path, i)
		}
		if f.Destination == "" {
			p.Fields[i].Destination = f.Source
		}
	}

	return &p, nil
}

// Default returns the built-in profile.
func Default() *Profile {
	p, err := Load(afero.NewMemMapFs(), "")
	if err != nil {
		// defaults are static, decoding them cannot fail
		panic(err)
	}
	return p
}

// Policies builds the comparator policies. The cache is shared by every
// comparison using the returned suppression policy.
func (p *Profile) Policies(names mapping.Names, cache *diff.SignatureCache) (*diff.SuppressionPolicy, *diff.NormalizationPolicy) {
	suppress := diff.NewSuppressionPolicy(p.IgnorePaths, p.IgnoreKeys, cache)
	normalize := diff.NewNormalizationPolicy(diff.NormalizationConfig{
		Names:         names,
		NameContexts:  p.NameContexts,
		Substitutions: p.Substitutions,
		ExemptPaths:   p.ExemptPaths,
		RecasePaths:   p.RecasePaths,
	})
	return suppress, normalize
}

// Skipped reports whether issue number n is known to be missing.
func (p *Profile) Skipped(n int) bool {
	for _, s := range p.SkipIssues {
		if s == n {
			return true
		}
	}
	return false
}
