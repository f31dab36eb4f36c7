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

// Package format parses output targets of the form
// format[=path][?option=value&...], e.g. "json=report.json" or
// "text?show-clean=true".
package format

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
)

// Options tune what a report includes.
type Options struct {
	// ShowClean lists records compared without any discrepancy.
	ShowClean bool
	// ShowErrors lists records that could not be compared.
	ShowErrors bool
}

type Target struct {
	Format  string
	Options Options
	writer  io.Writer
}

func (t Target) Write(data []byte) (int, error) {
	return t.writer.Write(data)
}

// IsTerminal reports whether the target writes to a terminal.
func (t Target) IsTerminal() bool {
	f, ok := t.writer.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type TargetParser struct {
	defaultFormat  string
	defaultOptions Options
	defaultWriter  io.Writer
	fs             afero.Fs
}

func NewTargetParser(defaultFormat string, defaultOptions Options, defaultWriter io.Writer, fs afero.Fs) TargetParser {
	return TargetParser{
		defaultFormat:  defaultFormat,
		defaultOptions: defaultOptions,
		defaultWriter:  defaultWriter,
		fs:             fs,
	}
}

// Parse returns the target described by target. Missing parts take the
// parser's defaults, so the empty string is the default target.
func (p TargetParser) Parse(target string) (Target, error) {
	base, query, _ := strings.Cut(target, "?")
	name, path, _ := strings.Cut(base, "=")

	t := Target{
		Format:  name,
		Options: p.defaultOptions,
		writer:  p.defaultWriter,
	}
	if t.Format == "" {
		t.Format = p.defaultFormat
	}
	if path != "" {
		t.writer = &fileWriter{path: path, fs: p.fs}
	}

	if err := t.Options.parse(query); err != nil {
		return Target{}, fmt.Errorf("invalid output %q: %w", target, err)
	}

	return t, nil
}

func (o *Options) parse(query string) error {
	if query == "" {
		return nil
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return err
	}

	for key, vals := range values {
		var dest *bool
		switch key {
		case "show-clean":
			dest = &o.ShowClean
		case "show-errors":
			dest = &o.ShowErrors
		default:
			return fmt.Errorf("unknown option %q", key)
		}

		v, err := strconv.ParseBool(vals[len(vals)-1])
		if err != nil {
			return fmt.Errorf("option %q: %w", key, err)
		}
		*dest = v
	}
	return nil
}

// fileWriter replaces the file at path with each write.
type fileWriter struct {
	path string
	fs   afero.Fs
}

func (w fileWriter) Write(data []byte) (int, error) {
	if dir := filepath.Dir(w.path); dir != "." {
		if err := w.fs.MkdirAll(dir, 0o755); err != nil {
			return 0, err
		}
	}
	if err := afero.WriteFile(w.fs, w.path, data, 0o644); err != nil {
		return 0, err
	}
	return len(data), nil
}
