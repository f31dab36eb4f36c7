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

// Package report renders comparison results in the supported output
// formats.
package report

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"text/template"
	"time"

	"github.com/fatih/color"
	"github.com/hako/durafmt"
	"sigs.k8s.io/yaml"

	"github.com/conforma/jira-migrate/internal/attachment"
	"github.com/conforma/jira-migrate/internal/diff"
	"github.com/conforma/jira-migrate/internal/format"
	"github.com/conforma/jira-migrate/internal/node"
	"github.com/conforma/jira-migrate/internal/verify"
)

// Possible formats the report can be written as.
const (
	JSON    = "json"
	YAML    = "yaml"
	Text    = "text"
	Summary = "summary"
)

// Labels name the two compared sides in messages.
type Labels struct {
	Left  string
	Right string
}

var DefaultLabels = Labels{Left: "source", Right: "destination"}

func (l Labels) of(s diff.Side) string {
	if s == diff.Left {
		return l.Left
	}
	return l.Right
}

type Discrepancy struct {
	Kind        diff.Kind       `json:"kind"`
	Path        string          `json:"path"`
	Side        string          `json:"side,omitempty"`
	Left        json.RawMessage `json:"left,omitempty"`
	Right       json.RawMessage `json:"right,omitempty"`
	LeftLength  *int            `json:"left-length,omitempty"`
	RightLength *int            `json:"right-length,omitempty"`
	Index       *int            `json:"index,omitempty"`
	Message     string          `json:"message"`
}

// AttachmentChange is an upload or deletion needed on the destination.
type AttachmentChange struct {
	Op      attachment.Op `json:"op"`
	Name    string        `json:"name"`
	URL     string        `json:"url"`
	Count   int           `json:"count"`
	Message string        `json:"message"`
}

type Issue struct {
	Key           string             `json:"key"`
	Discrepancies []Discrepancy      `json:"discrepancies,omitempty"`
	Attachments   []AttachmentChange `json:"attachments,omitempty"`
	Error         string             `json:"error,omitempty"`
}

type Report struct {
	Success       bool          `json:"success"`
	Issues        []Issue       `json:"issues"`
	Compared      int           `json:"compared"`
	Skipped       int           `json:"skipped"`
	Failed        int           `json:"failed"`
	Discrepancies int           `json:"discrepancies"`
	Elapsed       string        `json:"elapsed"`
	Duration      time.Duration `json:"-"`
	options       format.Options
	forceColor    bool
}

// NewReport creates a report from comparison results. Labels name the sides
// in messages.
func NewReport(results []verify.Result, skipped int, elapsed time.Duration, labels Labels) Report {
	r := newReport(len(results), skipped, elapsed)

	for _, res := range results {
		issue := Issue{Key: res.Key}
		if res.Err != nil {
			issue.Error = res.Err.Error()
			r.Failed++
		}
		for _, d := range res.Discrepancies {
			issue.Discrepancies = append(issue.Discrepancies, convert(d, labels))
		}
		r.Discrepancies += len(res.Discrepancies)
		r.Issues = append(r.Issues, issue)
	}
	r.Success = r.Failed == 0 && r.Discrepancies == 0

	return r
}

// FromSummary creates a report for an issue range comparison.
func FromSummary(s verify.Summary) Report {
	return NewReport(s.Results, s.Skipped, s.Duration, DefaultLabels)
}

// FromAttachments creates a report for an attachment comparison. Every
// needed change counts as a discrepancy.
func FromAttachments(s attachment.Summary) Report {
	r := newReport(len(s.Results), s.Skipped, s.Duration)

	for _, res := range s.Results {
		issue := Issue{Key: res.Key}
		if res.Err != nil {
			issue.Error = res.Err.Error()
			r.Failed++
		}
		for _, c := range res.Changes {
			issue.Attachments = append(issue.Attachments, AttachmentChange{
				Op:      c.Op,
				Name:    c.Name,
				URL:     c.URL,
				Count:   c.Count,
				Message: c.String(),
			})
		}
		r.Discrepancies += len(res.Changes)
		r.Issues = append(r.Issues, issue)
	}
	r.Success = r.Failed == 0 && r.Discrepancies == 0

	return r
}

func newReport(compared, skipped int, elapsed time.Duration) Report {
	return Report{
		Issues:   make([]Issue, 0, compared),
		Compared: compared,
		Skipped:  skipped,
		Duration: elapsed,
		Elapsed:  durafmt.Parse(elapsed.Round(time.Millisecond)).LimitFirstN(2).String(),
	}
}

// WithForceColor returns a copy of the report that colors text output on
// every target. Otherwise only terminals get colors.
func (r Report) WithForceColor(force bool) Report {
	r.forceColor = force
	return r
}

func convert(d diff.Discrepancy, labels Labels) Discrepancy {
	out := Discrepancy{
		Kind:    d.Kind,
		Path:    d.Path,
		Message: Describe(d, labels),
	}
	if d.Side != "" {
		out.Side = labels.of(d.Side)
	}
	if d.Index >= 0 {
		index := d.Index
		out.Index = &index
	}

	switch d.Kind {
	case diff.LengthMismatch:
		l, r := d.LeftLen, d.RightLen
		out.LeftLength, out.RightLength = &l, &r
	case diff.Mismatch:
		out.Left = raw(d.Left)
		out.Right = raw(d.Right)
	default:
		if d.Left != nil {
			out.Left = raw(d.Left)
		}
		if d.Right != nil {
			out.Right = raw(d.Right)
		}
	}

	return out
}

func raw(n node.Node) json.RawMessage {
	if n == nil {
		n = node.Null{}
	}
	return json.RawMessage(node.MustCanonical(n))
}

// Describe renders a discrepancy as a single line.
func Describe(d diff.Discrepancy, labels Labels) string {
	switch d.Kind {
	case diff.MissingKey:
		return fmt.Sprintf("Missing key: %s (missing in %s) %s", d.Path, labels.of(d.Side), node.Format(d.Value()))
	case diff.Mismatch:
		if d.Index >= 0 {
			return fmt.Sprintf("Mismatched at index %d: %s %s %s", d.Index, d.Path, node.Format(d.Left), node.Format(d.Right))
		}
		return fmt.Sprintf("Mismatched: %s %s %s", d.Path, node.Format(d.Left), node.Format(d.Right))
	case diff.LengthMismatch:
		return fmt.Sprintf("Mismatched length: %s %d %d", d.Path, d.LeftLen, d.RightLen)
	case diff.ExtraListItem:
		return fmt.Sprintf("Extra list item (%s only): %s[%d] %s", labels.of(d.Side), d.Path, d.Index, node.Format(d.Value()))
	default:
		return d.String()
	}
}

// WriteAll writes the report to all the given targets.
func (r Report) WriteAll(targets []string, p format.TargetParser) (allErrors error) {
	if len(targets) == 0 {
		targets = append(targets, Text)
	}
	for _, targetName := range targets {
		target, err := p.Parse(targetName)
		if err != nil {
			allErrors = errors.Join(allErrors, err)
			continue
		}

		r.options = target.Options
		colored := !color.NoColor && (r.forceColor || target.IsTerminal())
		data, err := r.toFormat(target.Format, colored)
		if err != nil {
			allErrors = errors.Join(allErrors, err)
			continue
		}

		if !bytes.HasSuffix(data, []byte{'\n'}) {
			data = append(data, "\n"...)
		}

		if _, err := target.Write(data); err != nil {
			allErrors = errors.Join(allErrors, err)
		}
	}
	return
}

func (r *Report) toFormat(format string, colored bool) (data []byte, err error) {
	switch format {
	case JSON:
		data, err = json.Marshal(r.filtered())
	case YAML:
		data, err = yaml.Marshal(r.filtered())
	case Text:
		data, err = generateTextReport(r, colored)
	case Summary:
		data, err = json.Marshal(r.toSummary())
	default:
		return nil, fmt.Errorf("%q is not a valid report format", format)
	}
	return
}

// filtered drops the issues hidden by the output options.
func (r *Report) filtered() Report {
	out := *r
	out.Issues = make([]Issue, 0, len(r.Issues))
	for _, i := range r.Issues {
		if r.shown(i) {
			out.Issues = append(out.Issues, i)
		}
	}
	return out
}

func (r *Report) shown(i Issue) bool {
	switch {
	case len(i.Discrepancies) > 0, len(i.Attachments) > 0:
		return true
	case i.Error != "":
		return r.options.ShowErrors
	default:
		return r.options.ShowClean
	}
}

type summary struct {
	Success       bool                  `json:"success"`
	Compared      int                   `json:"compared"`
	Skipped       int                   `json:"skipped"`
	Failed        int                   `json:"failed"`
	Discrepancies int                   `json:"discrepancies"`
	Kinds         map[diff.Kind]int     `json:"kinds"`
	Attachments   map[attachment.Op]int `json:"attachments,omitempty"`
	Issues        map[string]int        `json:"issues"`
	Elapsed       string                `json:"elapsed"`
}

// toSummary returns the counts of the report without the details.
func (r *Report) toSummary() summary {
	s := summary{
		Success:       r.Success,
		Compared:      r.Compared,
		Skipped:       r.Skipped,
		Failed:        r.Failed,
		Discrepancies: r.Discrepancies,
		Kinds:         map[diff.Kind]int{},
		Attachments:   map[attachment.Op]int{},
		Issues:        map[string]int{},
		Elapsed:       r.Elapsed,
	}
	for _, i := range r.Issues {
		if n := len(i.Discrepancies) + len(i.Attachments); n > 0 {
			s.Issues[i.Key] = n
		}
		for _, d := range i.Discrepancies {
			s.Kinds[d.Kind]++
		}
		for _, a := range i.Attachments {
			s.Attachments[a.Op]++
		}
	}
	return s
}

// SummaryLine is the closing line of the text report.
func (r *Report) SummaryLine() string {
	line := fmt.Sprintf("Compared %s in %s: %s", plural(r.Compared, "record"), r.Elapsed, plural(r.Discrepancies, "discrepancy"))
	if r.Failed > 0 {
		line += fmt.Sprintf(", %d failed", r.Failed)
	}
	if r.Skipped > 0 {
		line += fmt.Sprintf(", %d skipped", r.Skipped)
	}
	return line
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	if word[len(word)-1] == 'y' {
		return fmt.Sprintf("%d %sies", n, word[:len(word)-1])
	}
	return fmt.Sprintf("%d %ss", n, word)
}

//go:embed templates/*.tmpl
var efs embed.FS

var kindColors = map[diff.Kind]*color.Color{
	diff.MissingKey:     color.New(color.FgYellow),
	diff.Mismatch:       color.New(color.FgRed),
	diff.LengthMismatch: color.New(color.FgRed),
	diff.ExtraListItem:  color.New(color.FgMagenta),
}

var opColors = map[attachment.Op]*color.Color{
	attachment.Add:    color.New(color.FgYellow),
	attachment.Remove: color.New(color.FgMagenta),
}

var (
	boldColor    = color.New(color.Bold)
	failureColor = color.New(color.FgRed, color.Bold)
)

// textFuncs are the template helpers, painting only when colored is set.
func textFuncs(colored bool) template.FuncMap {
	paint := func(c *color.Color, s string) string {
		if !colored || c == nil {
			return s
		}
		return c.Sprint(s)
	}
	return template.FuncMap{
		"colorize":   func(k diff.Kind, s string) string { return paint(kindColors[k], s) },
		"colorizeOp": func(op attachment.Op, s string) string { return paint(opColors[op], s) },
		"bold":       func(s string) string { return paint(boldColor, s) },
		"failure":    func(s string) string { return paint(failureColor, s) },
	}
}

func generateTextReport(r *Report, colored bool) ([]byte, error) {
	input := struct {
		Report  *Report
		Issues  []Issue
		Summary string
	}{
		Report:  r,
		Issues:  r.filtered().Issues,
		Summary: r.SummaryLine(),
	}

	tmpl, err := template.New("text_report.tmpl").Funcs(textFuncs(colored)).ParseFS(efs, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, input); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
