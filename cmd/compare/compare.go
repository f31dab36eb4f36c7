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

package compare

import (
	"context"
	"errors"

	hd "github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/conforma/jira-migrate/internal/attachment"
	"github.com/conforma/jira-migrate/internal/config"
	"github.com/conforma/jira-migrate/internal/format"
	"github.com/conforma/jira-migrate/internal/jira"
	"github.com/conforma/jira-migrate/internal/mapping"
	"github.com/conforma/jira-migrate/internal/report"
	"github.com/conforma/jira-migrate/internal/utils"
	"github.com/conforma/jira-migrate/internal/verify"
)

var CompareCmd *cobra.Command

func init() {
	CompareCmd = NewCompareCmd()
	CompareCmd.AddCommand(compareIssuesCmd(newJiraFetcher))
	CompareCmd.AddCommand(compareFilesCmd())
	CompareCmd.AddCommand(compareAttachmentsCmd(newJiraServer))
}

func NewCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare",
		Short: "Compare migrated records with their originals",
		Long: hd.Doc(`
			Compare migrated records with their originals.

			Differences are part of the output, they do not make the command fail
			unless --fail-on-diff is given.
		`),
	}
}

var errDiscrepancies = errors.New("discrepancies found")

// fetcherFactory creates the client used to fetch the issues of a server.
type fetcherFactory func(url string, server config.Server) (verify.Fetcher, error)

func newJiraFetcher(url string, server config.Server) (verify.Fetcher, error) {
	c, err := newJiraClient(url, server)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// serverFactory creates the client used to list and download attachments.
type serverFactory func(url string, server config.Server) (attachmentServer, error)

type attachmentServer interface {
	attachment.Lister
	attachment.Opener
}

func newJiraServer(url string, server config.Server) (attachmentServer, error) {
	c, err := newJiraClient(url, server)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newJiraClient(url string, server config.Server) (*jira.Client, error) {
	var opts []jira.Option
	if server.User != "" {
		opts = append(opts, jira.WithBasicAuth(server.User, server.Token))
	}
	return jira.NewClient(url, opts...)
}

// reportOptions are the flags shared by the compare subcommands.
type reportOptions struct {
	profile    string
	mapping    string
	output     []string
	noColor    bool
	forceColor bool
	failOnDiff bool
}

func (o *reportOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.profile, "profile", o.profile, hd.Doc(`
		path to a YAML or JSON comparison profile. Settings it does not list keep
		their built-in defaults`))

	cmd.Flags().StringSliceVar(&o.output, "output", o.output, hd.Doc(`
		write output to a file in a specific format. Use empty string path for stdout.
		May be used multiple times. Possible formats are: text, json, yaml, summary.
		Additional options can be provided in key=value form following the question
		mark (?) sign, for example: --output text=diff.txt?show-clean=true
	`))

	cmd.Flags().BoolVar(&o.noColor, "no-color", o.noColor, hd.Doc(`
		Disable color when using text output even when the current terminal supports it`))

	cmd.Flags().BoolVar(&o.forceColor, "color", o.forceColor, hd.Doc(`
		Enable color when using text output even when the current terminal does not support it`))

	cmd.Flags().BoolVar(&o.failOnDiff, "fail-on-diff", o.failOnDiff,
		"Return non-zero status when any discrepancy is found.")
}

func (o *reportOptions) addMappingFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.mapping, "mapping", o.mapping, hd.Doc(`
		path to the username mapping file, one old=new pair per line`))
}

// load reads the profile and the username mapping.
func (o *reportOptions) load(ctx context.Context) (*config.Profile, mapping.Names, error) {
	fs := utils.FS(ctx)

	profile, err := config.Load(fs, o.profile)
	if err != nil {
		return nil, nil, err
	}

	var names mapping.Names
	if o.mapping != "" {
		if names, err = mapping.Load(fs, o.mapping); err != nil {
			return nil, nil, err
		}
	}

	return profile, names, nil
}

func (o *reportOptions) write(cmd *cobra.Command, r report.Report) error {
	p := format.NewTargetParser(
		report.Text,
		format.Options{ShowErrors: true},
		cmd.OutOrStdout(),
		utils.FS(cmd.Context()),
	)
	utils.SetColorEnabled(o.noColor, o.forceColor)

	if err := r.WithForceColor(o.forceColor).WriteAll(o.output, p); err != nil {
		return err
	}

	if o.failOnDiff && !r.Success {
		return errDiscrepancies
	}
	return nil
}
