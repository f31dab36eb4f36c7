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
	"errors"
	"fmt"

	hd "github.com/MakeNowJust/heredoc"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/conforma/jira-migrate/internal/diff"
	"github.com/conforma/jira-migrate/internal/report"
	"github.com/conforma/jira-migrate/internal/verify"
)

func compareIssuesCmd(newFetcher fetcherFactory) *cobra.Command {
	data := struct {
		reportOptions
		sourceURL string
		destURL   string
		project   string
		from      int
		to        int
		workers   int
	}{
		from:    1,
		workers: verify.DefaultWorkers,
	}

	cmd := &cobra.Command{
		Use:   "issues",
		Short: "Compare the issues of a project on two JIRA servers",

		Long: hd.Doc(`
			Compare the issues of a project on two JIRA servers

			Every issue numbered from --from up to, but not including, --to is
			fetched from both servers and the fields listed in the comparison
			profile are compared. Issue numbers known to be missing from the source
			are skipped.

			Values are normalized before they are compared: usernames are mapped
			using the --mapping file, known link rewrites are applied and the
			case of user keys is recovered. Paths and keys listed in the profile
			are ignored, and a difference already reported for an earlier issue is
			not reported again.

			Credentials are read from the JM_SOURCE_USER, JM_SOURCE_TOKEN,
			JM_DESTINATION_USER and JM_DESTINATION_TOKEN environment variables.
		`),

		Example: hd.Doc(`
			Compare IMPALA-1 to IMPALA-5999 using a username mapping:

			  jm compare issues --project IMPALA --to 6000 --mapping users.txt \
			    --source-url https://issues.cloudera.org \
			    --dest-url https://issues-test.apache.org/jira

			Write a JSON report to a file and a short summary to stdout:

			  jm compare issues --project IMPALA --to 6000 --output json=report.json --output summary
		`),

		Args: cobra.NoArgs,

		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if data.to <= data.from {
				return fmt.Errorf("--to (%d) must be greater than --from (%d)", data.to, data.from)
			}
			return nil
		},

		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			profile, names, err := data.load(ctx)
			if err != nil {
				return err
			}

			sourceURL := firstNonEmpty(data.sourceURL, profile.Source.URL)
			destURL := firstNonEmpty(data.destURL, profile.Destination.URL)
			if sourceURL == "" || destURL == "" {
				return errors.New("both --source-url and --dest-url are required, either as flags or in the profile")
			}

			source, err := newFetcher(sourceURL, profile.Source)
			if err != nil {
				return err
			}
			destination, err := newFetcher(destURL, profile.Destination)
			if err != nil {
				return err
			}

			suppress, normalize := profile.Policies(names, diff.NewSignatureCache())
			comparer := verify.NewIssueComparer(diff.NewComparator(suppress, normalize), profile.Fields)

			log.WithFields(log.Fields{
				"project": data.project,
				"from":    data.from,
				"to":      data.to,
				"workers": data.workers,
			}).Info("Comparing issues")

			summary, runErr := verify.Run(ctx, verify.Options{
				Project:     data.project,
				From:        data.from,
				To:          data.to,
				Skip:        profile.Skipped,
				Workers:     data.workers,
				Source:      source,
				Destination: destination,
				Comparer:    comparer,
			})

			// an interrupted run still reports what was compared
			if err := data.write(cmd, report.FromSummary(summary)); err != nil && runErr == nil {
				return err
			}
			return runErr
		},
	}

	data.addFlags(cmd)
	data.addMappingFlag(cmd)

	cmd.Flags().StringVar(&data.sourceURL, "source-url", data.sourceURL, "base URL of the source JIRA server")
	cmd.Flags().StringVar(&data.destURL, "dest-url", data.destURL, "base URL of the destination JIRA server")
	cmd.Flags().StringVar(&data.project, "project", data.project, "key of the migrated project, e.g. IMPALA")
	cmd.Flags().IntVar(&data.from, "from", data.from, "number of the first issue to compare")
	cmd.Flags().IntVar(&data.to, "to", data.to, "number after the last issue to compare")
	cmd.Flags().IntVar(&data.workers, "workers", data.workers, hd.Doc(`
		Number of issues compared concurrently.`))

	if err := cmd.MarkFlagRequired("project"); err != nil {
		panic(err)
	}
	if err := cmd.MarkFlagRequired("to"); err != nil {
		panic(err)
	}

	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
