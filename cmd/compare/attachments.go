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

	"github.com/conforma/jira-migrate/internal/attachment"
	"github.com/conforma/jira-migrate/internal/config"
	"github.com/conforma/jira-migrate/internal/report"
	"github.com/conforma/jira-migrate/internal/utils"
	"github.com/conforma/jira-migrate/internal/verify"
)

func compareAttachmentsCmd(newServer serverFactory) *cobra.Command {
	data := struct {
		reportOptions
		sourceURL string
		destURL   string
		export    string
		project   string
		from      int
		to        int
		workers   int
	}{
		from:    1,
		workers: verify.DefaultWorkers,
	}

	cmd := &cobra.Command{
		Use:   "attachments",
		Short: "Compare the attachments of a project on two JIRA servers",

		Long: hd.Doc(`
			Compare the attachments of a project on two JIRA servers

			Every attachment of the issues numbered from --from up to, but not
			including, --to is downloaded from both servers. Attachments are equal
			when they have the same file name and the same SHA-512 checksum.

			The output lists, per issue, the uploads and deletions that would make
			the destination match the source: "Add N times: URL" for a source file
			the destination is missing, "Remove URL" for a destination file with no
			source counterpart. An issue missing from a server has no attachments.

			With --export the source attachments are taken from a JSON project
			export, and only the issues of the export are compared. The files are
			still downloaded from their URLs in the export.

			Credentials are read from the JM_SOURCE_USER, JM_SOURCE_TOKEN,
			JM_DESTINATION_USER and JM_DESTINATION_TOKEN environment variables.
		`),

		Example: hd.Doc(`
			Compare the attachments of IMPALA-1 to IMPALA-5999:

			  jm compare attachments --project IMPALA --to 6000 \
			    --source-url https://issues.cloudera.org \
			    --dest-url https://issues.apache.org/jira

			Check the attachments listed in an export:

			  jm compare attachments --project IMPALA --to 6000 --export impala.json \
			    --source-url https://issues.cloudera.org \
			    --dest-url https://issues.apache.org/jira
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

			profile, err := config.Load(utils.FS(ctx), data.profile)
			if err != nil {
				return err
			}

			sourceURL := firstNonEmpty(data.sourceURL, profile.Source.URL)
			destURL := firstNonEmpty(data.destURL, profile.Destination.URL)
			if sourceURL == "" || destURL == "" {
				return errors.New("both --source-url and --dest-url are required, either as flags or in the profile")
			}

			source, err := newServer(sourceURL, profile.Source)
			if err != nil {
				return err
			}
			destination, err := newServer(destURL, profile.Destination)
			if err != nil {
				return err
			}

			opts := attachment.Options{
				Range: verify.Range{
					Project: data.project,
					From:    data.from,
					To:      data.to,
					Skip:    profile.Skipped,
					Workers: data.workers,
				},
				Source:           source,
				SourceFiles:      source,
				Destination:      destination,
				DestinationFiles: destination,
			}

			if data.export != "" {
				export, err := attachment.LoadExport(utils.FS(ctx), data.export)
				if err != nil {
					return err
				}
				opts.Source = export
				opts.Skip = func(n int) bool {
					return !export.Contains(data.project, n) || profile.Skipped(n)
				}
			}

			log.WithFields(log.Fields{
				"project": data.project,
				"from":    data.from,
				"to":      data.to,
				"workers": data.workers,
				"export":  data.export,
			}).Info("Comparing attachments")

			summary, runErr := attachment.Run(ctx, opts)

			if err := data.write(cmd, report.FromAttachments(summary)); err != nil && runErr == nil {
				return err
			}
			return runErr
		},
	}

	data.addFlags(cmd)

	cmd.Flags().StringVar(&data.sourceURL, "source-url", data.sourceURL, "base URL of the source JIRA server")
	cmd.Flags().StringVar(&data.destURL, "dest-url", data.destURL, "base URL of the destination JIRA server")
	cmd.Flags().StringVar(&data.export, "export", data.export, hd.Doc(`
		path to a JSON project export listing the source attachments`))
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
