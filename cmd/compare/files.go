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
	"fmt"
	"time"

	hd "github.com/MakeNowJust/heredoc"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/conforma/jira-migrate/internal/diff"
	"github.com/conforma/jira-migrate/internal/node"
	"github.com/conforma/jira-migrate/internal/report"
	"github.com/conforma/jira-migrate/internal/utils"
	"github.com/conforma/jira-migrate/internal/verify"
)

func compareFilesCmd() *cobra.Command {
	data := struct {
		reportOptions
		path        string
		unordered   bool
		ignorePaths []string
		ignoreKeys  []string
	}{}

	cmd := &cobra.Command{
		Use:   "files <left> <right>",
		Short: "Compare two JSON or YAML documents",

		Long: hd.Doc(`
			Compare two JSON or YAML documents

			The documents are compared with the same rules used for issues: the left
			document is normalized as a source record, suppressions from the
			comparison profile apply and each difference is reported once.

			With --unordered both documents must be lists, which are compared as
			multisets: a length difference, or the first differing element after
			sorting, is reported.
		`),

		Example: hd.Doc(`
			Compare the fields of an issue exported from both servers:

			  jm compare files cloudera.json apache.json --mapping users.txt

			Compare two lists of labels regardless of their order:

			  jm compare files left.yaml right.yaml --unordered --path labels
		`),

		Args: cobra.ExactArgs(2),

		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			ctx := cmd.Context()
			fs := utils.FS(ctx)

			left, err := readDocument(fs, args[0])
			if err != nil {
				return err
			}
			right, err := readDocument(fs, args[1])
			if err != nil {
				return err
			}

			profile, names, err := data.load(ctx)
			if err != nil {
				return err
			}
			profile.IgnorePaths = append(profile.IgnorePaths, data.ignorePaths...)
			profile.IgnoreKeys = append(profile.IgnoreKeys, data.ignoreKeys...)

			var found []diff.Discrepancy
			if data.unordered {
				l, lok := left.(node.Sequence)
				r, rok := right.(node.Sequence)
				if !lok || !rok {
					return fmt.Errorf("%w: --unordered needs two lists, got %s and %s", node.ErrMalformedInput, left.Kind(), right.Kind())
				}
				if d := diff.CompareOrderInsensitive(data.path, l, r); d != nil {
					found = append(found, *d)
				}
			} else {
				suppress, normalize := profile.Policies(names, nil)
				found = diff.NewComparator(suppress, normalize).Compare(data.path, left, right)
			}

			result := verify.Result{
				Key:           fmt.Sprintf("%s with %s", args[0], args[1]),
				Discrepancies: found,
			}
			r := report.NewReport([]verify.Result{result}, 0, time.Since(start), report.Labels{Left: "left", Right: "right"})

			return data.write(cmd, r)
		},
	}

	data.addFlags(cmd)
	data.addMappingFlag(cmd)

	cmd.Flags().StringVar(&data.path, "path", data.path, hd.Doc(`
		path of the compared documents within their record, e.g. "comment". Ignore
		paths and normalization rules are matched against it`))
	cmd.Flags().BoolVar(&data.unordered, "unordered", data.unordered,
		"compare two lists ignoring the order of their elements")
	cmd.Flags().StringSliceVar(&data.ignorePaths, "ignore-path", data.ignorePaths,
		"dotted path to ignore in addition to the profile. May be used multiple times.")
	cmd.Flags().StringSliceVar(&data.ignoreKeys, "ignore-key", data.ignoreKeys,
		"object key to ignore at any depth in addition to the profile. May be used multiple times.")

	return cmd
}

func readDocument(fs afero.Fs, path string) (node.Node, error) {
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}

	n, err := node.ParseDocument(content)
	if err != nil {
		return nil, fmt.Errorf("unable to parse %q: %w", path, err)
	}
	return n, nil
}
