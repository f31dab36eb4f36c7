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

package remap

import (
	"fmt"

	hd "github.com/MakeNowJust/heredoc"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/conforma/jira-migrate/internal/mapping"
	"github.com/conforma/jira-migrate/internal/remap"
	"github.com/conforma/jira-migrate/internal/utils"
)

var RemapCmd *cobra.Command

func init() {
	RemapCmd = NewRemapCmd()
}

func NewRemapCmd() *cobra.Command {
	data := struct {
		mapping    string
		exclude    string
		destURL    string
		outputFile string
	}{}

	cmd := &cobra.Command{
		Use:   "remap <export.json>",
		Short: "Rewrite the usernames of a JSON JIRA export",

		Long: hd.Doc(`
			Rewrite the usernames of a JSON JIRA export

			Usernames are replaced in the user list, projects, components, issues,
			comments and issue history. Mentions like [~name] in descriptions and
			comment bodies are rewritten too.

			Users listed in the --exclude file are removed from the export, and
			issues that were ever moved to the "Hidden" security level are dropped.

			Every user of the export must be either mapped or excluded. Otherwise
			nothing is written and the command fails listing the profile links of
			the missing users on the destination server.
		`),

		Example: hd.Doc(`
			Remap an export and write the result to a file:

			  jm remap jira.json --mapping users.txt --exclude excluded.txt \
			    --dest-url https://issues.apache.org/jira --output-file out.json
		`),

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			fs := utils.FS(cmd.Context())

			names, err := mapping.Load(fs, data.mapping)
			if err != nil {
				return err
			}
			exclude := map[string]bool{}
			if data.exclude != "" {
				if exclude, err = mapping.LoadList(fs, data.exclude); err != nil {
					return err
				}
			}

			content, err := afero.ReadFile(fs, args[0])
			if err != nil {
				return fmt.Errorf("failed to read export %q: %w", args[0], err)
			}
			export, err := remap.Decode(content)
			if err != nil {
				return fmt.Errorf("unable to parse export %q: %w", args[0], err)
			}

			remapped, err := remap.New(names, exclude, data.destURL).Remap(export)
			if err != nil {
				return err
			}

			out, err := remap.Encode(remapped)
			if err != nil {
				return err
			}

			if data.outputFile == "" {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			if err := afero.WriteFile(fs, data.outputFile, out, 0o644); err != nil {
				return fmt.Errorf("failed to write %q: %w", data.outputFile, err)
			}
			log.Infof("Wrote remapped export to %s", data.outputFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&data.mapping, "mapping", data.mapping, "path to the username mapping file, one old=new pair per line")
	cmd.Flags().StringVar(&data.exclude, "exclude", data.exclude, "path to a file listing the users to leave out, one per line")
	cmd.Flags().StringVar(&data.destURL, "dest-url", data.destURL, "base URL of the destination JIRA server, used in the profile links of unmapped users")
	cmd.Flags().StringVarP(&data.outputFile, "output-file", "o", data.outputFile, "write the export to a file instead of stdout")

	if err := cmd.MarkFlagRequired("mapping"); err != nil {
		panic(err)
	}

	return cmd
}
