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

// Package cmd assembles the jm command line.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/conforma/jira-migrate/cmd/compare"
	"github.com/conforma/jira-migrate/cmd/remap"
	"github.com/conforma/jira-migrate/cmd/root"
)

var RootCmd *cobra.Command

func init() {
	RootCmd = root.NewRootCmd()
	RootCmd.AddCommand(compare.CompareCmd)
	RootCmd.AddCommand(remap.RemapCmd)
}
