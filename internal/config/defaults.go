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

package config

import (
	"fmt"
	"sort"

	"github.com/spf13/viper"
)

var defaultIgnorePaths = []string{
	"priority.iconUrl",
	"comment.comments.self",
	"comment.comments.id",
	"resolution.description",
	"fixVersions.self",
	"fixVersions.id",
	"versions.self",
	"versions.id",
	"issuetype.iconUrl",
	"reporter.emailAddress",
	"project.id",
	"assignee.emailAddress",
	"comment.comments.updateAuthor.emailAddress",
	"comment.comments.author.emailAddress",
	"creator",
	"issuetype.avatarId",
	"project.self",
	"status.description",
	"resolution.id",
	"resolution.self",
	"components.self",
	"components.id",
	"comment.comments.updated",
	"issuetype.self",
	"issuetype.id",
	// checked by name and checksum in jm compare attachments
	"attachment",
}

var defaultIgnoreKeys = []string{"16x16", "24x24", "32x32", "48x48", "timeZone", "displayName"}

var defaultSubstitutions = []map[string]any{
	{"old": "issues.cloudera.org/browse/HUE", "new": "HUE_PLACEHOLDER_ASF"},
	{"old": "issues.cloudera.org", "new": "issues-test.apache.org/jira"},
	{"old": "HUE_PLACEHOLDER_ASF", "new": "issues.cloudera.org/browse/HUE"},
}

var defaultNameContexts = []string{"[~{}]"}

var defaultExemptPaths = []string{"description"}

var defaultRecasePaths = []string{"assignee.key", "reporter.key"}

// fields whose id is the same on both servers
var sameFields = []string{
	"versions", "assignee", "comment", "components", "created", "creator",
	"description", "duedate", "environment", "fixVersions", "thumbnail",
	"issuetype", "issuekey", "labels", "issuelinks", "priority", "project",
	"reporter", "resolution", "resolutiondate", "security", "status",
	"subtasks", "summary", "votes", "watches", "workratio",
}

var customFields = map[int]int{
	10055: 12311123,
	10053: 12311120,
	10052: 12311121,
	10054: 12311122,
	10021: 12310291,
	10020: 12310290,
	10023: 12310293,
	10060: 12310320,
}

var defaultSkipIssues = []int{335, 566, 830, 854}

func defaultFields() []map[string]any {
	fields := make([]map[string]any, 0, len(sameFields)+len(customFields))
	for _, f := range sameFields {
		fields = append(fields, map[string]any{"source": f, "destination": f})
	}

	ids := make([]int, 0, len(customFields))
	for id := range customFields {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fields = append(fields, map[string]any{
			"source":      fmt.Sprintf("customfield_%d", id),
			"destination": fmt.Sprintf("customfield_%d", customFields[id]),
		})
	}
	return fields
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ignore_paths", defaultIgnorePaths)
	v.SetDefault("ignore_keys", defaultIgnoreKeys)
	v.SetDefault("substitutions", defaultSubstitutions)
	v.SetDefault("name_contexts", defaultNameContexts)
	v.SetDefault("exempt_paths", defaultExemptPaths)
	v.SetDefault("recase_paths", defaultRecasePaths)
	v.SetDefault("fields", defaultFields())
	v.SetDefault("skip_issues", defaultSkipIssues)
}
