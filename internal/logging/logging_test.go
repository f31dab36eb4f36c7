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

//go:build unit

package logging

import (
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestInitLogging(t *testing.T) {
	t.Cleanup(func() {
		InitLogging(false, false, false, "")
		log.SetReportCaller(false)
	})

	tests := []struct {
		name                  string
		verbose, quiet, debug bool
		expected              log.Level
	}{
		{"default", false, false, false, log.WarnLevel},
		{"verbose", true, false, false, log.InfoLevel},
		{"quiet", false, true, false, log.ErrorLevel},
		{"debug", false, false, true, log.DebugLevel},
		{"debug beats quiet", false, true, true, log.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			InitLogging(tt.verbose, tt.quiet, tt.debug, "")
			assert.Equal(t, tt.expected, log.GetLevel())
		})
	}
}

func TestInitLoggingToFile(t *testing.T) {
	t.Cleanup(func() { InitLogging(false, false, false, "") })

	path := filepath.Join(t.TempDir(), "jm.log")
	InitLogging(false, false, false, path)
	log.Warn("hello")

	assert.FileExists(t, path)
}
