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

package logging

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// InitLogging sets the level and destination of the standard logger.
// Warnings are shown by default, --verbose adds info, --debug adds debug
// output with caller information, --quiet only keeps errors. When both quiet
// and a louder flag are given the louder one wins.
func InitLogging(verbose, quiet, debug bool, logfile string) {
	level := log.WarnLevel
	switch {
	case debug:
		level = log.DebugLevel
		log.SetReportCaller(true)
	case verbose:
		level = log.InfoLevel
	case quiet:
		level = log.ErrorLevel
	}
	log.SetLevel(level)

	log.SetFormatter(&log.TextFormatter{
		DisableTimestamp: !debug,
	})

	if logfile != "" {
		if f, err := os.OpenFile(logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600); err == nil {
			log.SetOutput(f)
		} else {
			log.Warnf("unable to open log file %q, logging to stderr: %v", logfile, err)
			log.SetOutput(os.Stderr)
		}
	} else {
		log.SetOutput(os.Stderr)
	}
}
