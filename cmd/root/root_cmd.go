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

package root

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	hd "github.com/MakeNowJust/heredoc"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/conforma/jira-migrate/internal/http"
	"github.com/conforma/jira-migrate/internal/logging"
)

var (
	quiet         bool = false
	verbose       bool = false
	debug         bool = false
	globalTimeout      = 30 * time.Minute
	logfile       string

	// Retry configuration flags
	retryMaxWait  time.Duration = 3 * time.Second
	retryMaxRetry int           = 3
	retryDuration time.Duration = 1 * time.Second
	retryFactor   float64       = 2.0
	retryJitter   float64       = 0.1

	OnExit func() = func() {}
)

type customDeadlineExceededError struct{}

func (customDeadlineExceededError) Error() string {
	return fmt.Sprintf("exceeded allowed execution time of %s, the timeout can be adjusted using the --timeout command line argument", globalTimeout)
}
func (customDeadlineExceededError) Timeout() bool   { return true }
func (customDeadlineExceededError) Temporary() bool { return true }

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jm",
		Short: "JIRA migration toolkit",

		Long: hd.Doc(`
			JIRA migration toolkit

			Prepares a JIRA export for import into another server and verifies the
			result. Usernames in the export are rewritten using a mapping file, and
			once the import is done every issue of the migrated project can be
			fetched from both servers and compared field by field.

			Differences that are expected after a migration, such as avatar URLs,
			internal ids, renamed users and rewritten links, are suppressed so the
			report only shows what needs attention. Each distinct difference is
			reported once even when it repeats on many issues.
		`),

		SilenceUsage: true,

		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logging.InitLogging(verbose, quiet, debug, logfile)

			// Apply retry configuration from CLI flags
			retryConfig := http.RetryConfig{
				MaxWait:  retryMaxWait,
				MaxRetry: retryMaxRetry,
				Duration: retryDuration,
				Factor:   retryFactor,
				Jitter:   retryJitter,
			}
			http.SetRetryConfig(retryConfig)

			// set a custom message for context.DeadlineExceeded error
			context.DeadlineExceeded = customDeadlineExceededError{}

			// Create a new context now that flags have been parsed so a
			// custom timeout can be used
			ctx := cmd.Context()
			var cancel context.CancelFunc
			if globalTimeout > 0 {
				ctx, cancel = context.WithTimeout(ctx, globalTimeout)
				log.Debugf("globalTimeout is %s", time.Duration(globalTimeout))
			} else {
				log.Debugf("globalTimeout is %d, no timeout used", globalTimeout)
			}
			cmd.SetContext(ctx)

			OnExit = sync.OnceFunc(func() {
				// perform resource cleanup
				if f, ok := log.StandardLogger().Out.(io.Closer); ok && f != io.Closer(os.Stderr) {
					f.Close()
				}
				if cancel != nil {
					cancel()
				}
			})
		},
	}

	setFlags(rootCmd)

	return rootCmd
}

func setFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", quiet, "less verbose output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", verbose, "more verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", debug, "same as verbose but also show function names and line numbers")
	rootCmd.PersistentFlags().DurationVar(&globalTimeout, "timeout", globalTimeout, "max overall execution duration")
	rootCmd.PersistentFlags().StringVar(&logfile, "logfile", "", "file to write the logging output. If not specified logging output will be written to stderr")

	// Retry configuration flags
	rootCmd.PersistentFlags().DurationVar(&retryMaxWait, "retry-max-wait", retryMaxWait, "maximum wait time between retries")
	rootCmd.PersistentFlags().IntVar(&retryMaxRetry, "retry-max-retry", retryMaxRetry, "maximum number of retry attempts")
	rootCmd.PersistentFlags().DurationVar(&retryDuration, "retry-duration", retryDuration, "base duration for exponential backoff calculation")
	rootCmd.PersistentFlags().Float64Var(&retryFactor, "retry-factor", retryFactor, "exponential backoff multiplier")
	rootCmd.PersistentFlags().Float64Var(&retryJitter, "retry-jitter", retryJitter, "randomness factor for backoff calculation (0.0-1.0)")
}
