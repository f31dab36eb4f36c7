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

package utils

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// SetColorEnabled turns colored output on when stdout is a terminal, or
// unconditionally with forceColor. noColor wins over both.
func SetColorEnabled(noColor, forceColor bool) {
	switch {
	case noColor:
		color.NoColor = true
	case forceColor:
		color.NoColor = false
	default:
		color.NoColor = os.Getenv("TERM") == "dumb" ||
			!(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))
	}
}
