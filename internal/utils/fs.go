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
	"context"

	"github.com/spf13/afero"
)

type ioContextKey int

const fsKey ioContextKey = 0

// FS returns the filesystem stored in the context, or the OS filesystem if
// none was set.
func FS(ctx context.Context) afero.Fs {
	if ctx == nil {
		return afero.NewOsFs()
	}

	if fs, ok := ctx.Value(fsKey).(afero.Fs); ok {
		return fs
	}

	return afero.NewOsFs()
}

// WithFS stores fs in the context, tests use it to substitute an in-memory
// filesystem.
func WithFS(ctx context.Context, fs afero.Fs) context.Context {
	return context.WithValue(ctx, fsKey, fs)
}
