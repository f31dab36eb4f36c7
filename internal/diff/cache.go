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

package diff

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/conforma/jira-migrate/internal/node"
)

// SignatureCache records discrepancy signatures that were already reported.
// It only grows and is safe for concurrent use, so one instance can be
// shared by every worker of a run to silence mismatches that repeat on
// every record.
type SignatureCache struct {
	Data  sync.Map
	count atomic.Int64
}

func NewSignatureCache() *SignatureCache {
	return &SignatureCache{}
}

// Add inserts sig and reports whether it was not present before. Adding an
// existing signature is a no-op.
func (c *SignatureCache) Add(sig string) bool {
	if _, loaded := c.Data.LoadOrStore(sig, struct{}{}); loaded {
		return false
	}
	c.count.Add(1)
	return true
}

func (c *SignatureCache) Contains(sig string) bool {
	_, ok := c.Data.Load(sig)
	return ok
}

// Len returns the number of stored signatures.
func (c *SignatureCache) Len() int {
	return int(c.count.Load())
}

// signature field separator, cannot occur in canonical JSON output
const sep = "\x00"

func mismatchSignature(path string, left, right node.Node) string {
	return strings.Join([]string{"m", path, node.Signature(left), node.Signature(right)}, sep)
}

func missingKeySignature(path string, value node.Node) string {
	return strings.Join([]string{"k", path, node.Signature(value)}, sep)
}
