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

package http

import (
	"crypto/rand"
	"math"
	"math/big"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

var DefaultRetry = Retry{3 * time.Second, 3}

var DefaultBackoff = Backoff{1 * time.Second, 2.0, 0.1}

// RetryConfig holds the configuration for retry behavior
type RetryConfig struct {
	MaxWait  time.Duration
	MaxRetry int
	Duration time.Duration
	Factor   float64
	Jitter   float64
}

// GetRetryConfig returns the current retry configuration
func GetRetryConfig() RetryConfig {
	return RetryConfig{
		MaxWait:  DefaultRetry.MaxWait,
		MaxRetry: DefaultRetry.MaxRetry,
		Duration: DefaultBackoff.Duration,
		Factor:   DefaultBackoff.Factor,
		Jitter:   DefaultBackoff.Jitter,
	}
}

// SetRetryConfig updates the retry configuration
func SetRetryConfig(config RetryConfig) {
	DefaultRetry = Retry{
		MaxWait:  config.MaxWait,
		MaxRetry: config.MaxRetry,
	}
	DefaultBackoff = Backoff{
		Duration: config.Duration,
		Factor:   config.Factor,
		Jitter:   config.Jitter,
	}
}

type Retry struct {
	MaxWait  time.Duration
	MaxRetry int
}

// Backoff describes the wait between attempts: Duration grows by Factor on
// every attempt and is randomized by +/- Jitter (a fraction of the wait).
type Backoff struct {
	Duration time.Duration
	Factor   float64
	Jitter   float64
}

type retryTransport struct {
	base    http.RoundTripper
	retry   Retry
	backoff Backoff
}

// NewRetryTransport wraps base with retries for the responses a busy JIRA
// returns under load: 429, 408, 502, 503 and 504. Connection errors of
// idempotent requests are retried as well.
func NewRetryTransport(base http.RoundTripper) http.RoundTripper {
	return NewRetryTransportWithConfig(base, DefaultRetry, DefaultBackoff)
}

// NewRetryTransportWithConfig creates a retry transport with custom retry and backoff settings
func NewRetryTransportWithConfig(base http.RoundTripper, retry Retry, backoff Backoff) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &retryTransport{
		base:    base,
		retry:   retry,
		backoff: backoff,
	}
}

// NewClient returns an HTTP client using the retry transport with the
// current global configuration.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: NewRetryTransport(nil),
		Timeout:   timeout,
	}
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusRequestTimeout, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func idempotent(req *http.Request) bool {
	switch req.Method {
	case "", http.MethodGet, http.MethodHead, http.MethodOptions:
		return req.Body == nil || req.GetBody != nil
	}
	return false
}

func (r *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var lastErr error
	var lastResp *http.Response

	for attempt := 0; attempt <= r.retry.MaxRetry; attempt++ {
		if attempt > 0 && log.IsLevelEnabled(log.TraceLevel) {
			log.Tracef("HTTP retry attempt %d/%d for %s %s", attempt, r.retry.MaxRetry, req.Method, req.URL.String())
		}

		resp, err := r.base.RoundTrip(req)
		if err != nil {
			lastErr = err
			lastResp = nil
			if !idempotent(req) || req.Context().Err() != nil {
				return nil, err
			}
			log.Debugf("HTTP request %s %s failed: %v", req.Method, req.URL.String(), err)
		} else if retryableStatus(resp.StatusCode) {
			lastResp = resp
			lastErr = nil
		} else {
			if attempt > 0 {
				log.Debugf("HTTP request succeeded after %d attempts", attempt+1)
			}
			return resp, nil
		}

		if attempt == r.retry.MaxRetry {
			break
		}

		backoff := r.calculateBackoff(attempt)
		if log.IsLevelEnabled(log.TraceLevel) {
			log.Tracef("HTTP retry backoff: attempt=%d, backoff=%v", attempt+1, backoff)
		}

		// the body of a response we are about to retry is never read
		if lastResp != nil {
			lastResp.Body.Close()
		}

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(backoff):
		}

		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			req.Body = body
		}
	}

	if lastResp != nil {
		log.Debugf("HTTP request failed after %d attempts, last status: %d", r.retry.MaxRetry+1, lastResp.StatusCode)
	}
	return lastResp, lastErr
}

// calculateBackoff computes the exponential backoff duration with jitter
func (r *retryTransport) calculateBackoff(attempt int) time.Duration {
	if attempt == 0 {
		return r.backoff.Duration
	}

	duration := time.Duration(float64(r.backoff.Duration) * math.Pow(r.backoff.Factor, float64(attempt)))

	if r.backoff.Jitter > 0 {
		jitter := float64(duration) * r.backoff.Jitter
		randomBytes := make([]byte, 8)
		_, err := rand.Read(randomBytes)
		if err == nil {
			// scale to [-1, 1)
			randomInt := new(big.Int).SetBytes(randomBytes)
			randomFloat := new(big.Float).SetInt(randomInt)
			randomFloat.Quo(randomFloat, new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 63)))
			randomValue, _ := randomFloat.Float64()
			randomValue = randomValue - 1
			duration += time.Duration(jitter * randomValue)
		}
	}

	if duration > r.retry.MaxWait {
		duration = r.retry.MaxWait
	}

	return duration
}
