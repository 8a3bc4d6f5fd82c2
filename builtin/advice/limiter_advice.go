/*
 * Copyright 2024 The AspectGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package advice

import (
	"errors"
	"sync/atomic"

	"github.com/aspectgo/aspectgo/api/types"
)

// ErrConcurrencyLimitReached is returned to the caller when the number of
// in-flight advised calls hits the configured maximum.
var ErrConcurrencyLimitReached = errors.New("concurrency limit reached")

var _ types.MethodInterceptor = (*ConcurrencyLimiterAdvice)(nil)

// ConcurrencyLimiterAdvice caps the number of calls inside the chain at the
// same time. Counting uses atomic compare-and-swap, so the interceptor adds
// no lock to the call path.
type ConcurrencyLimiterAdvice struct {
	Max          int64
	currentCount int64
}

// NewConcurrencyLimiterAdvice creates a limiter admitting at most max
// concurrent calls.
func NewConcurrencyLimiterAdvice(max int) *ConcurrencyLimiterAdvice {
	return &ConcurrencyLimiterAdvice{Max: int64(max)}
}

func (a *ConcurrencyLimiterAdvice) Invoke(inv types.ProceedingJoinpoint) ([]interface{}, error) {
	if !a.incrementIfBelow() {
		return nil, ErrConcurrencyLimitReached
	}
	defer atomic.AddInt64(&a.currentCount, -1)
	return inv.Proceed()
}

// Current returns the number of calls currently inside the chain.
func (a *ConcurrencyLimiterAdvice) Current() int64 {
	return atomic.LoadInt64(&a.currentCount)
}

func (a *ConcurrencyLimiterAdvice) incrementIfBelow() bool {
	for {
		current := atomic.LoadInt64(&a.currentCount)
		if current >= a.Max {
			return false
		}
		if atomic.CompareAndSwapInt64(&a.currentCount, current, current+1) {
			return true
		}
	}
}
