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

package engine

import "context"

// The current-proxy slot is call-scoped, not ambient: a proxy built with
// expose-proxy derives a child context carrying itself and hands that
// context to the target and the advice chain. Nesting gives save/restore
// for free, and nothing leaks across goroutines.

type currentProxyKey struct{}

// WithCurrentProxy returns a context exposing the given proxy to advised
// code. The previous value, if any, stays reachable in the parent context.
func WithCurrentProxy(ctx context.Context, proxy interface{}) context.Context {
	return context.WithValue(ctx, currentProxyKey{}, proxy)
}

// CurrentProxy returns the proxy serving the current call, for targets that
// need to route self-invocations back through the advice chain. Only
// available when the proxy was built with WithExposeProxy and the target
// method accepts a context.
func CurrentProxy(ctx context.Context) (interface{}, bool) {
	if ctx == nil {
		return nil, false
	}
	proxy := ctx.Value(currentProxyKey{})
	return proxy, proxy != nil
}
