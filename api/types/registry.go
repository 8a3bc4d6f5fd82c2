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

package types

import "reflect"

// Registry is the narrow view of the surrounding component container the
// core consumes. The container owns bean construction and lifecycle; the
// core only enumerates, probes and fetches.
type Registry interface {
	// LookupBeansOfType returns the names of all registered beans whose
	// declared type is assignable to t, in registration order.
	LookupBeansOfType(t reflect.Type) []string
	// IsUnderConstruction reports whether the named bean is currently being
	// built. Fetching such a bean would deadlock on a circular dependency.
	IsUnderConstruction(name string) bool
	// GetBean returns the named bean, building it first if necessary.
	// Construction failures surface as *ConstructionError.
	GetBean(name string) (interface{}, error)
}

// TargetSource supplies the real instance behind a proxy. Static sources
// return the same instance forever and are never released; non-static
// sources are released exactly once per invocation, even on error.
type TargetSource interface {
	// TargetType returns the type of instances this source supplies.
	TargetType() reflect.Type
	// GetTarget acquires an instance for the duration of one call.
	GetTarget() (interface{}, error)
	// ReleaseTarget gives an acquired instance back to the source.
	ReleaseTarget(target interface{}) error
	// IsStatic reports whether GetTarget always returns the same instance.
	IsStatic() bool
}
