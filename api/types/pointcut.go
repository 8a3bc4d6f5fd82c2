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

// Pointcut is a predicate over (method, target type) pairs. Once a pointcut
// answered for a given pair, it must keep answering the same: matching is
// deterministic and free of hidden mutable state, so match results may be
// cached and recomputed redundantly under races.
type Pointcut interface {
	// Expression returns the expression text this pointcut was built from.
	Expression() string
	// Matches reports whether an advisor guarded by this pointcut applies
	// to the given method on the given target type.
	Matches(method MethodInfo, targetType reflect.Type) bool
}

// PointcutEvaluator compiles pointcut expression text into a matcher. The
// scope definition, when non-nil, provides named pointcut declarations the
// expression may reference as "name()".
type PointcutEvaluator interface {
	Compile(expression string, scope *AspectDefinition) (Pointcut, error)
}
