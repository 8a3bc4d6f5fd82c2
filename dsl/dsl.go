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

// Package dsl defines the JSON form of an aspect declaration and its parser.
// The DSL carries everything an aspect definition needs except Go types:
// the aspect instance is referenced by bean name and resolved against a
// registry at parse time.
package dsl

// AspectDsl is the root of one aspect declaration.
type AspectDsl struct {
	// Name is the aspect name, used in diagnostics and advisor attribution.
	Name string `json:"name"`
	// Bean names the registry bean supplying the aspect instance.
	Bean string `json:"bean"`
	// Instantiation is "singleton" (default), "perTarget" or "perClause".
	Instantiation string `json:"instantiation"`
	// PerClause is the instantiation pointcut of lazy aspects.
	PerClause string `json:"perClause"`
	// Advice lists the advice bindings of the aspect.
	Advice []AdviceDsl `json:"advice"`
}

// AdviceDsl is one advice binding in the DSL.
type AdviceDsl struct {
	// Kind is one of around, before, after, afterReturning, afterThrowing or
	// pointcut.
	Kind string `json:"kind"`
	// Method names the advice method on the aspect instance. For kind
	// pointcut it names the declared pointcut.
	Method string `json:"method"`
	// Pointcut is the pointcut expression, or the declaration body for kind
	// pointcut.
	Pointcut string `json:"pointcut"`
	// Returning binds the result values of afterReturning advice to a
	// declared parameter name.
	Returning string `json:"returning"`
	// Throwing binds the observed error of afterThrowing advice to a
	// declared parameter name.
	Throwing string `json:"throwing"`
	// Params lists the declared parameter names of the advice method.
	Params []string `json:"params"`
}
