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

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// The types in this file form the advice model: a join point describes one
// intercepted call, an interceptor is the unit of behavior that runs around
// it, and AdviceKind tags which flavor of interceptor an aspect method
// compiles into.

// AdviceKind identifies the flavor of an advice binding. The zero value is
// KindAround. The declared order of the constants is also the execution
// precedence used when sorting advisors compiled from the same aspect:
// Around < Before < After < AfterReturning < AfterThrowing.
type AdviceKind int

const (
	// KindAround fully wraps the rest of the chain. Around advice may skip,
	// retry or replace the underlying call and owns the final result.
	KindAround AdviceKind = iota
	// KindBefore runs before the rest of the chain. A non-nil error aborts
	// the call before the target is reached.
	KindBefore
	// KindAfter runs after the rest of the chain, on both the normal and the
	// error path.
	KindAfter
	// KindAfterReturning runs only if the rest of the chain returned without
	// error, and receives the result values.
	KindAfterReturning
	// KindAfterThrowing runs only if the rest of the chain returned an error
	// matching the binding's error filter.
	KindAfterThrowing
	// KindPointcut marks a pure pointcut declaration. It never compiles into
	// an advisor; other bindings of the same aspect reference it by name.
	KindPointcut
	// KindIntroduction adds a new interface to the proxied contract instead
	// of intercepting an existing method.
	KindIntroduction
)

var adviceKindNames = map[AdviceKind]string{
	KindAround:         "around",
	KindBefore:         "before",
	KindAfter:          "after",
	KindAfterReturning: "afterReturning",
	KindAfterThrowing:  "afterThrowing",
	KindPointcut:       "pointcut",
	KindIntroduction:   "introduction",
}

func (k AdviceKind) String() string {
	if name, ok := adviceKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("adviceKind(%d)", int(k))
}

// ParseAdviceKind resolves a textual advice kind, as used by the JSON DSL.
// Matching is case-insensitive.
func ParseAdviceKind(s string) (AdviceKind, error) {
	for k, name := range adviceKindNames {
		if strings.EqualFold(name, s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown advice kind %q: %w", s, ErrConfiguration)
}

// MethodInfo describes the method of a join point: its name, the interface
// that declares it and its function type. DeclaringType and Type come from
// the proxy's advertised contract, not from the concrete target.
type MethodInfo struct {
	Name          string
	DeclaringType reflect.Type
	Type          reflect.Type
}

// Joinpoint is one intercepted call. It is valid only for the duration of
// that call; advice must not retain it.
type Joinpoint interface {
	// ID returns the unique id of this invocation.
	ID() string
	// Context returns the call context. When the proxy exposes itself, the
	// current proxy is reachable through this context.
	Context() context.Context
	// Method describes the intercepted method.
	Method() MethodInfo
	// Args returns the call arguments, excluding a leading context.Context
	// parameter if the method declares one.
	Args() []interface{}
	// Target returns the real instance acquired for this call.
	Target() interface{}
	// TargetType returns the most-derived type behind the target source.
	TargetType() reflect.Type
	// Proxy returns the substitute object serving this call.
	Proxy() interface{}
}

// ProceedingJoinpoint is the join point handed to interceptors. Proceed runs
// the remainder of the chain and finally the target method. Calling Proceed
// again re-runs the remainder, which is how Around advice retries.
type ProceedingJoinpoint interface {
	Joinpoint
	// Proceed executes the rest of the interceptor chain with the current
	// arguments and returns the non-error results and the error outcome.
	Proceed() ([]interface{}, error)
	// ProceedWith executes the rest of the chain with replacement arguments.
	ProceedWith(args []interface{}) ([]interface{}, error)
}

// MethodInterceptor is the runtime form of advice: one entry of the
// interceptor chain. Implementations decide whether and how to call
// inv.Proceed and what result to propagate. Errors returned without
// translation must be the verbatim error of the inner chain.
type MethodInterceptor interface {
	Invoke(inv ProceedingJoinpoint) ([]interface{}, error)
}

// RawTargetAccess is a marker. An advertised interface that embeds it opts
// out of the this-return rewrite: methods declared on such an interface
// returning the target keep returning the raw target, never the proxy.
type RawTargetAccess interface {
	RawTargetAccess()
}
