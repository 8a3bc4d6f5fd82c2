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

import (
	"context"
	"fmt"
	"reflect"

	"github.com/gofrs/uuid/v5"

	"github.com/aspectgo/aspectgo/api/types"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

var _ types.ProceedingJoinpoint = (*methodInvocation)(nil)

// methodInvocation is the interceptor chain of one call. It is built fresh
// per invocation and discarded afterwards; only the matched interceptor
// list is cached across calls.
//
// index points at the next interceptor to run. Proceed hands a copy with
// the index advanced to that interceptor, so re-invoking Proceed on the
// same join point re-runs the remainder of the chain. That is what lets
// Around advice retry.
type methodInvocation struct {
	ctx          context.Context
	id           string
	proxy        *Proxy
	entry        *dispatchEntry
	target       interface{}
	targetType   reflect.Type
	args         []interface{}
	interceptors []types.MethodInterceptor
	index        int
}

func newInvocation(ctx context.Context, proxy *Proxy, entry *dispatchEntry, target interface{},
	targetType reflect.Type, args []interface{}, interceptors []types.MethodInterceptor) *methodInvocation {

	id, _ := uuid.NewV4()
	return &methodInvocation{
		ctx:          ctx,
		id:           id.String(),
		proxy:        proxy,
		entry:        entry,
		target:       target,
		targetType:   targetType,
		args:         args,
		interceptors: interceptors,
	}
}

func (inv *methodInvocation) ID() string {
	return inv.id
}

func (inv *methodInvocation) Context() context.Context {
	return inv.ctx
}

func (inv *methodInvocation) Method() types.MethodInfo {
	return types.MethodInfo{
		Name:          inv.entry.name,
		DeclaringType: inv.entry.iface,
		Type:          inv.entry.methodType,
	}
}

func (inv *methodInvocation) Args() []interface{} {
	return inv.args
}

func (inv *methodInvocation) Target() interface{} {
	return inv.target
}

func (inv *methodInvocation) TargetType() reflect.Type {
	return inv.targetType
}

func (inv *methodInvocation) Proxy() interface{} {
	return inv.proxy
}

func (inv *methodInvocation) Proceed() ([]interface{}, error) {
	if inv.index < len(inv.interceptors) {
		next := *inv
		next.index = inv.index + 1
		return inv.interceptors[inv.index].Invoke(&next)
	}
	return callTarget(inv.ctx, inv.entry, inv.receiver(), inv.args)
}

func (inv *methodInvocation) ProceedWith(args []interface{}) ([]interface{}, error) {
	next := *inv
	next.args = args
	return next.Proceed()
}

// receiver picks the object the real call lands on: the introduced delegate
// for introduction methods, the acquired target otherwise.
func (inv *methodInvocation) receiver() interface{} {
	if inv.entry.delegate != nil {
		return inv.entry.delegate
	}
	return inv.target
}

// callTarget performs the real reflective call. Argument count and type
// problems are dispatch failures and surface as ErrInvocation; whatever the
// target itself returns or panics with passes through untouched.
func callTarget(ctx context.Context, entry *dispatchEntry, receiver interface{}, args []interface{}) ([]interface{}, error) {
	if receiver == nil {
		return nil, fmt.Errorf("no target available for method %q: %w", entry.name, types.ErrInvocation)
	}
	m := reflect.ValueOf(receiver).MethodByName(entry.name)
	if !m.IsValid() {
		return nil, fmt.Errorf("target %T has no method %q: %w", receiver, entry.name, types.ErrInvocation)
	}
	mt := m.Type()

	offset := 0
	if entry.hasCtx {
		offset = 1
	}
	if len(args) != mt.NumIn()-offset {
		return nil, fmt.Errorf("method %q takes %d arguments, got %d: %w",
			entry.name, mt.NumIn()-offset, len(args), types.ErrInvocation)
	}
	in := make([]reflect.Value, mt.NumIn())
	if entry.hasCtx {
		if ctx == nil {
			ctx = context.Background()
		}
		in[0] = reflect.ValueOf(ctx)
	}
	for i, arg := range args {
		pt := mt.In(i + offset)
		if arg == nil {
			if !nilable(pt) {
				return nil, fmt.Errorf("nil argument %d for method %q of type %s: %w",
					i, entry.name, pt, types.ErrInvocation)
			}
			in[i+offset] = reflect.Zero(pt)
			continue
		}
		at := reflect.TypeOf(arg)
		if !at.AssignableTo(pt) {
			return nil, fmt.Errorf("argument %d for method %q is %s, want %s: %w",
				i, entry.name, at, pt, types.ErrInvocation)
		}
		in[i+offset] = reflect.ValueOf(arg)
	}

	out := m.Call(in)

	var results []interface{}
	var callErr error
	for i, v := range out {
		if i == len(out)-1 && v.Type() == errorType {
			if !v.IsNil() {
				callErr = v.Interface().(error)
			}
			continue
		}
		results = append(results, v.Interface())
	}
	return results, callErr
}

// nilable reports whether nil is a valid value of the type.
func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return true
	default:
		return false
	}
}
