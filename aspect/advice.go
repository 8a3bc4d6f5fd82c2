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

package aspect

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/aspectgo/aspectgo/api/types"
)

// Reflective advice variants. Each variant adapts one advice method of the
// aspect instance into a chain interceptor. The before phase runs in chain
// order and the after phase in reverse order purely through nesting: every
// variant wraps inv.Proceed().

var (
	joinpointType           = reflect.TypeOf((*types.Joinpoint)(nil)).Elem()
	proceedingJoinpointType = reflect.TypeOf((*types.ProceedingJoinpoint)(nil)).Elem()
	errorType               = reflect.TypeOf((*error)(nil)).Elem()
	resultsType             = reflect.TypeOf([]interface{}(nil))
)

// adviceMethod holds what all variants share: the aspect method to call and
// the binding metadata assigned by the advisor factory.
type adviceMethod struct {
	factory          types.AspectInstanceFactory
	methodName       string
	aspectName       string
	declarationOrder int
	paramNames       []string
}

// call invokes the named advice method on the aspect instance.
func (a *adviceMethod) call(args ...interface{}) ([]reflect.Value, error) {
	instance, err := a.factory.AspectInstance()
	if err != nil {
		return nil, err
	}
	m := reflect.ValueOf(instance).MethodByName(a.methodName)
	if !m.IsValid() {
		return nil, fmt.Errorf("advice method %s.%s not found on instance: %w",
			a.aspectName, a.methodName, types.ErrInvocation)
	}
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(m.Type().In(i))
		} else {
			in[i] = reflect.ValueOf(arg)
		}
	}
	return m.Call(in), nil
}

// errOf extracts a trailing error return, nil when absent or nil.
func errOf(out []reflect.Value) error {
	if len(out) == 0 {
		return nil
	}
	last := out[len(out)-1]
	if !last.Type().Implements(errorType) {
		return nil
	}
	if last.IsNil() {
		return nil
	}
	return last.Interface().(error)
}

// beforeAdvice runs the aspect method before delegating to the rest of the
// chain. A non-nil error from the advice aborts the call.
type beforeAdvice struct {
	adviceMethod
}

func (a *beforeAdvice) Invoke(inv types.ProceedingJoinpoint) ([]interface{}, error) {
	out, err := a.call(types.Joinpoint(inv))
	if err != nil {
		return nil, err
	}
	if adviceErr := errOf(out); adviceErr != nil {
		return nil, adviceErr
	}
	return inv.Proceed()
}

// afterAdvice runs the aspect method after the rest of the chain, on both
// the normal and the error path, and never alters the outcome.
type afterAdvice struct {
	adviceMethod
}

func (a *afterAdvice) Invoke(inv types.ProceedingJoinpoint) ([]interface{}, error) {
	results, err := inv.Proceed()
	if _, callErr := a.call(types.Joinpoint(inv)); callErr != nil {
		if err == nil {
			return results, callErr
		}
	}
	return results, err
}

// afterReturningAdvice runs the aspect method only when the rest of the
// chain returned without error, passing it the result values.
type afterReturningAdvice struct {
	adviceMethod
	returning string
}

func (a *afterReturningAdvice) Invoke(inv types.ProceedingJoinpoint) ([]interface{}, error) {
	results, err := inv.Proceed()
	if err != nil {
		return results, err
	}
	if _, callErr := a.call(types.Joinpoint(inv), results); callErr != nil {
		return results, callErr
	}
	return results, nil
}

// afterThrowingAdvice runs the aspect method only when the rest of the chain
// failed with a matching error. The advice may translate the error by
// returning a replacement; returning nil keeps the original, which then
// propagates unchanged.
type afterThrowingAdvice struct {
	adviceMethod
	throwing     string
	throwingType reflect.Type
}

func (a *afterThrowingAdvice) Invoke(inv types.ProceedingJoinpoint) ([]interface{}, error) {
	results, err := inv.Proceed()
	if err == nil || !a.matches(err) {
		return results, err
	}
	out, callErr := a.call(types.Joinpoint(inv), err)
	if callErr != nil {
		return nil, callErr
	}
	if translated := errOf(out); translated != nil {
		return nil, translated
	}
	return results, err
}

// matches walks the unwrap chain looking for the bound error type.
func (a *afterThrowingAdvice) matches(err error) bool {
	if a.throwingType == nil {
		return true
	}
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		if t := reflect.TypeOf(cur); t != nil && t.AssignableTo(a.throwingType) {
			return true
		}
	}
	return false
}

// aroundAdvice hands the join point to the aspect method, which owns the
// result: it may proceed zero, one or several times and return whatever it
// likes.
type aroundAdvice struct {
	adviceMethod
}

func (a *aroundAdvice) Invoke(inv types.ProceedingJoinpoint) ([]interface{}, error) {
	out, err := a.call(inv)
	if err != nil {
		return nil, err
	}
	var results []interface{}
	if v, ok := out[0].Interface().([]interface{}); ok {
		results = v
	}
	return results, errOf(out)
}

// instantiationAdvice is the zero-effect advice of the synthetic advisor
// prepended for lazily-instantiated aspects. Its only job is to force
// construction of the aspect instance on the first matching invocation.
type instantiationAdvice struct {
	factory types.AspectInstanceFactory
}

func (a *instantiationAdvice) Invoke(inv types.ProceedingJoinpoint) ([]interface{}, error) {
	if _, err := a.factory.AspectInstance(); err != nil {
		return nil, err
	}
	return inv.Proceed()
}

// validateAdviceMethod checks the advice method exists on the aspect type
// and has the canonical shape of its kind.
func validateAdviceMethod(aspectType reflect.Type, binding *types.AdviceBinding) error {
	m, ok := aspectType.MethodByName(binding.Method)
	if !ok {
		return fmt.Errorf("aspect type %s has no method %q: %w",
			aspectType, binding.Method, types.ErrConfiguration)
	}
	// Skip the receiver.
	ft := m.Type
	numIn := ft.NumIn() - 1
	in := func(i int) reflect.Type { return ft.In(i + 1) }

	fail := func(want string) error {
		return fmt.Errorf("advice method %s.%s must have signature %s: %w",
			aspectType, binding.Method, want, types.ErrConfiguration)
	}
	switch binding.Kind {
	case types.KindBefore:
		if numIn != 1 || in(0) != joinpointType {
			return fail("func(types.Joinpoint) error")
		}
	case types.KindAfter:
		if numIn != 1 || in(0) != joinpointType {
			return fail("func(types.Joinpoint)")
		}
	case types.KindAround:
		if numIn != 1 || in(0) != proceedingJoinpointType ||
			ft.NumOut() != 2 || ft.Out(0) != resultsType || ft.Out(1) != errorType {
			return fail("func(types.ProceedingJoinpoint) ([]interface{}, error)")
		}
	case types.KindAfterReturning:
		if numIn != 2 || in(0) != joinpointType || in(1) != resultsType {
			return fail("func(types.Joinpoint, []interface{})")
		}
	case types.KindAfterThrowing:
		if numIn != 2 || in(0) != joinpointType || in(1) != errorType {
			return fail("func(types.Joinpoint, error) error")
		}
	default:
		return fmt.Errorf("unsupported advice kind %s on method %q: %w",
			binding.Kind, binding.Method, types.ErrConfiguration)
	}
	return nil
}

// calculateArgumentBindings validates the declared binding names against the
// advice method's parameter names, once, at compile time. Call-time binding
// then needs no name lookups.
func calculateArgumentBindings(aspectType reflect.Type, binding *types.AdviceBinding, names []string) error {
	m, _ := aspectType.MethodByName(binding.Method)
	numIn := m.Type.NumIn() - 1
	if names != nil && len(names) != numIn {
		return fmt.Errorf("aspect %s method %q declares %d parameter names for %d parameters: %w",
			aspectType, binding.Method, len(names), numIn, types.ErrConfiguration)
	}
	checkBound := func(kind, bound string) error {
		if names == nil {
			return fmt.Errorf("%s binding %q on %s.%s needs parameter names, none available: %w",
				kind, bound, aspectType, binding.Method, types.ErrConfiguration)
		}
		if len(names) < 2 || names[1] != bound {
			return fmt.Errorf("%s binding %q does not match a parameter name of %s.%s: %w",
				kind, bound, aspectType, binding.Method, types.ErrConfiguration)
		}
		return nil
	}
	if binding.Kind == types.KindAfterReturning && binding.Returning != "" {
		return checkBound("returning", binding.Returning)
	}
	if binding.Kind == types.KindAfterThrowing && binding.Throwing != "" {
		return checkBound("throwing", binding.Throwing)
	}
	return nil
}
