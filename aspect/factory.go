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

// Package aspect compiles aspect definitions into advisors.
//
// An AdvisorFactory turns one types.AspectDefinition plus an instance
// factory into an ordered advisor list: one advisor per advice binding,
// plus a synthetic instantiation advisor for lazily-instantiated aspects
// and one advisor per introduction field. The resulting advisors feed the
// proxy engine.
package aspect

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/aspectgo/aspectgo/api/types"
)

// kindPrecedence orders advisors compiled from the same aspect. Lower runs
// earlier. Only real advice kinds appear here; pure pointcut declarations
// are filtered before sorting.
var kindPrecedence = map[types.AdviceKind]int{
	types.KindAround:         0,
	types.KindBefore:         1,
	types.KindAfter:          2,
	types.KindAfterReturning: 3,
	types.KindAfterThrowing:  4,
}

// AdvisorFactory compiles aspect definitions into advisors. It is cheap to
// construct and safe to reuse; compilation is expected to run during
// single-threaded setup.
type AdvisorFactory struct {
	config types.Config
}

// NewAdvisorFactory creates a factory using the config's pointcut evaluator
// and parameter name resolver.
func NewAdvisorFactory(config types.Config) *AdvisorFactory {
	return &AdvisorFactory{config: config}
}

// CompileAdvisors compiles all advice bindings of the definition, in source
// declaration order after the fixed advice-kind comparator. Introduction
// advisors follow; for lazily-instantiated aspects a synthetic instantiation
// advisor is prepended. Compilation is idempotent: the same definition
// always yields advisors equal in length, order and pointcut expression.
func (f *AdvisorFactory) CompileAdvisors(def *types.AspectDefinition, instanceFactory types.AspectInstanceFactory) ([]types.Advisor, error) {
	if err := f.validate(def); err != nil {
		return nil, err
	}
	lazyFactory := lazySingleton(instanceFactory)

	var advisors []types.Advisor
	for _, binding := range f.candidateBindings(def) {
		binding := binding
		advisor, err := f.advisor(def, lazyFactory, &binding, len(advisors))
		if err != nil {
			return nil, err
		}
		if advisor != nil {
			advisors = append(advisors, advisor)
		}
	}

	// If it's a lazily-instantiated aspect, emit the dummy instantiating
	// advisor so the instance materializes on the first matching call.
	if len(advisors) > 0 && def.Metadata.Instantiation.IsLazy() {
		instantiation, err := f.syntheticInstantiationAdvisor(def, lazyFactory)
		if err != nil {
			return nil, err
		}
		advisors = append([]types.Advisor{instantiation}, advisors...)
	}

	for i := range def.Introductions {
		advisor, err := f.introductionAdvisor(def, &def.Introductions[i])
		if err != nil {
			return nil, err
		}
		advisors = append(advisors, advisor)
	}
	return advisors, nil
}

// validate rejects aspect definitions the factory cannot compile: wrong type
// kind, bindings naming missing methods, malformed advice signatures.
func (f *AdvisorFactory) validate(def *types.AspectDefinition) error {
	if def == nil {
		return fmt.Errorf("nil aspect definition: %w", types.ErrConfiguration)
	}
	t := def.Metadata.Type
	if t == nil {
		return fmt.Errorf("aspect %q has no type: %w", def.Metadata.Name, types.ErrConfiguration)
	}
	elem := t
	if elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}
	if elem.Kind() != reflect.Struct {
		return fmt.Errorf("aspect %q type %s is not a struct type: %w",
			def.Metadata.Name, t, types.ErrConfiguration)
	}
	for i := range def.Bindings {
		b := &def.Bindings[i]
		if b.Kind == types.KindPointcut {
			continue
		}
		if err := validateAdviceMethod(f.methodOwner(t), b); err != nil {
			return err
		}
	}
	return nil
}

// methodOwner returns the type advice methods are looked up on. Methods with
// pointer receivers only exist on the pointer type.
func (f *AdvisorFactory) methodOwner(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Ptr {
		return t
	}
	return reflect.PtrTo(t)
}

// candidateBindings filters out pure pointcut declarations and sorts the
// rest: advice-kind precedence first, method name as tie-break. The index
// after sorting becomes the declaration order.
func (f *AdvisorFactory) candidateBindings(def *types.AspectDefinition) []types.AdviceBinding {
	var candidates []types.AdviceBinding
	for _, b := range def.Bindings {
		if b.Kind != types.KindPointcut {
			candidates = append(candidates, b)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := kindPrecedence[candidates[i].Kind], kindPrecedence[candidates[j].Kind]
		if pi != pj {
			return pi < pj
		}
		return candidates[i].Method < candidates[j].Method
	})
	return candidates
}

// advisor compiles one binding. The pointcut is scoped to the aspect so it
// may reference the aspect's named pointcut declarations; a malformed
// expression fails the whole compilation.
func (f *AdvisorFactory) advisor(def *types.AspectDefinition, instanceFactory types.AspectInstanceFactory,
	binding *types.AdviceBinding, declarationOrder int) (types.Advisor, error) {

	pc, err := f.config.PointcutEvaluator.Compile(binding.Expression, def)
	if err != nil {
		return nil, err
	}
	advice, err := f.advice(def, instanceFactory, binding, declarationOrder)
	if err != nil {
		return nil, err
	}
	return &types.DefaultAdvisor{
		AdvisorPointcut: pc,
		AdvisorAdvice:   advice,
		Aspect:          def.Metadata.Name,
		DeclOrder:       declarationOrder,
	}, nil
}

// advice builds the advice variant for the binding's kind and performs the
// argument-binding calculation eagerly, so name mismatches fail here and
// not at call time.
func (f *AdvisorFactory) advice(def *types.AspectDefinition, instanceFactory types.AspectInstanceFactory,
	binding *types.AdviceBinding, declarationOrder int) (types.MethodInterceptor, error) {

	names := f.config.ParameterNameResolver.NamesFor(binding)
	owner := f.methodOwner(def.Metadata.Type)
	if err := calculateArgumentBindings(owner, binding, names); err != nil {
		return nil, err
	}
	base := adviceMethod{
		factory:          instanceFactory,
		methodName:       binding.Method,
		aspectName:       def.Metadata.Name,
		declarationOrder: declarationOrder,
		paramNames:       names,
	}
	switch binding.Kind {
	case types.KindAround:
		return &aroundAdvice{adviceMethod: base}, nil
	case types.KindBefore:
		return &beforeAdvice{adviceMethod: base}, nil
	case types.KindAfter:
		return &afterAdvice{adviceMethod: base}, nil
	case types.KindAfterReturning:
		a := &afterReturningAdvice{adviceMethod: base}
		if binding.Returning != "" {
			a.returning = binding.Returning
		}
		return a, nil
	case types.KindAfterThrowing:
		a := &afterThrowingAdvice{adviceMethod: base, throwingType: binding.ThrowingType}
		if binding.Throwing != "" {
			a.throwing = binding.Throwing
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unsupported advice kind %s on method %q: %w",
			binding.Kind, binding.Method, types.ErrConfiguration)
	}
}

// syntheticInstantiationAdvisor builds the zero-effect advisor that forces
// aspect construction. Its pointcut is the aspect's per-clause pointcut, or
// every advised call when the definition declares none.
func (f *AdvisorFactory) syntheticInstantiationAdvisor(def *types.AspectDefinition,
	instanceFactory types.AspectInstanceFactory) (types.Advisor, error) {

	var pc types.Pointcut
	if def.Metadata.PerClause != "" {
		compiled, err := f.config.PointcutEvaluator.Compile(def.Metadata.PerClause, def)
		if err != nil {
			return nil, err
		}
		pc = compiled
	}
	return &types.DefaultAdvisor{
		AdvisorPointcut: pc,
		AdvisorAdvice:   &instantiationAdvice{factory: instanceFactory},
		Aspect:          def.Metadata.Name,
		DeclOrder:       -1,
	}, nil
}
