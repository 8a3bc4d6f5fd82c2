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

// An aspect definition groups advice bindings over one Go type. It is the
// declarative input of the advisor factory: each binding names a method of
// the aspect type, tags it with an advice kind and attaches a pointcut
// expression. Definitions are owned by configuration and read-only here.

// Instantiation is the aspect instantiation policy.
type Instantiation int

const (
	// InstantiationSingleton shares one aspect instance across all targets.
	InstantiationSingleton Instantiation = iota
	// InstantiationPerTarget creates the aspect instance lazily, on the
	// first invocation matching the per-clause pointcut.
	InstantiationPerTarget
	// InstantiationPerClause creates the aspect instance lazily per
	// matching clause.
	InstantiationPerClause
)

// IsLazy reports whether the policy defers aspect construction to the first
// matching invocation.
func (i Instantiation) IsLazy() bool {
	return i == InstantiationPerTarget || i == InstantiationPerClause
}

// AspectMetadata identifies an aspect: its name, its Go type and its
// instantiation policy. PerClause holds the pointcut expression that forces
// instantiation for lazy policies; empty means "any advised call".
type AspectMetadata struct {
	Name          string
	Type          reflect.Type
	Instantiation Instantiation
	PerClause     string
}

// AdviceBinding declares one candidate method of an aspect type.
//
//   - Method names the advice method on the aspect type. For KindPointcut it
//     names the declared pointcut instead, referenced by other bindings as
//     "Method()".
//   - Expression is the pointcut expression text. For KindPointcut it is the
//     declaration body.
//   - Returning/Throwing carry the bound name for the returned values or the
//     observed error; they are propagated only when non-blank and validated
//     against Params at compile time.
//   - ThrowingType optionally narrows KindAfterThrowing to errors whose type
//     matches (directly or anywhere in their unwrap chain).
//   - Params lists the declared parameter names of the advice method, in
//     order. Go reflection cannot recover parameter names, so bindings carry
//     them; a ParameterNameResolver may supply them from elsewhere.
type AdviceBinding struct {
	Kind         AdviceKind
	Method       string
	Expression   string
	Returning    string
	Throwing     string
	ThrowingType reflect.Type
	Params       []string
}

// IntroductionBinding declares an introduced interface on an aspect.
// DefaultImpl constructs the delegate backing the interface on each proxy;
// it is mandatory.
type IntroductionBinding struct {
	Field       string
	Interface   reflect.Type
	DefaultImpl func() interface{}
}

// AspectDefinition is a complete aspect declaration: metadata, advice
// bindings and introduction fields.
type AspectDefinition struct {
	Metadata      AspectMetadata
	Bindings      []AdviceBinding
	Introductions []IntroductionBinding
}

// PointcutExpression looks up the body of a named pure pointcut declaration.
func (d *AspectDefinition) PointcutExpression(name string) (string, bool) {
	for _, b := range d.Bindings {
		if b.Kind == KindPointcut && b.Method == name {
			return b.Expression, true
		}
	}
	return "", false
}

// AspectInstanceFactory yields the aspect instance on demand. Implementations
// may be eager singletons or defer construction; the core never owns the
// instance lifecycle.
type AspectInstanceFactory interface {
	// AspectInstance returns the aspect instance, constructing it if needed.
	AspectInstance() (interface{}, error)
	// Metadata returns the metadata of the aspect this factory serves.
	Metadata() *AspectMetadata
}

// ParameterNameResolver recovers advice-method parameter names, best effort.
// A nil result means the names are unavailable; bindings that need names
// (returning/throwing) then fail compilation unless the binding declares
// them itself.
type ParameterNameResolver interface {
	NamesFor(binding *AdviceBinding) []string
}

// DeclaredParameterNameResolver reads parameter names straight from the
// binding declaration. It is the default resolver.
type DeclaredParameterNameResolver struct{}

func (DeclaredParameterNameResolver) NamesFor(binding *AdviceBinding) []string {
	return binding.Params
}
