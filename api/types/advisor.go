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

// Advisor pairs a pointcut with advice. The proxy engine matches the
// pointcut against each call and, on a match, inserts the advice into the
// interceptor chain.
type Advisor interface {
	// Pointcut returns the predicate selecting the calls this advisor
	// applies to. A nil pointcut matches everything.
	Pointcut() Pointcut
	// Advice returns the runtime interceptor of this advisor.
	Advice() MethodInterceptor
	// Order returns the execution order across aspects, the smaller the
	// value, the higher the priority.
	Order() int
}

// AspectAdvisor is an advisor compiled from an aspect definition. It carries
// the source aspect name and the declaration order assigned by the advisor
// factory after the fixed advice-kind comparator.
type AspectAdvisor interface {
	Advisor
	AspectName() string
	DeclarationOrder() int
}

// IntroductionAdvisor adds an interface to the proxied contract. The proxy
// engine creates one delegate per proxy and dispatches calls on the
// introduced interface to it.
type IntroductionAdvisor interface {
	Advisor
	// Interface returns the introduced interface type.
	Interface() reflect.Type
	// NewDelegate builds the default implementation backing the introduced
	// interface on one proxy.
	NewDelegate() interface{}
}

// DefaultAdvisor is the plain Advisor implementation, used both for advisors
// registered directly in a bean registry and as the base of compiled aspect
// advisors.
type DefaultAdvisor struct {
	AdvisorPointcut Pointcut
	AdvisorAdvice   MethodInterceptor
	AdvisorOrder    int
	Aspect          string
	DeclOrder       int
}

// NewAdvisor creates an advisor from a pointcut and an interceptor. A nil
// pointcut matches every call.
func NewAdvisor(pointcut Pointcut, advice MethodInterceptor, order int) *DefaultAdvisor {
	return &DefaultAdvisor{AdvisorPointcut: pointcut, AdvisorAdvice: advice, AdvisorOrder: order}
}

func (a *DefaultAdvisor) Pointcut() Pointcut {
	return a.AdvisorPointcut
}

func (a *DefaultAdvisor) Advice() MethodInterceptor {
	return a.AdvisorAdvice
}

func (a *DefaultAdvisor) Order() int {
	return a.AdvisorOrder
}

func (a *DefaultAdvisor) AspectName() string {
	return a.Aspect
}

func (a *DefaultAdvisor) DeclarationOrder() int {
	return a.DeclOrder
}
