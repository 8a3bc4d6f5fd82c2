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

// Package pointcut implements the pointcut expression DSL on top of
// expr-lang expressions.
//
// An expression is evaluated against the join point environment and must
// yield a boolean:
//
//	`method` the method name, e.g. method == "DoWork"
//	`type` the target type name, e.g. type == "Service"
//	`package` the target package path
//	`declaring` the name of the interface declaring the method
//	`bean` the registry name of the target type, for bean()-style designators
//
// Example: `type == "Service" && method startsWith "Do"`.
//
// An expression compiled with an aspect scope may reference the aspect's
// pure pointcut declarations by name, e.g. `anyService() && method == "Save"`.
package pointcut

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/aspectgo/aspectgo/api/types"
)

var _ types.PointcutEvaluator = (*Evaluator)(nil)
var _ types.Pointcut = (*ExprPointcut)(nil)

// maxRefDepth bounds named pointcut reference expansion, cycles included.
const maxRefDepth = 8

var refPattern = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\(\)`)

// Evaluator compiles pointcut expression text into matchers. The optional
// registry backs the `bean` variable.
type Evaluator struct {
	Registry types.Registry
}

// NewEvaluator creates an evaluator without bean designator support.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// NewEvaluatorWithRegistry creates an evaluator whose `bean` variable
// resolves target types against the given registry.
func NewEvaluatorWithRegistry(registry types.Registry) *Evaluator {
	return &Evaluator{Registry: registry}
}

// Compile resolves named pointcut references against the scope and compiles
// the expression. Malformed expressions fail here, so an advisor guarded by
// a bad pointcut never compiles instead of silently never matching.
func (e *Evaluator) Compile(expression string, scope *types.AspectDefinition) (types.Pointcut, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, fmt.Errorf("empty pointcut expression: %w", types.ErrConfiguration)
	}
	resolved, err := resolveRefs(expression, scope)
	if err != nil {
		return nil, err
	}
	// The builtin type() function would otherwise shadow the `type`
	// environment variable at compile time.
	program, err := expr.Compile(resolved, expr.AllowUndefinedVariables(), expr.DisableBuiltin("type"), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid pointcut expression %q: %v: %w", expression, err, types.ErrConfiguration)
	}
	return &ExprPointcut{
		expression: expression,
		registry:   e.Registry,
		program:    program,
	}, nil
}

// resolveRefs textually expands name() references to the bodies of the
// scope's pure pointcut declarations. Unknown names are left untouched so
// expr functions keep working.
func resolveRefs(expression string, scope *types.AspectDefinition) (string, error) {
	if scope == nil {
		return expression, nil
	}
	current := expression
	for depth := 0; depth < maxRefDepth; depth++ {
		replaced := false
		next := refPattern.ReplaceAllStringFunc(current, func(ref string) string {
			name := strings.TrimSuffix(ref, "()")
			if body, ok := scope.PointcutExpression(name); ok {
				replaced = true
				return "(" + body + ")"
			}
			return ref
		})
		if !replaced {
			return next, nil
		}
		current = next
	}
	return "", fmt.Errorf("pointcut reference cycle in %q: %w", expression, types.ErrConfiguration)
}

// ExprPointcut is an expr-backed pointcut. It is immutable once built and
// matching is a pure function of (method, target type).
type ExprPointcut struct {
	expression string
	registry   types.Registry
	program    *vm.Program
}

func (p *ExprPointcut) Expression() string {
	return p.expression
}

func (p *ExprPointcut) Matches(method types.MethodInfo, targetType reflect.Type) bool {
	out, err := vm.Run(p.program, p.env(method, targetType))
	if err != nil {
		return false
	}
	result, ok := out.(bool)
	return ok && result
}

func (p *ExprPointcut) env(method types.MethodInfo, targetType reflect.Type) map[string]interface{} {
	elem := targetType
	for elem != nil && elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}
	var typeName, pkgPath string
	if elem != nil {
		typeName = elem.Name()
		pkgPath = elem.PkgPath()
	}
	var declaring string
	if method.DeclaringType != nil {
		declaring = method.DeclaringType.Name()
	}
	return map[string]interface{}{
		"method":    method.Name,
		"type":      typeName,
		"package":   pkgPath,
		"declaring": declaring,
		"bean":      p.beanName(targetType),
	}
}

func (p *ExprPointcut) beanName(targetType reflect.Type) string {
	if p.registry == nil || targetType == nil {
		return ""
	}
	if names := p.registry.LookupBeansOfType(targetType); len(names) > 0 {
		return names[0]
	}
	return ""
}

// truePointcut matches every join point.
type truePointcut struct{}

func (truePointcut) Expression() string {
	return "true"
}

func (truePointcut) Matches(types.MethodInfo, reflect.Type) bool {
	return true
}

// True returns the canonical pointcut that matches everything.
func True() types.Pointcut {
	return truePointcut{}
}
