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

package pointcut

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aspectgo/aspectgo/api/types"
)

type orderService struct{}

func (orderService) Save() error   { return nil }
func (orderService) Delete() error { return nil }

type orderStore interface {
	Save() error
}

var (
	orderServiceType = reflect.TypeOf(&orderService{})
	orderStoreType   = reflect.TypeOf((*orderStore)(nil)).Elem()
)

func saveMethod() types.MethodInfo {
	m, _ := orderStoreType.MethodByName("Save")
	return types.MethodInfo{Name: "Save", DeclaringType: orderStoreType, Type: m.Type}
}

func TestCompileEmptyExpression(t *testing.T) {
	_, err := NewEvaluator().Compile("  ", nil)
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestMatchEnvironment(t *testing.T) {
	var tests = []struct {
		name       string
		expression string
		want       bool
	}{
		{"method", `method == "Save"`, true},
		{"methodMiss", `method == "Delete"`, false},
		{"type", `type == "orderService"`, true},
		{"package", `package endsWith "pointcut"`, true},
		{"declaring", `declaring == "orderStore"`, true},
		{"combined", `type == "orderService" && method startsWith "Sa"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc, err := NewEvaluator().Compile(tt.expression, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, pc.Matches(saveMethod(), orderServiceType))
		})
	}
}

func TestCompileRejectsMalformedExpression(t *testing.T) {
	for _, expression := range []string{`method ==`, `method == &&`, `(type == "x"`} {
		_, err := NewEvaluator().Compile(expression, nil)
		assert.ErrorIs(t, err, types.ErrConfiguration, expression)
		assert.ErrorContains(t, err, expression)
	}
}

func TestNamedPointcutReference(t *testing.T) {
	scope := &types.AspectDefinition{
		Bindings: []types.AdviceBinding{
			{Kind: types.KindPointcut, Method: "anyOrder", Expression: `type == "orderService"`},
		},
	}
	pc, err := NewEvaluator().Compile(`anyOrder() && method == "Save"`, scope)
	require.NoError(t, err)

	assert.True(t, pc.Matches(saveMethod(), orderServiceType))

	other := types.MethodInfo{Name: "Save"}
	assert.False(t, pc.Matches(other, reflect.TypeOf(struct{ X int }{})))
}

func TestPointcutReferenceCycle(t *testing.T) {
	scope := &types.AspectDefinition{
		Bindings: []types.AdviceBinding{
			{Kind: types.KindPointcut, Method: "a", Expression: `b()`},
			{Kind: types.KindPointcut, Method: "b", Expression: `a()`},
		},
	}
	_, err := NewEvaluator().Compile(`a()`, scope)
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

type staticRegistry struct {
	names []string
}

func (r *staticRegistry) LookupBeansOfType(reflect.Type) []string { return r.names }
func (r *staticRegistry) IsUnderConstruction(string) bool         { return false }
func (r *staticRegistry) GetBean(string) (interface{}, error)     { return nil, nil }

func TestBeanDesignator(t *testing.T) {
	registry := &staticRegistry{names: []string{"orderService", "other"}}
	pc, err := NewEvaluatorWithRegistry(registry).Compile(`bean == "orderService"`, nil)
	require.NoError(t, err)
	assert.True(t, pc.Matches(saveMethod(), orderServiceType))

	noRegistry, err := NewEvaluator().Compile(`bean == "orderService"`, nil)
	require.NoError(t, err)
	assert.False(t, noRegistry.Matches(saveMethod(), orderServiceType))
}

func TestTruePointcut(t *testing.T) {
	assert.True(t, True().Matches(saveMethod(), nil))
	assert.Equal(t, "true", True().Expression())
}
