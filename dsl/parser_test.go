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

package dsl

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/engine"
)

var auditAspectDsl = []byte(`{
  "name": "audit",
  "bean": "auditAspect",
  "advice": [
    {"kind": "pointcut", "method": "anyService", "pointcut": "type == \"Service\""},
    {"kind": "before", "method": "LogBefore", "pointcut": "anyService()"},
    {"kind": "afterReturning", "method": "Record", "pointcut": "anyService()",
     "returning": "results", "params": ["jp", "results"]}
  ]
}`)

type auditAspect struct{}

func (a *auditAspect) LogBefore(types.Joinpoint) error       { return nil }
func (a *auditAspect) Record(types.Joinpoint, []interface{}) {}

func TestParseAspect(t *testing.T) {
	aspectDsl, err := ParseAspect(auditAspectDsl)
	require.NoError(t, err)

	assert.Equal(t, "audit", aspectDsl.Name)
	assert.Equal(t, "auditAspect", aspectDsl.Bean)
	require.Len(t, aspectDsl.Advice, 3)
	assert.Equal(t, "pointcut", aspectDsl.Advice[0].Kind)
	assert.Equal(t, "results", aspectDsl.Advice[2].Returning)
	assert.Equal(t, []string{"jp", "results"}, aspectDsl.Advice[2].Params)
}

func TestParseAspectRejectsMalformedJson(t *testing.T) {
	_, err := ParseAspect([]byte(`{"name": `))
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestEncodeAspectRoundTrip(t *testing.T) {
	aspectDsl, err := ParseAspect(auditAspectDsl)
	require.NoError(t, err)

	encoded, err := EncodeAspect(aspectDsl)
	require.NoError(t, err)

	again, err := ParseAspect(encoded)
	require.NoError(t, err)
	assert.Equal(t, aspectDsl, again)
}

func TestDecodeAspect(t *testing.T) {
	registry := engine.NewRegistry()
	instance := &auditAspect{}
	require.NoError(t, registry.Register("auditAspect", instance))

	def, factory, err := NewJsonParser(registry).DecodeAspect(auditAspectDsl)
	require.NoError(t, err)

	assert.Equal(t, "audit", def.Metadata.Name)
	assert.Equal(t, reflect.TypeOf(instance), def.Metadata.Type)
	assert.Equal(t, types.InstantiationSingleton, def.Metadata.Instantiation)
	require.Len(t, def.Bindings, 3)
	assert.Equal(t, types.KindPointcut, def.Bindings[0].Kind)
	assert.Equal(t, types.KindBefore, def.Bindings[1].Kind)
	assert.Equal(t, types.KindAfterReturning, def.Bindings[2].Kind)

	got, err := factory.AspectInstance()
	require.NoError(t, err)
	assert.Same(t, instance, got)
}

func TestDecodeAspectUnknownKind(t *testing.T) {
	registry := engine.NewRegistry()
	require.NoError(t, registry.Register("auditAspect", &auditAspect{}))

	_, _, err := NewJsonParser(registry).DecodeAspect([]byte(`{
	  "bean": "auditAspect",
	  "advice": [{"kind": "sometimes", "method": "LogBefore", "pointcut": "true"}]
	}`))
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestDecodeAspectRequiresBean(t *testing.T) {
	_, _, err := NewJsonParser(engine.NewRegistry()).DecodeAspect([]byte(`{"name": "audit"}`))
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestDecodeAspectMissingBean(t *testing.T) {
	_, _, err := NewJsonParser(engine.NewRegistry()).DecodeAspect([]byte(`{"bean": "nope"}`))
	var ce *types.ConstructionError
	assert.ErrorAs(t, err, &ce)
}

func TestDecodeAspectInstantiation(t *testing.T) {
	registry := engine.NewRegistry()
	require.NoError(t, registry.Register("auditAspect", &auditAspect{}))

	def, _, err := NewJsonParser(registry).DecodeAspect([]byte(`{
	  "bean": "auditAspect",
	  "instantiation": "perTarget",
	  "perClause": "type == \"Service\""
	}`))
	require.NoError(t, err)
	assert.Equal(t, types.InstantiationPerTarget, def.Metadata.Instantiation)
	assert.Equal(t, `type == "Service"`, def.Metadata.PerClause)

	_, _, err = NewJsonParser(registry).DecodeAspect([]byte(`{
	  "bean": "auditAspect",
	  "instantiation": "whenever"
	}`))
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestDecodeAspectDefaultsNameToBean(t *testing.T) {
	registry := engine.NewRegistry()
	require.NoError(t, registry.Register("auditAspect", &auditAspect{}))

	def, _, err := NewJsonParser(registry).DecodeAspect([]byte(`{"bean": "auditAspect"}`))
	require.NoError(t, err)
	assert.Equal(t, "auditAspect", def.Metadata.Name)
}
