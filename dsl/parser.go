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
	"fmt"
	"reflect"
	"strings"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/aspect"
	"github.com/aspectgo/aspectgo/utils/json"
	"github.com/aspectgo/aspectgo/utils/maps"
)

// ParseAspect decodes one JSON aspect declaration.
func ParseAspect(def []byte) (*AspectDsl, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(def, &raw); err != nil {
		return nil, fmt.Errorf("invalid aspect dsl: %v: %w", err, types.ErrConfiguration)
	}
	var aspectDsl AspectDsl
	if err := maps.Map2StructWithTag(raw, &aspectDsl, "json"); err != nil {
		return nil, fmt.Errorf("invalid aspect dsl: %v: %w", err, types.ErrConfiguration)
	}
	return &aspectDsl, nil
}

// EncodeAspect renders an aspect declaration back to JSON.
func EncodeAspect(def *AspectDsl) ([]byte, error) {
	return json.Marshal(def)
}

// JsonParser decodes JSON aspect declarations into aspect definitions,
// resolving the aspect instance from a bean registry.
type JsonParser struct {
	Registry types.Registry
}

func NewJsonParser(registry types.Registry) *JsonParser {
	return &JsonParser{Registry: registry}
}

// DecodeAspect parses the declaration and binds it to the registry bean it
// names. The returned definition and instance factory feed
// aspect.AdvisorFactory.CompileAdvisors directly.
func (p *JsonParser) DecodeAspect(def []byte) (*types.AspectDefinition, types.AspectInstanceFactory, error) {
	aspectDsl, err := ParseAspect(def)
	if err != nil {
		return nil, nil, err
	}
	return p.bind(aspectDsl)
}

func (p *JsonParser) bind(aspectDsl *AspectDsl) (*types.AspectDefinition, types.AspectInstanceFactory, error) {
	if aspectDsl.Bean == "" {
		return nil, nil, fmt.Errorf("aspect %q names no bean: %w", aspectDsl.Name, types.ErrConfiguration)
	}
	if p.Registry == nil {
		return nil, nil, fmt.Errorf("aspect %q needs a registry to resolve bean %q: %w",
			aspectDsl.Name, aspectDsl.Bean, types.ErrConfiguration)
	}
	instance, err := p.Registry.GetBean(aspectDsl.Bean)
	if err != nil {
		return nil, nil, err
	}

	instantiation, err := parseInstantiation(aspectDsl.Instantiation)
	if err != nil {
		return nil, nil, err
	}
	name := aspectDsl.Name
	if name == "" {
		name = aspectDsl.Bean
	}
	metadata := types.AspectMetadata{
		Name:          name,
		Type:          reflect.TypeOf(instance),
		Instantiation: instantiation,
		PerClause:     aspectDsl.PerClause,
	}

	bindings := make([]types.AdviceBinding, 0, len(aspectDsl.Advice))
	for _, adviceDsl := range aspectDsl.Advice {
		kind, err := types.ParseAdviceKind(adviceDsl.Kind)
		if err != nil {
			return nil, nil, err
		}
		bindings = append(bindings, types.AdviceBinding{
			Kind:       kind,
			Method:     adviceDsl.Method,
			Expression: adviceDsl.Pointcut,
			Returning:  adviceDsl.Returning,
			Throwing:   adviceDsl.Throwing,
			Params:     adviceDsl.Params,
		})
	}

	definition := &types.AspectDefinition{Metadata: metadata, Bindings: bindings}

	var factory types.AspectInstanceFactory
	if instantiation.IsLazy() {
		bean := aspectDsl.Bean
		factory = aspect.NewProviderInstanceFactory(metadata, func() (interface{}, error) {
			return p.Registry.GetBean(bean)
		})
	} else {
		factory = aspect.NewSingletonInstanceFactory(metadata, instance)
	}
	return definition, factory, nil
}

func parseInstantiation(s string) (types.Instantiation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "singleton":
		return types.InstantiationSingleton, nil
	case "pertarget":
		return types.InstantiationPerTarget, nil
	case "perclause":
		return types.InstantiationPerClause, nil
	default:
		return 0, fmt.Errorf("unknown instantiation policy %q: %w", s, types.ErrConfiguration)
	}
}
