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

// Package aspectgo provides a lightweight, embeddable aspect-oriented
// proxying engine: declare aspects over your interfaces, compile them into
// ordered advisors, and call your objects through proxies that run the
// advice chain around every method.
//
// # Usage
//
// Declare an aspect over a service interface and call it through a proxy:
//
//	type Greeter interface {
//		Greet(name string) (string, error)
//	}
//
//	type Audit struct{}
//
//	func (a *Audit) LogCall(jp types.Joinpoint) error {
//		log.Printf("calling %s", jp.Method().Name)
//		return nil
//	}
//
//	config := aspectgo.NewConfig()
//	def := &types.AspectDefinition{
//		Metadata: types.AspectMetadata{Name: "audit", Type: reflect.TypeOf(&Audit{})},
//		Bindings: []types.AdviceBinding{
//			{Kind: types.KindBefore, Method: "LogCall", Expression: `method == "Greet"`},
//		},
//	}
//	advisors, err := aspectgo.CompileAdvisors(config, def, &Audit{})
//	if err != nil {
//		// ...
//	}
//	proxy, err := aspectgo.NewProxy(config, &greeterImpl{},
//		[]reflect.Type{reflect.TypeOf((*Greeter)(nil)).Elem()}, advisors)
//	if err != nil {
//		// ...
//	}
//	results, err := proxy.Invoke(context.Background(), "Greet", "world")
//
// Aspects can also be declared in JSON through the dsl package, with the
// aspect instance resolved from a bean registry.
package aspectgo

import (
	"reflect"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/aspect"
	"github.com/aspectgo/aspectgo/engine"
)

// NewConfig creates a config with the default logger, registry, pointcut
// evaluator and parameter name resolver, then applies the options.
func NewConfig(opts ...types.Option) types.Config {
	return engine.NewConfig(opts...)
}

// CompileAdvisors compiles one aspect definition over an eager singleton
// instance into its ordered advisor list.
func CompileAdvisors(config types.Config, def *types.AspectDefinition, instance interface{}) ([]types.Advisor, error) {
	factory := aspect.NewSingletonInstanceFactory(def.Metadata, instance)
	return aspect.NewAdvisorFactory(config).CompileAdvisors(def, factory)
}

// NewProxy builds a proxy over an existing target instance. The target backs
// every call; interfaces name the advertised contract.
func NewProxy(config types.Config, target interface{}, interfaces []reflect.Type,
	advisors []types.Advisor, opts ...engine.ProxyOption) (*engine.Proxy, error) {

	return engine.NewProxy(config, engine.NewSingletonTargetSource(target), interfaces, advisors, opts...)
}

// FindAdvisorBeans discovers pre-built advisor beans in the config's
// registry, skipping beans currently under construction.
func FindAdvisorBeans(config types.Config) ([]types.Advisor, error) {
	return engine.NewAdvisorRetrievalHelper(config, config.Registry).FindAdvisorBeans()
}
