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

// Config defines the configuration shared by the advisor factory, the
// retrieval helper and the proxy engine.
type Config struct {
	// Logger is the logging interface, defaulting to `DefaultLogger()`.
	Logger Logger
	// PointcutEvaluator compiles pointcut expression text into matchers.
	// Defaults to the expression evaluator of the pointcut package; set it
	// to integrate a different pointcut DSL.
	PointcutEvaluator PointcutEvaluator
	// Registry is the bean registry consulted by the advisor retrieval
	// helper and by bean() designators in pointcut expressions. Defaults to
	// an in-memory registry.
	Registry Registry
	// ParameterNameResolver recovers advice parameter names for argument
	// binding. Defaults to reading the names declared on the binding.
	ParameterNameResolver ParameterNameResolver
}

// NewConfig creates a new Config with default values and applies the
// provided options. Defaults that would pull in other packages (pointcut
// evaluator, registry) are filled by engine.NewConfig.
func NewConfig(opts ...Option) Config {
	c := &Config{
		Logger:                DefaultLogger(),
		ParameterNameResolver: DeclaredParameterNameResolver{},
	}
	for _, opt := range opts {
		_ = opt(c)
	}
	return *c
}
