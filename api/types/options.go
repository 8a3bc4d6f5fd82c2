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

// Option is a function type that modifies the Config.
type Option func(*Config) error

// WithLogger is an option that sets the logger of the Config.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// WithPointcutEvaluator is an option that sets the pointcut evaluator of the
// Config.
func WithPointcutEvaluator(evaluator PointcutEvaluator) Option {
	return func(c *Config) error {
		c.PointcutEvaluator = evaluator
		return nil
	}
}

// WithRegistry is an option that sets the bean registry of the Config.
func WithRegistry(registry Registry) Option {
	return func(c *Config) error {
		c.Registry = registry
		return nil
	}
}

// WithParameterNameResolver is an option that sets the parameter name
// resolver of the Config.
func WithParameterNameResolver(resolver ParameterNameResolver) Option {
	return func(c *Config) error {
		c.ParameterNameResolver = resolver
		return nil
	}
}
