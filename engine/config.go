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

package engine

import (
	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/pointcut"
)

// NewConfig creates a new Config with default values and applies the
// provided options. On top of types.NewConfig it fills the defaults that
// live outside the types package: an in-memory bean registry and the expr
// pointcut evaluator bound to that registry.
func NewConfig(opts ...types.Option) types.Config {
	c := types.NewConfig(opts...)
	if c.Registry == nil {
		c.Registry = NewRegistry()
	}
	if c.PointcutEvaluator == nil {
		c.PointcutEvaluator = pointcut.NewEvaluatorWithRegistry(c.Registry)
	}
	return c
}
