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

package aspect

import (
	"fmt"
	"reflect"

	"github.com/aspectgo/aspectgo/api/types"
)

var _ types.IntroductionAdvisor = (*introductionAdvisor)(nil)

// introductionAdvisor adds an interface to the proxied contract. It carries
// no interceptor; the proxy engine wires calls on the introduced interface
// to a fresh delegate built by the binding's default implementation.
type introductionAdvisor struct {
	aspectName string
	iface      reflect.Type
	newImpl    func() interface{}
}

func (f *AdvisorFactory) introductionAdvisor(def *types.AspectDefinition, binding *types.IntroductionBinding) (types.Advisor, error) {
	if binding.Interface == nil || binding.Interface.Kind() != reflect.Interface {
		return nil, fmt.Errorf("introduction field %q of aspect %q does not declare an interface: %w",
			binding.Field, def.Metadata.Name, types.ErrConfiguration)
	}
	if binding.DefaultImpl == nil {
		return nil, fmt.Errorf("introduction field %q of aspect %q has no default implementation: %w",
			binding.Field, def.Metadata.Name, types.ErrConfiguration)
	}
	return &introductionAdvisor{
		aspectName: def.Metadata.Name,
		iface:      binding.Interface,
		newImpl:    binding.DefaultImpl,
	}, nil
}

func (a *introductionAdvisor) Pointcut() types.Pointcut {
	return nil
}

func (a *introductionAdvisor) Advice() types.MethodInterceptor {
	return nil
}

func (a *introductionAdvisor) Order() int {
	return 0
}

func (a *introductionAdvisor) AspectName() string {
	return a.aspectName
}

func (a *introductionAdvisor) Interface() reflect.Type {
	return a.iface
}

func (a *introductionAdvisor) NewDelegate() interface{} {
	return a.newImpl()
}
