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
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/aspectgo/aspectgo/api/types"
)

var _ types.Registry = (*BeanRegistry)(nil)

// beanDefinition is one registered bean: either an eager instance or a
// provider building it on first request.
type beanDefinition struct {
	beanType reflect.Type
	instance interface{}
	provider func() (interface{}, error)
	built    bool
}

// BeanRegistry is the default in-memory types.Registry implementation. It
// is good enough for embedding the engine without a surrounding container:
// eager beans, lazy providers, under-construction tracking for cycle
// avoidance.
type BeanRegistry struct {
	// beans is a map of bean definitions by name.
	beans map[string]*beanDefinition
	// order preserves registration order for enumeration.
	order []string
	// inCreation marks beans currently being built.
	inCreation map[string]bool
	// RWMutex is a read/write mutex lock.
	sync.RWMutex
}

// NewRegistry creates an empty bean registry.
func NewRegistry() *BeanRegistry {
	return &BeanRegistry{
		beans:      make(map[string]*beanDefinition),
		inCreation: make(map[string]bool),
	}
}

// Register adds an eagerly constructed bean to the registry.
func (r *BeanRegistry) Register(name string, instance interface{}) error {
	if instance == nil {
		return fmt.Errorf("bean %q has no instance: %w", name, types.ErrConfiguration)
	}
	r.Lock()
	defer r.Unlock()
	if _, ok := r.beans[name]; ok {
		return errors.New("the bean already exists. name=" + name)
	}
	r.beans[name] = &beanDefinition{
		beanType: reflect.TypeOf(instance),
		instance: instance,
		built:    true,
	}
	r.order = append(r.order, name)
	return nil
}

// RegisterProvider adds a lazily constructed bean. The declared type is used
// for type lookups before the bean is built; the provider runs on the first
// GetBean and may itself fetch other beans.
func (r *BeanRegistry) RegisterProvider(name string, beanType reflect.Type, provider func() (interface{}, error)) error {
	if beanType == nil || provider == nil {
		return fmt.Errorf("bean %q needs a declared type and a provider: %w", name, types.ErrConfiguration)
	}
	r.Lock()
	defer r.Unlock()
	if _, ok := r.beans[name]; ok {
		return errors.New("the bean already exists. name=" + name)
	}
	r.beans[name] = &beanDefinition{beanType: beanType, provider: provider}
	r.order = append(r.order, name)
	return nil
}

// LookupBeansOfType returns the names of beans assignable to t, in
// registration order.
func (r *BeanRegistry) LookupBeansOfType(t reflect.Type) []string {
	r.RLock()
	defer r.RUnlock()
	var names []string
	for _, name := range r.order {
		if assignableTo(r.beans[name].beanType, t) {
			names = append(names, name)
		}
	}
	return names
}

func assignableTo(beanType, t reflect.Type) bool {
	if beanType == nil || t == nil {
		return false
	}
	if t.Kind() == reflect.Interface {
		return beanType.Implements(t)
	}
	return beanType.AssignableTo(t)
}

// IsUnderConstruction reports whether the named bean is currently being
// built.
func (r *BeanRegistry) IsUnderConstruction(name string) bool {
	r.RLock()
	defer r.RUnlock()
	return r.inCreation[name]
}

// MarkUnderConstruction flags a bean as being built outside of GetBean.
// Surrounding containers that construct beans themselves use this to expose
// their creation state to the retrieval helper.
func (r *BeanRegistry) MarkUnderConstruction(name string, under bool) {
	r.Lock()
	defer r.Unlock()
	if under {
		r.inCreation[name] = true
	} else {
		delete(r.inCreation, name)
	}
}

// GetBean returns the named bean, running its provider first if it has not
// been built yet. Provider failures are wrapped in *types.ConstructionError
// so callers can inspect the failing bean and its root cause.
func (r *BeanRegistry) GetBean(name string) (interface{}, error) {
	r.Lock()
	def, ok := r.beans[name]
	if !ok {
		r.Unlock()
		return nil, &types.ConstructionError{BeanName: name, Cause: errors.New("bean not found")}
	}
	if def.built {
		r.Unlock()
		return def.instance, nil
	}
	if r.inCreation[name] {
		r.Unlock()
		return nil, &types.ConstructionError{BeanName: name, Cause: errors.New("bean is currently in creation")}
	}
	r.inCreation[name] = true
	r.Unlock()

	// The provider may recurse into GetBean for its dependencies, so the
	// lock is not held while it runs.
	instance, err := def.provider()

	r.Lock()
	delete(r.inCreation, name)
	if err == nil && instance != nil {
		def.instance = instance
		def.built = true
	}
	r.Unlock()

	if err != nil {
		return nil, &types.ConstructionError{BeanName: name, Cause: err}
	}
	return instance, nil
}
