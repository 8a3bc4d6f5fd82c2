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
	"sync"

	"github.com/aspectgo/aspectgo/api/types"
)

var (
	_ types.AspectInstanceFactory = (*SingletonInstanceFactory)(nil)
	_ types.AspectInstanceFactory = (*ProviderInstanceFactory)(nil)
	_ types.AspectInstanceFactory = (*lazySingletonInstanceFactory)(nil)
)

// SingletonInstanceFactory serves an eagerly constructed aspect instance.
type SingletonInstanceFactory struct {
	metadata types.AspectMetadata
	instance interface{}
}

// NewSingletonInstanceFactory wraps an existing aspect instance.
func NewSingletonInstanceFactory(metadata types.AspectMetadata, instance interface{}) *SingletonInstanceFactory {
	return &SingletonInstanceFactory{metadata: metadata, instance: instance}
}

func (f *SingletonInstanceFactory) AspectInstance() (interface{}, error) {
	if f.instance == nil {
		return nil, fmt.Errorf("aspect %q has no instance: %w", f.metadata.Name, types.ErrConfiguration)
	}
	return f.instance, nil
}

func (f *SingletonInstanceFactory) Metadata() *types.AspectMetadata {
	return &f.metadata
}

// ProviderInstanceFactory constructs the aspect instance through a provider
// function on every request. Combine with the lazy-singleton decorator to
// defer construction to the first matching invocation.
type ProviderInstanceFactory struct {
	metadata types.AspectMetadata
	provider func() (interface{}, error)
}

func NewProviderInstanceFactory(metadata types.AspectMetadata, provider func() (interface{}, error)) *ProviderInstanceFactory {
	return &ProviderInstanceFactory{metadata: metadata, provider: provider}
}

func (f *ProviderInstanceFactory) AspectInstance() (interface{}, error) {
	if f.provider == nil {
		return nil, fmt.Errorf("aspect %q has no instance provider: %w", f.metadata.Name, types.ErrConfiguration)
	}
	return f.provider()
}

func (f *ProviderInstanceFactory) Metadata() *types.AspectMetadata {
	return &f.metadata
}

// lazySingletonInstanceFactory decorates another factory so the underlying
// instance is built at most once, on first request. All advisors compiled
// from one definition share a single decorator, which is what makes the
// synthetic instantiation advisor work: its advice requests the instance,
// every later advice sees the same one.
type lazySingletonInstanceFactory struct {
	delegate types.AspectInstanceFactory

	once     sync.Once
	instance interface{}
	err      error
}

func lazySingleton(delegate types.AspectInstanceFactory) types.AspectInstanceFactory {
	if _, ok := delegate.(*lazySingletonInstanceFactory); ok {
		return delegate
	}
	return &lazySingletonInstanceFactory{delegate: delegate}
}

func (f *lazySingletonInstanceFactory) AspectInstance() (interface{}, error) {
	f.once.Do(func() {
		f.instance, f.err = f.delegate.AspectInstance()
	})
	return f.instance, f.err
}

func (f *lazySingletonInstanceFactory) Metadata() *types.AspectMetadata {
	return f.delegate.Metadata()
}
