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
	"fmt"
	"hash/fnv"
	"reflect"

	"github.com/aspectgo/aspectgo/api/types"
)

var (
	_ types.TargetSource = (*SingletonTargetSource)(nil)
	_ types.TargetSource = (*PooledTargetSource)(nil)
	_ types.TargetSource = emptyTargetSource{}
)

// SingletonTargetSource serves one fixed target instance. Static: the
// instance is never released.
type SingletonTargetSource struct {
	target interface{}
}

// NewSingletonTargetSource wraps an existing target instance.
func NewSingletonTargetSource(target interface{}) *SingletonTargetSource {
	return &SingletonTargetSource{target: target}
}

func (s *SingletonTargetSource) TargetType() reflect.Type {
	return reflect.TypeOf(s.target)
}

func (s *SingletonTargetSource) GetTarget() (interface{}, error) {
	return s.target, nil
}

func (s *SingletonTargetSource) ReleaseTarget(interface{}) error {
	return nil
}

func (s *SingletonTargetSource) IsStatic() bool {
	return true
}

// Hash ties proxy identity to the wrapped instance.
func (s *SingletonTargetSource) Hash() uint64 {
	return pointerHash(s.target)
}

// PooledTargetSource acquires a possibly different instance per call and
// recycles it afterwards. Non-static: the engine releases every acquired
// instance exactly once per invocation, error paths included.
type PooledTargetSource struct {
	// Type is the declared type of pooled instances.
	Type reflect.Type
	// Acquire supplies the instance for one call.
	Acquire func() (interface{}, error)
	// Recycle takes an instance back. Optional.
	Recycle func(interface{}) error
}

func (s *PooledTargetSource) TargetType() reflect.Type {
	return s.Type
}

func (s *PooledTargetSource) GetTarget() (interface{}, error) {
	if s.Acquire == nil {
		return nil, fmt.Errorf("pooled target source has no acquire function: %w", types.ErrConfiguration)
	}
	return s.Acquire()
}

func (s *PooledTargetSource) ReleaseTarget(target interface{}) error {
	if s.Recycle == nil {
		return nil
	}
	return s.Recycle(target)
}

func (s *PooledTargetSource) IsStatic() bool {
	return false
}

// emptyTargetSource is the default target source of a proxy built without a
// target. A proxy over it must carry at least one advisor.
type emptyTargetSource struct{}

// EmptyTargetSource returns the canonical target source with no target.
func EmptyTargetSource() types.TargetSource {
	return emptyTargetSource{}
}

func (emptyTargetSource) TargetType() reflect.Type {
	return nil
}

func (emptyTargetSource) GetTarget() (interface{}, error) {
	return nil, nil
}

func (emptyTargetSource) ReleaseTarget(interface{}) error {
	return nil
}

func (emptyTargetSource) IsStatic() bool {
	return true
}

func isEmptyTargetSource(ts types.TargetSource) bool {
	if ts == nil {
		return true
	}
	_, ok := ts.(emptyTargetSource)
	return ok
}

// targetSourceHash feeds proxy identity. Sources may pin their own hash by
// implementing Hash() uint64; anything else hashes by source identity.
func targetSourceHash(ts types.TargetSource) uint64 {
	if h, ok := ts.(interface{ Hash() uint64 }); ok {
		return h.Hash()
	}
	return pointerHash(ts)
}

func pointerHash(v interface{}) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%p", v)
	return h.Sum64()
}
