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
	"sync/atomic"

	"github.com/aspectgo/aspectgo/api/types"
)

var advisorType = reflect.TypeOf((*types.Advisor)(nil)).Elem()

// AdvisorRetrievalHelper discovers pre-built advisor beans in a registry,
// for auto-proxy scenarios where advisors are registered directly instead
// of being compiled from aspect definitions.
//
// The candidate name list is looked up once per helper and cached for its
// lifetime; construct a new helper to re-enumerate.
type AdvisorRetrievalHelper struct {
	registry types.Registry
	logger   types.Logger

	// IsEligible filters candidate bean names. Nil means every candidate is
	// eligible. Callers scoping advisors in hierarchical registries set it.
	IsEligible func(name string) bool

	cachedNames atomic.Pointer[[]string]
}

// NewAdvisorRetrievalHelper creates a helper over the given registry.
func NewAdvisorRetrievalHelper(config types.Config, registry types.Registry) *AdvisorRetrievalHelper {
	return &AdvisorRetrievalHelper{
		registry: registry,
		logger:   types.NewLogger(config.Logger),
	}
}

// FindAdvisorBeans returns all eligible, fully constructed advisor beans in
// registry enumeration order. Beans currently under construction are
// skipped, as are beans whose construction fails on a dependency that is
// itself under construction; any other construction failure propagates.
// No re-sorting happens here; order metadata on the advisors is the
// caller's concern.
func (h *AdvisorRetrievalHelper) FindAdvisorBeans() ([]types.Advisor, error) {
	names := h.cachedNames.Load()
	if names == nil {
		looked := h.registry.LookupBeansOfType(advisorType)
		h.cachedNames.Store(&looked)
		names = &looked
	}

	var advisors []types.Advisor
	for _, name := range *names {
		if h.IsEligible != nil && !h.IsEligible(name) {
			continue
		}
		if h.registry.IsUnderConstruction(name) {
			h.logger.Printf("aspectgo: skipping currently created advisor %q", name)
			continue
		}
		bean, err := h.registry.GetBean(name)
		if err != nil {
			if h.skippableConstructionFailure(err) {
				h.logger.Printf("aspectgo: skipping advisor %q with dependency on currently created bean: %v", name, err)
				continue
			}
			return nil, err
		}
		advisor, ok := bean.(types.Advisor)
		if !ok {
			return nil, fmt.Errorf("bean %q is not an advisor: %w", name, types.ErrConfiguration)
		}
		advisors = append(advisors, advisor)
	}
	return advisors, nil
}

// skippableConstructionFailure reports whether the construction failure is
// the deliberate circular case: the most specific construction error points
// at a bean that is itself still being built. Skipping it avoids
// deadlocking on circular advisor dependencies.
func (h *AdvisorRetrievalHelper) skippableConstructionFailure(err error) bool {
	var ce *types.ConstructionError
	if !errors.As(err, &ce) {
		return false
	}
	root := ce.RootCause()
	return root != ce && h.registry.IsUnderConstruction(root.BeanName)
}
