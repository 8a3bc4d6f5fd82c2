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

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks a malformed aspect or proxy configuration:
	// unsupported aspect shape, missing introduction default, binding name
	// mismatch, or a proxy request with neither advisors nor a target
	// source. Always fatal to the compile or construct step.
	ErrConfiguration = errors.New("invalid aspect configuration")

	// ErrInvocation marks a proxy call whose outcome violates the declared
	// contract (nil result for a non-nilable return type) or whose
	// reflective dispatch failed for reasons unrelated to the target's own
	// logic. Target and advice errors are never wrapped in it.
	ErrInvocation = errors.New("proxy invocation failed")
)

// ConstructionError reports that a registry bean failed to build. It wraps
// the cause, which may itself be a ConstructionError when a dependency of
// the bean failed.
type ConstructionError struct {
	BeanName string
	Cause    error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("error creating bean %q: %v", e.BeanName, e.Cause)
}

func (e *ConstructionError) Unwrap() error {
	return e.Cause
}

// RootCause returns the most specific ConstructionError in the cause chain,
// e itself if none is nested.
func (e *ConstructionError) RootCause() *ConstructionError {
	root := e
	for {
		var next *ConstructionError
		if errors.As(root.Cause, &next) {
			root = next
		} else {
			return root
		}
	}
}
