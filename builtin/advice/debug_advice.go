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

package advice

import (
	"time"

	"github.com/aspectgo/aspectgo/api/types"
)

var _ types.MethodInterceptor = (*DebugAdvice)(nil)

// DebugAdvice logs every intercepted call: method, arguments, results or
// error, and wall time. It never alters the call outcome.
type DebugAdvice struct {
	Logger types.Logger
}

// NewDebugAdvice creates a tracing interceptor on the given logger. A nil
// logger falls back to the default.
func NewDebugAdvice(logger types.Logger) *DebugAdvice {
	return &DebugAdvice{Logger: types.NewLogger(logger)}
}

func (a *DebugAdvice) Invoke(inv types.ProceedingJoinpoint) ([]interface{}, error) {
	method := inv.Method().Name
	a.Logger.Printf("aspectgo: >> %s id=%s target=%v args=%v", method, inv.ID(), inv.TargetType(), inv.Args())
	start := time.Now()

	results, err := inv.Proceed()

	elapsed := time.Since(start)
	if err != nil {
		a.Logger.Printf("aspectgo: << %s id=%s elapsed=%v err=%v", method, inv.ID(), elapsed, err)
	} else {
		a.Logger.Printf("aspectgo: << %s id=%s elapsed=%v results=%v", method, inv.ID(), elapsed, results)
	}
	return results, err
}
