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
	"fmt"
	"sync"

	"github.com/dop251/goja"

	"github.com/aspectgo/aspectgo/api/types"
)

var _ types.MethodInterceptor = (*ScriptAdvice)(nil)

// ScriptAdvice runs a JavaScript function as around advice. The script must
// define
//
//	function advice(inv) { ... }
//
// where inv carries id, method, args and the functions proceed() and
// proceedWith(args). The value returned by advice becomes the call result;
// returning undefined keeps the result of the last proceed. A chain error
// surfaces in the script as a thrown exception; rethrowing it, or not
// catching it, keeps the original error identity on the Go side.
type ScriptAdvice struct {
	program *goja.Program
	vmPool  sync.Pool
}

// NewScriptAdvice compiles the script once and prepares a pool of VMs.
// Compilation failures are configuration errors.
func NewScriptAdvice(script string) (*ScriptAdvice, error) {
	program, err := goja.Compile("advice", script, true)
	if err != nil {
		return nil, fmt.Errorf("compile advice script: %v: %w", err, types.ErrConfiguration)
	}
	a := &ScriptAdvice{program: program}
	a.vmPool = sync.Pool{
		New: func() interface{} {
			return a.newVm()
		},
	}
	return a, nil
}

func (a *ScriptAdvice) newVm() *goja.Runtime {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())
	if _, err := vm.RunProgram(a.program); err != nil {
		// Compile succeeded, so only top-level statements can fail here.
		// Leave the vm without the advice function; Invoke reports it.
		return vm
	}
	return vm
}

// callState carries the outcome of proceed calls across the JS boundary, so
// an uncaught chain error leaves the script with its identity intact.
type callState struct {
	proceeded bool
	results   []interface{}
	err       error
}

func (a *ScriptAdvice) Invoke(inv types.ProceedingJoinpoint) ([]interface{}, error) {
	vm := a.vmPool.Get().(*goja.Runtime)
	defer a.vmPool.Put(vm)

	fn, ok := goja.AssertFunction(vm.Get("advice"))
	if !ok {
		return nil, fmt.Errorf("script does not define function advice(inv): %w", types.ErrConfiguration)
	}

	state := &callState{}
	proceed := func(args []interface{}) interface{} {
		var results []interface{}
		var err error
		if args == nil {
			results, err = inv.Proceed()
		} else {
			results, err = inv.ProceedWith(args)
		}
		if err != nil {
			state.err = err
			panic(vm.NewGoError(err))
		}
		state.proceeded = true
		state.results = results
		state.err = nil
		return results
	}

	invObj := vm.NewObject()
	_ = invObj.Set("id", inv.ID())
	_ = invObj.Set("method", inv.Method().Name)
	_ = invObj.Set("args", inv.Args())
	_ = invObj.Set("proceed", func() interface{} { return proceed(nil) })
	_ = invObj.Set("proceedWith", func(args []interface{}) interface{} {
		if args == nil {
			args = []interface{}{}
		}
		return proceed(args)
	})

	out, err := fn(goja.Undefined(), invObj)
	if err != nil {
		if state.err != nil {
			return nil, state.err
		}
		return nil, fmt.Errorf("advice script failed: %v: %w", err, types.ErrInvocation)
	}
	return a.exportResult(out, state), nil
}

// exportResult maps the script return value onto the chain result contract.
func (a *ScriptAdvice) exportResult(out goja.Value, state *callState) []interface{} {
	if out == nil || goja.IsUndefined(out) || goja.IsNull(out) {
		if state.proceeded {
			return state.results
		}
		return nil
	}
	exported := out.Export()
	if results, ok := exported.([]interface{}); ok {
		return results
	}
	return []interface{}{exported}
}
