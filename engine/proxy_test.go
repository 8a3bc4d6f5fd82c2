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
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aspectgo/aspectgo/api/types"
)

type greeter interface {
	Greet(name string) (string, error)
}

type greeterService struct {
	fail  error
	calls int
}

func (s *greeterService) Greet(name string) (string, error) {
	s.calls++
	if s.fail != nil {
		return "", s.fail
	}
	return "hello " + name, nil
}

var greeterType = reflect.TypeOf((*greeter)(nil)).Elem()

type interceptorFunc func(inv types.ProceedingJoinpoint) ([]interface{}, error)

func (f interceptorFunc) Invoke(inv types.ProceedingJoinpoint) ([]interface{}, error) {
	return f(inv)
}

// recordingInterceptor logs entry and exit around Proceed.
type recordingInterceptor struct {
	name string
	log  *[]string
}

func (i *recordingInterceptor) Invoke(inv types.ProceedingJoinpoint) ([]interface{}, error) {
	*i.log = append(*i.log, i.name+">")
	results, err := inv.Proceed()
	*i.log = append(*i.log, i.name+"<")
	return results, err
}

// methodPointcut matches a single method name.
type methodPointcut struct {
	name string
}

func (p methodPointcut) Expression() string { return p.name }
func (p methodPointcut) Matches(m types.MethodInfo, _ reflect.Type) bool {
	return m.Name == p.name
}

func newGreeterProxy(t *testing.T, target interface{}, advisors []types.Advisor, opts ...ProxyOption) *Proxy {
	t.Helper()
	p, err := NewProxy(NewConfig(), NewSingletonTargetSource(target), []reflect.Type{greeterType}, advisors, opts...)
	require.NoError(t, err)
	return p
}

func TestInvokeUnadvised(t *testing.T) {
	target := &greeterService{}
	p := newGreeterProxy(t, target, nil)

	results, err := p.Invoke(context.Background(), "Greet", "bob")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"hello bob"}, results)
	assert.Equal(t, 1, target.calls)
}

func TestNewProxyValidation(t *testing.T) {
	_, err := NewProxy(NewConfig(), nil, nil, nil)
	assert.ErrorIs(t, err, types.ErrConfiguration)

	_, err = NewProxy(NewConfig(), NewSingletonTargetSource(&greeterService{}),
		[]reflect.Type{reflect.TypeOf(42)}, nil)
	assert.ErrorIs(t, err, types.ErrConfiguration)

	// Target must implement every advertised interface.
	_, err = NewProxy(NewConfig(), NewSingletonTargetSource(struct{}{}),
		[]reflect.Type{greeterType}, nil)
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestInterceptorOrdering(t *testing.T) {
	var log []string
	advisors := []types.Advisor{
		types.NewAdvisor(nil, &recordingInterceptor{name: "outer", log: &log}, 0),
		types.NewAdvisor(nil, &recordingInterceptor{name: "inner", log: &log}, 1),
	}
	p := newGreeterProxy(t, &greeterService{}, advisors)

	_, err := p.Invoke(context.Background(), "Greet", "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"outer>", "inner>", "inner<", "outer<"}, log)
}

func TestPointcutFiltersInterceptors(t *testing.T) {
	var log []string
	advisors := []types.Advisor{
		types.NewAdvisor(methodPointcut{name: "Greet"}, &recordingInterceptor{name: "hit", log: &log}, 0),
		types.NewAdvisor(methodPointcut{name: "Other"}, &recordingInterceptor{name: "miss", log: &log}, 0),
	}
	p := newGreeterProxy(t, &greeterService{}, advisors)

	_, err := p.Invoke(context.Background(), "Greet", "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"hit>", "hit<"}, log)
}

func TestInterceptorAbortsBeforeTarget(t *testing.T) {
	denied := errors.New("denied")
	target := &greeterService{}
	advisors := []types.Advisor{
		types.NewAdvisor(nil, interceptorFunc(func(inv types.ProceedingJoinpoint) ([]interface{}, error) {
			return nil, denied
		}), 0),
	}
	p := newGreeterProxy(t, target, advisors)

	_, err := p.Invoke(context.Background(), "Greet", "bob")
	assert.Same(t, denied, err)
	assert.Equal(t, 0, target.calls)
}

func TestTargetErrorPassesThroughVerbatim(t *testing.T) {
	boom := errors.New("boom")
	target := &greeterService{fail: boom}
	advisors := []types.Advisor{
		types.NewAdvisor(nil, interceptorFunc(func(inv types.ProceedingJoinpoint) ([]interface{}, error) {
			return inv.Proceed()
		}), 0),
	}
	p := newGreeterProxy(t, target, advisors)

	_, err := p.Invoke(context.Background(), "Greet", "bob")
	assert.Same(t, boom, err)
}

func TestProceedWithReplacesArguments(t *testing.T) {
	advisors := []types.Advisor{
		types.NewAdvisor(nil, interceptorFunc(func(inv types.ProceedingJoinpoint) ([]interface{}, error) {
			return inv.ProceedWith([]interface{}{"alice"})
		}), 0),
	}
	p := newGreeterProxy(t, &greeterService{}, advisors)

	results, err := p.Invoke(context.Background(), "Greet", "bob")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"hello alice"}, results)
}

func TestAroundRetriesByProceedingTwice(t *testing.T) {
	target := &greeterService{}
	advisors := []types.Advisor{
		types.NewAdvisor(nil, interceptorFunc(func(inv types.ProceedingJoinpoint) ([]interface{}, error) {
			if _, err := inv.Proceed(); err != nil {
				return nil, err
			}
			return inv.Proceed()
		}), 0),
	}
	p := newGreeterProxy(t, target, advisors)

	_, err := p.Invoke(context.Background(), "Greet", "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, target.calls)
}

func TestNilResultForNonNilableReturn(t *testing.T) {
	advisors := []types.Advisor{
		types.NewAdvisor(nil, interceptorFunc(func(inv types.ProceedingJoinpoint) ([]interface{}, error) {
			// Skip the target entirely and return nothing.
			return nil, nil
		}), 0),
	}
	p := newGreeterProxy(t, &greeterService{}, advisors)

	_, err := p.Invoke(context.Background(), "Greet", "bob")
	assert.ErrorIs(t, err, types.ErrInvocation)
}

func TestDispatchErrors(t *testing.T) {
	p := newGreeterProxy(t, &greeterService{}, nil)

	_, err := p.Invoke(context.Background(), "Greet")
	assert.ErrorIs(t, err, types.ErrInvocation)

	_, err = p.Invoke(context.Background(), "Greet", 42)
	assert.ErrorIs(t, err, types.ErrInvocation)

	_, err = p.Invoke(context.Background(), "Vanish")
	assert.ErrorIs(t, err, types.ErrInvocation)
}

type chainer interface {
	Self() chainer
}

type chainService struct{}

func (s *chainService) Self() chainer { return s }

func TestThisReturnBecomesProxy(t *testing.T) {
	target := &chainService{}
	chainerType := reflect.TypeOf((*chainer)(nil)).Elem()
	p, err := NewProxy(NewConfig(), NewSingletonTargetSource(target), []reflect.Type{chainerType},
		[]types.Advisor{types.NewAdvisor(nil, noopInterceptor{}, 0)})
	require.NoError(t, err)

	results, err := p.Invoke(context.Background(), "Self")
	require.NoError(t, err)
	assert.Same(t, p, results[0])
}

type rawChainer interface {
	types.RawTargetAccess
	SelfRaw() rawChainer
}

type rawChainService struct{}

func (s *rawChainService) SelfRaw() rawChainer { return s }
func (s *rawChainService) RawTargetAccess() {}

func TestRawTargetAccessSkipsRewrite(t *testing.T) {
	target := &rawChainService{}
	rawType := reflect.TypeOf((*rawChainer)(nil)).Elem()
	p, err := NewProxy(NewConfig(), NewSingletonTargetSource(target), []reflect.Type{rawType}, nil)
	require.NoError(t, err)

	results, err := p.Invoke(context.Background(), "SelfRaw")
	require.NoError(t, err)
	assert.Same(t, target, results[0])
}

func TestReleaseOnEveryInvocation(t *testing.T) {
	boom := errors.New("boom")
	acquired, released := 0, 0
	fail := false
	source := &PooledTargetSource{
		Type: reflect.TypeOf(&greeterService{}),
		Acquire: func() (interface{}, error) {
			acquired++
			if fail {
				return &greeterService{fail: boom}, nil
			}
			return &greeterService{}, nil
		},
		Recycle: func(interface{}) error {
			released++
			return nil
		},
	}
	p, err := NewProxy(NewConfig(), source, []reflect.Type{greeterType}, nil)
	require.NoError(t, err)

	_, err = p.Invoke(context.Background(), "Greet", "bob")
	require.NoError(t, err)

	fail = true
	_, err = p.Invoke(context.Background(), "Greet", "bob")
	assert.Same(t, boom, err)

	assert.Equal(t, 2, acquired)
	assert.Equal(t, acquired, released)
}

func TestProxyIdentity(t *testing.T) {
	ctx := context.Background()
	source := NewSingletonTargetSource(&greeterService{})
	advisors := []types.Advisor{types.NewAdvisor(nil, noopInterceptor{}, 0)}

	p1, err := NewProxy(NewConfig(), source, []reflect.Type{greeterType}, advisors)
	require.NoError(t, err)
	p2, err := NewProxy(NewConfig(), source, []reflect.Type{greeterType}, advisors)
	require.NoError(t, err)
	p3 := newGreeterProxy(t, &greeterService{}, advisors)

	results, err := p1.Invoke(ctx, "Equals", p1)
	require.NoError(t, err)
	assert.Equal(t, true, results[0])

	results, err = p1.Invoke(ctx, "Equals", p2)
	require.NoError(t, err)
	assert.Equal(t, true, results[0])

	results, err = p1.Invoke(ctx, "Equals", p3)
	require.NoError(t, err)
	assert.Equal(t, false, results[0])

	results, err = p1.Invoke(ctx, "Equals", "not a proxy")
	require.NoError(t, err)
	assert.Equal(t, false, results[0])

	h1, err := p1.Invoke(ctx, "HashCode")
	require.NoError(t, err)
	h2, err := p2.Invoke(ctx, "HashCode")
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestAdvisedDispatch(t *testing.T) {
	ctx := context.Background()
	advisors := []types.Advisor{types.NewAdvisor(nil, noopInterceptor{}, 0)}
	p := newGreeterProxy(t, &greeterService{}, advisors)

	results, err := p.Invoke(ctx, "AdvisorCount")
	require.NoError(t, err)
	assert.Equal(t, 1, results[0])

	results, err = p.Invoke(ctx, "IsExposeProxy")
	require.NoError(t, err)
	assert.Equal(t, false, results[0])

	opaque := newGreeterProxy(t, &greeterService{}, advisors, WithOpaque())
	_, err = opaque.Invoke(ctx, "AdvisorCount")
	assert.ErrorIs(t, err, types.ErrInvocation)
}

func TestDecoratedType(t *testing.T) {
	ctx := context.Background()
	target := &greeterService{}
	p1 := newGreeterProxy(t, target, nil)

	results, err := p1.Invoke(ctx, "DecoratedType")
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(target), results[0])

	// A proxy over a proxy reports the innermost real type.
	p2, err := NewProxy(NewConfig(), NewSingletonTargetSource(p1), nil,
		[]types.Advisor{types.NewAdvisor(nil, noopInterceptor{}, 0)})
	require.NoError(t, err)

	results, err = p2.Invoke(ctx, "DecoratedType")
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(target), results[0])
}

type aware interface {
	WhoAmI(ctx context.Context) (interface{}, error)
}

type awareService struct{}

func (s *awareService) WhoAmI(ctx context.Context) (interface{}, error) {
	p, _ := CurrentProxy(ctx)
	return p, nil
}

func TestExposeProxy(t *testing.T) {
	ctx := context.Background()
	awareType := reflect.TypeOf((*aware)(nil)).Elem()

	exposed, err := NewProxy(NewConfig(), NewSingletonTargetSource(&awareService{}),
		[]reflect.Type{awareType}, nil, WithExposeProxy())
	require.NoError(t, err)

	results, err := exposed.Invoke(ctx, "WhoAmI")
	require.NoError(t, err)
	assert.Same(t, exposed, results[0])

	hidden, err := NewProxy(NewConfig(), NewSingletonTargetSource(&awareService{}),
		[]reflect.Type{awareType}, nil)
	require.NoError(t, err)

	results, err = hidden.Invoke(ctx, "WhoAmI")
	require.NoError(t, err)
	assert.Nil(t, results[0])
}

type tagged interface {
	Tag() string
}

type taggedDelegate struct{}

func (taggedDelegate) Tag() string { return "introduced" }

type introAdvisor struct{}

func (introAdvisor) Pointcut() types.Pointcut { return nil }
func (introAdvisor) Advice() types.MethodInterceptor { return nil }
func (introAdvisor) Order() int { return 0 }
func (introAdvisor) Interface() reflect.Type { return reflect.TypeOf((*tagged)(nil)).Elem() }
func (introAdvisor) NewDelegate() interface{} { return taggedDelegate{} }

func TestIntroductionDispatchesToDelegate(t *testing.T) {
	target := &greeterService{}
	p, err := NewProxy(NewConfig(), NewSingletonTargetSource(target),
		[]reflect.Type{greeterType}, []types.Advisor{introAdvisor{}})
	require.NoError(t, err)

	results, err := p.Invoke(context.Background(), "Tag")
	require.NoError(t, err)
	assert.Equal(t, "introduced", results[0])

	// The base contract still works.
	results, err = p.Invoke(context.Background(), "Greet", "bob")
	require.NoError(t, err)
	assert.Equal(t, "hello bob", results[0])
}
