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

// Package engine creates substitute objects and runs the advice chain
// around their calls.
//
// A Proxy is built once from a target source, the advertised interfaces and
// an advisor list, and then serves calls through Invoke. Per call it matches
// the advisors against the invoked method, builds the interceptor chain and
// executes it on the calling goroutine; with no matching advisors the call
// goes straight to the target. Everything the target returns or fails with
// passes through unchanged.
package engine

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/aspectgo/aspectgo/api/types"
)

const (
	// EqualsMethod and HashCodeMethod are answered with proxy identity
	// semantics unless the advertised contract declares them itself.
	EqualsMethod   = "Equals"
	HashCodeMethod = "HashCode"
	// DecoratedTypeMethod answers the most-derived type behind the target
	// source without touching the target.
	DecoratedTypeMethod = "DecoratedType"
)

// proxyHashSeed is the fixed seed of proxy identity hashes.
const proxyHashSeed uint64 = 0x9e3779b97f4a7c15

var (
	rawTargetAccessType = reflect.TypeOf((*types.RawTargetAccess)(nil)).Elem()
	emptyInterfaceType  = reflect.TypeOf((*interface{})(nil)).Elem()
)

// dispatchEntry is one method of the proxied contract, resolved at proxy
// construction into a dispatch-table row.
type dispatchEntry struct {
	name       string
	iface      reflect.Type
	methodType reflect.Type
	// hasCtx is true when the first declared parameter is a context.Context;
	// the engine injects the call context there.
	hasCtx bool
	// returns lists the declared non-error return types.
	returns []reflect.Type
	// rawTarget opts the method out of the this-return rewrite.
	rawTarget bool
	// delegate backs methods of an introduced interface.
	delegate interface{}
}

// Advised is the configuration-introspection surface of a proxy. Unless the
// proxy is built opaque, calls naming one of its methods dispatch here
// reflectively, bypassing advice.
type Advised struct {
	advisors     []types.Advisor
	targetSource types.TargetSource
	interfaces   []reflect.Type
	exposeProxy  bool
	opaque       bool
}

func (a *Advised) Advisors() []types.Advisor {
	out := make([]types.Advisor, len(a.advisors))
	copy(out, a.advisors)
	return out
}

func (a *Advised) AdvisorCount() int {
	return len(a.advisors)
}

func (a *Advised) TargetSource() types.TargetSource {
	return a.targetSource
}

func (a *Advised) Interfaces() []reflect.Type {
	out := make([]reflect.Type, len(a.interfaces))
	copy(out, a.interfaces)
	return out
}

func (a *Advised) IsExposeProxy() bool {
	return a.exposeProxy
}

func (a *Advised) IsOpaque() bool {
	return a.opaque
}

// equalsConfiguration implements proxy equality: same target source, same
// advertised interfaces, same advisors.
func (a *Advised) equalsConfiguration(other *Advised) bool {
	if other == nil {
		return false
	}
	if a.targetSource != other.targetSource {
		return false
	}
	if len(a.interfaces) != len(other.interfaces) || len(a.advisors) != len(other.advisors) {
		return false
	}
	for i, iface := range a.interfaces {
		if other.interfaces[i] != iface {
			return false
		}
	}
	for i, ad := range a.advisors {
		if other.advisors[i] != ad {
			return false
		}
	}
	return true
}

// ProxyOption modifies the proxy configuration.
type ProxyOption func(*Advised)

// WithExposeProxy publishes the proxy into the call context so advised code
// can route self-invocations back through the advice chain.
func WithExposeProxy() ProxyOption {
	return func(a *Advised) {
		a.exposeProxy = true
	}
}

// WithOpaque hides the configuration-introspection surface from callers.
func WithOpaque() ProxyOption {
	return func(a *Advised) {
		a.opaque = true
	}
}

// Proxy is the callable substitute for a target. It owns no business state;
// each call re-derives its interceptor chain from the advisor list and the
// invoked method.
type Proxy struct {
	config  types.Config
	logger  types.Logger
	advised *Advised

	dispatch        map[string]*dispatchEntry
	equalsDefined   bool
	hashCodeDefined bool
	advertised      map[reflect.Type]bool

	// matchCache caches the matched interceptor list per (method, target
	// type). Matching is deterministic, so racing recomputations are
	// harmless and the cache needs no lock beyond sync.Map.
	matchCache sync.Map
}

type matchKey struct {
	method     string
	targetType reflect.Type
}

// NewProxy validates the configuration and builds the dispatch table. A
// proxy needs at least one advisor or a real target source; advertised
// interfaces must be interface types the target implements.
func NewProxy(config types.Config, targetSource types.TargetSource, interfaces []reflect.Type,
	advisors []types.Advisor, opts ...ProxyOption) (*Proxy, error) {

	if targetSource == nil {
		targetSource = EmptyTargetSource()
	}
	if len(advisors) == 0 && isEmptyTargetSource(targetSource) {
		return nil, fmt.Errorf("no advisors and no target source specified: %w", types.ErrConfiguration)
	}

	advised := &Advised{
		advisors:     advisors,
		targetSource: targetSource,
		interfaces:   interfaces,
	}
	for _, opt := range opts {
		opt(advised)
	}

	p := &Proxy{
		config:     config,
		logger:     types.NewLogger(config.Logger),
		advised:    advised,
		dispatch:   make(map[string]*dispatchEntry),
		advertised: make(map[reflect.Type]bool),
	}

	targetType := targetSource.TargetType()
	for _, iface := range interfaces {
		if iface == nil || iface.Kind() != reflect.Interface {
			return nil, fmt.Errorf("advertised type %v is not an interface: %w", iface, types.ErrConfiguration)
		}
		if targetType != nil && !targetType.Implements(iface) {
			return nil, fmt.Errorf("target type %s does not implement %s: %w",
				targetType, iface, types.ErrConfiguration)
		}
		p.advertise(iface, nil)
	}

	// Introductions extend the contract with delegate-backed interfaces.
	for _, ad := range advisors {
		intro, ok := ad.(types.IntroductionAdvisor)
		if !ok {
			continue
		}
		delegate := intro.NewDelegate()
		if delegate == nil || !reflect.TypeOf(delegate).Implements(intro.Interface()) {
			return nil, fmt.Errorf("introduction delegate %T does not implement %s: %w",
				delegate, intro.Interface(), types.ErrConfiguration)
		}
		p.advertise(intro.Interface(), delegate)
	}

	p.equalsDefined = p.dispatch[EqualsMethod] != nil
	p.hashCodeDefined = p.dispatch[HashCodeMethod] != nil
	return p, nil
}

// advertise adds every method of the interface to the dispatch table. On
// name collisions the first advertised interface wins.
func (p *Proxy) advertise(iface reflect.Type, delegate interface{}) {
	p.advertised[iface] = true
	rawTarget := iface.Implements(rawTargetAccessType)
	for i := 0; i < iface.NumMethod(); i++ {
		m := iface.Method(i)
		if _, exists := p.dispatch[m.Name]; exists {
			continue
		}
		entry := &dispatchEntry{
			name:       m.Name,
			iface:      iface,
			methodType: m.Type,
			hasCtx:     m.Type.NumIn() > 0 && m.Type.In(0) == contextType,
			rawTarget:  rawTarget,
			delegate:   delegate,
		}
		for o := 0; o < m.Type.NumOut(); o++ {
			if o == m.Type.NumOut()-1 && m.Type.Out(o) == errorType {
				continue
			}
			entry.returns = append(entry.returns, m.Type.Out(o))
		}
		p.dispatch[m.Name] = entry
	}
}

// Invoke serves one call on the substitute object. Results are the declared
// non-error return values of the method; the error is exactly what the
// undecorated target would have returned unless advice explicitly
// translated it.
func (p *Proxy) Invoke(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// Self-methods answered with proxy identity semantics, never forwarded.
	switch {
	case method == EqualsMethod && !p.equalsDefined:
		if len(args) != 1 {
			return nil, fmt.Errorf("%s takes exactly one argument: %w", EqualsMethod, types.ErrInvocation)
		}
		return []interface{}{p.equalsProxy(args[0])}, nil
	case method == HashCodeMethod && !p.hashCodeDefined:
		return []interface{}{p.proxyHash()}, nil
	case method == DecoratedTypeMethod && p.dispatch[DecoratedTypeMethod] == nil:
		return []interface{}{p.ultimateTargetType()}, nil
	}

	entry, ok := p.dispatch[method]
	if !ok {
		if !p.advised.opaque {
			if out, handled, err := p.dispatchToAdvised(method, args); handled {
				return out, err
			}
		}
		return nil, fmt.Errorf("method %q is not part of the proxied contract: %w", method, types.ErrInvocation)
	}

	if p.advised.exposeProxy {
		ctx = WithCurrentProxy(ctx, p)
	}

	targetSource := p.advised.targetSource
	target, err := targetSource.GetTarget()
	if err != nil {
		return nil, err
	}
	defer func() {
		// Release must happen on every path and must never mask the call
		// outcome.
		if target != nil && !targetSource.IsStatic() {
			if releaseErr := targetSource.ReleaseTarget(target); releaseErr != nil {
				p.logger.Printf("aspectgo: failed to release target of method %q: %v", method, releaseErr)
			}
		}
	}()

	targetType := p.runtimeTargetType(target)
	interceptors := p.interceptorsFor(entry, targetType)

	var results []interface{}
	if len(interceptors) == 0 {
		// Fast path: no chain object for unadvised methods.
		results, err = callTarget(ctx, entry, receiverOf(entry, target), args)
	} else {
		inv := newInvocation(ctx, p, entry, target, targetType, args, interceptors)
		results, err = inv.Proceed()
	}
	if err != nil {
		return nil, err
	}
	return p.postProcess(entry, target, results)
}

func receiverOf(entry *dispatchEntry, target interface{}) interface{} {
	if entry.delegate != nil {
		return entry.delegate
	}
	return target
}

func (p *Proxy) runtimeTargetType(target interface{}) reflect.Type {
	if target != nil {
		return reflect.TypeOf(target)
	}
	return p.advised.targetSource.TargetType()
}

// interceptorsFor resolves the advisors matching the method into the
// per-call interceptor list, cached per (method, target type).
func (p *Proxy) interceptorsFor(entry *dispatchEntry, targetType reflect.Type) []types.MethodInterceptor {
	key := matchKey{method: entry.name, targetType: targetType}
	if cached, ok := p.matchCache.Load(key); ok {
		return cached.([]types.MethodInterceptor)
	}
	info := types.MethodInfo{Name: entry.name, DeclaringType: entry.iface, Type: entry.methodType}
	interceptors := make([]types.MethodInterceptor, 0, len(p.advised.advisors))
	for _, ad := range p.advised.advisors {
		if _, isIntro := ad.(types.IntroductionAdvisor); isIntro {
			continue
		}
		if pc := ad.Pointcut(); pc == nil || pc.Matches(info, targetType) {
			interceptors = append(interceptors, ad.Advice())
		}
	}
	p.matchCache.Store(key, interceptors)
	return interceptors
}

// postProcess applies the return-value contract: the this-return rewrite
// and the nil check for non-nilable declared return types.
func (p *Proxy) postProcess(entry *dispatchEntry, target interface{}, results []interface{}) ([]interface{}, error) {
	if results == nil && len(entry.returns) > 0 {
		results = make([]interface{}, len(entry.returns))
	}
	if len(results) != len(entry.returns) {
		return nil, fmt.Errorf("method %q declares %d results, advice produced %d: %w",
			entry.name, len(entry.returns), len(results), types.ErrInvocation)
	}
	for i, rt := range entry.returns {
		if results[i] == nil {
			if !nilable(rt) {
				return nil, fmt.Errorf("nil return value does not match %s return type of method %q: %w",
					rt, entry.name, types.ErrInvocation)
			}
			continue
		}
		// A target returning itself keeps chained calls inside the advice
		// chain: substitute the proxy when the declared return type is one
		// of the advertised interfaces.
		if target != nil && identical(results[i], target) &&
			rt.Kind() == reflect.Interface && rt != emptyInterfaceType &&
			p.advertised[rt] && !entry.rawTarget {
			results[i] = p
		}
	}
	return results, nil
}

// dispatchToAdvised reflectively serves the configuration-introspection
// contract on the Advised object.
func (p *Proxy) dispatchToAdvised(method string, args []interface{}) ([]interface{}, bool, error) {
	m := reflect.ValueOf(p.advised).MethodByName(method)
	if !m.IsValid() {
		return nil, false, nil
	}
	mt := m.Type()
	if len(args) != mt.NumIn() {
		return nil, true, fmt.Errorf("method %q takes %d arguments, got %d: %w",
			method, mt.NumIn(), len(args), types.ErrInvocation)
	}
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(mt.In(i))
			continue
		}
		if !reflect.TypeOf(arg).AssignableTo(mt.In(i)) {
			return nil, true, fmt.Errorf("argument %d for method %q is %T, want %s: %w",
				i, method, arg, mt.In(i), types.ErrInvocation)
		}
		in[i] = reflect.ValueOf(arg)
	}
	out := m.Call(in)
	results := make([]interface{}, len(out))
	for i, v := range out {
		results[i] = v.Interface()
	}
	return results, true, nil
}

// equalsProxy implements proxy equality: true only for proxies sharing the
// advisor configuration and the target source.
func (p *Proxy) equalsProxy(other interface{}) bool {
	if other == nil {
		return false
	}
	otherProxy, ok := other.(*Proxy)
	if !ok {
		return false
	}
	if otherProxy == p {
		return true
	}
	return p.advised.equalsConfiguration(otherProxy.advised)
}

// proxyHash derives proxy identity from the target source.
func (p *Proxy) proxyHash() uint64 {
	return proxyHashSeed ^ targetSourceHash(p.advised.targetSource)
}

// ultimateTargetType unwraps nested proxies down to the most-derived real
// type behind the target source chain.
func (p *Proxy) ultimateTargetType() reflect.Type {
	ts := p.advised.targetSource
	for {
		singleton, ok := ts.(*SingletonTargetSource)
		if !ok {
			break
		}
		nested, ok := singleton.target.(*Proxy)
		if !ok {
			break
		}
		ts = nested.advised.targetSource
	}
	return ts.TargetType()
}

// identical reports reference identity between two values. Only pointer-like
// values can be identical; everything else is a copy by the time it got
// here.
func identical(a, b interface{}) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() != vb.Kind() {
		return false
	}
	switch va.Kind() {
	case reflect.Ptr, reflect.Chan, reflect.Map, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	default:
		return false
	}
}
