// Package container is a small constructor-injection DI container. It keeps
// main.go wiring declarative: register constructors, then Invoke the run
// function and let dependencies resolve by type.
package container

import (
	"fmt"
	"reflect"
	"sync"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

type Container struct {
	mu         sync.RWMutex
	providers  map[reflect.Type]provider
	singletons map[reflect.Type]reflect.Value
}

type provider struct {
	ctor      reflect.Value
	singleton bool
}

func New() *Container {
	return &Container{
		providers:  make(map[reflect.Type]provider),
		singletons: make(map[reflect.Type]reflect.Value),
	}
}

// Provide registers a constructor for the type of its first return value.
// Constructors may take parameters (resolved from the container) and may
// return (T) or (T, error).
func (c *Container) Provide(constructor interface{}, singleton bool) error {
	v := reflect.ValueOf(constructor)
	if v.Kind() != reflect.Func {
		return fmt.Errorf("container: constructor must be a function")
	}
	ft := v.Type()
	if ft.NumOut() == 0 || ft.NumOut() > 2 {
		return fmt.Errorf("container: constructor must return (T) or (T, error)")
	}
	if ft.NumOut() == 2 && ft.Out(1) != errType {
		return fmt.Errorf("container: second return value must be error")
	}

	out := ft.Out(0)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.providers[out]; dup {
		return fmt.Errorf("container: provider already exists for %v", out)
	}
	c.providers[out] = provider{ctor: v, singleton: singleton}
	return nil
}

// MustProvide is Provide that panics on registration errors. Wiring mistakes
// are programmer errors and should fail at startup.
func (c *Container) MustProvide(constructor interface{}, singleton bool) {
	if err := c.Provide(constructor, singleton); err != nil {
		panic(err)
	}
}

// Resolve fills target (a non-nil pointer) with an instance of its type.
func (c *Container) Resolve(target interface{}) error {
	ptr := reflect.ValueOf(target)
	if ptr.Kind() != reflect.Ptr || ptr.IsNil() {
		return fmt.Errorf("container: target must be a non-nil pointer")
	}
	val, err := c.build(ptr.Elem().Type(), map[reflect.Type]bool{})
	if err != nil {
		return err
	}
	ptr.Elem().Set(val)
	return nil
}

// Invoke calls fn with every parameter resolved from the container. A
// trailing error return is propagated.
func (c *Container) Invoke(fn interface{}) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return fmt.Errorf("container: Invoke requires a function")
	}
	ft := v.Type()
	args := make([]reflect.Value, ft.NumIn())
	for i := 0; i < ft.NumIn(); i++ {
		val, err := c.build(ft.In(i), map[reflect.Type]bool{})
		if err != nil {
			return err
		}
		args[i] = val
	}
	outs := v.Call(args)
	if n := len(outs); n > 0 && outs[n-1].Type() == errType && !outs[n-1].IsNil() {
		return outs[n-1].Interface().(error)
	}
	return nil
}

func (c *Container) build(t reflect.Type, inFlight map[reflect.Type]bool) (reflect.Value, error) {
	c.mu.RLock()
	if v, ok := c.singletons[t]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	p, ok := c.providers[t]
	if !ok && t.Kind() == reflect.Interface {
		// Fall back to any provider whose concrete type satisfies the
		// requested interface.
		for pt, cand := range c.providers {
			if pt.Implements(t) {
				p, ok = cand, true
				break
			}
		}
	}
	c.mu.RUnlock()
	if !ok {
		return reflect.Value{}, fmt.Errorf("container: no provider for %v", t)
	}

	if inFlight[t] {
		return reflect.Value{}, fmt.Errorf("container: cyclic dependency for %v", t)
	}
	inFlight[t] = true

	ft := p.ctor.Type()
	args := make([]reflect.Value, ft.NumIn())
	for i := 0; i < ft.NumIn(); i++ {
		dep, err := c.build(ft.In(i), inFlight)
		if err != nil {
			return reflect.Value{}, err
		}
		args[i] = dep
	}
	outs := p.ctor.Call(args)
	if len(outs) == 2 {
		if err, _ := outs[1].Interface().(error); err != nil {
			return reflect.Value{}, err
		}
	}

	if p.singleton {
		c.mu.Lock()
		c.singletons[t] = outs[0]
		c.mu.Unlock()
	}
	return outs[0], nil
}
