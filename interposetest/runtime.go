// Package interposetest provides an in-memory host runtime for
// exercising the interpose engine without a real dynamic-dispatch
// runtime. Classes hold mutable per-class method tables, objects carry
// an actual class pointer, and dispatch walks the superclass chain the
// way a host dispatcher would.
package interposetest

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/zoobzio/interpose"
)

// ObservationPrefix is the class-name convention this host uses for
// its key-value-observation subclasses.
const ObservationPrefix = "observing_"

// Class is an in-memory class: a name, an optional superclass, and an
// own method table. Synthetic classes model runtime-inserted
// subclasses (interposition, observation, posing) that the host hides
// from perceived-class introspection.
type Class struct {
	name      string
	super     *Class
	synthetic bool
	methods   map[interpose.Selector]interpose.IMP
	encodings map[interpose.Selector]string
}

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// Super returns the superclass, or nil for a root class.
func (c *Class) Super() *Class { return c.super }

// Define binds an implementation to a selector in this class's own
// table, deriving the type encoding from the func value. A nil
// implementation models malformed class state: the selector resolves
// but has no callable pointer.
func (c *Class) Define(selector interpose.Selector, imp interpose.IMP) {
	c.methods[selector] = imp
	if imp != nil {
		c.encodings[selector] = reflect.TypeOf(imp).String()
	}
}

// TypeEncoding returns the recorded calling-convention encoding for a
// selector implemented directly on this class.
func (c *Class) TypeEncoding(selector interpose.Selector) (string, bool) {
	enc, ok := c.encodings[selector]
	return enc, ok
}

// Object is an in-memory instance: an actual class pointer plus a
// property bag for per-instance state.
type Object struct {
	class *Class
	Props map[string]any
}

// Runtime is the in-memory host. It implements interpose.Runtime.
type Runtime struct {
	mu      sync.RWMutex
	classes map[string]*Class
}

var _ interpose.Runtime = (*Runtime)(nil)

// NewRuntime creates an empty host runtime.
func NewRuntime() *Runtime {
	return &Runtime{classes: make(map[string]*Class)}
}

// DefineClass registers a new class with the given superclass (nil for
// a root class). It panics on duplicate names; fixtures are authored,
// not computed.
func (r *Runtime) DefineClass(name string, super *Class) *Class {
	c, err := r.defineClass(name, super, false)
	if err != nil {
		panic(err)
	}
	return c
}

// DefineHiddenClass registers a synthetic class that perceived-class
// introspection skips. Tests use it to simulate observation subclasses
// and third-party posers.
func (r *Runtime) DefineHiddenClass(name string, super *Class) *Class {
	c, err := r.defineClass(name, super, true)
	if err != nil {
		panic(err)
	}
	return c
}

func (r *Runtime) defineClass(name string, super *Class, synthetic bool) (*Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.classes[name]; exists {
		return nil, fmt.Errorf("interposetest: class %q already defined", name)
	}
	c := &Class{
		name:      name,
		super:     super,
		synthetic: synthetic,
		methods:   make(map[interpose.Selector]interpose.IMP),
		encodings: make(map[interpose.Selector]string),
	}
	r.classes[name] = c
	return c, nil
}

// Class returns a registered class by name.
func (r *Runtime) Class(name string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[name]
	return c, ok
}

// NewObject allocates an instance of the class.
func (r *Runtime) NewObject(c *Class) *Object {
	return &Object{class: c, Props: make(map[string]any)}
}

// Call dispatches selector on obj through the actual-class chain, the
// way the host dispatcher would, and invokes the bound implementation
// with obj as the first argument. It returns the single result of the
// method, nil for void methods, or a []any for multi-result methods.
func (r *Runtime) Call(obj *Object, selector interpose.Selector, args ...any) (any, error) {
	imp, ok := r.Resolve(obj.class, selector)
	if !ok {
		return nil, fmt.Errorf("interposetest: object of class %s does not respond to %s", obj.class.name, selector)
	}
	if imp == nil {
		return nil, fmt.Errorf("interposetest: selector %s on class %s has no implementation", selector, obj.class.name)
	}

	fn := reflect.ValueOf(imp)
	in := make([]reflect.Value, 0, len(args)+1)
	in = append(in, reflect.ValueOf(obj))
	ft := fn.Type()
	for i, arg := range args {
		if arg == nil {
			// Zero value of the parameter type stands in for nil.
			in = append(in, reflect.New(ft.In(i+1)).Elem())
			continue
		}
		in = append(in, reflect.ValueOf(arg))
	}

	out := fn.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	default:
		results := make([]any, len(out))
		for i, v := range out {
			results[i] = v.Interface()
		}
		return results, nil
	}
}

// Resolve implements interpose.Runtime. It searches cls's own table,
// then the superclass chain. An own entry holding nil stops the search
// and reports found-but-nil, modeling malformed class state.
func (r *Runtime) Resolve(cls interpose.Class, selector interpose.Selector) (interpose.IMP, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := cls.(*Class); c != nil; c = c.super {
		if imp, ok := c.methods[selector]; ok {
			return imp, true
		}
	}
	return nil, false
}

// SetImplementation implements interpose.Runtime.
func (r *Runtime) SetImplementation(cls interpose.Class, selector interpose.Selector, imp interpose.IMP) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cls.(*Class).methods[selector] = imp
	return nil
}

// AddMethod implements interpose.Runtime. It reports false when the
// class already implements the selector directly.
func (r *Runtime) AddMethod(cls interpose.Class, selector interpose.Selector, imp interpose.IMP, typeEncoding string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := cls.(*Class)
	if _, exists := c.methods[selector]; exists {
		return false, nil
	}
	c.methods[selector] = imp
	c.encodings[selector] = typeEncoding
	return true, nil
}

// AllocateSubclass implements interpose.Runtime. The allocated class
// is synthetic (hidden from perceived-class introspection) and not yet
// visible to the dispatcher until RegisterSubclass.
func (r *Runtime) AllocateSubclass(super interpose.Class, name string) (interpose.Class, error) {
	r.mu.RLock()
	_, taken := r.classes[name]
	r.mu.RUnlock()
	if taken {
		return nil, fmt.Errorf("interposetest: class name %q already taken", name)
	}
	return &Class{
		name:      name,
		super:     super.(*Class),
		synthetic: true,
		methods:   make(map[interpose.Selector]interpose.IMP),
		encodings: make(map[interpose.Selector]string),
	}, nil
}

// RegisterSubclass implements interpose.Runtime.
func (r *Runtime) RegisterSubclass(cls interpose.Class) error {
	c := cls.(*Class)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.classes[c.name]; exists {
		return fmt.Errorf("interposetest: class %q already registered", c.name)
	}
	r.classes[c.name] = c
	return nil
}

// ActualClass implements interpose.Runtime.
func (r *Runtime) ActualClass(obj interpose.Object) interpose.Class {
	return obj.(*Object).class
}

// PerceivedClass implements interpose.Runtime: the first non-synthetic
// class on the actual-class chain, modeling the host hiding runtime
// subclasses from introspection.
func (r *Runtime) PerceivedClass(obj interpose.Object) interpose.Class {
	c := obj.(*Object).class
	for c.synthetic && c.super != nil {
		c = c.super
	}
	return c
}

// SetClass implements interpose.Runtime.
func (r *Runtime) SetClass(obj interpose.Object, cls interpose.Class) {
	obj.(*Object).class = cls.(*Class)
}

// ClassName implements interpose.Runtime.
func (r *Runtime) ClassName(cls interpose.Class) string {
	return cls.(*Class).name
}

// IsObservationClass implements interpose.Runtime.
func (r *Runtime) IsObservationClass(cls interpose.Class) bool {
	return strings.HasPrefix(cls.(*Class).name, ObservationPrefix)
}
