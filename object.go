package interpose

import (
	"fmt"
	"reflect"
)

// subclassPrefix is the fixed namespacing marker prepended to the
// perceived class's name when deriving the synthesized subclass name.
const subclassPrefix = "Interpose_"

// subclassName derives the deterministic name of the synthesized
// subclass for a class. The derivation is stable so a second hook on
// the same object recognizes and reuses an existing subclass.
func subclassName(perceived string) string {
	return subclassPrefix + perceived
}

// ObjectHook makes exactly one object's behavior diverge from its
// class's. The first apply for an object lazily inserts a private
// synthesized subclass between the object's real class and its
// perceived class; only the subclass's table is ever mutated, so
// sibling instances of the same class are unaffected.
//
// Once inserted, the subclass is never removed: after every hook on
// the object is reverted it holds only super-forwarding trampolines
// and is behaviorally inert, but the object's actual class pointer is
// not restored. Runtime subclasses are not safely deregistrable on all
// hosts.
type ObjectHook struct {
	hookBase
	object   Object
	subclass Class

	// createdSubclass records whether this hook allocated the subclass
	// or reused one set up by an earlier hook on the same object.
	createdSubclass bool
	prepared        bool
}

// NewObjectHook creates an object-scoped hook in the prepared state.
// The object is rejected up front if its class identity is already
// owned by another subsystem; no hook is created in that case.
func NewObjectHook(rt Runtime, obj Object, selector Selector, methodType reflect.Type, build BuildFunc) (*ObjectHook, error) {
	if err := checkMethodType(methodType, selector); err != nil {
		return nil, err
	}
	if err := validateObjectClass(rt, obj); err != nil {
		return nil, err
	}
	h := &ObjectHook{
		hookBase: hookBase{
			runtime:    rt,
			selector:   selector,
			methodType: methodType,
			state:      StatePrepared,
		},
		object: obj,
	}
	if build != nil {
		h.substitute = build(h)
	}
	return h, nil
}

// Apply sets up the synthesized subclass if needed, then runs the
// generic apply contract against it. Subclass setup is ordered so a
// failure leaves the object entirely unmodified.
func (h *ObjectHook) Apply() error {
	if err := h.validateReady(); err != nil {
		return err
	}
	if err := h.prepare(); err != nil {
		return err
	}
	return h.applyOn(h.subclass)
}

func (h *ObjectHook) Revert() error {
	if err := h.Validate(StateInterposed); err != nil {
		return err
	}
	return h.revertOn(h.subclass)
}

func (h *ObjectHook) cleanup() error {
	if h.state != StateInterposed {
		return nil
	}
	return h.Revert()
}

// CreatedSubclass reports whether this hook allocated the object's
// synthesized subclass, as opposed to reusing one.
func (h *ObjectHook) CreatedSubclass() bool { return h.createdSubclass }

// Subclass returns the synthesized subclass identity, or nil before
// the first apply.
func (h *ObjectHook) Subclass() Class { return h.subclass }

// prepare inserts or reuses the synthesized subclass and guarantees
// the selector is implemented directly on it, so applyOn never touches
// the shared parent class's table.
func (h *ObjectHook) prepare() error {
	if h.prepared {
		return nil
	}
	rt := h.runtime

	// Re-check identity: a third party may have reclassed the object
	// between registration and apply.
	if err := validateObjectClass(rt, h.object); err != nil {
		return err
	}

	perceived := rt.PerceivedClass(h.object)
	actual := rt.ActualClass(h.object)
	name := subclassName(rt.ClassName(perceived))

	// The selector must exist somewhere on the perceived chain before
	// a trampoline can stand in for it.
	if imp, ok := rt.Resolve(perceived, h.selector); !ok {
		return newResolveError(ErrMethodNotFound, rt.ClassName(perceived), h.selector)
	} else if imp == nil {
		return newResolveError(ErrNonExistingImplementation, rt.ClassName(perceived), h.selector)
	}

	var subclass Class
	reused := rt.ClassName(actual) == name
	if reused {
		subclass = actual
	} else {
		allocated, err := rt.AllocateSubclass(perceived, name)
		if err != nil {
			return newSubclassError(ErrFailedToAllocateClassPair, name, h.selector, err)
		}
		if err := rt.RegisterSubclass(allocated); err != nil {
			return newSubclassError(ErrFailedToAllocateClassPair, name, h.selector, err)
		}
		subclass = allocated
	}

	// Install a super-forwarding trampoline as the subclass's own
	// entry. AddMethod reports false when an earlier hook already
	// installed the selector directly.
	trampoline := superTrampoline(rt, perceived, h.selector, h.methodType)
	if _, err := rt.AddMethod(subclass, h.selector, trampoline, h.methodType.String()); err != nil {
		return newSubclassError(ErrUnableToAddMethod, name, h.selector, err)
	}

	// Only now, with the subclass fully formed, adopt it.
	if !reused {
		rt.SetClass(h.object, subclass)
		h.createdSubclass = true
		emitSubclassCreated(name, rt.ClassName(perceived))
	}

	h.subclass = subclass
	h.prepared = true
	return nil
}

// validateObjectClass classifies a mismatch between an object's actual
// and perceived class. Our own synthesized subclass is fine; the
// host's observation machinery and arbitrary posers are refused before
// any table is touched.
func validateObjectClass(rt Runtime, obj Object) error {
	actual := rt.ActualClass(obj)
	perceived := rt.PerceivedClass(obj)
	if actual == perceived {
		return nil
	}
	if rt.ClassName(actual) == subclassName(rt.ClassName(perceived)) {
		return nil
	}
	if rt.IsObservationClass(actual) {
		return newObjectError(ErrKeyValueObservationDetected, rt.ClassName(actual))
	}
	return newObjectError(ErrObjectPosingAsDifferentClass, rt.ClassName(actual))
}

// superTrampoline builds an implementation that resolves the selector
// on the perceived class at every call and forwards to it. Resolving
// at call time, not at install time, is what lets a class-level
// substitute installed later still be reached from an active object
// hook.
func superTrampoline(rt Runtime, perceived Class, selector Selector, methodType reflect.Type) IMP {
	return reflect.MakeFunc(methodType, func(args []reflect.Value) []reflect.Value {
		imp, ok := rt.Resolve(perceived, selector)
		if !ok || imp == nil {
			panic(fmt.Sprintf("interpose: selector %s vanished from class %s", selector, rt.ClassName(perceived)))
		}
		return reflect.ValueOf(imp).Call(args)
	}).Interface()
}
