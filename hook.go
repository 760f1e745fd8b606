package interpose

import (
	"fmt"
	"reflect"
)

// Hook represents one intercepted method. Hooks are created through a
// Session or the NewClassHook/NewObjectHook constructors and move
// through the prepared/interposed/reverted state machine.
type Hook interface {
	// Selector returns the method identity this hook intercepts.
	Selector() Selector

	// State returns the hook's current lifecycle state.
	State() State

	// Original returns the captured original implementation, or nil
	// before the first successful apply. Once captured it never
	// changes. For object hooks the original is a super-forwarding
	// trampoline, so a class-level substitute installed later is still
	// reached while both hooks are active.
	Original() IMP

	// Validate is a pure check with no mutation: it passes iff the
	// hook's current state equals expected.
	Validate(expected State) error

	// Apply resolves the selector, captures the original on first
	// apply, installs the substitute on the effective class, and
	// transitions to interposed. Valid from prepared or reverted.
	Apply() error

	// Revert verifies the table still holds this hook's substitute,
	// restores the captured original, and transitions to reverted.
	// Valid from interposed only.
	Revert() error

	// validateReady checks the apply precondition (prepared or
	// reverted) without mutating.
	validateReady() error

	// cleanup performs a best-effort revert on session teardown.
	cleanup() error
}

// hookBase carries the state machine shared by both hook variants.
// The variant supplies the effective class whose table is mutated.
type hookBase struct {
	runtime    Runtime
	selector   Selector
	methodType reflect.Type
	state      State
	original   IMP
	captured   bool
	substitute IMP
}

func (h *hookBase) Selector() Selector { return h.selector }

func (h *hookBase) State() State { return h.state }

func (h *hookBase) Original() IMP { return h.original }

func (h *hookBase) Validate(expected State) error {
	if h.state != expected {
		return newStateError(expected, h.state, h.selector)
	}
	return nil
}

// validateReady checks that apply is legal from the current state.
// The reported expectation is prepared, the canonical pre-apply state.
func (h *hookBase) validateReady() error {
	if h.state == StateInterposed {
		return newStateError(StatePrepared, h.state, h.selector)
	}
	return nil
}

// applyOn runs the generic apply contract against cls.
func (h *hookBase) applyOn(cls Class) error {
	if err := h.validateReady(); err != nil {
		return err
	}
	imp, ok := h.runtime.Resolve(cls, h.selector)
	if !ok {
		return newResolveError(ErrMethodNotFound, h.runtime.ClassName(cls), h.selector)
	}
	if imp == nil {
		return newResolveError(ErrNonExistingImplementation, h.runtime.ClassName(cls), h.selector)
	}
	if !h.captured {
		// Captured exactly once; re-applies keep the first pointer.
		h.original = imp
		h.captured = true
	}
	if h.substitute != nil {
		if err := h.runtime.SetImplementation(cls, h.selector, h.substitute); err != nil {
			return err
		}
	}
	h.state = StateInterposed
	emitHookApplied(h.runtime.ClassName(cls), h.selector)
	return nil
}

// revertOn runs the generic revert contract against cls.
func (h *hookBase) revertOn(cls Class) error {
	if err := h.Validate(StateInterposed); err != nil {
		return err
	}
	if h.substitute != nil {
		current, ok := h.runtime.Resolve(cls, h.selector)
		if !ok {
			return newResolveError(ErrMethodNotFound, h.runtime.ClassName(cls), h.selector)
		}
		if !sameIMP(current, h.substitute) {
			// A third party mutated the table after us. Leave it
			// alone and stay interposed.
			return newImplementationError(h.runtime.ClassName(cls), h.selector, current)
		}
		if err := h.runtime.SetImplementation(cls, h.selector, h.original); err != nil {
			return err
		}
	}
	h.state = StateReverted
	emitHookReverted(h.runtime.ClassName(cls), h.selector)
	return nil
}

// ClassHook intercepts a method for every instance of a class, and of
// subclasses that do not override it. It mutates the target class's
// table directly.
type ClassHook struct {
	hookBase
	target Class
}

// NewClassHook creates a class-scoped hook in the prepared state. The
// build callback runs immediately; the table is untouched until Apply.
func NewClassHook(rt Runtime, cls Class, selector Selector, methodType reflect.Type, build BuildFunc) (*ClassHook, error) {
	if err := checkMethodType(methodType, selector); err != nil {
		return nil, err
	}
	h := &ClassHook{
		hookBase: hookBase{
			runtime:    rt,
			selector:   selector,
			methodType: methodType,
			state:      StatePrepared,
		},
		target: cls,
	}
	if build != nil {
		h.substitute = build(h)
	}
	return h, nil
}

func (h *ClassHook) Apply() error { return h.applyOn(h.target) }

func (h *ClassHook) Revert() error { return h.revertOn(h.target) }

func (h *ClassHook) cleanup() error {
	if h.state != StateInterposed {
		return nil
	}
	return h.Revert()
}

// checkMethodType rejects signatures the host ABI cannot dispatch.
func checkMethodType(methodType reflect.Type, selector Selector) error {
	if methodType == nil || methodType.Kind() != reflect.Func {
		return fmt.Errorf("%w: selector %s requires a func type, got %v", ErrInvalidSignature, selector, methodType)
	}
	return nil
}

// sameIMP compares two implementation pointers by identity. Func
// values compare by code pointer, which distinguishes distinct
// functions but not distinct closures over the same literal; the
// hosts this engine targets bind distinct functions per installation.
func sameIMP(a, b IMP) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() == reflect.Func || vb.Kind() == reflect.Func {
		return va.Kind() == vb.Kind() && va.Pointer() == vb.Pointer()
	}
	return a == b
}
