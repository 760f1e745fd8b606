// Package interpose intercepts calls to dynamically dispatched methods
// at run time, runs substitute logic that may invoke the original
// implementation, and reverses the interception with no observable
// trace.
//
// The engine targets any host runtime that exposes a mutable per-class
// method table. The host is injected as a Runtime adapter, so the
// engine itself never touches a concrete dispatch mechanism; see the
// interposetest package for an in-memory host used throughout the
// tests.
//
// # Sessions and Hooks
//
// A Session scopes interception to one class or one object and owns an
// ordered set of hooks. Hooks move through a strict state machine:
//
//	prepared --apply--> interposed --revert--> reverted --apply--> interposed
//
// Any transition attempted from the wrong state fails with
// ErrInvalidState and performs no mutation.
//
// # Class Scope
//
//	type AddFunc = func(self interpose.Object, a, b int) int
//
//	session := interpose.NewClassSession(rt, calcClass)
//	hook, _ := interpose.HookFunc[AddFunc](session, "add",
//		func(original func() AddFunc) AddFunc {
//			return func(self interpose.Object, a, b int) int {
//				return original()(self, a, b) + 1
//			}
//		})
//	_ = session.Apply()
//	defer session.Close()
//
// # Object Scope
//
// Object sessions divert exactly one instance by lazily inserting a
// private synthesized subclass between the object's real class and its
// perceived class. The shared parent table is never mutated, so
// sibling instances are provably unaffected. Construction refuses
// objects whose class identity is already owned by another subsystem
// (key-value observation, posing).
//
//	session, err := interpose.NewObjectSession(rt, obj)
//
// # Batches
//
// Session.Apply and Session.Revert are two-phase: every registered
// hook is validated against the required state before any table is
// mutated. If validation fails for any hook, zero hooks in that call
// are touched.
//
// # Concurrency
//
// The engine is synchronous and provides no locking of its own. Table
// mutation is a process-global side effect; callers must not apply or
// revert the same Session or Hook from multiple goroutines
// concurrently.
package interpose

import "reflect"

// Selector is the name by which a method is looked up in a dispatch
// table.
type Selector string

// Class identifies a class in the host runtime. The engine treats it
// as opaque; it must be comparable (hosts use pointers in practice).
type Class = any

// Object identifies an object instance in the host runtime. Opaque to
// the engine and comparable, like Class.
type Object = any

// IMP is an implementation pointer: the callable entry point bound to
// a (class, selector) pair. In Go it holds a func value whose first
// parameter is the receiver object. The concrete signature is fixed by
// the host ABI; the engine installs and compares IMPs but never calls
// one itself.
type IMP = any

// BuildFunc produces the substitute implementation for one hook. It
// runs at registration time and receives the hook handle; substitutes
// read hook.Original() lazily, at call time, which is what allows
// object-level and class-level hooks on the same selector to layer.
//
// Returning nil registers a monitor-only hook: apply captures the
// original and transitions state without installing a substitute.
type BuildFunc func(hook Hook) IMP

// SetupFunc registers hooks on a session just in time, either at
// object-session construction or at the head of a batch Apply/Revert.
type SetupFunc func(*Session) error

// HookFunc registers a hook on the session with the method signature
// derived from F, which must be a func type taking the receiver object
// as its first parameter. The build callback receives an accessor for
// the captured original, already asserted to F.
//
// The accessor must only be invoked from inside the substitute while
// the hook is interposed; calling it before the first apply panics.
func HookFunc[F any](s *Session, selector Selector, build func(original func() F) F) (Hook, error) {
	return s.Hook(selector, reflect.TypeFor[F](), func(h Hook) IMP {
		return build(func() F {
			imp := h.Original()
			if imp == nil {
				panic("interpose: original implementation not captured yet")
			}
			return imp.(F)
		})
	})
}
