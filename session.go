package interpose

import (
	"reflect"

	"go.uber.org/multierr"
)

// Session coordinates a batch of hooks scoped to one class or one
// object. Hooks are applied and reverted in registration order under a
// two-phase validate-then-mutate discipline: if any hook fails
// validation, zero hooks in that call are mutated.
type Session struct {
	runtime Runtime
	class   Class
	object  Object // nil for class-scoped sessions
	hooks   []Hook
	closed  bool
}

// NewClassSession creates a session whose hooks intercept methods for
// every instance of cls.
func NewClassSession(rt Runtime, cls Class) *Session {
	s := &Session{runtime: rt, class: cls}
	emitSessionCreated("class", rt.ClassName(cls))
	return s
}

// NewObjectSession creates a session whose hooks divert exactly one
// object. Construction fails before any table mutation when the
// object's class identity is already owned by another subsystem:
// ErrKeyValueObservationDetected when the actual class follows the
// host's observation naming convention, ErrObjectPosingAsDifferentClass
// otherwise.
//
// The session is recorded in a package-level back-reference so the
// object can be traced to it via SessionFor; the mapping does not
// extend the object's lifetime beyond hook activity and is removed on
// Close.
//
// An optional setup callback runs immediately; if it registers any
// hooks, Apply is triggered implicitly.
func NewObjectSession(rt Runtime, obj Object, setup ...SetupFunc) (*Session, error) {
	if err := validateObjectClass(rt, obj); err != nil {
		return nil, err
	}
	s := &Session{
		runtime: rt,
		class:   rt.PerceivedClass(obj),
		object:  obj,
	}
	trackSession(obj, s)
	emitSessionCreated("object", rt.ClassName(s.class))

	for _, fn := range setup {
		if fn == nil {
			continue
		}
		if err := fn(s); err != nil {
			untrackSession(obj, s)
			return nil, err
		}
	}
	if len(setup) > 0 && len(s.hooks) > 0 {
		if err := s.Apply(); err != nil {
			untrackSession(obj, s)
			return nil, err
		}
	}
	return s, nil
}

// Hook registers one new hook against the session's target: an
// ObjectHook for object-scoped sessions, a ClassHook otherwise. Hooks
// are appended in call order, which is also their application order.
// The table is untouched until Apply.
func (s *Session) Hook(selector Selector, methodType reflect.Type, build BuildFunc) (Hook, error) {
	var (
		h   Hook
		err error
	)
	if s.object != nil {
		h, err = NewObjectHook(s.runtime, s.object, selector, methodType, build)
	} else {
		h, err = NewClassHook(s.runtime, s.class, selector, methodType, build)
	}
	if err != nil {
		return nil, err
	}
	s.hooks = append(s.hooks, h)
	return h, nil
}

// Apply installs every registered hook in registration order. Optional
// callbacks run first and may register more hooks just in time. Every
// hook is then validated against the pre-apply state before any table
// is mutated; a single validation failure aborts the whole batch with
// ErrInvalidState and mutates nothing.
func (s *Session) Apply(setup ...SetupFunc) error {
	for _, fn := range setup {
		if fn == nil {
			continue
		}
		if err := fn(s); err != nil {
			return err
		}
	}
	for _, h := range s.hooks {
		if err := h.validateReady(); err != nil {
			return err
		}
	}
	for _, h := range s.hooks {
		if err := h.Apply(); err != nil {
			return err
		}
	}
	return nil
}

// Revert restores every registered hook in registration order, under
// the same two-phase discipline as Apply with expected state
// interposed.
func (s *Session) Revert(setup ...SetupFunc) error {
	for _, fn := range setup {
		if fn == nil {
			continue
		}
		if err := fn(s); err != nil {
			return err
		}
	}
	for _, h := range s.hooks {
		if err := h.Validate(StateInterposed); err != nil {
			return err
		}
	}
	for _, h := range s.hooks {
		if err := h.Revert(); err != nil {
			return err
		}
	}
	return nil
}

// Hooks returns the session's hooks in registration order.
func (s *Session) Hooks() []Hook {
	out := make([]Hook, len(s.hooks))
	copy(out, s.hooks)
	return out
}

// Close tears the session down: every hook still interposed is
// reverted best-effort, failures are aggregated rather than stopping
// teardown, and the object back-reference is released. Close is
// idempotent.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.object != nil {
		untrackSession(s.object, s)
	}
	var err error
	for _, h := range s.hooks {
		err = multierr.Append(err, h.cleanup())
	}
	emitSessionClosed(s.runtime.ClassName(s.class), len(s.hooks), err)
	return err
}
