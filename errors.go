package interpose

import (
	"errors"
	"fmt"
	"reflect"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrMethodNotFound indicates the selector does not exist on the
	// effective class.
	ErrMethodNotFound = errors.New("method not found")

	// ErrNonExistingImplementation indicates the selector resolves but
	// has no callable pointer (malformed class state).
	ErrNonExistingImplementation = errors.New("non-existing implementation")

	// ErrUnexpectedImplementation indicates that on revert the
	// installed implementation no longer matches what the hook last
	// installed: another party has mutated the table.
	ErrUnexpectedImplementation = errors.New("unexpected implementation")

	// ErrFailedToAllocateClassPair indicates the synthesized subclass
	// could not be allocated or registered.
	ErrFailedToAllocateClassPair = errors.New("failed to allocate class pair")

	// ErrUnableToAddMethod indicates a placeholder method could not be
	// added to the synthesized subclass.
	ErrUnableToAddMethod = errors.New("unable to add method")

	// ErrKeyValueObservationDetected indicates the object's class
	// identity is owned by the host's key-value observation machinery;
	// object-scoped interception is refused.
	ErrKeyValueObservationDetected = errors.New("key-value observation detected")

	// ErrObjectPosingAsDifferentClass indicates another subsystem has
	// already altered the object's class identity.
	ErrObjectPosingAsDifferentClass = errors.New("object posing as different class")

	// ErrInvalidState indicates apply/revert was invoked out of
	// sequence, or batch validation found a hook in the wrong state.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidSignature indicates a hook was registered with a
	// method signature that is not a func type.
	ErrInvalidSignature = errors.New("invalid method signature")
)

// StateError reports a hook state machine violation.
// Equality of two StateErrors is defined by their rendered text.
type StateError struct {
	Err      error    // ErrInvalidState
	Expected State    // State the operation required
	Actual   State    // State the hook was actually in
	Selector Selector // Hook identity for diagnosis
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s (selector %s)", e.Err.Error(), e.Expected, e.Actual, e.Selector)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// ResolveError reports a failed selector resolution on the effective
// class.
type ResolveError struct {
	Err       error // ErrMethodNotFound or ErrNonExistingImplementation
	ClassName string
	Selector  Selector
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("%s: selector %s on class %s", e.Err.Error(), e.Selector, e.ClassName)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// ImplementationError reports a racing table mutation discovered on
// revert. Observed carries the unexpected pointer found in the table.
type ImplementationError struct {
	Err       error // ErrUnexpectedImplementation
	ClassName string
	Selector  Selector
	Observed  IMP
}

func (e *ImplementationError) Error() string {
	return fmt.Sprintf("%s: selector %s on class %s (observed %s)", e.Err.Error(), e.Selector, e.ClassName, renderIMP(e.Observed))
}

func (e *ImplementationError) Unwrap() error {
	return e.Err
}

// SubclassError reports a failure while setting up the synthesized
// subclass for an object-scoped hook. The object remains unmodified.
type SubclassError struct {
	Err      error // ErrFailedToAllocateClassPair or ErrUnableToAddMethod
	Subclass string
	Selector Selector
	Cause    error // Underlying error from the host adapter
}

func (e *SubclassError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: selector %s on subclass %s: %v", e.Err.Error(), e.Selector, e.Subclass, e.Cause)
	}
	return fmt.Sprintf("%s: selector %s on subclass %s", e.Err.Error(), e.Selector, e.Subclass)
}

func (e *SubclassError) Unwrap() error {
	return e.Err
}

// ObjectError reports an object rejected before any hook was created,
// because its class identity is already owned by another subsystem.
type ObjectError struct {
	Err       error // ErrKeyValueObservationDetected or ErrObjectPosingAsDifferentClass
	ClassName string
}

func (e *ObjectError) Error() string {
	return fmt.Sprintf("%s (class %s)", e.Err.Error(), e.ClassName)
}

func (e *ObjectError) Unwrap() error {
	return e.Err
}

// newStateError creates a StateError for a state machine violation.
func newStateError(expected, actual State, selector Selector) error {
	return &StateError{
		Err:      ErrInvalidState,
		Expected: expected,
		Actual:   actual,
		Selector: selector,
	}
}

// newResolveError creates a ResolveError for a failed resolution.
func newResolveError(sentinel error, className string, selector Selector) error {
	return &ResolveError{
		Err:       sentinel,
		ClassName: className,
		Selector:  selector,
	}
}

// newImplementationError creates an ImplementationError carrying the
// unexpected pointer observed in the table.
func newImplementationError(className string, selector Selector, observed IMP) error {
	return &ImplementationError{
		Err:       ErrUnexpectedImplementation,
		ClassName: className,
		Selector:  selector,
		Observed:  observed,
	}
}

// newSubclassError creates a SubclassError for subclass setup failures.
func newSubclassError(sentinel error, subclass string, selector Selector, cause error) error {
	return &SubclassError{
		Err:      sentinel,
		Subclass: subclass,
		Selector: selector,
		Cause:    cause,
	}
}

// newObjectError creates an ObjectError for proactively rejected
// objects.
func newObjectError(sentinel error, className string) error {
	return &ObjectError{
		Err:       sentinel,
		ClassName: className,
	}
}

// renderIMP formats an implementation pointer for diagnostics. Func
// values render as their code address.
func renderIMP(imp IMP) string {
	if imp == nil {
		return "<nil>"
	}
	v := reflect.ValueOf(imp)
	if v.Kind() == reflect.Func {
		return fmt.Sprintf("%#x", v.Pointer())
	}
	return fmt.Sprintf("%v", imp)
}
