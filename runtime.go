package interpose

// Runtime adapts the host's dynamic dispatch machinery for the engine.
// It is the only path through which tables are inspected or mutated,
// so the engine's state machine and validation logic can be exercised
// against any host, including the in-memory one in interposetest.
//
// Implementations are not required to be safe for concurrent use; the
// engine itself is single-threaded at the API surface.
type Runtime interface {
	// Resolve looks up the implementation currently bound to selector
	// on cls, searching the superclass chain the way the host's
	// dispatcher would. The second result is false when the selector
	// is unknown. A found-but-nil implementation signals malformed
	// class state.
	Resolve(cls Class, selector Selector) (IMP, bool)

	// SetImplementation binds imp to selector in cls's own table,
	// creating an override entry if the selector was only inherited.
	SetImplementation(cls Class, selector Selector, imp IMP) error

	// AddMethod adds selector to cls's own table with the given
	// implementation and type encoding. It reports false, without
	// error, when the class already implements the selector directly.
	AddMethod(cls Class, selector Selector, imp IMP, typeEncoding string) (bool, error)

	// AllocateSubclass creates, but does not yet register, a new
	// runtime subclass of super with the proposed name. The new class
	// must be hidden from perceived-class introspection once a live
	// object adopts it.
	AllocateSubclass(super Class, name string) (Class, error)

	// RegisterSubclass makes an allocated subclass visible to the
	// dispatcher.
	RegisterSubclass(cls Class) error

	// ActualClass returns the class the object is truly allocated as.
	ActualClass(obj Object) Class

	// PerceivedClass returns the class normal introspection reports
	// for the object. It differs from ActualClass when a runtime
	// subclass (ours, the host's observation machinery, or a poser)
	// has been inserted.
	PerceivedClass(obj Object) Class

	// SetClass switches the object's actual class pointer.
	SetClass(obj Object, cls Class)

	// ClassName returns the host's name for the class.
	ClassName(cls Class) string

	// IsObservationClass reports whether the class name follows the
	// host's key-value-observation naming convention.
	IsObservationClass(cls Class) bool
}
