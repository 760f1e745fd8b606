package interpose

import (
	"context"
	"sync/atomic"

	"github.com/zoobzio/capitan"
)

// Signals for interposition events.
var (
	SignalSessionCreated  = capitan.NewSignal("interpose.session.created", "Session constructed for a class or object")
	SignalHookApplied     = capitan.NewSignal("interpose.hook.applied", "Hook installed on the effective class")
	SignalHookReverted    = capitan.NewSignal("interpose.hook.reverted", "Hook restored the original implementation")
	SignalSubclassCreated = capitan.NewSignal("interpose.subclass.created", "Synthesized subclass registered for an object")
	SignalSessionClosed   = capitan.NewSignal("interpose.session.closed", "Session torn down")
)

// Keys for typed event data.
var (
	KeyScope      = capitan.NewStringKey("scope")
	KeyClass      = capitan.NewStringKey("class")
	KeySuperclass = capitan.NewStringKey("superclass")
	KeySelector   = capitan.NewStringKey("selector")
	KeyHookCount  = capitan.NewIntKey("hook_count")
	KeyError      = capitan.NewErrorKey("error")
)

// loggingEnabled is the process-wide flag gating every emit helper.
var loggingEnabled atomic.Bool

// SetLogging toggles the process-wide logging flag. While disabled, no
// signals are emitted.
func SetLogging(enabled bool) {
	loggingEnabled.Store(enabled)
}

// LoggingEnabled reports the current state of the logging flag.
func LoggingEnabled() bool {
	return loggingEnabled.Load()
}

// emitSessionCreated emits an event when a session is constructed.
func emitSessionCreated(scope, className string) {
	if !loggingEnabled.Load() {
		return
	}
	capitan.Emit(context.Background(), SignalSessionCreated,
		KeyScope.Field(scope),
		KeyClass.Field(className),
	)
}

// emitHookApplied emits an event when a hook installs its substitute.
func emitHookApplied(className string, selector Selector) {
	if !loggingEnabled.Load() {
		return
	}
	capitan.Emit(context.Background(), SignalHookApplied,
		KeyClass.Field(className),
		KeySelector.Field(string(selector)),
	)
}

// emitHookReverted emits an event when a hook restores the original.
func emitHookReverted(className string, selector Selector) {
	if !loggingEnabled.Load() {
		return
	}
	capitan.Emit(context.Background(), SignalHookReverted,
		KeyClass.Field(className),
		KeySelector.Field(string(selector)),
	)
}

// emitSubclassCreated emits an event when a synthesized subclass is
// registered and adopted by an object.
func emitSubclassCreated(name, superclass string) {
	if !loggingEnabled.Load() {
		return
	}
	capitan.Emit(context.Background(), SignalSubclassCreated,
		KeyClass.Field(name),
		KeySuperclass.Field(superclass),
	)
}

// emitSessionClosed emits an event when a session is torn down.
func emitSessionClosed(className string, hookCount int, err error) {
	if !loggingEnabled.Load() {
		return
	}
	fields := []capitan.Field{
		KeyClass.Field(className),
		KeyHookCount.Field(hookCount),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(context.Background(), SignalSessionClosed, fields...)
	} else {
		capitan.Emit(context.Background(), SignalSessionClosed, fields...)
	}
}
