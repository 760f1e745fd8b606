package interpose_test

import (
	"errors"
	"testing"

	"github.com/zoobzio/interpose"
)

// hookNameBang registers a hook that appends "!" to the name result.
func hookNameBang(t *testing.T, s *interpose.Session) interpose.Hook {
	t.Helper()
	h, err := interpose.HookFunc[NameFunc](s, "name", func(original func() NameFunc) NameFunc {
		return func(self interpose.Object) string {
			return original()(self) + "!"
		}
	})
	if err != nil {
		t.Fatalf("HookFunc(name) error: %v", err)
	}
	return h
}

func TestSession_ApplyRevert_Batch(t *testing.T) {
	rt, calc := newCalcWorld(t)
	obj := rt.NewObject(calc)

	session := interpose.NewClassSession(rt, calc)
	hookAddPlusOne(t, session)
	hookNameBang(t, session)

	if err := session.Apply(); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if got := call(t, rt, obj, "add", 1, 2, 3); got != 7 {
		t.Errorf("add = %v, want 7", got)
	}
	if got := call(t, rt, obj, "name"); got != "calc!" {
		t.Errorf("name = %v, want calc!", got)
	}

	if err := session.Revert(); err != nil {
		t.Fatalf("Revert() error: %v", err)
	}
	if got := call(t, rt, obj, "add", 1, 2, 3); got != 6 {
		t.Errorf("add = %v after revert, want 6", got)
	}
	if got := call(t, rt, obj, "name"); got != "calc" {
		t.Errorf("name = %v after revert, want calc", got)
	}
}

func TestSession_Apply_ValidationAbortsWholeBatch(t *testing.T) {
	rt, calc := newCalcWorld(t)
	obj := rt.NewObject(calc)

	session := interpose.NewClassSession(rt, calc)
	first := hookAddPlusOne(t, session)
	second := hookNameBang(t, session)

	// Put the first hook out of sequence.
	if err := first.Apply(); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	err := session.Apply()
	if !errors.Is(err, interpose.ErrInvalidState) {
		t.Fatalf("Apply() error = %v, want ErrInvalidState", err)
	}
	want := "invalid state: expected prepared, got interposed (selector add)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	// All-or-nothing: the second hook was not touched.
	if second.State() != interpose.StatePrepared {
		t.Errorf("second hook State() = %q, want prepared", second.State())
	}
	if got := call(t, rt, obj, "name"); got != "calc" {
		t.Errorf("name = %v, want calc: validation failure must mutate nothing", got)
	}
}

func TestSession_Revert_ValidationAbortsWholeBatch(t *testing.T) {
	rt, calc := newCalcWorld(t)
	obj := rt.NewObject(calc)

	session := interpose.NewClassSession(rt, calc)
	first := hookAddPlusOne(t, session)
	second := hookNameBang(t, session)

	if err := session.Apply(); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	// Put the second hook out of sequence.
	if err := second.Revert(); err != nil {
		t.Fatalf("Revert() error: %v", err)
	}

	err := session.Revert()
	if !errors.Is(err, interpose.ErrInvalidState) {
		t.Fatalf("Revert() error = %v, want ErrInvalidState", err)
	}

	// The first hook stays interposed and active.
	if first.State() != interpose.StateInterposed {
		t.Errorf("first hook State() = %q, want interposed", first.State())
	}
	if got := call(t, rt, obj, "add", 1, 2, 3); got != 7 {
		t.Errorf("add = %v, want 7: validation failure must mutate nothing", got)
	}
}

func TestSession_Apply_JustInTimeCallback(t *testing.T) {
	rt, calc := newCalcWorld(t)
	obj := rt.NewObject(calc)

	session := interpose.NewClassSession(rt, calc)

	err := session.Apply(func(s *interpose.Session) error {
		hookAddPlusOne(t, s)
		return nil
	})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if got := call(t, rt, obj, "add", 1, 2, 3); got != 7 {
		t.Errorf("add = %v, want 7", got)
	}
}

func TestSession_Apply_CallbackErrorAborts(t *testing.T) {
	rt, calc := newCalcWorld(t)
	obj := rt.NewObject(calc)

	session := interpose.NewClassSession(rt, calc)
	hookAddPlusOne(t, session)

	boom := errors.New("setup failed")
	err := session.Apply(func(*interpose.Session) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Apply() error = %v, want the callback error", err)
	}
	if got := call(t, rt, obj, "add", 1, 2, 3); got != 6 {
		t.Errorf("add = %v, want 6: callback failure must mutate nothing", got)
	}
}

func TestSession_Close_RevertsInterposedHooks(t *testing.T) {
	rt, calc := newCalcWorld(t)
	obj := rt.NewObject(calc)

	session := interpose.NewClassSession(rt, calc)
	hookAddPlusOne(t, session)
	hookNameBang(t, session)
	if err := session.Apply(); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	if err := session.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if got := call(t, rt, obj, "add", 1, 2, 3); got != 6 {
		t.Errorf("add = %v after Close, want 6", got)
	}
	if got := call(t, rt, obj, "name"); got != "calc" {
		t.Errorf("name = %v after Close, want calc", got)
	}

	// Idempotent.
	if err := session.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

func TestSession_Close_AggregatesFailures(t *testing.T) {
	rt, calc := newCalcWorld(t)
	obj := rt.NewObject(calc)

	session := interpose.NewClassSession(rt, calc)
	hookAddPlusOne(t, session)
	second := hookNameBang(t, session)
	if err := session.Apply(); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	// Sabotage the second hook's entry so its best-effort revert
	// fails; teardown must still revert the first.
	racer := NameFunc(func(interpose.Object) string { return "raced" })
	if err := rt.SetImplementation(calc, "name", racer); err != nil {
		t.Fatalf("SetImplementation() error: %v", err)
	}

	err := session.Close()
	if !errors.Is(err, interpose.ErrUnexpectedImplementation) {
		t.Fatalf("Close() error = %v, want ErrUnexpectedImplementation", err)
	}

	if got := call(t, rt, obj, "add", 1, 2, 3); got != 6 {
		t.Errorf("add = %v after Close, want 6: teardown must not stop at a failure", got)
	}
	if second.State() != interpose.StateInterposed {
		t.Errorf("sabotaged hook State() = %q, want interposed", second.State())
	}
}

func TestSession_Close_NothingInterposed(t *testing.T) {
	rt, calc := newCalcWorld(t)

	session := interpose.NewClassSession(rt, calc)
	hookAddPlusOne(t, session)

	if err := session.Close(); err != nil {
		t.Errorf("Close() with only prepared hooks error: %v", err)
	}
}

func TestNewObjectSession_SetupImpliesApply(t *testing.T) {
	rt, calc := newCalcWorld(t)
	obj := rt.NewObject(calc)

	session, err := interpose.NewObjectSession(rt, obj, func(s *interpose.Session) error {
		hookAddPlusOne(t, s)
		return nil
	})
	if err != nil {
		t.Fatalf("NewObjectSession() error: %v", err)
	}
	defer session.Close()

	// The setup registered hooks, so apply was implicit.
	hooks := session.Hooks()
	if len(hooks) != 1 {
		t.Fatalf("len(Hooks()) = %d, want 1", len(hooks))
	}
	if hooks[0].State() != interpose.StateInterposed {
		t.Errorf("hook State() = %q, want interposed", hooks[0].State())
	}
	if got := call(t, rt, obj, "add", 1, 2, 3); got != 7 {
		t.Errorf("add = %v, want 7", got)
	}
}

func TestNewObjectSession_EmptySetup(t *testing.T) {
	rt, calc := newCalcWorld(t)
	obj := rt.NewObject(calc)

	session, err := interpose.NewObjectSession(rt, obj, func(*interpose.Session) error {
		return nil
	})
	if err != nil {
		t.Fatalf("NewObjectSession() error: %v", err)
	}
	if len(session.Hooks()) != 0 {
		t.Errorf("len(Hooks()) = %d, want 0", len(session.Hooks()))
	}
}

func TestSessionFor_BackReference(t *testing.T) {
	interpose.Reset()
	rt, calc := newCalcWorld(t)
	obj := rt.NewObject(calc)

	if _, ok := interpose.SessionFor(obj); ok {
		t.Fatal("SessionFor() should find nothing before construction")
	}

	session, err := interpose.NewObjectSession(rt, obj)
	if err != nil {
		t.Fatalf("NewObjectSession() error: %v", err)
	}

	found, ok := interpose.SessionFor(obj)
	if !ok || found != session {
		t.Error("SessionFor() should return the attached session")
	}

	if err := session.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if _, ok := interpose.SessionFor(obj); ok {
		t.Error("SessionFor() should find nothing after Close")
	}
}

func TestReset_ClearsBackReferences(t *testing.T) {
	rt, calc := newCalcWorld(t)
	obj := rt.NewObject(calc)

	if _, err := interpose.NewObjectSession(rt, obj); err != nil {
		t.Fatalf("NewObjectSession() error: %v", err)
	}

	interpose.Reset()

	if _, ok := interpose.SessionFor(obj); ok {
		t.Error("SessionFor() should find nothing after Reset")
	}
}

func TestSession_ReapplyAfterRevert(t *testing.T) {
	rt, calc := newCalcWorld(t)
	obj := rt.NewObject(calc)

	session := interpose.NewClassSession(rt, calc)
	hookAddPlusOne(t, session)

	for i := 0; i < 2; i++ {
		if err := session.Apply(); err != nil {
			t.Fatalf("Apply() #%d error: %v", i+1, err)
		}
		if got := call(t, rt, obj, "add", 1, 2, 3); got != 7 {
			t.Errorf("add = %v while interposed (#%d), want 7", got, i+1)
		}
		if err := session.Revert(); err != nil {
			t.Fatalf("Revert() #%d error: %v", i+1, err)
		}
		if got := call(t, rt, obj, "add", 1, 2, 3); got != 6 {
			t.Errorf("add = %v after revert (#%d), want 6", got, i+1)
		}
	}
}
