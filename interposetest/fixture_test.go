package interposetest

import (
	"strings"
	"testing"

	"github.com/zoobzio/interpose"
)

func TestLoadHierarchy(t *testing.T) {
	rt := NewRuntime()
	doc := []byte(`
classes:
  - name: Animal
    selectors: [speak, eat]
  - name: Dog
    super: Animal
    selectors: [fetch]
  - name: observing_Dog
    super: Dog
    hidden: true
`)
	if err := LoadHierarchy(rt, doc); err != nil {
		t.Fatalf("LoadHierarchy() error: %v", err)
	}

	animal, ok := rt.Class("Animal")
	if !ok {
		t.Fatal("Animal not defined")
	}
	dog, ok := rt.Class("Dog")
	if !ok {
		t.Fatal("Dog not defined")
	}
	if dog.Super() != animal {
		t.Error("Dog's superclass should be Animal")
	}

	// Declared selectors resolve as found-but-nil until an
	// implementation is attached.
	imp, found := rt.Resolve(dog, "fetch")
	if !found || imp != nil {
		t.Errorf("Resolve(fetch) = (%v, %v), want (nil, true)", imp, found)
	}
	if _, found := rt.Resolve(dog, "swim"); found {
		t.Error("undeclared selector should not resolve")
	}

	// Inheritance is wired through the fixture.
	if _, found := rt.Resolve(dog, "speak"); !found {
		t.Error("Dog should inherit speak from Animal")
	}

	// Hidden classes are skipped by perceived-class introspection.
	hidden, ok := rt.Class("observing_Dog")
	if !ok {
		t.Fatal("observing_Dog not defined")
	}
	obj := rt.NewObject(hidden)
	if perceived := rt.PerceivedClass(obj); rt.ClassName(perceived) != "Dog" {
		t.Errorf("PerceivedClass() = %q, want Dog", rt.ClassName(perceived))
	}
}

func TestLoadHierarchy_Errors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		wantPart string
	}{
		{
			name:     "unknown superclass",
			doc:      "classes:\n  - name: Dog\n    super: Animal\n",
			wantPart: "unknown superclass",
		},
		{
			name:     "empty class name",
			doc:      "classes:\n  - selectors: [speak]\n",
			wantPart: "empty name",
		},
		{
			name:     "duplicate class",
			doc:      "classes:\n  - name: Dog\n  - name: Dog\n",
			wantPart: "already defined",
		},
		{
			name:     "invalid yaml",
			doc:      "classes: [",
			wantPart: "parse hierarchy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := LoadHierarchy(NewRuntime(), []byte(tt.doc))
			if err == nil {
				t.Fatal("LoadHierarchy() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantPart) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantPart)
			}
		})
	}
}

func TestLoadHierarchy_DefineAfterLoad(t *testing.T) {
	rt := NewRuntime()
	doc := []byte("classes:\n  - name: Animal\n    selectors: [speak]\n")
	if err := LoadHierarchy(rt, doc); err != nil {
		t.Fatalf("LoadHierarchy() error: %v", err)
	}

	animal, _ := rt.Class("Animal")
	animal.Define("speak", func(interpose.Object) string { return "hi" })

	obj := rt.NewObject(animal)
	got, err := rt.Call(obj, "speak")
	if err != nil {
		t.Fatalf("Call() error: %v", err)
	}
	if got != "hi" {
		t.Errorf("speak() = %v, want hi", got)
	}
}
