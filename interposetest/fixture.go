package interposetest

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/zoobzio/interpose"
)

// hierarchyDoc is the YAML fixture schema.
type hierarchyDoc struct {
	Classes []classDoc `yaml:"classes"`
}

// classDoc declares one class of the fixture hierarchy.
type classDoc struct {
	Name      string   `yaml:"name"`
	Super     string   `yaml:"super"`
	Hidden    bool     `yaml:"hidden"`
	Selectors []string `yaml:"selectors"`
}

// LoadHierarchy declares a class hierarchy from a YAML document:
//
//	classes:
//	  - name: Animal
//	    selectors: [speak]
//	  - name: Dog
//	    super: Animal
//	    selectors: [fetch]
//
// Classes are processed in document order; a superclass must be
// declared earlier in the document or already registered. Declared
// selectors become nil own-table entries — malformed until a test
// attaches an implementation with Class.Define.
func LoadHierarchy(rt *Runtime, doc []byte) error {
	var h hierarchyDoc
	if err := yaml.Unmarshal(doc, &h); err != nil {
		return fmt.Errorf("interposetest: parse hierarchy: %w", err)
	}
	for _, cd := range h.Classes {
		if cd.Name == "" {
			return fmt.Errorf("interposetest: class with empty name in hierarchy")
		}
		var super *Class
		if cd.Super != "" {
			parent, ok := rt.Class(cd.Super)
			if !ok {
				return fmt.Errorf("interposetest: class %q declares unknown superclass %q", cd.Name, cd.Super)
			}
			super = parent
		}
		c, err := rt.defineClass(cd.Name, super, cd.Hidden)
		if err != nil {
			return err
		}
		for _, sel := range cd.Selectors {
			c.Define(interpose.Selector(sel), nil)
		}
	}
	return nil
}
