package schema

import (
	"sort"
	"testing"
)

func TestTypesSorted(t *testing.T) {
	types := Types()
	if len(types) == 0 {
		t.Fatal("no element types registered")
	}
	if !sort.StringsAreSorted(types) {
		t.Errorf("types not sorted: %v", types)
	}
}

func TestTypesMatchSchemas(t *testing.T) {
	for _, name := range Types() {
		if _, ok := Get(name); !ok {
			t.Errorf("type %s listed but not resolvable", name)
		}
	}
}
