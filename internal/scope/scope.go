// Package scope implements the evaluator's lexically nested frame chain
// (spec.md §4.4): a new frame per block, call, or for-loop iteration, with
// get/define/assign semantics over {value, mutable, user-defined} entries.
package scope

import (
	"fmt"

	"github.com/tako-lang/tako/internal/value"
)

type entry struct {
	value       value.Value
	mutable     bool
	userDefined bool
}

// Scope is one frame in the chain. The zero value is not usable; build with
// New or Root.
type Scope struct {
	vars   map[string]*entry
	parent *Scope
}

// Root creates a module's root frame, with no parent. Intrinsics are seeded
// into it via DefineIntrinsic before user code executes (spec.md §4.4).
func Root() *Scope {
	return &Scope{vars: map[string]*entry{}}
}

// New pushes a child frame onto parent. Used for blocks, function calls, and
// for-loop iterations (spec.md §4.4 "Lifecycle").
func New(parent *Scope) *Scope {
	return &Scope{vars: map[string]*entry{}, parent: parent}
}

// DefineIntrinsic installs a native binding in the root frame, marked as not
// user-defined. Get, Assign and Names treat it like any other binding; the
// flag is not consulted by this package.
func (s *Scope) DefineIntrinsic(name string, v value.Value) {
	s.vars[name] = &entry{value: v, mutable: false, userDefined: false}
}

// Define installs name in the current frame, shadowing any outer binding of
// the same name (spec.md §4.4: "shadowing allowed").
func (s *Scope) Define(name string, v value.Value, mutable bool) {
	s.vars[name] = &entry{value: v, mutable: mutable, userDefined: true}
}

// Get walks parent links looking for name.
func (s *Scope) Get(name string) (value.Value, bool) {
	for f := s; f != nil; f = f.parent {
		if e, ok := f.vars[name]; ok {
			return e.value, true
		}
	}
	return value.Null, false
}

// Assign walks parent links and mutates the first binding found, failing if
// it is immutable or does not exist (spec.md §4.4).
func (s *Scope) Assign(name string, v value.Value) error {
	for f := s; f != nil; f = f.parent {
		if e, ok := f.vars[name]; ok {
			if !e.mutable {
				return fmt.Errorf("cannot assign to immutable binding %q", name)
			}
			e.value = v
			return nil
		}
	}
	return fmt.Errorf("assignment to undefined name %q", name)
}

// Names returns every name visible from this frame, nearest-scope first,
// deduplicated — used to build "did you mean" suggestions (spec.md §7).
func (s *Scope) Names() []string {
	seen := map[string]bool{}
	var names []string
	for f := s; f != nil; f = f.parent {
		for name := range f.vars {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}
