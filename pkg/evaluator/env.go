package evaluator

import (
	"fmt"
	"sort"

	"github.com/tanersaydam/mathexpr/pkg/diagnostics"
)

// Env maps variable names to values. Lookups fall through to the parent
// scope when a name is not bound locally.
//
// Env does no locking: populate it fully, then evaluate. Any number of
// goroutines may read a shared Env as long as nothing writes to it.
// The zero value is an empty root scope.
type Env struct {
	bindings map[string]float64
	parent   *Env
}

// NewEnv creates a new environment with an optional parent scope.
func NewEnv(parent *Env) *Env {
	return &Env{
		bindings: make(map[string]float64),
		parent:   parent,
	}
}

// Child creates a new child scope whose parent is this environment.
func (e *Env) Child() *Env {
	return NewEnv(e)
}

// SetValue binds name in this scope, overwriting any existing binding.
func (e *Env) SetValue(name string, value float64) {
	if e.bindings == nil {
		e.bindings = make(map[string]float64)
	}
	e.bindings[name] = value
}

// GetValue returns the value bound to name, searching parent scopes.
// An unbound name yields a *RuntimeError matching ErrUndefinedVariable.
func (e *Env) GetValue(name string) (float64, error) {
	if val, ok := e.Lookup(name); ok {
		return val, nil
	}
	return 0, &RuntimeError{
		Code:    diagnostics.EUndefinedVariable,
		Message: fmt.Sprintf("undefined variable '%s'", name),
		Name:    name,
	}
}

// Lookup looks up a variable by name, traversing parent scopes.
func (e *Env) Lookup(name string) (float64, bool) {
	for scope := e; scope != nil; scope = scope.parent {
		if val, ok := scope.bindings[name]; ok {
			return val, true
		}
	}
	return 0, false
}

// Has checks whether a variable is defined in this scope or any parent.
func (e *Env) Has(name string) bool {
	_, ok := e.Lookup(name)
	return ok
}

// Names returns every name visible from this scope, sorted.
func (e *Env) Names() []string {
	seen := make(map[string]bool)
	for scope := e; scope != nil; scope = scope.parent {
		for name := range scope.bindings {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of distinct visible names.
func (e *Env) Len() int {
	return len(e.Names())
}
