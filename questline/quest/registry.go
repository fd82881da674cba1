package quest

import (
	"context"
	"sync"
)

// ValidatorFunc implements bespoke completion logic for a custom quest.
// It may return a bool (completed), a numeric progress value, or a
// ValidationResult; the custom variant normalizes all three. Validators
// are treated as untrusted plugins: they must tolerate absent or
// malformed query data by returning a not-completed verdict.
type ValidatorFunc func(ctx context.Context, data any, params map[string]any) (any, error)

// VariableFunc produces the value of a dynamic query variable.
type VariableFunc func(ctx context.Context) (string, error)

// Registry maps (module, function) pairs to validator functions and
// (project, name) pairs to variable functions. It replaces the dynamic
// module loading of earlier revisions with an explicit manifest
// populated at process startup. The registry is read-mostly and safe
// for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	validators map[string]ValidatorFunc
	variables  map[string]VariableFunc
}

func NewRegistry() *Registry {
	return &Registry{
		validators: make(map[string]ValidatorFunc),
		variables:  make(map[string]VariableFunc),
	}
}

func (r *Registry) RegisterValidator(module, function string, fn ValidatorFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[module+"/"+function] = fn
}

// Validator looks up the function a ValidatorRef names. The boolean is
// false when no validator is registered under that key.
func (r *Registry) Validator(ref *ValidatorRef) (ValidatorFunc, bool) {
	if ref == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.validators[ref.Module+"/"+ref.Function]
	return fn, ok
}

func (r *Registry) RegisterVariable(projectID, name string, fn VariableFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variables[projectID+"/"+name] = fn
}

func (r *Registry) Variable(projectID, name string) (VariableFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.variables[projectID+"/"+name]
	return fn, ok
}
