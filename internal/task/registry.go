package task

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages task registration and lookup. It is passed explicitly
// into the compiler and executor; nothing in the engine reads process-wide
// mutable state.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

// NewRegistry creates a new task registry.
func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[string]Task),
	}
}

// Register registers a task. Returns an error if a task with the same
// name already exists.
func (r *Registry) Register(t Task) error {
	if t == nil {
		return fmt.Errorf("cannot register nil task")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if name == "" {
		return fmt.Errorf("task name cannot be empty")
	}

	if _, exists := r.tasks[name]; exists {
		return fmt.Errorf("task '%s' is already registered", name)
	}

	r.tasks[name] = t
	return nil
}

// MustRegister registers a task and panics on error.
func (r *Registry) MustRegister(t Task) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Get retrieves a task by name.
func (r *Registry) Get(name string) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tasks[name]
	if !exists {
		return nil, fmt.Errorf("task '%s' not found", name)
	}
	return t, nil
}

// Has checks if a task exists in the registry.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.tasks[name]
	return exists
}

// List returns all registered tasks sorted by name.
func (r *Registry) List() []Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}

// Names returns all registered task names sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Count returns the number of registered tasks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// DefaultRegistry is an opt-in process-wide registry for hosts that do
// not assemble their own. The engine itself always takes a registry
// explicitly.
var DefaultRegistry = NewRegistry()
