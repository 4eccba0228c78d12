package engine

import (
	"fmt"
	"sync"

	"github.com/skillsenselab/expflow/pipeline"
	"github.com/skillsenselab/expflow/util"
)

// Factory builds a Task implementation from its pipeline declaration.
type Factory func(decl pipeline.Task) (Task, error)

// Registry maps task type names to factories so callers can turn a
// deserialized pipeline into executable tasks.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for a task type, replacing any previous one.
func (r *Registry) Register(taskType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[taskType] = factory
}

// Create builds a task from its declaration using the registered factory.
func (r *Registry) Create(decl pipeline.Task) (Task, error) {
	r.mu.RLock()
	factory, ok := r.factories[decl.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("engine: task type %q not registered", decl.Type)
	}
	return factory(decl)
}

// Types returns the sorted names of all registered task types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return util.SortedKeys(r.factories)
}

// BuildTaskSet instantiates every task in the pipeline through the registry.
func BuildTaskSet(p *pipeline.Pipeline, r *Registry) (TaskSet, error) {
	tasks := make(TaskSet, p.TaskCount())
	for _, decl := range p.Tasks() {
		task, err := r.Create(decl)
		if err != nil {
			return nil, fmt.Errorf("building task %q: %w", decl.ID, err)
		}
		tasks[decl.ID] = task
	}
	return tasks, nil
}
