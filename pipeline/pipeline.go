package pipeline

import (
	"github.com/google/uuid"
)

// Pipeline is an immutable, declarative description of an experiment run:
// ordered stages, each holding tasks with explicit dependency ids.
type Pipeline struct {
	// ID is the pipeline identifier.
	ID string `yaml:"id" json:"id" validate:"required"`
	// Name is a human-readable pipeline name.
	Name string `yaml:"name" json:"name" validate:"required"`
	// Stages are the pipeline's stages, in declaration order.
	Stages []Stage `yaml:"stages" json:"stages" validate:"dive"`
}

// Stage groups tasks. Stage order is advisory only: dependencies alone
// constrain execution order. Parallel is a hint for callers submitting a
// stage's tasks as an independent batch.
type Stage struct {
	ID       string `yaml:"id" json:"id" validate:"required"`
	Name     string `yaml:"name" json:"name"`
	Parallel bool   `yaml:"parallel" json:"parallel"`
	Tasks    []Task `yaml:"tasks" json:"tasks" validate:"dive"`
}

// Task declares a unit of work: a registry type, an opaque config payload,
// and the ids of tasks it depends on. IDs are unique within a pipeline.
type Task struct {
	ID           string         `yaml:"id" json:"id" validate:"required"`
	Name         string         `yaml:"name" json:"name" validate:"required"`
	Type         string         `yaml:"type" json:"type" validate:"required"`
	Config       map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
	Dependencies []string       `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
}

// NewTask creates a task with a fresh unique id and no dependencies.
// Structural validation is deferred to DAG construction.
func NewTask(name, taskType string, config map[string]any) Task {
	return Task{
		ID:     uuid.New().String(),
		Name:   name,
		Type:   taskType,
		Config: config,
	}
}

// WithDependencies returns a copy of the task with the given dependency ids
// attached. Duplicate ids are tolerated and treated as a set downstream.
func (t Task) WithDependencies(ids ...string) Task {
	t.Dependencies = append([]string(nil), ids...)
	return t
}

// Tasks returns every task across all stages, in declaration order.
func (p *Pipeline) Tasks() []Task {
	var tasks []Task
	for _, stage := range p.Stages {
		tasks = append(tasks, stage.Tasks...)
	}
	return tasks
}

// TaskCount returns the number of tasks across all stages.
func (p *Pipeline) TaskCount() int {
	n := 0
	for _, stage := range p.Stages {
		n += len(stage.Tasks)
	}
	return n
}
