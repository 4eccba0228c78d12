package pipeline

import (
	"testing"
)

func TestNewTask(t *testing.T) {
	a := NewTask("fetch", "http", map[string]any{"url": "http://example.com"})
	b := NewTask("fetch", "http", nil)

	if a.ID == "" || b.ID == "" {
		t.Fatal("expected generated ids")
	}
	if a.ID == b.ID {
		t.Fatal("ids must be unique per task")
	}
	if a.Type != "http" || a.Name != "fetch" {
		t.Fatalf("unexpected task: %+v", a)
	}
	if len(a.Dependencies) != 0 {
		t.Fatalf("new tasks must have no dependencies, got %v", a.Dependencies)
	}
}

func TestWithDependencies_CopySemantics(t *testing.T) {
	base := NewTask("train", "noop", nil)
	withDeps := base.WithDependencies("a", "b")

	if len(base.Dependencies) != 0 {
		t.Fatalf("original task mutated: %v", base.Dependencies)
	}
	if len(withDeps.Dependencies) != 2 {
		t.Fatalf("expected 2 dependencies, got %v", withDeps.Dependencies)
	}

	// The returned slice is detached from the arguments.
	ids := []string{"x"}
	task := base.WithDependencies(ids...)
	ids[0] = "mutated"
	if task.Dependencies[0] != "x" {
		t.Fatalf("dependency slice aliases caller data: %v", task.Dependencies)
	}
}

func TestTasksAndTaskCount(t *testing.T) {
	p := &Pipeline{
		ID:   "p1",
		Name: "multi stage",
		Stages: []Stage{
			{ID: "s1", Tasks: []Task{{ID: "a", Name: "a", Type: "noop"}, {ID: "b", Name: "b", Type: "noop"}}},
			{ID: "s2", Tasks: []Task{{ID: "c", Name: "c", Type: "noop"}}},
		},
	}

	if p.TaskCount() != 3 {
		t.Fatalf("expected 3 tasks, got %d", p.TaskCount())
	}
	tasks := p.Tasks()
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	// Declaration order across stages is preserved.
	if tasks[0].ID != "a" || tasks[1].ID != "b" || tasks[2].ID != "c" {
		t.Fatalf("unexpected order: %v", tasks)
	}
}

func TestTasksEmptyPipeline(t *testing.T) {
	p := &Pipeline{ID: "p1", Name: "empty"}
	if p.TaskCount() != 0 {
		t.Fatalf("expected 0 tasks, got %d", p.TaskCount())
	}
	if len(p.Tasks()) != 0 {
		t.Fatalf("expected no tasks, got %v", p.Tasks())
	}
}
