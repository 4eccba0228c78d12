package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/skillsenselab/expflow/errors"
)

const validYAML = `
id: exp-1
name: Example
stages:
  - id: s1
    name: First
    tasks:
      - id: a
        name: Fetch
        type: noop
      - id: b
        name: Train
        type: sleep
        config:
          duration: 1s
        depends_on: [a]
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if p.ID != "exp-1" || len(p.Stages) != 1 {
		t.Fatalf("unexpected pipeline: %+v", p)
	}
	tasks := p.Tasks()
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[1].Dependencies[0] != "a" {
		t.Fatalf("depends_on not decoded: %+v", tasks[1])
	}
	if tasks[1].Config["duration"] != "1s" {
		t.Fatalf("config not decoded: %+v", tasks[1].Config)
	}
}

func TestParse_MissingRequiredFields(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"no id", "name: x\n"},
		{"no name", "id: x\n"},
		{"task without type", `
id: p
name: p
stages:
  - id: s1
    tasks:
      - id: a
        name: a
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if _, ok := apperrors.AsAppError(err); !ok {
				t.Fatalf("expected app error, got %T", err)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("{not yaml")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseJSON(t *testing.T) {
	data := `{
	  "id": "exp-2",
	  "name": "JSON pipeline",
	  "stages": [
	    {"id": "s1", "tasks": [{"id": "a", "name": "a", "type": "noop"}]}
	  ]
	}`
	p, err := ParseJSON([]byte(data))
	if err != nil {
		t.Fatalf("ParseJSON failed: %v", err)
	}
	if p.TaskCount() != 1 {
		t.Fatalf("expected 1 task, got %d", p.TaskCount())
	}
}

func TestLoadFile_FormatByExtension(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "p.yaml")
	if err := os.WriteFile(yamlPath, []byte(validYAML), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := LoadFile(yamlPath); err != nil {
		t.Fatalf("LoadFile yaml failed: %v", err)
	}

	jsonPath := filepath.Join(dir, "p.json")
	if err := os.WriteFile(jsonPath, []byte(`{"id":"j","name":"j"}`), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := LoadFile(jsonPath); err != nil {
		t.Fatalf("LoadFile json failed: %v", err)
	}
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "exp.yaml"), []byte(validYAML), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	loader := NewFileLoader(t.TempDir(), dir)
	p, err := loader.Load("exp")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.ID != "exp-1" {
		t.Fatalf("unexpected pipeline: %+v", p)
	}

	if _, err := loader.Load("missing"); err == nil {
		t.Fatal("expected error for unknown pipeline")
	}
}
