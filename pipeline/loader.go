package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/skillsenselab/expflow/validation"
)

// Loader loads pipeline definitions by name.
type Loader interface {
	Load(name string) (*Pipeline, error)
}

// FileLoader loads pipelines from YAML/JSON files on disk.
type FileLoader struct {
	dirs []string
}

// NewFileLoader creates a loader that searches the given directories for
// pipeline definition files.
func NewFileLoader(dirs ...string) *FileLoader {
	return &FileLoader{dirs: dirs}
}

// Load searches for {name}.yaml, {name}.yml or {name}.json in each configured
// directory and returns the first pipeline that parses and validates.
func (l *FileLoader) Load(name string) (*Pipeline, error) {
	for _, dir := range l.dirs {
		for _, ext := range []string{".yaml", ".yml", ".json"} {
			path := filepath.Join(dir, name+ext)
			if p, err := LoadFile(path); err == nil {
				return p, nil
			}
		}
	}
	return nil, fmt.Errorf("pipeline: %q not found in %v", name, l.dirs)
}

// LoadFile reads and validates a pipeline definition from a single file.
// The format is chosen by extension: .json is JSON, anything else is YAML.
func LoadFile(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSON(data)
	}
	return Parse(data)
}

// Parse decodes a YAML pipeline definition and validates required fields.
func Parse(data []byte) (*Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("pipeline: parsing yaml: %w", err)
	}
	if err := validation.Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ParseJSON decodes a JSON pipeline definition and validates required fields.
func ParseJSON(data []byte) (*Pipeline, error) {
	var p Pipeline
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("pipeline: parsing json: %w", err)
	}
	if err := validation.Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}
