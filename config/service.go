package config

import (
	"fmt"

	"github.com/skillsenselab/expflow/logger"
	"github.com/skillsenselab/expflow/util"
)

// ServiceConfig holds the fields every expflow binary needs. Applications
// embed it in their own config structs:
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Server server.Config `yaml:"server" mapstructure:"server"`
//	}
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
	Engine      EngineConfig  `yaml:"engine" mapstructure:"engine"`
	Storage     StorageConfig `yaml:"storage" mapstructure:"storage"`
}

// EngineConfig tunes pipeline execution.
type EngineConfig struct {
	// MaxParallel bounds how many tasks run at once.
	MaxParallel int `yaml:"max_parallel" mapstructure:"max_parallel"`
	// ProgressBuffer sizes the progress event channel.
	ProgressBuffer int `yaml:"progress_buffer" mapstructure:"progress_buffer"`
	// PipelineDirs lists the directories searched for pipeline definitions.
	PipelineDirs []string `yaml:"pipeline_dirs" mapstructure:"pipeline_dirs"`
}

// StorageConfig locates the run report store.
type StorageConfig struct {
	// Dir is the root directory for persisted run reports.
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// GetServiceConfig returns the embedded base config. Promotion through
// embedding lets any application config satisfy interfaces keyed on it.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig { return c }

// ApplyDefaults fills unset fields. Embedding structs override this and call
// c.ServiceConfig.ApplyDefaults() first.
func (c *ServiceConfig) ApplyDefaults() {
	c.Environment = util.Coalesce(c.Environment, "development")
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Logging.ServiceName == "" && c.Name != "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()

	if c.Engine.MaxParallel <= 0 {
		c.Engine.MaxParallel = 4
	}
	if c.Engine.ProgressBuffer <= 0 {
		c.Engine.ProgressBuffer = 64
	}
	if len(c.Engine.PipelineDirs) == 0 {
		c.Engine.PipelineDirs = []string{"./pipelines"}
	}
	c.Storage.Dir = util.Coalesce(c.Storage.Dir, "./data/runs")
}

// Validate checks the base configuration fields.
func (c *ServiceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config.name is required")
	}
	switch c.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("config.environment must be one of [development, staging, production] (got: %s)", c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if c.Engine.MaxParallel < 1 {
		return fmt.Errorf("config.engine.max_parallel must be at least 1")
	}
	return nil
}
