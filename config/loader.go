package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem abstracts the file operations the loader performs, so tests can
// substitute an in-memory implementation.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// OSFileSystem implements FileSystem against the real filesystem.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoaderOptions holds optional overrides for Load.
type LoaderOptions struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
}

// LoaderOption customizes a Load call.
type LoaderOption func(*LoaderOptions)

// WithFileSystem substitutes the filesystem used to locate and read files.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(o *LoaderOptions) { o.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path, skipping the search.
func WithConfigFile(path string) LoaderOption {
	return func(o *LoaderOptions) { o.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path, skipping the search.
func WithEnvFile(path string) LoaderOption {
	return func(o *LoaderOptions) { o.EnvFile = path }
}

// Load populates cfg for the named service. The YAML config file is the base
// layer, a .env file (if found) is loaded into the process environment, and
// environment variables override everything.
func Load(serviceName string, cfg any, opts ...LoaderOption) error {
	var o LoaderOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.FileSystem == nil {
		o.FileSystem = OSFileSystem{}
	}

	configFile := o.ConfigFile
	if configFile == "" {
		configFile = findFirst(o.FileSystem, configSearchPaths(serviceName))
	}
	envFile := o.EnvFile
	if envFile == "" {
		envFile = findFirst(o.FileSystem, envSearchPaths(serviceName))
	}

	v := viper.New()

	if configFile != "" && o.FileSystem.Exists(configFile) {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: reading %s: %w", configFile, err)
		}
	}

	if envFile != "" && o.FileSystem.Exists(envFile) {
		if err := o.FileSystem.LoadEnv(envFile); err != nil {
			return fmt.Errorf("config: loading %s: %w", envFile, err)
		}
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: unmarshaling for service %s: %w", serviceName, err)
	}
	return nil
}

func findFirst(fs FileSystem, paths []string) string {
	for _, p := range paths {
		if fs.Exists(p) {
			return p
		}
	}
	return ""
}

func configSearchPaths(serviceName string) []string {
	return []string{
		fmt.Sprintf("./cmd/%s/config.yml", serviceName),
		fmt.Sprintf("../cmd/%s/config.yml", serviceName),
		"./config/config.yml",
		"./config.yml",
	}
}

func envSearchPaths(serviceName string) []string {
	return []string{
		fmt.Sprintf(".env.%s", serviceName),
		fmt.Sprintf("./cmd/%s/.env", serviceName),
		"./.env",
		"../.env",
	}
}

// bindEnvVars maps every environment variable onto nested viper keys so
// EXPFLOW_SERVER_PORT overrides server.port without per-key Bind calls.
func bindEnvVars(v *viper.Viper) {
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}
		for _, key := range envKeyVariants(pair[0]) {
			v.Set(key, pair[1])
		}
	}
}

// envKeyVariants lowers an env key and generates the nested spellings viper
// might look up, e.g. SERVER_RATE_LIMIT yields server_rate_limit,
// server.rate.limit, server.rate_limit and server_rate.limit.
func envKeyVariants(envKey string) []string {
	lower := strings.ToLower(envKey)
	parts := strings.Split(lower, "_")
	if len(parts) == 1 {
		return []string{lower}
	}

	seen := map[string]bool{}
	var variants []string
	add := func(k string) {
		if !seen[k] {
			seen[k] = true
			variants = append(variants, k)
		}
	}

	add(lower)
	add(strings.ReplaceAll(lower, "_", "."))
	for i := 1; i < len(parts); i++ {
		add(strings.Join(parts[:i], ".") + "." + strings.Join(parts[i:], "_"))
	}
	return variants
}
