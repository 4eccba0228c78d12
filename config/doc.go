// Package config provides configuration loading and validation for expflow
// binaries.
//
// It uses Viper to load a YAML config file as the base layer, optionally
// loads a .env file via godotenv, and lets environment variables override
// everything (e.g. ENGINE_MAX_PARALLEL overrides engine.max_parallel).
//
// Applications embed ServiceConfig in their own config structs and extend
// ApplyDefaults and Validate.
package config
