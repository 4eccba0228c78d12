// Package util provides small generic helpers shared across the expflow
// packages: map and slice utilities and display helpers for logging.
package util
