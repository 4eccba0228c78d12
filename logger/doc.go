// Package logger provides structured logging for expflow services,
// backed by zerolog. A global logger supports package-level convenience
// functions; component loggers are derived with WithComponent.
package logger
