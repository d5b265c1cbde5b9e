// Package logging builds the slog loggers used across gleaner. It provides a
// compact console handler for interactive runs, a JSON handler for log files
// and scripting, and helpers for component-scoped loggers.
package logging
