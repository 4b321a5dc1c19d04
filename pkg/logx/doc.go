// Package logx is a thin structured-logging layer over zerolog.
//
// It exists so the rest of the codebase can log with typed Field helpers
// and swap sinks/levels at runtime (config reload) without holding a
// reference to a concrete zerolog.Logger.
package logx
