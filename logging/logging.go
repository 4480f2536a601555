// Package logging centralises zap.Logger construction so every entrypoint
// (CLI, server, MCP) gets the same development/production posture instead
// of each hand-rolling its own zap.Config, mirroring how the teacher keeps
// one construction path for shared infrastructure.
package logging

import "go.uber.org/zap"

// New returns a development-mode logger (human-readable, colorized console
// encoding) for CLI use, or a no-op logger if construction fails.
func New() *zap.Logger {
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// NewProduction returns a JSON-encoding production logger, or a no-op logger
// if construction fails. The CLI entrypoints, serve and mcp included, build
// their logger with New instead.
func NewProduction() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
