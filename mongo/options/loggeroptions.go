// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package options

// LogLevel is the log severity at which a component logs.
type LogLevel int

// The available log levels.
const (
	LogLevelOff LogLevel = iota
	LogLevelInfo
	LogLevelDebug
)

// LogComponent is a driver subsystem that can be logged against.
type LogComponent int

// The available log components.
const (
	LogComponentAll LogComponent = iota
	LogComponentCommand
	LogComponentSession
	LogComponentTransaction
)

// LogSink is the interface a log backend must implement. It matches the logr
// sink surface, so adapters such as logrusr can be plugged in directly.
type LogSink interface {
	Info(level int, msg string, keysAndValues ...interface{})
	Error(err error, msg string, keysAndValues ...interface{})
}

// LoggerOptions represents options used to configure logging.
type LoggerOptions struct {
	// Sink receives log records. If nil, records are written through logrus.
	Sink LogSink

	// ComponentLevels is the minimum level per component. Components not
	// present are sourced from the MONGODB_LOG_* environment variables.
	ComponentLevels map[LogComponent]LogLevel
}

// Logger creates a new LoggerOptions instance.
func Logger() *LoggerOptions {
	return &LoggerOptions{
		ComponentLevels: map[LogComponent]LogLevel{},
	}
}

// SetSink sets the value for the Sink field.
func (l *LoggerOptions) SetSink(sink LogSink) *LoggerOptions {
	l.Sink = sink
	return l
}

// SetComponentLevel sets the level for a component.
func (l *LoggerOptions) SetComponentLevel(component LogComponent, level LogLevel) *LoggerOptions {
	l.ComponentLevels[component] = level
	return l
}
