// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package logger provides the component/level logger used by the driver core.
// Messages are dispatched to a pluggable LogSink; the default sink writes
// structured records through logrus.
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogSink is the interface implemented by log backends. It matches the logr
// sink surface so adapters such as logrusr can be plugged in directly.
type LogSink interface {
	Info(level int, msg string, keysAndValues ...interface{})
	Error(err error, msg string, keysAndValues ...interface{})
}

// Level is the log severity of a message.
type Level int

// The levels a message can be logged at.
const (
	LevelOff Level = iota
	LevelInfo
	LevelDebug
)

// Component is the driver subsystem a message is logged against.
type Component int

// The components that can be logged against.
const (
	ComponentAll Component = iota
	ComponentCommand
	ComponentSession
	ComponentTransaction
)

// componentEnvVars maps components to the environment variables that configure
// their levels.
var componentEnvVars = map[Component]string{
	ComponentAll:         "MONGODB_LOG_ALL",
	ComponentCommand:     "MONGODB_LOG_COMMAND",
	ComponentSession:     "MONGODB_LOG_SESSION",
	ComponentTransaction: "MONGODB_LOG_TRANSACTION",
}

func parseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "info", "notice", "warn", "warning", "error":
		return LevelInfo
	case "debug", "trace":
		return LevelDebug
	}
	return LevelOff
}

func envComponentLevels() map[Component]Level {
	levels := make(map[Component]Level)
	for component, envVar := range componentEnvVars {
		if val := os.Getenv(envVar); val != "" {
			levels[component] = parseLevel(val)
		}
	}
	if all, ok := levels[ComponentAll]; ok {
		for component := range componentEnvVars {
			if _, set := levels[component]; !set {
				levels[component] = all
			}
		}
	}
	return levels
}

// Logger dispatches component messages to a sink, filtering by per-component
// levels.
type Logger struct {
	componentLevels map[Component]Level
	sink            LogSink
}

// New constructs a Logger with the given sink. A nil sink falls back to a
// logrus-backed sink writing to the standard logger. Component levels not
// supplied are sourced from the environment.
func New(sink LogSink, componentLevels map[Component]Level) *Logger {
	merged := envComponentLevels()
	for component, level := range componentLevels {
		merged[component] = level
	}

	if sink == nil {
		sink = NewLogrusSink(logrus.StandardLogger())
	}

	return &Logger{
		componentLevels: merged,
		sink:            sink,
	}
}

// Is reports whether the given level is enabled for the given component.
func (l *Logger) Is(level Level, component Component) bool {
	if l == nil {
		return false
	}
	return l.componentLevels[component] >= level
}

// Print logs a message against a component if that component's level permits.
func (l *Logger) Print(level Level, component Component, msg string, keysAndValues ...interface{}) {
	if !l.Is(level, component) {
		return
	}
	l.sink.Info(int(level), msg, keysAndValues...)
}

// Error logs an error against a component.
func (l *Logger) Error(component Component, err error, msg string, keysAndValues ...interface{}) {
	if !l.Is(LevelInfo, component) {
		return
	}
	l.sink.Error(err, msg, keysAndValues...)
}
