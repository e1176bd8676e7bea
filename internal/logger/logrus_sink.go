// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package logger

import (
	"github.com/sirupsen/logrus"
)

// logrusSink adapts a logrus logger to the LogSink interface.
type logrusSink struct {
	log *logrus.Logger
}

// NewLogrusSink returns a LogSink that writes through the given logrus logger.
// A nil logger uses the logrus standard logger.
func NewLogrusSink(log *logrus.Logger) LogSink {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &logrusSink{log: log}
}

func (s *logrusSink) fields(keysAndValues []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}

func (s *logrusSink) Info(level int, msg string, keysAndValues ...interface{}) {
	entry := s.log.WithFields(s.fields(keysAndValues))
	if Level(level) >= LevelDebug {
		entry.Debug(msg)
		return
	}
	entry.Info(msg)
}

func (s *logrusSink) Error(err error, msg string, keysAndValues ...interface{}) {
	s.log.WithFields(s.fields(keysAndValues)).WithError(err).Error(msg)
}
