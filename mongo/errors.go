// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongo

import (
	"errors"
	"fmt"

	"github.com/ikmak/mongo-driver-core/x/mongo/driver"
	"github.com/ikmak/mongo-driver-core/x/mongo/driver/session"
)

// ErrClientDisconnected is returned when a session is started on a
// disconnected client.
var ErrClientDisconnected = errors.New("client is disconnected")

// ErrNotImplicit is returned by EndImplicitSession when the session was
// started explicitly. It is advisory: the session is untouched and the caller
// remains responsible for ending it.
var ErrNotImplicit = errors.New("session is not implicit")

// ErrNilCallback is returned by WithTransaction when the supplied callback is
// nil.
var ErrNilCallback = errors.New("transaction callback must not be nil")

// CommandError represents a server error during execution of a command.
type CommandError struct {
	Code    int32
	Message string
	Labels  []string
	Name    string
	Wrapped error
}

// Error implements the error interface.
func (e CommandError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("(%v) %v", e.Name, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e CommandError) Unwrap() error {
	return e.Wrapped
}

// HasErrorLabel returns true if the error contains the specified label.
func (e CommandError) HasErrorLabel(label string) bool {
	for _, l := range e.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// WriteConcernError represents a write concern failure during execution of a
// write operation.
type WriteConcernError struct {
	Name    string
	Code    int
	Message string
}

// Error implements the error interface.
func (wce WriteConcernError) Error() string {
	if wce.Name != "" {
		return fmt.Sprintf("(%v) %v", wce.Name, wce.Message)
	}
	return wce.Message
}

// replaceErrors converts driver-layer errors into their exported mongo
// counterparts. Session state errors pass through unchanged so they can be
// compared against the session package sentinels.
func replaceErrors(err error) error {
	if err == nil {
		return nil
	}

	var de driver.Error
	if errors.As(err, &de) {
		return CommandError{
			Code:    de.Code,
			Message: de.Message,
			Labels:  de.Labels,
			Name:    de.Name,
			Wrapped: err,
		}
	}

	var wce driver.WriteCommandError
	if errors.As(err, &wce) && wce.WriteConcernError != nil {
		return WriteConcernError{
			Name:    wce.WriteConcernError.Name,
			Code:    int(wce.WriteConcernError.Code),
			Message: wce.WriteConcernError.Message,
		}
	}

	return err
}

// IsTransientTransactionError returns true if err carries the
// TransientTransactionError label.
func IsTransientTransactionError(err error) bool {
	return hasErrorLabel(err, driver.TransientTransactionError)
}

// IsUnknownTransactionCommitResult returns true if err carries the
// UnknownTransactionCommitResult label.
func IsUnknownTransactionCommitResult(err error) bool {
	return hasErrorLabel(err, driver.UnknownTransactionCommitResult)
}

func hasErrorLabel(err error, label string) bool {
	for err != nil {
		switch e := err.(type) {
		case CommandError:
			if e.HasErrorLabel(label) {
				return true
			}
		case driver.Error:
			if e.HasErrorLabel(label) {
				return true
			}
		case driver.WriteCommandError:
			if e.HasErrorLabel(label) {
				return true
			}
		}
		err = errors.Unwrap(err)
	}
	return false
}

// sessionErr maps nil session pointers to ErrSessionEnded so method calls on
// an ended or missing session fail uniformly.
func sessionErr(s *Session) error {
	if s == nil || s.clientSession == nil || s.clientSession.Terminated {
		return session.ErrSessionEnded
	}
	return nil
}
