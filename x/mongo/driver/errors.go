// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driver

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// Error labels the server can attach to a failed command.
const (
	// TransientTransactionError is an error label for transient errors with transactions.
	TransientTransactionError = "TransientTransactionError"
	// UnknownTransactionCommitResult is an error label for unknown transaction commit results.
	UnknownTransactionCommitResult = "UnknownTransactionCommitResult"
	// NetworkError is an error label for network errors.
	NetworkError = "NetworkError"
)

// ErrNoCommandResponse occurs when the server sent no response document to a command.
var ErrNoCommandResponse = errors.New("no command response document")

// Error is a command execution error from the database.
type Error struct {
	Code    int32
	Message string
	Name    string
	Labels  []string
	Raw     bsoncore.Document
}

// Error implements the error interface.
func (e Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("(%v) %v", e.Name, e.Message)
	}
	return e.Message
}

// HasErrorLabel returns true if the error contains the specified label.
func (e Error) HasErrorLabel(label string) bool {
	for _, l := range e.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Retryable returns true if the error is retryable.
func (e Error) Retryable() bool {
	for _, label := range e.Labels {
		if label == NetworkError || label == TransientTransactionError {
			return true
		}
	}
	return false
}

// WriteConcernError is a write concern failure that occurred as a result of a
// write operation.
type WriteConcernError struct {
	Name    string
	Code    int64
	Message string
	Details bsoncore.Document
	Raw     bsoncore.Document
}

// Error implements the error interface.
func (wce WriteConcernError) Error() string {
	if wce.Name != "" {
		return fmt.Sprintf("(%v) %v", wce.Name, wce.Message)
	}
	return wce.Message
}

// WriteCommandError is an error for a write command.
type WriteCommandError struct {
	Labels            []string
	WriteConcernError *WriteConcernError
	Raw               bsoncore.Document
}

// Error implements the error interface.
func (wce WriteCommandError) Error() string {
	if wce.WriteConcernError != nil {
		return fmt.Sprintf("write command error: %v", wce.WriteConcernError)
	}
	return "write command error"
}

// HasErrorLabel returns true if the error contains the specified label.
func (wce WriteCommandError) HasErrorLabel(label string) bool {
	for _, l := range wce.Labels {
		if l == label {
			return true
		}
	}
	return false
}

func extractWriteConcernError(wceVal bsoncore.Value, raw bsoncore.Document) *WriteConcernError {
	doc, ok := wceVal.DocumentOK()
	if !ok {
		return nil
	}

	wce := WriteConcernError{Raw: raw}
	elems, err := doc.Elements()
	if err != nil {
		return nil
	}
	for _, elem := range elems {
		switch elem.Key() {
		case "code":
			if c, ok := elem.Value().Int32OK(); ok {
				wce.Code = int64(c)
			}
		case "codeName":
			if n, ok := elem.Value().StringValueOK(); ok {
				wce.Name = n
			}
		case "errmsg":
			if m, ok := elem.Value().StringValueOK(); ok {
				wce.Message = m
			}
		case "errInfo":
			if d, ok := elem.Value().DocumentOK(); ok {
				wce.Details = d
			}
		}
	}
	return &wce
}

// ExtractErrorFromServerResponse extracts an error from a server response
// document, returning nil if the response indicates success. A reply with
// ok:0 yields an Error carrying the server code, name, and error labels; a
// successful reply carrying a writeConcernError yields a WriteCommandError.
func ExtractErrorFromServerResponse(response bsoncore.Document) error {
	var errmsg, codeName string
	var code int32
	var labels []string
	var ok bool
	var wcError *WriteConcernError

	elems, err := response.Elements()
	if err != nil {
		return err
	}

	for _, elem := range elems {
		switch elem.Key() {
		case "ok":
			switch elem.Value().Type {
			case bsontype.Int32:
				if i32, _ := elem.Value().Int32OK(); i32 == 1 {
					ok = true
				}
			case bsontype.Int64:
				if i64, _ := elem.Value().Int64OK(); i64 == 1 {
					ok = true
				}
			case bsontype.Double:
				if f64, _ := elem.Value().DoubleOK(); f64 == 1 {
					ok = true
				}
			}
		case "errmsg":
			if str, okay := elem.Value().StringValueOK(); okay {
				errmsg = str
			}
		case "codeName":
			if str, okay := elem.Value().StringValueOK(); okay {
				codeName = str
			}
		case "code":
			if c, okay := elem.Value().Int32OK(); okay {
				code = c
			}
		case "errorLabels":
			if arr, okay := elem.Value().ArrayOK(); okay {
				vals, err := arr.Values()
				if err != nil {
					continue
				}
				for _, val := range vals {
					if str, ok := val.StringValueOK(); ok {
						labels = append(labels, str)
					}
				}
			}
		case "writeConcernError":
			wcError = extractWriteConcernError(elem.Value(), response)
		}
	}

	if !ok {
		if errmsg == "" {
			errmsg = "command failed"
		}

		return Error{
			Code:    code,
			Message: errmsg,
			Name:    codeName,
			Labels:  labels,
			Raw:     response,
		}
	}

	if wcError != nil {
		return WriteCommandError{
			Labels:            labels,
			WriteConcernError: wcError,
			Raw:               response,
		}
	}

	return nil
}
