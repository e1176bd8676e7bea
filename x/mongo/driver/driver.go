// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package driver contains the session-aware command execution layer: command
// decoration, commit/abort/endSessions execution, and the contracts a
// deployment must satisfy to host sessions. Topology management, server
// selection, and the wire protocol live behind the Deployment and Connection
// interfaces.
package driver

import (
	"context"
	"fmt"

	"github.com/ikmak/mongo-driver-core/x/mongo/driver/session"
)

// Connection represents a connection to a single server. Implementations wrap
// the wire protocol; the session core only sends command documents and reads
// reply documents through it.
type Connection = session.Connection

// ReadWrite indicates whether a server fit for reads or one fit for writes
// should back a checkout.
type ReadWrite uint8

// The kinds of server a session checkout can ask for.
const (
	Read ReadWrite = iota
	Write
)

// Deployment is implemented by topologies that can lend connections and host
// a server session pool.
type Deployment interface {
	// Connection selects a server appropriate for the given kind and returns
	// a connection to it. A RetryableCheckoutError return means the
	// deployment is establishing the connection and the caller should retry
	// after a delay.
	Connection(ctx context.Context, kind ReadWrite) (Connection, error)

	// SessionPool returns the deployment-wide server session pool.
	SessionPool() *session.Pool

	// SupportsSessions returns true if every data-bearing server in the
	// deployment has advertised a logical session timeout.
	SupportsSessions() bool
}

// RetryableCheckoutError indicates that a connection to the selected server is
// still being established. Checkout should be retried after a short delay.
type RetryableCheckoutError struct {
	Addr    string
	Wrapped error
}

// Error implements the error interface.
func (e RetryableCheckoutError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("connection to %s not ready: %v", e.Addr, e.Wrapped)
	}
	return fmt.Sprintf("connection to %s not ready", e.Addr)
}

// Unwrap returns the underlying error.
func (e RetryableCheckoutError) Unwrap() error { return e.Wrapped }
