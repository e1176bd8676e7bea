// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package drivertest provides scripted fakes of the driver's deployment and
// connection contracts for tests that exercise session and transaction
// behavior without a server.
package drivertest

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"

	"github.com/ikmak/mongo-driver-core/x/mongo/driver"
	"github.com/ikmak/mongo-driver-core/x/mongo/driver/description"
	"github.com/ikmak/mongo-driver-core/x/mongo/driver/session"
)

// RunCall records one command sent through a MockConn.
type RunCall struct {
	DB      string
	Command bsoncore.Document
}

// MockConn implements the session.Connection interface. Commands written to
// it are recorded; replies are popped from the Replies queue, falling back to
// an {ok: 1} document when the queue is empty.
type MockConn struct {
	Desc    description.Server
	Replies []bsoncore.Document
	RunErr  error

	mu    sync.Mutex
	calls []RunCall
}

var _ session.Connection = (*MockConn)(nil)

// okReply is the default reply document.
var okReply = bsoncore.BuildDocument(nil, bsoncore.AppendInt32Element(nil, "ok", 1))

// RunCommand implements the session.Connection interface.
func (c *MockConn) RunCommand(_ context.Context, db string, cmd bsoncore.Document) (bsoncore.Document, error) {
	// Copy cmd in case the caller reuses its buffer.
	b := make(bsoncore.Document, len(cmd))
	copy(b, cmd)

	c.mu.Lock()
	c.calls = append(c.calls, RunCall{DB: db, Command: b})
	reply := okReply
	if len(c.Replies) > 0 {
		reply = c.Replies[0]
		c.Replies = c.Replies[1:]
	}
	c.mu.Unlock()

	if c.RunErr != nil {
		return nil, c.RunErr
	}
	return reply, nil
}

// Description implements the session.Connection interface.
func (c *MockConn) Description() description.Server { return c.Desc }

// Calls returns the commands recorded so far.
func (c *MockConn) Calls() []RunCall {
	c.mu.Lock()
	defer c.mu.Unlock()

	calls := make([]RunCall, len(c.calls))
	copy(calls, c.calls)
	return calls
}

// CommandNames returns the first element key of each recorded command, in
// order. Useful for asserting on the shape of a wire trace.
func (c *MockConn) CommandNames() []string {
	var names []string
	for _, call := range c.Calls() {
		elems, err := call.Command.Elements()
		if err != nil || len(elems) == 0 {
			names = append(names, "")
			continue
		}
		names = append(names, elems[0].Key())
	}
	return names
}

// MockDeployment implements the driver.Deployment interface over a single
// MockConn and a fresh session pool.
type MockDeployment struct {
	Conn *MockConn
	Pool *session.Pool

	// CheckoutErrs is a queue of errors returned by Connection before it
	// starts succeeding. Used to script retryable checkouts.
	CheckoutErrs []error
}

var _ driver.Deployment = (*MockDeployment)(nil)

// NewMockDeployment returns a deployment over one mock connection described
// as a standalone server that supports sessions.
func NewMockDeployment(conn *MockConn) *MockDeployment {
	if conn.Desc.WireVersion == nil {
		conn.Desc = description.Server{
			Addr:                  "drivertest:27017",
			Kind:                  description.Standalone,
			WireVersion:           &description.VersionRange{Min: 6, Max: 21},
			SessionTimeoutMinutes: 30,
		}
	}

	descChan := make(chan description.Topology, 1)
	descChan <- description.Topology{
		Servers:               []description.Server{conn.Desc},
		Kind:                  description.Single,
		SessionTimeoutMinutes: conn.Desc.SessionTimeoutMinutes,
	}

	return &MockDeployment{
		Conn: conn,
		Pool: session.NewPool(descChan),
	}
}

// Connection implements the driver.Deployment interface.
func (d *MockDeployment) Connection(_ context.Context, _ driver.ReadWrite) (driver.Connection, error) {
	if len(d.CheckoutErrs) > 0 {
		err := d.CheckoutErrs[0]
		d.CheckoutErrs = d.CheckoutErrs[1:]
		return nil, err
	}
	return d.Conn, nil
}

// SessionPool implements the driver.Deployment interface.
func (d *MockDeployment) SessionPool() *session.Pool { return d.Pool }

// SupportsSessions implements the driver.Deployment interface.
func (d *MockDeployment) SupportsSessions() bool {
	return d.Conn.Desc.SessionTimeoutMinutes > 0
}
