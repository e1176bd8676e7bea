// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package mongo exposes the client-facing surface of the session and
// transaction core: clients, sessions, and the convenient with-transaction
// runner. Deployments (topology management and the wire protocol) are
// supplied by the caller through the driver.Deployment contract.
package mongo

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/ikmak/mongo-driver-core/internal/logger"
	"github.com/ikmak/mongo-driver-core/internal/uuid"
	"github.com/ikmak/mongo-driver-core/mongo/options"
	"github.com/ikmak/mongo-driver-core/x/mongo/driver"
	"github.com/ikmak/mongo-driver-core/x/mongo/driver/session"
)

// checkoutRetryDelay is how long to wait before retrying a session checkout
// after the deployment reported that a connection was still being
// established.
var checkoutRetryDelay = 1 * time.Second

// Client coordinates logical sessions against a deployment. It owns the
// process-wide server session pool and the cluster clock used to gossip
// cluster time between sessions.
type Client struct {
	id           uuid.UUID
	deployment   driver.Deployment
	sessionPool  *session.Pool
	clock        *session.ClusterClock
	logger       *logger.Logger
	disconnected bool
}

// NewClient creates a new Client over the given deployment.
func NewClient(deployment driver.Deployment, opts ...*options.ClientOptions) (*Client, error) {
	if deployment == nil {
		return nil, errors.New("deployment must not be nil")
	}

	id, err := uuid.New()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate client id")
	}

	clientOpts := options.MergeClientOptions(opts...)

	return &Client{
		id:          id,
		deployment:  deployment,
		sessionPool: deployment.SessionPool(),
		clock:       &session.ClusterClock{},
		logger:      newLogger(clientOpts.LoggerOptions),
	}, nil
}

func newLogger(opts *options.LoggerOptions) *logger.Logger {
	if opts == nil {
		return logger.New(nil, nil)
	}

	levels := make(map[logger.Component]logger.Level, len(opts.ComponentLevels))
	for component, level := range opts.ComponentLevels {
		levels[logger.Component(component)] = logger.Level(level)
	}

	var sink logger.LogSink
	if opts.Sink != nil {
		sink = opts.Sink
	}

	return logger.New(sink, levels)
}

// StartSession starts a new explicit session bound to a writable server.
//
// Sessions must be ended by calling EndSession. A session and the
// transactions run inside it are not safe for concurrent use by multiple
// goroutines.
func (c *Client) StartSession(ctx context.Context, opts ...*options.SessionOptions) (*Session, error) {
	return c.startSession(ctx, driver.Write, session.Explicit, opts...)
}

// StartImplicitSession returns the session stored in ctx when one is present;
// otherwise it starts a session that is implicit: ended automatically by the
// operation it wraps via EndImplicitSession.
func (c *Client) StartImplicitSession(ctx context.Context, kind driver.ReadWrite, opts ...*options.SessionOptions) (*Session, error) {
	if sess := SessionFromContext(ctx); sess != nil {
		return sess, nil
	}
	return c.startSession(ctx, kind, session.Implicit, opts...)
}

func (c *Client) startSession(ctx context.Context, kind driver.ReadWrite, sessType session.Type, opts ...*options.SessionOptions) (*Session, error) {
	if c.disconnected {
		return nil, ErrClientDisconnected
	}

	sessOpts := options.MergeSessionOptions(opts...)
	coreOpts := &session.ClientOptions{
		CausalConsistency:    sessOpts.CausalConsistency,
		DefaultReadConcern:   sessOpts.DefaultReadConcern,
		DefaultWriteConcern:  sessOpts.DefaultWriteConcern,
		DefaultMaxCommitTime: sessOpts.DefaultMaxCommitTime,
		Snapshot:             sessOpts.Snapshot,
	}

	sess, err := session.NewClientSession(c.sessionPool, c.id, sessType, coreOpts)
	if err != nil {
		return nil, err
	}

	conn, err := c.checkoutConnection(ctx, kind)
	if err != nil {
		sess.EndSession()
		return nil, err
	}

	if err := sess.PinConnection(conn); err != nil {
		sess.EndSession()
		return nil, err
	}

	c.logger.Print(logger.LevelDebug, logger.ComponentSession, "session started",
		"lsid", sess.SessionID.String(),
		"implicit", sessType == session.Implicit)

	return &Session{clientSession: sess, client: c}, nil
}

// checkoutConnection asks the deployment for a connection, waiting out
// retryable checkout states.
func (c *Client) checkoutConnection(ctx context.Context, kind driver.ReadWrite) (driver.Connection, error) {
	for {
		conn, err := c.deployment.Connection(ctx, kind)
		if err == nil {
			return conn, nil
		}

		var retryable driver.RetryableCheckoutError
		if !errors.As(err, &retryable) {
			return nil, err
		}

		c.logger.Print(logger.LevelDebug, logger.ComponentSession, "session checkout delayed",
			"addr", retryable.Addr)

		timer := time.NewTimer(checkoutRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// WithTransaction starts a write session, runs fn inside a transaction on it,
// and ends the session. The transaction commits when fn returns a nil error
// and aborts otherwise; see Session.WithTransaction for the callback
// contract.
func (c *Client) WithTransaction(ctx context.Context, fn func(ctx context.Context) (interface{}, error), opts ...*options.TransactionOptions) (interface{}, error) {
	sess, err := c.StartSession(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.EndSession(ctx)

	return sess.WithTransaction(ctx, fn, opts...)
}

// Disconnect ends the pooled server sessions on a best-effort basis and marks
// the client disconnected. The deployment itself is owned and shut down by
// the caller.
func (c *Client) Disconnect(ctx context.Context) error {
	if c.disconnected {
		return nil
	}
	c.disconnected = true

	ids := c.sessionPool.IDSlice()
	if len(ids) == 0 {
		return nil
	}

	conn, err := c.deployment.Connection(ctx, driver.Write)
	if err != nil {
		// the server reaps abandoned sessions after their timeout
		return nil
	}

	driver.EndSessions(ctx, conn, ids)
	c.logger.Print(logger.LevelDebug, logger.ComponentSession, "ended pooled sessions",
		"count", len(ids))
	return nil
}

// ID returns the client's unique identifier.
func (c *Client) ID() uuid.UUID { return c.id }

// ClusterClock returns the client's cluster clock.
func (c *Client) ClusterClock() *session.ClusterClock { return c.clock }

// NumberSessionsInProgress returns the number of sessions checked out of the
// client's session pool.
func (c *Client) NumberSessionsInProgress() int64 {
	return c.sessionPool.CheckedOut()
}
