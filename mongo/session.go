// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"

	"github.com/ikmak/mongo-driver-core/internal/logger"
	"github.com/ikmak/mongo-driver-core/mongo/options"
	"github.com/ikmak/mongo-driver-core/x/mongo/driver"
	"github.com/ikmak/mongo-driver-core/x/mongo/driver/description"
	"github.com/ikmak/mongo-driver-core/x/mongo/driver/session"
)

// withTransactionTimeout is the maximum amount of time a WithTransaction call
// may take, including the commit.
var withTransactionTimeout = 120 * time.Second

// sessionKey is the context key under which a Session travels.
type sessionKey struct{}

// NewSessionContext returns a context holding the given session. Operations
// that accept a context discover the session through SessionFromContext.
func NewSessionContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext extracts the session stored in ctx, if any.
func SessionFromContext(ctx context.Context) *Session {
	if sess, ok := ctx.Value(sessionKey{}).(*Session); ok {
		return sess
	}
	return nil
}

// Session represents a logical session with the deployment. A session enables
// causally consistent reads and multi-statement transactions. Sessions are
// bound to one server connection at checkout; every transaction-scoped
// command is routed through it.
//
// A Session is not safe for concurrent use by multiple goroutines.
type Session struct {
	clientSession *session.Client
	client        *Client
}

// ID returns the session's server-assigned id document ({id: <uuid>}).
func (s *Session) ID() bsoncore.Document {
	if s == nil || s.clientSession == nil {
		return nil
	}
	return s.clientSession.SessionID
}

// Implicit returns true if the session was started implicitly around a single
// operation.
func (s *Session) Implicit() bool {
	return s != nil && s.clientSession != nil && s.clientSession.SessionType == session.Implicit
}

// Connection returns the connection the session is pinned to.
func (s *Session) Connection() driver.Connection {
	if s == nil || s.clientSession == nil {
		return nil
	}
	return s.clientSession.PinnedConnection()
}

// ServerSession returns the borrowed server session and whether the session
// is implicit.
func (s *Session) ServerSession() (*session.Server, bool, error) {
	if err := sessionErr(s); err != nil {
		return nil, false, err
	}
	return s.clientSession.Server, s.Implicit(), nil
}

// OperationTime returns the highest cluster time observed through the
// session.
func (s *Session) OperationTime() *primitive.Timestamp {
	if s == nil || s.clientSession == nil {
		return nil
	}
	return s.clientSession.OperationTime
}

// ClusterTime returns the session's current cluster time document.
func (s *Session) ClusterTime() bsoncore.Document {
	if s == nil || s.clientSession == nil {
		return nil
	}
	return s.clientSession.ClusterTime
}

// AdvanceOperationTime advances the session's operation time. Earlier
// timestamps are ignored, so the stored value is the maximum ever observed.
func (s *Session) AdvanceOperationTime(ts *primitive.Timestamp) error {
	if err := sessionErr(s); err != nil {
		return err
	}
	return s.clientSession.AdvanceOperationTime(ts)
}

// AdvanceClusterTime advances the session's cluster time.
func (s *Session) AdvanceClusterTime(ct bsoncore.Document) error {
	if err := sessionErr(s); err != nil {
		return err
	}
	return s.clientSession.AdvanceClusterTime(ct)
}

// StartTransaction starts a transaction on the session. The transaction's
// first command carries the startTransaction flag; StartTransaction itself
// does not contact the server.
func (s *Session) StartTransaction(opts ...*options.TransactionOptions) error {
	if err := sessionErr(s); err != nil {
		return err
	}

	topts := options.MergeTransactionOptions(opts...)
	coreOpts := &session.TransactionOptions{
		ReadConcern:   topts.ReadConcern,
		WriteConcern:  topts.WriteConcern,
		MaxCommitTime: topts.MaxCommitTime,
	}

	if err := s.clientSession.StartTransaction(coreOpts); err != nil {
		return err
	}

	s.client.logger.Print(logger.LevelDebug, logger.ComponentTransaction, "transaction started",
		"lsid", s.clientSession.SessionID.String(),
		"txnNumber", s.clientSession.TxnNumber)
	return nil
}

// CommitTransaction commits the session's active transaction. A transaction
// that never bound a command commits locally without a network round trip.
//
// The session transitions to the committed state even when the
// commitTransaction command fails, so the returned error must be consulted;
// a commit that failed over the network is not re-commitable through this
// session.
func (s *Session) CommitTransaction(ctx context.Context) error {
	if err := sessionErr(s); err != nil {
		return err
	}

	if err := s.clientSession.CheckCommitTransaction(); err != nil {
		return err
	}

	var cmdErr error
	if s.clientSession.TransactionInProgress() {
		_, cmdErr = driver.CommitTransaction(ctx, s.clientSession, s.client.clock)
	}

	_ = s.clientSession.CommitTransaction()

	if cmdErr != nil {
		s.client.logger.Error(logger.ComponentTransaction, cmdErr, "commitTransaction failed",
			"lsid", s.clientSession.SessionID.String(),
			"txnNumber", s.clientSession.TxnNumber)
		return replaceErrors(cmdErr)
	}

	s.client.logger.Print(logger.LevelDebug, logger.ComponentTransaction, "transaction committed",
		"lsid", s.clientSession.SessionID.String(),
		"txnNumber", s.clientSession.TxnNumber)
	return nil
}

// AbortTransaction aborts the session's active transaction. Errors from the
// abortTransaction command are suppressed: aborting is best-effort and must
// never mask the failure that triggered it.
func (s *Session) AbortTransaction(ctx context.Context) error {
	if err := sessionErr(s); err != nil {
		return err
	}

	if err := s.clientSession.CheckAbortTransaction(); err != nil {
		return err
	}

	if s.clientSession.TransactionInProgress() {
		if err := driver.AbortTransaction(ctx, s.clientSession, s.client.clock); err != nil {
			s.client.logger.Print(logger.LevelDebug, logger.ComponentTransaction, "abortTransaction failed",
				"lsid", s.clientSession.SessionID.String(),
				"error", err.Error())
		}
	}

	return s.clientSession.AbortTransaction()
}

// WithTransaction runs fn inside a transaction on the session: the
// transaction is started before fn runs, committed when fn returns a nil
// error, and aborted when fn returns an error or panics. A panic inside fn is
// converted to an error; the panicking stack is not preserved, so callbacks
// should surface their own context.
//
// The whole call, including the commit, is bounded by a 120 second deadline.
// WithTransaction does not retry transient transaction errors; callers that
// want retry loops can build them from IsTransientTransactionError and
// IsUnknownTransactionCommitResult.
func (s *Session) WithTransaction(ctx context.Context, fn func(ctx context.Context) (interface{}, error), opts ...*options.TransactionOptions) (res interface{}, err error) {
	if err := sessionErr(s); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, ErrNilCallback
	}

	ctx, cancel := context.WithTimeout(ctx, withTransactionTimeout)
	defer cancel()

	if err := s.StartTransaction(opts...); err != nil {
		return nil, err
	}

	res, err = runCallback(NewSessionContext(ctx, s), fn)
	if err != nil {
		if s.clientSession.TransactionRunning() {
			_ = s.AbortTransaction(ctx)
		}
		return nil, err
	}

	return res, s.CommitTransaction(ctx)
}

// runCallback invokes fn, converting a panic into an error return.
func runCallback(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (res interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("transaction callback panicked: %v", r)
		}
	}()
	return fn(ctx)
}

// BindCommand decorates an outgoing command with the session's metadata
// according to the current transaction state and returns the pinned
// connection the command must be sent on. Binding performs no I/O.
func (s *Session) BindCommand(cmd bsoncore.Document) (driver.Connection, bsoncore.Document, error) {
	if s == nil || s.clientSession == nil {
		return nil, cmd, nil
	}

	conn := s.clientSession.PinnedConnection()
	if conn == nil {
		return nil, nil, driver.ErrNoPinnedConnection
	}

	desc := description.SelectedServer{Server: conn.Description()}
	bound, err := driver.BindCommand(s.clientSession, s.client.clock, desc, cmd)
	if err != nil {
		return nil, nil, err
	}

	return conn, bound, nil
}

// ProcessReply applies a server reply to the session: cluster time is
// gossiped and, when acknowledged is true, the operation time advances.
func (s *Session) ProcessReply(reply bsoncore.Document, acknowledged bool) error {
	if err := sessionErr(s); err != nil {
		return err
	}
	return driver.ProcessReply(s.clientSession, s.client.clock, reply, acknowledged)
}

// EndSession ends the session and returns the borrowed server session to the
// pool. A transaction still in progress is aborted on a best-effort basis
// first, so dropping a session mid-transaction releases its server-side
// locks. EndSession is idempotent.
func (s *Session) EndSession(ctx context.Context) {
	if s == nil || s.clientSession == nil || s.clientSession.Terminated {
		return
	}

	if s.clientSession.TransactionRunning() {
		// ignore all errors aborting during an end session
		_ = s.AbortTransaction(ctx)
	}

	s.client.logger.Print(logger.LevelDebug, logger.ComponentSession, "session ended",
		"lsid", s.clientSession.SessionID.String())

	s.clientSession.EndSession()
}

// EndImplicitSession ends the session only if it was started implicitly. For
// an explicit session it returns ErrNotImplicit and leaves the session
// untouched, signalling the caller that no checkin happened.
func (s *Session) EndImplicitSession(ctx context.Context) error {
	if s == nil || s.clientSession == nil {
		return nil
	}

	if s.clientSession.SessionType != session.Implicit {
		return ErrNotImplicit
	}

	s.EndSession(ctx)
	return nil
}
