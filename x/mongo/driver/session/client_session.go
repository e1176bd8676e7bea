// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package session implements the logical session and transaction state
// machine that coordinates causally consistent reads and multi-statement
// transactions over a deployment.
package session

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"

	"github.com/ikmak/mongo-driver-core/internal/uuid"
	"github.com/ikmak/mongo-driver-core/mongo/readconcern"
	"github.com/ikmak/mongo-driver-core/mongo/writeconcern"
	"github.com/ikmak/mongo-driver-core/x/mongo/driver/description"
)

// ErrSessionEnded is returned when a client session is used after a call to
// endSession().
var ErrSessionEnded = errors.New("ended session was used")

// ErrNoTransactStarted is returned if a transaction operation is called when
// no transaction has started.
var ErrNoTransactStarted = errors.New("no transaction started")

// ErrTransactInProgress is returned if startTransaction() is called when a
// transaction is in progress.
var ErrTransactInProgress = errors.New("transaction already in progress")

// ErrAbortAfterCommit is returned when abort is called after a commit.
var ErrAbortAfterCommit = errors.New("cannot call abortTransaction after calling commitTransaction")

// ErrAbortTwice is returned if abort is called after transaction is already aborted.
var ErrAbortTwice = errors.New("cannot call abortTransaction twice")

// ErrCommitAfterAbort is returned if commit is called after an abort.
var ErrCommitAfterAbort = errors.New("cannot call commitTransaction after calling abortTransaction")

// ErrUnackWCUnsupported is returned if an unacknowledged write concern is
// supplied for a transaction.
var ErrUnackWCUnsupported = errors.New("transactions do not support unacknowledged write concerns")

// ErrSnapshotTransaction is returned if an transaction is started on a
// snapshot session.
var ErrSnapshotTransaction = errors.New("transactions are not supported in snapshot sessions")

// ErrSnapshotCausalConsistency is returned if a session is configured with
// both snapshot reads and causal consistency.
var ErrSnapshotCausalConsistency = errors.New("causal consistency and snapshot cannot both be set for a session")

// ErrSessionsNotSupported is returned if a transaction is started against a
// deployment that does not support sessions.
var ErrSessionsNotSupported = errors.New("current topology does not support sessions")

// ErrConnectionPinned is returned if a connection is pinned to a session that
// already has one.
var ErrConnectionPinned = errors.New("session already has a pinned connection")

// Connection is the subset of a driver connection the session core needs to
// run commands on the server the session is pinned to. Transaction-scoped
// commands must all traverse the same pinned connection.
type Connection interface {
	// RunCommand sends the command document to the given database and returns
	// the server's reply document.
	RunCommand(ctx context.Context, db string, cmd bsoncore.Document) (bsoncore.Document, error)

	// Description returns the description of the server the connection is to.
	Description() description.Server
}

// Client is a session for clients to run commands.
// The client session is not safe for concurrent use by multiple goroutines.
type Client struct {
	*Server
	ClientID      uuid.UUID
	ClusterTime   bsoncore.Document
	Consistent    bool // causal consistency
	OperationTime *primitive.Timestamp
	SessionType   Type
	Terminated    bool
	RecoveryToken bsoncore.Document
	Snapshot      bool
	SnapshotTime  *primitive.Timestamp

	// the connection the session is pinned to. Set once after checkout and
	// immutable for the life of the session.
	pinnedConnection Connection

	// options for the current transaction
	// most recently set by transactionopt
	CurrentRc  *readconcern.ReadConcern
	CurrentWc  *writeconcern.WriteConcern
	CurrentMct *time.Duration

	// default transaction options
	transactionRc            *readconcern.ReadConcern
	transactionWc            *writeconcern.WriteConcern
	transactionMaxCommitTime *time.Duration

	pool             *Pool
	TransactionState TransactionState
	Committing       bool
	Aborting         bool
}

func getClusterTime(clusterTime bsoncore.Document) (uint32, uint32) {
	if clusterTime == nil {
		return 0, 0
	}

	clusterTimeVal, err := clusterTime.LookupErr("$clusterTime")
	if err != nil {
		return 0, 0
	}

	clusterTimeDoc, ok := clusterTimeVal.DocumentOK()
	if !ok {
		return 0, 0
	}

	timestampVal, err := clusterTimeDoc.LookupErr("clusterTime")
	if err != nil {
		return 0, 0
	}

	t, i, _ := timestampVal.TimestampOK()
	return t, i
}

// MaxClusterTime compares 2 clusterTime documents and returns the document
// representing the highest cluster time.
func MaxClusterTime(ct1, ct2 bsoncore.Document) bsoncore.Document {
	epoch1, ord1 := getClusterTime(ct1)
	epoch2, ord2 := getClusterTime(ct2)

	switch {
	case epoch1 > epoch2:
		return ct1
	case epoch1 < epoch2:
		return ct2
	case ord1 > ord2:
		return ct1
	case ord1 < ord2:
		return ct2
	}

	return ct1
}

// NewClientSession creates a Client.
func NewClientSession(pool *Pool, clientID uuid.UUID, sessionType Type, opts ...*ClientOptions) (*Client, error) {
	mergedOpts := mergeClientOptions(opts...)

	c := &Client{
		ClientID:    clientID,
		SessionType: sessionType,
		pool:        pool,
	}

	c.Consistent = true
	if mergedOpts.Snapshot != nil && *mergedOpts.Snapshot {
		c.Snapshot = true
		// causal consistency is prohibited for snapshot sessions unless
		// explicitly requested, in which case session creation errors below
		c.Consistent = false
	}
	if mergedOpts.CausalConsistency != nil {
		c.Consistent = *mergedOpts.CausalConsistency
	}
	if c.Consistent && c.Snapshot {
		return nil, ErrSnapshotCausalConsistency
	}

	if mergedOpts.DefaultReadConcern != nil {
		c.transactionRc = mergedOpts.DefaultReadConcern
	}
	if mergedOpts.DefaultWriteConcern != nil {
		c.transactionWc = mergedOpts.DefaultWriteConcern
	}
	if mergedOpts.DefaultMaxCommitTime != nil {
		c.transactionMaxCommitTime = mergedOpts.DefaultMaxCommitTime
	}

	servSess, err := pool.GetSession()
	if err != nil {
		return nil, err
	}

	c.Server = servSess

	return c, nil
}

// PinConnection pins the session to the given connection. The pinned
// connection can be set exactly once; all transaction-scoped commands are
// routed through it.
func (c *Client) PinConnection(conn Connection) error {
	if c.pinnedConnection != nil {
		return ErrConnectionPinned
	}
	c.pinnedConnection = conn
	return nil
}

// PinnedConnection returns the connection the session is pinned to, if any.
func (c *Client) PinnedConnection() Connection {
	return c.pinnedConnection
}

// AdvanceClusterTime updates the session's cluster time.
func (c *Client) AdvanceClusterTime(clusterTime bsoncore.Document) error {
	if c.Terminated {
		return ErrSessionEnded
	}
	c.ClusterTime = MaxClusterTime(c.ClusterTime, clusterTime)
	return nil
}

// AdvanceOperationTime updates the session's operation time. Advancing with a
// timestamp at or before the stored one is a no-op, so concurrent advances
// converge to the maximum regardless of arrival order.
func (c *Client) AdvanceOperationTime(opTime *primitive.Timestamp) error {
	if c.Terminated {
		return ErrSessionEnded
	}

	if opTime == nil {
		return nil
	}

	if c.OperationTime == nil {
		c.OperationTime = opTime
		return nil
	}

	if opTime.T > c.OperationTime.T {
		c.OperationTime = opTime
	} else if (opTime.T == c.OperationTime.T) && (opTime.I > c.OperationTime.I) {
		c.OperationTime = opTime
	}

	return nil
}

// UpdateUseTime sets the session's last used time to the current time. This
// must be called whenever the session is used to send a command to the server.
func (c *Client) UpdateUseTime() error {
	if c.Terminated {
		return ErrSessionEnded
	}
	c.updateUseTime()
	return nil
}

// UpdateRecoveryToken updates the session's recovery token from the server
// response. The token is preserved opaquely for mongos transaction recovery.
func (c *Client) UpdateRecoveryToken(response bsoncore.Document) {
	if c == nil {
		return
	}

	token, err := response.LookupErr("recoveryToken")
	if err != nil {
		return
	}

	doc, ok := token.DocumentOK()
	if !ok {
		return
	}

	c.RecoveryToken = doc
}

// UpdateSnapshotTime updates the session's value for the atClusterTime field
// of ReadConcern.
func (c *Client) UpdateSnapshotTime(response bsoncore.Document) {
	if c == nil || !c.Snapshot || c.SnapshotTime != nil {
		return
	}

	subDoc := response
	if cursor, err := response.LookupErr("cursor"); err == nil {
		if cursorDoc, ok := cursor.DocumentOK(); ok {
			subDoc = cursorDoc
		}
	}

	ssTimeElem, err := subDoc.LookupErr("atClusterTime")
	if err != nil {
		// atClusterTime not included by the server
		return
	}

	t, i, ok := ssTimeElem.TimestampOK()
	if !ok {
		return
	}

	c.SnapshotTime = &primitive.Timestamp{T: t, I: i}
}

// ClearPinnedResources clears the recovery token pinned to the session by the
// previous transaction.
func (c *Client) ClearPinnedResources() {
	if c == nil {
		return
	}
	c.RecoveryToken = nil
}

// EndSession ends the session and returns the server session to the pool. A
// session in a running transaction must be aborted by its owner first; the
// identity of a session that ends mid-transaction is discarded rather than
// reused.
func (c *Client) EndSession() {
	if c.Terminated {
		return
	}
	c.Terminated = true

	if !c.TransactionInProgress() && !c.TransactionStarting() {
		c.pool.ReturnSession(c.Server)
	}
}

// TransactionInProgress returns true if the client session is in an active transaction.
func (c *Client) TransactionInProgress() bool {
	return c.TransactionState == InProgress
}

// TransactionStarting returns true if the client session is starting a transaction.
func (c *Client) TransactionStarting() bool {
	return c.TransactionState == Starting
}

// TransactionRunning returns true if the client session has started the
// transaction and it hasn't been committed or aborted
func (c *Client) TransactionRunning() bool {
	return c != nil && (c.TransactionState == Starting || c.TransactionState == InProgress)
}

// TransactionCommitted returns true of the client session just committed a transaction.
func (c *Client) TransactionCommitted() bool {
	return c.TransactionState == Committed
}

// TransactionAborted returns true of the client session just aborted a transaction.
func (c *Client) TransactionAborted() bool {
	return c.TransactionState == Aborted
}

// CheckStartTransaction checks to see if allowed to start transaction and
// returns an error if not allowed.
func (c *Client) CheckStartTransaction() error {
	if c.TransactionState == InProgress || c.TransactionState == Starting {
		return ErrTransactInProgress
	}
	if c.Snapshot {
		return ErrSnapshotTransaction
	}
	if c.pinnedConnection != nil {
		desc := c.pinnedConnection.Description()
		if !description.SessionsSupported(desc.WireVersion) {
			return ErrSessionsNotSupported
		}
	}
	return nil
}

// StartTransaction initializes the transaction options and advances the state
// machine to the Starting state. It does not contact the server; the
// startTransaction flag rides on the first command of the transaction.
func (c *Client) StartTransaction(opts *TransactionOptions) error {
	err := c.CheckStartTransaction()
	if err != nil {
		return err
	}

	c.IncrementTxnNumber()

	if opts != nil {
		c.CurrentRc = opts.ReadConcern
		c.CurrentWc = opts.WriteConcern
		c.CurrentMct = opts.MaxCommitTime
	}

	if c.CurrentRc == nil {
		c.CurrentRc = c.transactionRc
	}

	if c.CurrentWc == nil {
		c.CurrentWc = c.transactionWc
	}

	if c.CurrentMct == nil {
		c.CurrentMct = c.transactionMaxCommitTime
	}

	if !c.CurrentWc.Acknowledged() {
		_ = c.clearTransactionOpts()
		return ErrUnackWCUnsupported
	}

	c.TransactionState = Starting
	c.RecoveryToken = nil
	return nil
}

// CheckCommitTransaction checks to see if allowed to commit transaction and
// returns an error if not allowed.
func (c *Client) CheckCommitTransaction() error {
	if c.TransactionState == None {
		return ErrNoTransactStarted
	} else if c.TransactionState == Aborted {
		return ErrCommitAfterAbort
	}
	return nil
}

// CommitTransaction advances the state machine to the Committed state. The
// commitTransaction command itself is run by the caller before this is called;
// the state advances even when that command failed, so the caller must consult
// the command's error separately.
func (c *Client) CommitTransaction() error {
	err := c.CheckCommitTransaction()
	if err != nil {
		return err
	}
	c.Committing = false
	c.TransactionState = Committed
	return nil
}

// CheckAbortTransaction checks to see if allowed to abort transaction and
// returns an error if not allowed.
func (c *Client) CheckAbortTransaction() error {
	if c.TransactionState == None {
		return ErrNoTransactStarted
	} else if c.TransactionState == Committed {
		return ErrAbortAfterCommit
	} else if c.TransactionState == Aborted {
		return ErrAbortTwice
	}
	return nil
}

// AbortTransaction advances the state machine to the Aborted state. As with
// commit, any abortTransaction command is run by the caller.
func (c *Client) AbortTransaction() error {
	err := c.CheckAbortTransaction()
	if err != nil {
		return err
	}
	c.Aborting = false
	c.TransactionState = Aborted
	return c.clearTransactionOpts()
}

// StartCommand updates the session's internal state at the start of a command.
func (c *Client) StartCommand() error {
	if c == nil {
		return nil
	}

	// If we're executing the first operation using this session after a transaction, we must ensure that the session
	// is not pinned to any resources.
	if !c.TransactionRunning() && !c.Committing && !c.Aborting {
		c.ClearPinnedResources()
	}
	return nil
}

// ApplyCommand advances the state machine based on a command executing: a
// command bound while Starting moves the transaction to InProgress, and a
// command bound after Committed or Aborted closes out that transaction epoch.
func (c *Client) ApplyCommand(desc description.Server) error {
	if c.Committing {
		// Do not change state if committing after already committed
		return nil
	}
	if c.TransactionState == Starting {
		c.TransactionState = InProgress
	} else if c.TransactionState == Committed || c.TransactionState == Aborted {
		_ = c.clearTransactionOpts()
		c.TransactionState = None
	}
	return c.UpdateUseTime()
}

func (c *Client) clearTransactionOpts() error {
	c.CurrentWc = nil
	c.CurrentRc = nil
	c.CurrentMct = nil

	return nil
}

// Type describes the type of the session
type Type uint8

// These constants are the valid types for a client session.
const (
	Explicit Type = iota
	Implicit
)

// TransactionState indicates the state of the transactions FSM.
type TransactionState uint8

// Client Session states
const (
	None TransactionState = iota
	Starting
	InProgress
	Committed
	Aborted
)

// String implements the fmt.Stringer interface.
func (s TransactionState) String() string {
	switch s {
	case None:
		return "none"
	case Starting:
		return "starting"
	case InProgress:
		return "in progress"
	case Committed:
		return "committed"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}
