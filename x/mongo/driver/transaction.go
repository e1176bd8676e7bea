// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driver

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"

	"github.com/ikmak/mongo-driver-core/x/mongo/driver/session"
)

// ErrNoPinnedConnection is returned when a transaction command is executed on
// a session that was never pinned to a connection.
var ErrNoPinnedConnection = errors.New("session is not pinned to a connection")

// transactionDB is the database commitTransaction, abortTransaction, and
// endSessions are issued against.
const transactionDB = "admin"

// createTransactionCommand builds the envelope shared by commitTransaction
// and abortTransaction. Options that are unset are omitted from the document
// rather than sent as null.
func createTransactionCommand(name string, sess *session.Client, maxTime bool) (bsoncore.Document, error) {
	idx, cmd := bsoncore.AppendDocumentStart(nil)
	cmd = bsoncore.AppendInt32Element(cmd, name, 1)
	cmd = bsoncore.AppendDocumentElement(cmd, "lsid", sess.SessionID)
	cmd = bsoncore.AppendInt64Element(cmd, "txnNumber", sess.TxnNumber)
	cmd = bsoncore.AppendBooleanElement(cmd, "autocommit", false)

	if sess.CurrentWc != nil {
		_, wcData, err := sess.CurrentWc.MarshalBSONValue()
		if err != nil {
			return nil, err
		}
		cmd = bsoncore.AppendDocumentElement(cmd, "writeConcern", wcData)
	}

	if maxTime && sess.CurrentMct != nil {
		cmd = bsoncore.AppendInt64Element(cmd, "maxTimeMS", int64(*sess.CurrentMct/time.Millisecond))
	}

	if len(sess.RecoveryToken) > 0 {
		cmd = bsoncore.AppendDocumentElement(cmd, "recoveryToken", sess.RecoveryToken)
	}

	return bsoncore.AppendDocumentEnd(cmd, idx)
}

// CommitTransaction runs commitTransaction for the session's active
// transaction on its pinned connection. The server reply is applied to the
// session (operation time, cluster time, recoveryToken) before any server
// error is returned, and the reply document is returned so the caller can
// surface the recovery token. State transitions are the caller's
// responsibility: the session moves to Committed whether or not this returns
// an error.
func CommitTransaction(ctx context.Context, sess *session.Client, clock *session.ClusterClock) (bsoncore.Document, error) {
	conn := sess.PinnedConnection()
	if conn == nil {
		return nil, ErrNoPinnedConnection
	}

	cmd, err := createTransactionCommand("commitTransaction", sess, true)
	if err != nil {
		return nil, err
	}

	sess.Committing = true
	reply, err := conn.RunCommand(ctx, transactionDB, cmd)
	sess.Committing = false
	if err != nil {
		return nil, errors.Wrap(err, "unable to run commitTransaction")
	}

	sess.UpdateRecoveryToken(reply)
	if err := ProcessReply(sess, clock, reply, sess.CurrentWc.Acknowledged()); err != nil {
		return reply, err
	}

	return reply, ExtractErrorFromServerResponse(reply)
}

// AbortTransaction runs abortTransaction for the session's active transaction
// on its pinned connection. Abort is best-effort: callers are expected to
// discard the returned error so an abort can never mask the failure that
// triggered it.
func AbortTransaction(ctx context.Context, sess *session.Client, clock *session.ClusterClock) error {
	conn := sess.PinnedConnection()
	if conn == nil {
		return ErrNoPinnedConnection
	}

	cmd, err := createTransactionCommand("abortTransaction", sess, false)
	if err != nil {
		return err
	}

	sess.Aborting = true
	reply, err := conn.RunCommand(ctx, transactionDB, cmd)
	sess.Aborting = false
	if err != nil {
		return errors.Wrap(err, "unable to run abortTransaction")
	}

	if err := ProcessReply(sess, clock, reply, sess.CurrentWc.Acknowledged()); err != nil {
		return err
	}

	return ExtractErrorFromServerResponse(reply)
}

// endSessionsBatchSize is the maximum number of session ids included in one
// endSessions command.
const endSessionsBatchSize = 10000

// EndSessions notifies the server that the given session identities will no
// longer be used, in batches of 10,000. Errors are ignored: the server
// eventually reaps abandoned sessions on its own.
func EndSessions(ctx context.Context, conn Connection, sessionIDs []bsoncore.Document) {
	if conn == nil {
		return
	}

	for len(sessionIDs) > 0 {
		batch := sessionIDs
		if len(batch) > endSessionsBatchSize {
			batch = batch[:endSessionsBatchSize]
		}
		sessionIDs = sessionIDs[len(batch):]

		aidx, arr := bsoncore.AppendArrayElementStart(nil, "endSessions")
		for i, id := range batch {
			arr = bsoncore.AppendDocumentElement(arr, strconv.Itoa(i), id)
		}
		arr, _ = bsoncore.AppendArrayEnd(arr, aidx)

		cmd := bsoncore.BuildDocument(nil, arr)
		_, _ = conn.RunCommand(ctx, transactionDB, cmd) // ignore any errors returned by the command
	}
}
