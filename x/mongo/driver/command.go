// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driver

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"

	"github.com/ikmak/mongo-driver-core/x/mongo/driver/description"
	"github.com/ikmak/mongo-driver-core/x/mongo/driver/session"
)

// BindCommand rewrites an outgoing command document to carry the session's
// metadata for the server described by desc: lsid, transaction fields,
// read concern, and gossiped cluster time, all according to the session's
// transaction state. The input document is not modified. Binding performs no
// I/O; it also advances the session state machine the way executing the
// returned command would (Starting moves to InProgress).
//
// A nil session, or a server whose wire version predates sessions, returns
// the command unchanged.
func BindCommand(sess *session.Client, clock *session.ClusterClock, desc description.SelectedServer, cmd bsoncore.Document) (bsoncore.Document, error) {
	if sess == nil || !description.SessionsSupported(desc.WireVersion) || desc.SessionTimeoutMinutes == 0 {
		return cmd, nil
	}

	if sess.Terminated {
		return nil, session.ErrSessionEnded
	}

	_ = sess.StartCommand()

	elems, err := cmd.Elements()
	if err != nil {
		return nil, err
	}

	starting := sess.TransactionStarting()
	inProgress := sess.TransactionInProgress()

	// Inside a transaction the caller's readConcern and writeConcern are
	// invalid and dropped; the write concern rides on the commit or abort
	// instead. The caller's readConcern is kept aside otherwise so causal
	// consistency can extend it.
	var callerRc bsoncore.Document
	idx, dst := bsoncore.AppendDocumentStart(nil)
	for _, elem := range elems {
		switch elem.Key() {
		case "lsid", "$clusterTime":
			// replaced below
		case "readConcern":
			if starting || inProgress {
				continue
			}
			if rcDoc, ok := elem.Value().DocumentOK(); ok {
				callerRc = rcDoc
				continue
			}
			dst = bsoncore.AppendValueElement(dst, elem.Key(), elem.Value())
		case "writeConcern":
			if starting || inProgress {
				continue
			}
			dst = bsoncore.AppendValueElement(dst, elem.Key(), elem.Value())
		default:
			dst = bsoncore.AppendValueElement(dst, elem.Key(), elem.Value())
		}
	}

	dst = bsoncore.AppendDocumentElement(dst, "lsid", sess.SessionID)

	if sess.TransactionRunning() {
		dst = bsoncore.AppendInt64Element(dst, "txnNumber", sess.TxnNumber)
		if starting {
			dst = bsoncore.AppendBooleanElement(dst, "startTransaction", true)
		}
		dst = bsoncore.AppendBooleanElement(dst, "autocommit", false)
	}

	if !inProgress {
		rcDoc, err := createReadConcernDoc(sess, callerRc, starting)
		if err != nil {
			return nil, err
		}
		if len(rcDoc) > 0 {
			dst = bsoncore.AppendDocumentElement(dst, "readConcern", rcDoc)
		}
	}

	if ct := maxSessionClusterTime(sess, clock); ct != nil {
		if ctVal, err := ct.LookupErr("$clusterTime"); err == nil {
			dst = bsoncore.AppendValueElement(dst, "$clusterTime", ctVal)
		}
	}

	dst, _ = bsoncore.AppendDocumentEnd(dst, idx)

	if err := sess.ApplyCommand(desc.Server); err != nil {
		return nil, err
	}

	return dst, nil
}

// createReadConcernDoc computes the read concern for a command bound outside
// of (or starting) a transaction:
//
//   - when starting, the transaction's read concern replaces the caller's;
//   - a causally consistent session with a known operation time extends the
//     read concern with afterClusterTime;
//   - a snapshot session reads at level snapshot, pinned to the first
//     observed snapshot time.
//
// An empty result means no readConcern field should be emitted.
func createReadConcernDoc(sess *session.Client, callerRc bsoncore.Document, starting bool) (bsoncore.Document, error) {
	if sess.Snapshot {
		elems := bsoncore.AppendStringElement(nil, "level", "snapshot")
		if sess.SnapshotTime != nil {
			elems = bsoncore.AppendTimestampElement(elems, "atClusterTime", sess.SnapshotTime.T, sess.SnapshotTime.I)
		}
		return bsoncore.BuildDocument(nil, elems), nil
	}

	injecting := sess.Consistent && sess.OperationTime != nil

	var elems []byte
	switch {
	case starting && sess.CurrentRc != nil:
		_, rcData, err := sess.CurrentRc.MarshalBSONValue()
		if err != nil {
			return nil, err
		}
		elems, err = appendDocumentElements(elems, rcData, nil)
		if err != nil {
			return nil, err
		}
	case callerRc != nil:
		if !injecting {
			return callerRc, nil
		}
		var err error
		elems, err = appendDocumentElements(elems, callerRc, []string{"afterClusterTime"})
		if err != nil {
			return nil, err
		}
	}

	if injecting {
		elems = bsoncore.AppendTimestampElement(elems, "afterClusterTime", sess.OperationTime.T, sess.OperationTime.I)
	}

	if len(elems) == 0 {
		return nil, nil
	}

	return bsoncore.BuildDocument(nil, elems), nil
}

// appendDocumentElements appends src's elements to dst, skipping the given keys.
func appendDocumentElements(dst []byte, src bsoncore.Document, skip []string) ([]byte, error) {
	elems, err := src.Elements()
	if err != nil {
		return dst, err
	}

elements:
	for _, elem := range elems {
		for _, key := range skip {
			if elem.Key() == key {
				continue elements
			}
		}
		dst = bsoncore.AppendValueElement(dst, elem.Key(), elem.Value())
	}

	return dst, nil
}

func maxSessionClusterTime(sess *session.Client, clock *session.ClusterClock) bsoncore.Document {
	var clusterTime bsoncore.Document
	if clock != nil {
		clusterTime = clock.GetClusterTime()
	}

	if sess != nil {
		if clusterTime == nil {
			clusterTime = sess.ClusterTime
		} else {
			clusterTime = session.MaxClusterTime(clusterTime, sess.ClusterTime)
		}
	}

	return clusterTime
}

func responseClusterTime(response bsoncore.Document) bsoncore.Document {
	clusterTime, err := response.LookupErr("$clusterTime")
	if err != nil {
		// $clusterTime not included by the server
		return nil
	}

	return bsoncore.BuildDocument(nil, bsoncore.AppendValueElement(nil, "$clusterTime", clusterTime))
}

// UpdateClusterTimes advances the session's and the cluster clock's cluster
// time from a server response.
func UpdateClusterTimes(sess *session.Client, clock *session.ClusterClock, response bsoncore.Document) error {
	clusterTime := responseClusterTime(response)
	if clusterTime == nil {
		return nil
	}

	if sess != nil {
		if err := sess.AdvanceClusterTime(clusterTime); err != nil {
			return err
		}
	}

	if clock != nil {
		clock.AdvanceClusterTime(clusterTime)
	}

	return nil
}

// UpdateOperationTime advances the session's operation time from a server
// response.
func UpdateOperationTime(sess *session.Client, response bsoncore.Document) error {
	if sess == nil {
		return nil
	}

	opTimeElem, err := response.LookupErr("operationTime")
	if err != nil {
		// operationTime not included by the server
		return nil
	}

	t, i, ok := opTimeElem.TimestampOK()
	if !ok {
		return nil
	}

	return sess.AdvanceOperationTime(&primitive.Timestamp{T: t, I: i})
}

// ProcessReply applies the session-relevant pieces of a server reply to the
// session and the cluster clock. The cluster time is always gossiped; the
// operation time only advances when the command's write concern was
// acknowledged, since an unacknowledged reply carries no usable ordering.
func ProcessReply(sess *session.Client, clock *session.ClusterClock, response bsoncore.Document, acknowledged bool) error {
	if err := UpdateClusterTimes(sess, clock, response); err != nil {
		return err
	}

	if !acknowledged {
		return nil
	}

	if err := UpdateOperationTime(sess, response); err != nil {
		return err
	}

	if sess != nil {
		sess.UpdateSnapshotTime(response)
	}

	return nil
}
