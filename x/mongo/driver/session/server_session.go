// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package session

import (
	"time"

	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"

	"github.com/ikmak/mongo-driver-core/internal/uuid"
	"github.com/ikmak/mongo-driver-core/x/mongo/driver/description"
)

// Server is an open session with the server. It owns the server-assigned
// identity (lsid) and the transaction counter tied to that identity.
type Server struct {
	SessionID bsoncore.Document
	TxnNumber int64
	LastUsed  time.Time
}

// returns whether or not a session has expired given a description of the
// deployment. A session is considered expired if it has less than 1 minute
// left before becoming stale.
func (ss *Server) expired(topoDesc topologyDescription) bool {
	// Load-balanced mode: sessions are pinned to a connection behind the
	// balancer and never tracked for expiry client-side.
	if topoDesc.kind == description.LoadBalanced {
		return false
	}

	if topoDesc.timeoutMinutes <= 0 {
		return true
	}

	timeUnused := time.Since(ss.LastUsed).Minutes()
	return timeUnused > float64(topoDesc.timeoutMinutes-1)
}

// update the last used time for this session.
// must be called whenever this server session is used to send a command to the server.
func (ss *Server) updateUseTime() {
	ss.LastUsed = time.Now()
}

func newServerSession() (*Server, error) {
	id, err := uuid.New()
	if err != nil {
		return nil, err
	}

	idx, idDoc := bsoncore.AppendDocumentStart(nil)
	idDoc = bsoncore.AppendBinaryElement(idDoc, "id", UUIDSubtype, id[:])
	idDoc, _ = bsoncore.AppendDocumentEnd(idDoc, idx)

	return &Server{
		SessionID: idDoc,
		LastUsed:  time.Now(),
	}, nil
}

// IncrementTxnNumber increments the transaction number. It must be called
// exactly once each time the owning session enters the Starting state, so the
// numbers seen on the wire are strictly increasing for a given identity.
func (ss *Server) IncrementTxnNumber() {
	ss.TxnNumber++
}

// UUIDSubtype is the BSON binary subtype that a UUID should be encoded as
const UUIDSubtype byte = 4
