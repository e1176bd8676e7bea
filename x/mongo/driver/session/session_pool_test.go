// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package session

import (
	"bytes"
	"testing"

	"github.com/ikmak/mongo-driver-core/internal/assert"
	"github.com/ikmak/mongo-driver-core/x/mongo/driver/description"
)

func TestSessionPool(t *testing.T) {
	t.Run("TestLifo", func(t *testing.T) {
		descChan := make(chan description.Topology)
		p := NewPool(descChan)
		// Set to some arbitrarily high number greater than 1 minute.
		p.latestTopology = topologyDescription{timeoutMinutes: 30}

		first, err := p.GetSession()
		assert.Nil(t, err, "GetSession error: %v", err)
		firstID := first.SessionID

		second, err := p.GetSession()
		assert.Nil(t, err, "GetSession error: %v", err)
		secondID := second.SessionID

		p.ReturnSession(first)
		p.ReturnSession(second)

		sess, err := p.GetSession()
		assert.Nil(t, err, "GetSession error: %v", err)
		nextSess, err := p.GetSession()
		assert.Nil(t, err, "GetSession error: %v", err)

		assert.True(t, bytes.Equal(sess.SessionID, secondID),
			"first session ID mismatch; expected %s, got %s", secondID, sess.SessionID)
		assert.True(t, bytes.Equal(nextSess.SessionID, firstID),
			"second session ID mismatch; expected %s, got %s", firstID, nextSess.SessionID)
	})

	t.Run("TestExpiredRemoved", func(t *testing.T) {
		descChan := make(chan description.Topology)
		p := NewPool(descChan)
		// New sessions will always become stale when returned
		p.latestTopology = topologyDescription{timeoutMinutes: 0}

		first, err := p.GetSession()
		assert.Nil(t, err, "GetSession error: %v", err)
		firstID := first.SessionID

		second, err := p.GetSession()
		assert.Nil(t, err, "GetSession error: %v", err)
		secondID := second.SessionID

		p.ReturnSession(first)
		p.ReturnSession(second)

		sess, err := p.GetSession()
		assert.Nil(t, err, "GetSession error: %v", err)

		assert.False(t, bytes.Equal(sess.SessionID, firstID), "first expired session was not removed")
		assert.False(t, bytes.Equal(sess.SessionID, secondID), "second expired session was not removed")
	})

	t.Run("TestTopologyUpdate", func(t *testing.T) {
		descChan := make(chan description.Topology, 1)
		p := NewPool(descChan)

		descChan <- description.Topology{Kind: description.Single, SessionTimeoutMinutes: 30}

		first, err := p.GetSession()
		assert.Nil(t, err, "GetSession error: %v", err)
		p.ReturnSession(first)

		// The timeout from the latest description should have been applied,
		// so the returned session is reusable.
		sess, err := p.GetSession()
		assert.Nil(t, err, "GetSession error: %v", err)
		assert.True(t, bytes.Equal(sess.SessionID, first.SessionID), "expected returned session to be reused")
	})

	t.Run("TestCheckedOut", func(t *testing.T) {
		descChan := make(chan description.Topology)
		p := NewPool(descChan)
		p.latestTopology = topologyDescription{timeoutMinutes: 30}

		first, err := p.GetSession()
		assert.Nil(t, err, "GetSession error: %v", err)
		second, err := p.GetSession()
		assert.Nil(t, err, "GetSession error: %v", err)

		assert.Equal(t, int64(2), p.CheckedOut(), "expected 2 sessions checked out, got %d", p.CheckedOut())

		p.ReturnSession(first)
		p.ReturnSession(second)

		assert.Equal(t, int64(0), p.CheckedOut(), "expected 0 sessions checked out, got %d", p.CheckedOut())
	})

	t.Run("TestIDSlice", func(t *testing.T) {
		descChan := make(chan description.Topology)
		p := NewPool(descChan)
		p.latestTopology = topologyDescription{timeoutMinutes: 30}

		first, err := p.GetSession()
		assert.Nil(t, err, "GetSession error: %v", err)
		second, err := p.GetSession()
		assert.Nil(t, err, "GetSession error: %v", err)

		p.ReturnSession(first)
		p.ReturnSession(second)

		ids := p.IDSlice()
		assert.Equal(t, 2, len(ids), "expected 2 ids in pool, got %d", len(ids))
	})
}
