// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package session

import (
	"bytes"
	"testing"

	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

func clusterTimeDoc(t, i uint32) bsoncore.Document {
	return bsoncore.BuildDocument(nil,
		bsoncore.AppendDocumentElement(nil, "$clusterTime",
			bsoncore.BuildDocument(nil, bsoncore.AppendTimestampElement(nil, "clusterTime", t, i))))
}

func TestClusterClock(t *testing.T) {
	var clusterTime1 = clusterTimeDoc(10, 5)
	var clusterTime2 = clusterTimeDoc(5, 5)
	var clusterTime3 = clusterTimeDoc(5, 0)

	t.Run("ClusterTime", func(t *testing.T) {
		clock := ClusterClock{}

		clock.AdvanceClusterTime(clusterTime3)
		done := clock.GetClusterTime()
		if !bytes.Equal(done, clusterTime3) {
			t.Errorf("Expected cluster time %v, received %v", clusterTime3, done)
		}

		clock.AdvanceClusterTime(clusterTime1)
		done = clock.GetClusterTime()
		if !bytes.Equal(done, clusterTime1) {
			t.Errorf("Expected cluster time %v, received %v", clusterTime1, done)
		}

		clock.AdvanceClusterTime(clusterTime2)
		done = clock.GetClusterTime()
		if !bytes.Equal(done, clusterTime1) {
			t.Errorf("Expected cluster time %v, received %v", clusterTime1, done)
		}
	})
}
