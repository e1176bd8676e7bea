// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package readconcern defines read concerns for MongoDB operations.
package readconcern

import (
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// A ReadConcern defines a MongoDB read concern, which allows you to control the
// consistency and isolation properties of the data read from replica sets and
// replica set shards.
type ReadConcern struct {
	Level string
}

// Option is an option to provide when creating a ReadConcern.
type Option func(concern *ReadConcern)

// Level creates an option that sets the level of a ReadConcern.
func Level(level string) Option {
	return func(concern *ReadConcern) {
		concern.Level = level
	}
}

// Local returns a ReadConcern that requests data from the instance with no
// guarantee that the data has been written to a majority of the replica set
// members (i.e. may be rolled back).
func Local() *ReadConcern {
	return New(Level("local"))
}

// Majority returns a ReadConcern that requests data that has been acknowledged
// by a majority of the replica set members (i.e. the documents read are
// durable and guaranteed not to roll back).
func Majority() *ReadConcern {
	return New(Level("majority"))
}

// Linearizable returns a ReadConcern that requests data that reflects all
// successful majority-acknowledged writes that completed prior to the start of
// the read operation.
func Linearizable() *ReadConcern {
	return New(Level("linearizable"))
}

// Available returns a ReadConcern that requests data from an instance with no
// guarantee that the data has been written to a majority of the replica set
// members (i.e. may be rolled back).
func Available() *ReadConcern {
	return New(Level("available"))
}

// Snapshot returns a ReadConcern that requests majority-committed data as it
// appears across shards from a specific single point in time in the recent
// past.
func Snapshot() *ReadConcern {
	return New(Level("snapshot"))
}

// New constructs a new read concern from the given string.
func New(options ...Option) *ReadConcern {
	concern := &ReadConcern{}

	for _, option := range options {
		option(concern)
	}

	return concern
}

// MarshalBSONValue implements the bson.ValueMarshaler interface.
func (rc *ReadConcern) MarshalBSONValue() (bsontype.Type, []byte, error) {
	var elems []byte

	if len(rc.Level) > 0 {
		elems = bsoncore.AppendStringElement(elems, "level", rc.Level)
	}

	return bsontype.EmbeddedDocument, bsoncore.BuildDocument(nil, elems), nil
}
