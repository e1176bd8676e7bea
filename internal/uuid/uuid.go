// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package uuid generates the UUIDv4 identities used for logical sessions.
package uuid

import (
	guuid "github.com/google/uuid"
)

// UUID is a 16-byte universally unique identifier.
type UUID [16]byte

// New returns a random UUIDv4.
func New() (UUID, error) {
	id, err := guuid.NewRandom()
	return UUID(id), err
}

// Equal returns true if two UUIDs are equal.
func Equal(a, b UUID) bool {
	return a == b
}

func (id UUID) String() string {
	return guuid.UUID(id).String()
}
